package tank

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Aggregator turns observations into period averages and fill levels.
// tankFull is the sensor distance that corresponds to an empty-to-full reference:
// fill = tankFull - distance.
type Aggregator struct {
	tankFull float64
	loc      *time.Location
	hook     BucketHook
}

// NewAggregator creates an Aggregator. loc controls calendar boundaries for
// bucketing (nil means UTC); hook may be nil.
func NewAggregator(tankFullDistance float64, loc *time.Location, hook BucketHook) (*Aggregator, error) {
	if math.IsNaN(tankFullDistance) || math.IsInf(tankFullDistance, 0) || tankFullDistance <= 0 {
		return nil, fmt.Errorf("tank full distance must be a positive finite number, got %v", tankFullDistance)
	}
	if loc == nil {
		loc = time.UTC
	}
	if hook == nil {
		hook = nopHook{}
	}
	return &Aggregator{
		tankFull: tankFullDistance,
		loc:      loc,
		hook:     hook,
	}, nil
}

// TankFullDistance returns the calibration constant used by this Aggregator.
func (a *Aggregator) TankFullDistance() float64 {
	return a.tankFull
}

// Location returns the bucketing location.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// BucketKeyFor derives the bucket of ts for the given period.
func (a *Aggregator) BucketKeyFor(ts time.Time, period Period) (BucketKey, error) {
	t := ts.In(a.loc)
	y, m, d := t.Date()

	switch period {
	case PeriodDaily:
		return BucketKey{Period: period, Year: y, Month: m, Day: d}, nil
	case PeriodWeekly:
		// Weeks start on Sunday (Weekday 0).
		sy, sm, sd := time.Date(y, m, d-int(t.Weekday()), 0, 0, 0, 0, a.loc).Date()
		return BucketKey{Period: period, Year: sy, Month: sm, Day: sd}, nil
	case PeriodMonthly:
		return BucketKey{Period: period, Year: y, Month: m, Day: 1}, nil
	case PeriodAnnual:
		return BucketKey{Period: period, Year: y, Month: time.January, Day: 1}, nil
	}
	return BucketKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
}

type bucket struct {
	sum   float64
	count int
	time  time.Time
}

// Averages groups observations into period buckets and returns one point per
// bucket in chronological order. Observations without a valid distance are
// skipped, and a bucket only exists once it holds a valid distance.
// The representative time of a bucket is its first-seen observation.
func (a *Aggregator) Averages(observations []Observation, period Period) ([]BucketAverage, error) {
	if _, err := ParsePeriod(string(period)); err != nil {
		return nil, err
	}

	buckets := make(map[BucketKey]*bucket)
	var keys []BucketKey

	for _, obs := range observations {
		if !obs.HasDistance {
			continue
		}
		key, err := a.BucketKeyFor(obs.Time, period)
		if err != nil {
			return nil, err
		}

		b, ok := buckets[key]
		if !ok {
			b = &bucket{time: obs.Time}
			buckets[key] = b
			keys = append(keys, key)
		}
		b.sum += obs.Distance
		b.count++
	}

	slices.SortFunc(keys, BucketKey.compare)

	out := make([]BucketAverage, 0, len(keys))
	for _, key := range keys {
		b := buckets[key]
		if b.count == 0 {
			continue
		}
		mean := b.sum / float64(b.count)
		a.hook.ObserveBucket(period, key, b.count)

		out = append(out, BucketAverage{
			Key:          key.String(),
			Start:        key.Start(a.loc),
			Time:         b.time,
			Average:      a.tankFull - mean,
			MeanDistance: mean,
			Count:        b.count,
		})
	}
	return out, nil
}

// RawSeries returns tankFull - distance for every valid observation, in input order.
func (a *Aggregator) RawSeries(observations []Observation) []RawPoint {
	out := make([]RawPoint, 0, len(observations))
	for _, obs := range observations {
		if !obs.HasDistance {
			continue
		}
		out = append(out, RawPoint{Time: obs.Time, Value: a.tankFull - obs.Distance})
	}
	return out
}

// Build regenerates a complete Dashboard from a fresh set of raw records.
// It returns ErrNoData when no record carries both a Time and a valid Distance.
func (a *Aggregator) Build(raw map[string]RawObservation) (Dashboard, error) {
	observations, stats := Prepare(raw, a.loc, a.hook)

	newest, ok := Newest(observations)
	if !ok {
		return Dashboard{Stats: stats}, ErrNoData
	}

	latest := a.Normalize(newest.Distance)
	latest.Time = newest.Time
	latest.RawTime = newest.RawTime

	averages := make(map[Period][]BucketAverage, len(Periods()))
	for _, p := range Periods() {
		series, err := a.Averages(observations, p)
		if err != nil {
			return Dashboard{Stats: stats}, err
		}
		averages[p] = series
	}

	return Dashboard{
		ID:               uuid.NewString(),
		GeneratedAt:      time.Now().UTC(),
		TankFullDistance: a.tankFull,
		Latest:           latest,
		Raw:              a.RawSeries(observations),
		Averages:         averages,
		Stats:            stats,
	}, nil
}
