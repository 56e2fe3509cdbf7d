package tank

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Accepted Time layouts. Zone-less layouts are read in the bucketing location.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// parseDistance accepts only finite numbers.
func parseDistance(d DistanceValue) (float64, bool) {
	s := strings.TrimSpace(string(d))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Prepare validates raw records and returns them in ascending time order, ties
// broken by id. Records that failed to decode or lack a usable Time are dropped
// and reported to hook; records with an unusable Distance are kept with
// HasDistance=false.
func Prepare(raw map[string]RawObservation, loc *time.Location, hook BucketHook) ([]Observation, Stats) {
	if loc == nil {
		loc = time.UTC
	}
	if hook == nil {
		hook = nopHook{}
	}

	stats := Stats{Total: len(raw)}
	out := make([]Observation, 0, len(raw))

	for id, r := range raw {
		if r.DecodeErr != nil {
			stats.Malformed++
			hook.ObserveMalformed(malformed(id, "undecodable record: "+r.DecodeErr.Error()))
			continue
		}
		rawTime := strings.TrimSpace(r.Time)
		if rawTime == "" {
			stats.Malformed++
			hook.ObserveMalformed(malformed(id, "missing Time"))
			continue
		}
		ts, ok := parseTime(rawTime, loc)
		if !ok {
			stats.Malformed++
			hook.ObserveMalformed(malformed(id, "unparseable Time "+strconv.Quote(rawTime)))
			continue
		}

		dist, ok := parseDistance(r.Distance)
		if ok {
			stats.Valid++
		} else {
			stats.InvalidDistance++
		}

		out = append(out, Observation{
			ID:          id,
			Time:        ts,
			RawTime:     r.Time,
			Distance:    dist,
			HasDistance: ok,
		})
	}

	slices.SortFunc(out, func(a, b Observation) int {
		if c := a.Time.Compare(b.Time); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	return out, stats
}

// Newest returns the most recent observation with a valid distance.
// Readings whose Distance does not parse are never selected.
func Newest(observations []Observation) (Observation, bool) {
	for i := len(observations) - 1; i >= 0; i-- {
		if observations[i].HasDistance {
			return observations[i], true
		}
	}
	return Observation{}, false
}
