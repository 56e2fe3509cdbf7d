package tank

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"time"
)

// Period selects the bucketing granularity for averages.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAnnual  Period = "annual"
)

// Periods lists every supported period in display order.
func Periods() []Period {
	return []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAnnual}
}

// ParsePeriod maps a selector string to a Period.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAnnual:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

// DistanceValue holds the raw Distance field, which sensors write either as a
// JSON string or as a JSON number.
type DistanceValue string

func (d *DistanceValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*d = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = DistanceValue(s)
		return nil
	}
	// Numbers (and anything else) are kept verbatim and validated on parse.
	*d = DistanceValue(b)
	return nil
}

// RawObservation is one record as stored under the sensor path.
type RawObservation struct {
	Time     string        `json:"Time"`
	Distance DistanceValue `json:"Distance"`

	// DecodeErr is set by fetchers when the record could not be decoded.
	DecodeErr error `json:"-"`
}

// Observation is a validated reading. Observations without a usable Time never
// get this far; HasDistance is false when Distance did not parse to a finite number.
type Observation struct {
	ID          string    `json:"id"`
	Time        time.Time `json:"time"`
	RawTime     string    `json:"rawTime"`
	Distance    float64   `json:"distance"`
	HasDistance bool      `json:"hasDistance"`
}

// BucketKey identifies one period bucket. Fields finer than the period are
// normalized (Month=1 for annual, Day=1 for monthly and annual).
type BucketKey struct {
	Period Period     `json:"period"`
	Year   int        `json:"year"`
	Month  time.Month `json:"month"`
	Day    int        `json:"day"`
}

// String renders the key zero-padded so that keys never collide and sort
// lexically in chronological order.
func (k BucketKey) String() string {
	switch k.Period {
	case PeriodMonthly:
		return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
	case PeriodAnnual:
		return fmt.Sprintf("%04d", k.Year)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", k.Year, int(k.Month), k.Day)
	}
}

// Start returns the first instant of the bucket in loc.
func (k BucketKey) Start(loc *time.Location) time.Time {
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, loc)
}

func (k BucketKey) compare(o BucketKey) int {
	if c := cmp.Compare(k.Year, o.Year); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Month, o.Month); c != 0 {
		return c
	}
	return cmp.Compare(k.Day, o.Day)
}

// BucketAverage is one emitted point of a period series.
type BucketAverage struct {
	Key          string    `json:"key"`
	Start        time.Time `json:"start"`
	Time         time.Time `json:"time"` // first-seen observation in the bucket
	Average      float64   `json:"average"`
	MeanDistance float64   `json:"meanDistance"`
	Count        int       `json:"count"`
}

// RawPoint is one chronological point of the raw chart: tankFullDistance - distance.
type RawPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// LevelBand classifies a fill percentage for display.
type LevelBand string

const (
	BandLow    LevelBand = "low"
	BandMedium LevelBand = "medium"
	BandNormal LevelBand = "normal"
)

// FillLevel is the normalized view of the newest reading.
type FillLevel struct {
	Time     time.Time `json:"time"`
	RawTime  string    `json:"rawTime,omitempty"`
	Distance float64   `json:"distance"`
	Level    float64   `json:"level"`   // clamped to [0, tankFullDistance]
	Percent  float64   `json:"percent"` // one decimal place
	Band     LevelBand `json:"band"`
}

// Stats counts how the fetched records were classified.
type Stats struct {
	Total           int `json:"total"`
	Valid           int `json:"valid"`
	Malformed       int `json:"malformed"`
	InvalidDistance int `json:"invalidDistance"`
}

// Dashboard is everything one refresh produces.
type Dashboard struct {
	ID               string                     `json:"id"`
	GeneratedAt      time.Time                  `json:"generatedAt"` // always UTC
	TankFullDistance float64                    `json:"tankFullDistance"`
	Latest           FillLevel                  `json:"latest"`
	Raw              []RawPoint                 `json:"raw"`
	Averages         map[Period][]BucketAverage `json:"averages"`
	Stats            Stats                      `json:"stats"`
}

// Summary is the compact form served by the history endpoint.
type Summary struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generatedAt"`
	Latest      FillLevel `json:"latest"`
	Stats       Stats     `json:"stats"`
}

func (d Dashboard) Summary() Summary {
	return Summary{
		ID:          d.ID,
		GeneratedAt: d.GeneratedAt,
		Latest:      d.Latest,
		Stats:       d.Stats,
	}
}
