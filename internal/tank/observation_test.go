package tank

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRawObservationAcceptsStringAndNumberDistance(t *testing.T) {
	payload := `{
		"a": {"Time": "2024-01-01T00:00:00Z", "Distance": "12.5"},
		"b": {"Time": "2024-01-01T00:00:00Z", "Distance": 30},
		"c": {"Time": "2024-01-01T00:00:00Z", "Distance": null},
		"d": {"Time": "2024-01-01T00:00:00Z"}
	}`

	var raw map[string]RawObservation
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := map[string]struct {
		value float64
		ok    bool
	}{
		"a": {12.5, true},
		"b": {30, true},
		"c": {0, false},
		"d": {0, false},
	}
	for id, want := range cases {
		got, ok := parseDistance(raw[id].Distance)
		if ok != want.ok || got != want.value {
			t.Fatalf("%s: parseDistance = (%v, %v), want (%v, %v)", id, got, ok, want.value, want.ok)
		}
	}
}

func TestParseDistanceRejectsNonFinite(t *testing.T) {
	for _, s := range []string{"abc", "NaN", "Inf", "-Inf", "", "  "} {
		if _, ok := parseDistance(DistanceValue(s)); ok {
			t.Fatalf("expected %q to be rejected", s)
		}
	}
	if v, ok := parseDistance(" 42 "); !ok || v != 42 {
		t.Fatalf("expected padded number to parse, got (%v, %v)", v, ok)
	}
}

func TestPrepareSortsAndClassifies(t *testing.T) {
	raw := map[string]RawObservation{
		"z":     {Time: "2024-01-02 08:00:00", Distance: "5"},
		"b":     {Time: "2024-01-01T08:00:00Z", Distance: "6"},
		"a":     {Time: "2024-01-01T08:00:00Z", Distance: "7"},
		"nano":  {Time: "2024-01-01T07:00:00.123456Z", Distance: "8"},
		"blank": {Time: "   ", Distance: "1"},
		"junk":  {Time: "yesterday", Distance: "1"},
		"bad":   {Time: "2024-01-03", Distance: "x"},
	}

	observations, stats := Prepare(raw, time.UTC, nil)

	wantOrder := []string{"nano", "a", "b", "z", "bad"}
	if len(observations) != len(wantOrder) {
		t.Fatalf("expected %d observations, got %d", len(wantOrder), len(observations))
	}
	for i, id := range wantOrder {
		if observations[i].ID != id {
			t.Fatalf("observations[%d] = %s, want %s", i, observations[i].ID, id)
		}
	}

	want := Stats{Total: 7, Valid: 4, Malformed: 2, InvalidDistance: 1}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}

	newest, ok := Newest(observations)
	if !ok || newest.ID != "z" {
		t.Fatalf("expected newest valid observation z, got %+v (ok=%v)", newest, ok)
	}
}

func TestPrepareReadsZonelessTimesInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	observations, _ := Prepare(map[string]RawObservation{
		"a": {Time: "2024-06-01 01:00:00", Distance: "1"},
	}, loc, nil)

	if len(observations) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(observations))
	}
	want := time.Date(2024, 5, 31, 23, 0, 0, 0, time.UTC)
	if !observations[0].Time.Equal(want) {
		t.Fatalf("expected %v, got %v", want, observations[0].Time.UTC())
	}
}

func TestNewestWithoutValidDistance(t *testing.T) {
	_, ok := Newest([]Observation{{ID: "a", HasDistance: false}})
	if ok {
		t.Fatalf("expected no newest observation")
	}
}

func TestPrepareReportsDecodeFailures(t *testing.T) {
	raw := map[string]RawObservation{
		"ok":    {Time: "2024-01-01T00:00:00Z", Distance: "10"},
		"epoch": {DecodeErr: errors.New("json: cannot unmarshal number into Go struct field RawObservation.Time of type string")},
	}
	hook := &recordingHook{}

	obs, stats := Prepare(raw, time.UTC, hook)
	if len(obs) != 1 || stats.Malformed != 1 || stats.Valid != 1 {
		t.Fatalf("unexpected result %d observations, stats %+v", len(obs), stats)
	}
	if len(hook.malformed) != 1 {
		t.Fatalf("expected one malformed report, got %v", hook.malformed)
	}
	msg := hook.malformed[0].Error()
	if !errors.Is(hook.malformed[0], ErrMalformedObservation) || !strings.Contains(msg, "undecodable") || !strings.Contains(msg, "cannot unmarshal number") {
		t.Fatalf("malformed report should carry the decode error, got %q", msg)
	}
}
