package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/water-tank-dashboard/internal/tank"
)

func TestNewLevels(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":      zerolog.InfoLevel,
		"debug": zerolog.DebugLevel,
		"WARN":  zerolog.WarnLevel,
	}
	for in, want := range cases {
		logger, err := New(in, false, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", in, err)
		}
		if logger.GetLevel() != want {
			t.Fatalf("%q: level = %v, want %v", in, logger.GetLevel(), want)
		}
	}

	if _, err := New("loud", false, nil); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestBucketHookWritesStructuredEntries(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("debug", false, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hook := NewBucketHook(logger)

	hook.ObserveBucket(tank.PeriodDaily, tank.BucketKey{Period: tank.PeriodDaily, Year: 2024, Month: time.January, Day: 1}, 2)
	hook.ObserveMalformed(errors.New("missing Time"))

	out := buf.String()
	for _, want := range []string{`"bucket":"2024-01-01"`, `"count":2`, `"level":"warn"`, `"service":"water-tank-dashboard"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %s:\n%s", want, out)
		}
	}
}
