package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/water-tank-dashboard/internal/tank"
)

// New builds the root logger. An empty level means info; pretty switches to
// human-readable console output.
func New(level string, pretty bool, w io.Writer) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	lvl := zerolog.InfoLevel
	if level = strings.TrimSpace(level); level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "water-tank-dashboard").Logger(), nil
}

// BucketHook reports aggregation diagnostics through a logger: bucket counts
// at debug level, skipped records at warn level.
type BucketHook struct {
	logger zerolog.Logger
}

// NewBucketHook creates a tank.BucketHook backed by logger.
func NewBucketHook(logger zerolog.Logger) *BucketHook {
	return &BucketHook{logger: logger.With().Str("component", "aggregator").Logger()}
}

func (h *BucketHook) ObserveBucket(period tank.Period, key tank.BucketKey, count int) {
	h.logger.Debug().
		Str("period", string(period)).
		Str("bucket", key.String()).
		Int("count", count).
		Msg("bucket aggregated")
}

func (h *BucketHook) ObserveMalformed(err error) {
	h.logger.Warn().Err(err).Msg("observation skipped")
}
