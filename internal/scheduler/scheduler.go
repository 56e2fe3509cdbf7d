package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/i474232898/water-tank-dashboard/internal/tank"
)

// Refresher is the part of tank.Service the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context) (tank.Dashboard, error)
}

// Scheduler triggers dashboard refreshes: once at startup, then every
// interval when interval is positive.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	interval  time.Duration
	timeout   time.Duration
	logger    zerolog.Logger
}

// New creates a new Scheduler.
func New(interval time.Duration, service Refresher, logger zerolog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		interval:  interval,
		timeout:   time.Minute,
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	var err error
	if s.interval <= 0 {
		s.logger.Info().Msg("refresh interval not set; fetching once")
		_, err = s.scheduler.Every(1).Day().LimitRunsTo(1).Do(s.run)
	} else {
		s.logger.Info().Dur("interval", s.interval).Msg("scheduling periodic refresh")
		_, err = s.scheduler.Every(s.interval).SingletonMode().Do(s.run)
	}
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// run is the sole entry point into fetch, aggregation and rendering. Every
// outcome is logged; none is fatal.
func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.logger.Debug().Msg("running refresh job")

	_, err := s.service.Refresh(ctx)
	var fe *tank.FetchError
	switch {
	case err == nil:
	case errors.Is(err, tank.ErrNoData):
		s.logger.Info().Msg("refresh finished: no data available")
	case errors.As(err, &fe):
		s.logger.Error().Err(err).Str("source", fe.Source).Msg("refresh failed: fetch error")
	default:
		s.logger.Error().Err(err).Msg("refresh failed")
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
