package tank

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Service runs the fetch, aggregate and render pipeline and answers queries
// about the latest result.
type Service struct {
	mu sync.Mutex // serializes refreshes

	fetcher    Fetcher
	aggregator *Aggregator
	store      Store
	renderer   Renderer
	charts     ChartRegistry
	logger     zerolog.Logger

	// set when the last refresh found no usable data
	noData atomic.Bool
}

// NewService creates a new Service. renderer and charts may both be nil, in
// which case refreshes only compute and store dashboards.
func NewService(fetcher Fetcher, aggregator *Aggregator, store Store, renderer Renderer, charts ChartRegistry, logger zerolog.Logger) *Service {
	return &Service{
		fetcher:    fetcher,
		aggregator: aggregator,
		store:      store,
		renderer:   renderer,
		charts:     charts,
		logger:     logger.With().Str("component", "service").Logger(),
	}
}

// Refresh fetches the full observation set, rebuilds every series, stores the
// dashboard and re-renders all charts. Each render pass starts from an empty
// set that replaces the served charts only once it is complete.
// ErrNoData short-circuits before any render call and releases the charts of
// earlier passes; queries answer ErrNoData until a later refresh succeeds.
func (s *Service) Refresh(ctx context.Context) (Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()

	raw, err := s.fetcher.FetchAll(ctx)
	if err != nil {
		if errors.Is(err, ErrNoData) {
			s.logger.Info().Str("source", s.fetcher.Name()).Msg("no data available")
			s.enterNoData()
			return Dashboard{}, ErrNoData
		}
		var fe *FetchError
		if !errors.As(err, &fe) {
			err = &FetchError{Source: s.fetcher.Name(), Err: err}
		}
		s.logger.Error().Err(err).Str("source", s.fetcher.Name()).Msg("fetch failed")
		return Dashboard{}, err
	}

	d, err := s.aggregator.Build(raw)
	if err != nil {
		if errors.Is(err, ErrNoData) {
			s.logger.Info().
				Int("records", d.Stats.Total).
				Int("malformed", d.Stats.Malformed).
				Int("invalid_distance", d.Stats.InvalidDistance).
				Msg("no usable observations")
			s.enterNoData()
		}
		return Dashboard{}, err
	}

	s.store.SaveDashboard(d)
	s.noData.Store(false)

	if s.renderer != nil && s.charts != nil {
		staged := newChartSet()
		if err := s.renderer.Render(ctx, staged, d); err != nil {
			s.charts.Clear()
			s.logger.Error().Err(err).Str("dashboard", d.ID).Msg("render failed")
			return d, fmt.Errorf("render charts: %w", err)
		}
		s.charts.Swap(staged.list())
	}

	s.logger.Info().
		Str("dashboard", d.ID).
		Int("records", d.Stats.Total).
		Int("valid", d.Stats.Valid).
		Int("malformed", d.Stats.Malformed).
		Int("invalid_distance", d.Stats.InvalidDistance).
		Float64("percent", d.Latest.Percent).
		Dur("took", time.Since(started)).
		Msg("dashboard refreshed")

	return d, nil
}

func (s *Service) enterNoData() {
	s.noData.Store(true)
	if s.charts != nil {
		s.charts.Clear()
	}
}

// Latest returns the newest stored dashboard, or ErrNoData when the last
// refresh found nothing to show.
func (s *Service) Latest() (Dashboard, error) {
	if s.noData.Load() {
		return Dashboard{}, ErrNoData
	}
	return s.store.GetLatest()
}

// Averages returns the period series of the latest dashboard.
func (s *Service) Averages(period string) ([]BucketAverage, error) {
	p, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	d, err := s.Latest()
	if err != nil {
		return nil, err
	}
	return d.Averages[p], nil
}

// History returns summaries of the dashboards generated between from and to (inclusive).
func (s *Service) History(from, to time.Time) ([]Summary, error) {
	dashboards, err := s.store.GetRange(from, to)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(dashboards))
	for _, d := range dashboards {
		out = append(out, d.Summary())
	}
	return out, nil
}

// Chart returns a chart of the last successful render pass.
func (s *Service) Chart(name string) (Chart, bool) {
	if s.charts == nil {
		return Chart{}, false
	}
	return s.charts.Get(name)
}

// chartSet stages the charts of one render pass.
type chartSet struct {
	names  []string
	charts map[string]Chart
}

func newChartSet() *chartSet {
	return &chartSet{charts: make(map[string]Chart)}
}

func (c *chartSet) Replace(chart Chart) {
	if _, ok := c.charts[chart.Name]; !ok {
		c.names = append(c.names, chart.Name)
	}
	c.charts[chart.Name] = chart
}

func (c *chartSet) list() []Chart {
	out := make([]Chart, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, c.charts[name])
	}
	return out
}
