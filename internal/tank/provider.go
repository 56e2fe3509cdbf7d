package tank

import (
	"context"
	"time"
)

// Fetcher abstracts the observation store (e.g. a Firebase Realtime Database path).
// FetchAll returns ErrNoData when the path does not exist or is empty, and a
// *FetchError for transport or auth failures.
type Fetcher interface {
	Name() string
	FetchAll(ctx context.Context) (map[string]RawObservation, error)
}

// Store is the contract the in-memory dashboard store must satisfy.
type Store interface {
	SaveDashboard(d Dashboard)
	GetLatest() (Dashboard, error)
	GetRange(from, to time.Time) ([]Dashboard, error)
}

// Chart is one rendered chart image.
type Chart struct {
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	ContentType string    `json:"contentType"`
	Data        []byte    `json:"-"`
	RenderedAt  time.Time `json:"renderedAt"`
}

// ChartSink receives the charts of one render pass. Replace installs c under
// c.Name, releasing any chart previously held under that name.
type ChartSink interface {
	Replace(c Chart)
}

// ChartRegistry owns the chart resources served to readers.
// Clear releases every chart; Swap releases every chart and installs charts
// in one step, so readers never see a partially rendered pass.
type ChartRegistry interface {
	ChartSink
	Clear()
	Swap(charts []Chart)
	Get(name string) (Chart, bool)
}

// Renderer draws the dashboard series into the given sink.
type Renderer interface {
	Render(ctx context.Context, charts ChartSink, d Dashboard) error
}
