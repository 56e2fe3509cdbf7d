package render

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/i474232898/water-tank-dashboard/internal/tank"
)

// Chart names served under /charts/:name.
const (
	ChartDistance = "distance"
	ChartDaily    = "daily"
	ChartWeekly   = "weekly"
	ChartMonthly  = "monthly"
	ChartAnnual   = "annual"
)

type chartSpec struct {
	name   string
	title  string
	layout string
	color  drawing.Color
	pad    time.Duration // x offset used to widen single-point series
}

var periodCharts = map[tank.Period]chartSpec{
	tank.PeriodDaily:   {ChartDaily, "Daily Average Consumption", "2006-01-02", drawing.Color{R: 255, G: 99, B: 132, A: 255}, 24 * time.Hour},
	tank.PeriodWeekly:  {ChartWeekly, "Weekly Average Consumption", "2006-01-02", drawing.Color{R: 54, G: 162, B: 235, A: 255}, 7 * 24 * time.Hour},
	tank.PeriodMonthly: {ChartMonthly, "Monthly Average Consumption", "Jan 2006", drawing.Color{R: 255, G: 159, B: 64, A: 255}, 31 * 24 * time.Hour},
	tank.PeriodAnnual:  {ChartAnnual, "Annual Average Consumption", "2006", drawing.Color{R: 153, G: 102, B: 255, A: 255}, 366 * 24 * time.Hour},
}

var distanceChart = chartSpec{ChartDistance, "Water Consumption vs Time", "01-02 15:04", drawing.Color{R: 75, G: 192, B: 192, A: 255}, time.Minute}

// ChartRenderer draws dashboard series as PNG line charts.
type ChartRenderer struct {
	width  int
	height int
	logger zerolog.Logger
}

// NewChartRenderer creates a renderer producing width x height images.
func NewChartRenderer(width, height int, logger zerolog.Logger) *ChartRenderer {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 300
	}
	return &ChartRenderer{
		width:  width,
		height: height,
		logger: logger.With().Str("component", "renderer").Logger(),
	}
}

// Render draws the raw chart and one chart per period into charts.
// Series without points produce no chart.
func (r *ChartRenderer) Render(ctx context.Context, charts tank.ChartSink, d tank.Dashboard) error {
	xs := make([]time.Time, 0, len(d.Raw))
	ys := make([]float64, 0, len(d.Raw))
	for _, p := range d.Raw {
		xs = append(xs, p.Time)
		ys = append(ys, p.Value)
	}
	if err := r.draw(ctx, charts, distanceChart, xs, ys); err != nil {
		return err
	}

	for _, period := range tank.Periods() {
		spec := periodCharts[period]
		series := d.Averages[period]
		xs := make([]time.Time, 0, len(series))
		ys := make([]float64, 0, len(series))
		for _, b := range series {
			xs = append(xs, b.Start)
			ys = append(ys, b.Average)
		}
		if err := r.draw(ctx, charts, spec, xs, ys); err != nil {
			return err
		}
	}
	return nil
}

func (r *ChartRenderer) draw(ctx context.Context, charts tank.ChartSink, spec chartSpec, xs []time.Time, ys []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(xs) == 0 {
		r.logger.Debug().Str("chart", spec.name).Msg("empty series, skipping")
		return nil
	}

	// The chart library needs a non-zero range on both axes.
	if xs[0].Equal(xs[len(xs)-1]) {
		xs = append(slices.Clone(xs), xs[0].Add(spec.pad))
		ys = append(slices.Clone(ys), ys[len(ys)-1])
	}

	style := chart.Style{
		StrokeColor: spec.color,
		StrokeWidth: 2,
		DotColor:    spec.color,
		DotWidth:    3,
	}

	ch := chart.Chart{
		Title:      spec.title,
		Width:      r.width,
		Height:     r.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{ValueFormatter: chart.TimeValueFormatterWithFormat(spec.layout)},
		YAxis:      chart.YAxis{Range: valueRange(ys)},
		Series: []chart.Series{
			chart.TimeSeries{Name: spec.title, XValues: xs, YValues: ys, Style: style},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return fmt.Errorf("render %s chart: %w", spec.name, err)
	}

	charts.Replace(tank.Chart{
		Name:        spec.name,
		Title:       spec.title,
		ContentType: "image/png",
		Data:        buf.Bytes(),
		RenderedAt:  time.Now().UTC(),
	})
	return nil
}

// valueRange returns the y range of ys with a 5% margin; flat series get a
// margin of one unit.
func valueRange(ys []float64) *chart.ContinuousRange {
	lo, hi := slices.Min(ys), slices.Max(ys)
	margin := (hi - lo) * 0.05
	if margin == 0 {
		margin = 1
	}
	return &chart.ContinuousRange{Min: lo - margin, Max: hi + margin}
}
