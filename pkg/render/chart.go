// Package render draws the dashboard charts as PNG images. All unit scaling
// to display thousands happens here, never in the domain transforms.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/agflows/esr-dashboard/pkg/esr"
)

const displayScale = 1000 // raw units -> display thousands

var (
	currentYearColor = color.RGBA{R: 228, G: 137, B: 18, A: 255}
	wasdeLineColor   = color.RGBA{A: 255}
)

// priorYearColor shades older years lighter, the most recent prior year darkest
func priorYearColor(index, total int) color.Color {
	if total <= 1 {
		return color.Gray{Y: 110}
	}
	// grey ramp from 180 (oldest) down to 60
	shade := 180 - uint8(float64(index)/float64(total-1)*120)
	return color.Gray{Y: shade}
}

// SeasonalLineChart draws one line per marketing year on the aligned weekly
// axis: prior years in greys, the current year highlighted, and an optional
// dashed WASDE reference. wasde <= 0 omits the reference line.
func SeasonalLineChart(series esr.SeasonalSeries, currentMY int, ticks []string, title, unit string, wasde float64) ([]byte, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no seasonal series to draw")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Marketing Week"
	p.Y.Label.Text = yAxisLabel(unit)
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	years := series.Years()
	var priors []int
	for _, my := range years {
		if my != currentMY {
			priors = append(priors, my)
		}
	}

	maxWeek := len(ticks)
	for i, my := range priors {
		line, err := yearLine(series[my])
		if err != nil {
			return nil, err
		}
		if line == nil {
			continue // empty year, nothing to draw
		}
		line.Color = priorYearColor(i, len(priors))
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%d", my), line)
	}

	if current, err := yearLine(series[currentMY]); err != nil {
		return nil, err
	} else if current != nil {
		current.Color = currentYearColor
		current.Width = vg.Points(2.5)
		p.Add(current)
		p.Legend.Add(fmt.Sprintf("%d (current)", currentMY), current)
	}

	if wasde > 0 {
		ref, err := plotter.NewLine(plotter.XYs{
			{X: 1, Y: wasde / displayScale},
			{X: float64(maxWeek), Y: wasde / displayScale},
		})
		if err != nil {
			return nil, err
		}
		ref.Color = wasdeLineColor
		ref.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(ref)
		p.Legend.Add(fmt.Sprintf("WASDE: %s", formatThousands(wasde/displayScale)), ref)
	}

	if maxWeek > 0 {
		p.X.Min = 0.5
		p.X.Max = float64(maxWeek) + 2 // room for the legend past week 52
		p.X.Tick.Marker = monthTicker(ticks)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	return writePNG(p, 10*vg.Inch, 6*vg.Inch)
}

// CommitmentsChart draws per-country shipments with outstanding sales stacked
// on top, countries ordered as given (callers pass them commitment-sorted).
func CommitmentsChart(rows []esr.CommitmentRow, title, unit string) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no commitment rows to draw")
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yAxisLabel(unit)
	p.Y.Min = 0

	shipped := make(plotter.Values, len(rows))
	outstanding := make(plotter.Values, len(rows))
	labels := make([]string, len(rows))
	for i, row := range rows {
		shipped[i] = row.Shipments / displayScale
		outstanding[i] = row.Outstanding / displayScale
		labels[i] = row.Country
	}

	shippedBars, err := plotter.NewBarChart(shipped, vg.Points(14))
	if err != nil {
		return nil, err
	}
	shippedBars.Color = color.RGBA{R: 88, G: 129, B: 87, A: 255}
	shippedBars.LineStyle.Width = 0

	outstandingBars, err := plotter.NewBarChart(outstanding, vg.Points(14))
	if err != nil {
		return nil, err
	}
	outstandingBars.Color = color.RGBA{R: 163, G: 177, B: 138, A: 255}
	outstandingBars.LineStyle.Width = 0
	outstandingBars.StackOn(shippedBars)

	p.Add(shippedBars, outstandingBars)
	p.Legend.Add("Shipments", shippedBars)
	p.Legend.Add("Outstanding", outstandingBars)
	p.Legend.Top = true

	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 3
	p.X.Tick.Label.YAlign = draw.YCenter
	p.X.Tick.Label.XAlign = draw.XRight

	return writePNG(p, 8*vg.Inch, 5*vg.Inch)
}

// yearLine builds the plotted line for one marketing year, nil when the year
// has no points.
func yearLine(points []esr.WeekValue) (*plotter.Line, error) {
	if len(points) == 0 {
		return nil, nil
	}

	xys := make(plotter.XYs, len(points))
	for i, p := range points {
		xys[i].X = float64(p.Week)
		xys[i].Y = p.Value / displayScale
	}
	return plotter.NewLine(xys)
}

// monthTicker places a labeled tick every four weeks using the fiscal month labels
func monthTicker(labels []string) plot.ConstantTicks {
	var ticks []plot.Tick
	for w := 1; w <= len(labels); w += esr.WeeksPerMonthTick {
		ticks = append(ticks, plot.Tick{Value: float64(w), Label: labels[w-1]})
	}
	return plot.ConstantTicks(ticks)
}

func yAxisLabel(unit string) string {
	if unit == "" {
		return "Thousands"
	}
	return "Thousands of " + unit
}

func formatThousands(v float64) string {
	return fmt.Sprintf("%.0f", v)
}

func writePNG(p *plot.Plot, w, h vg.Length) ([]byte, error) {
	writer, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode chart PNG: %w", err)
	}
	return buf.Bytes(), nil
}
