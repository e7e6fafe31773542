package telemetry

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// ErrNoSamples is returned when there is nothing to chart
var ErrNoSamples = errors.New("no samples to plot")

// panel selects one series of a trace
type panel struct {
	title  string
	ylabel string
	series func(Trace) (x, y []float64)
}

var panels = [2][2]panel{
	{
		{"Altitude", "altitude (m)", func(t Trace) ([]float64, []float64) {
			x, alt, _, _, _ := t.Columns()
			return x, alt
		}},
		{"Descent rate", "descent rate (m/s)", func(t Trace) ([]float64, []float64) {
			x, _, d, _, _ := t.Columns()
			return x, d
		}},
	},
	{
		{"Fuel", "fuel fraction", func(t Trace) ([]float64, []float64) {
			x, _, _, f, _ := t.Columns()
			return x, f
		}},
		{"Throttle", "throttle", func(t Trace) ([]float64, []float64) {
			x, _, _, _, th := t.Columns()
			return x, th
		}},
	},
}

// PlotTraces writes a 2×2 PNG chart of altitude, descent rate, fuel and
// throttle against time, one line per trace
func PlotTraces(path string, traces ...Trace) error {
	total := 0
	for _, tr := range traces {
		total += len(tr.Samples)
	}
	if total == 0 {
		return ErrNoSamples
	}

	plots := make([][]*plot.Plot, 2)
	for row := range panels {
		plots[row] = make([]*plot.Plot, 2)
		for col, pn := range panels[row] {
			p, err := newPanel(pn, traces)
			if err != nil {
				return err
			}
			plots[row][col] = p
		}
	}

	return savePNG(plots, 12*vg.Inch, 8*vg.Inch, path)
}

func newPanel(pn panel, traces []Trace) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = pn.title
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = pn.ylabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, tr := range traces {
		xs, ys := pn.series(tr)
		if len(xs) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(xs))
		for j := range xs {
			pts[j].X = xs[j]
			pts[j].Y = ys[j]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", pn.title, tr.Label, err)
		}
		line.LineStyle.Color = plotutil.Color(i)
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(tr.Label, line)
	}
	return p, nil
}

func savePNG(plots [][]*plot.Plot, w, h vg.Length, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}

	img := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(150))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      len(plots[0]),
		PadX:      vg.Millimeter * 6,
		PadY:      vg.Millimeter * 6,
		PadTop:    vg.Millimeter * 3,
		PadBottom: vg.Millimeter * 3,
		PadLeft:   vg.Millimeter * 3,
		PadRight:  vg.Millimeter * 3,
	}

	canvases := plot.Align(plots, tiles, dc)
	for row := range plots {
		for col := range plots[row] {
			plots[row][col].Draw(canvases[row][col])
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}
