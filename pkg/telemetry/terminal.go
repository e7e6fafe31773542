package telemetry

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/opd-ai/go-lander/pkg/event"
)

// traceSymbols are the plot characters of successive traces
var traceSymbols = []rune{'*', '+', 'o', '#'}

// markSymbols are drawn over the curve at discrete events
var markSymbols = map[event.Type]rune{
	event.ParachuteDeployed: 'P',
	event.ParachuteLost:     'L',
	event.FuelExhausted:     'F',
	event.Landed:            'V',
	event.Crashed:           'X',
}

// TerminalRenderer draws altitude-against-time strip charts as ASCII
type TerminalRenderer struct {
	width  int
	height int
	buffer [][]rune

	maxTime     float64
	maxAltitude float64
}

// NewTerminalRenderer creates a renderer with the given plot area size
func NewTerminalRenderer(width, height int) *TerminalRenderer {
	if width < 2 {
		width = 2
	}
	if height < 2 {
		height = 2
	}
	buffer := make([][]rune, height)
	for i := range buffer {
		buffer[i] = make([]rune, width)
	}
	return &TerminalRenderer{width: width, height: height, buffer: buffer}
}

// Clear blanks the plot area
func (r *TerminalRenderer) Clear() {
	for y := range r.buffer {
		for x := range r.buffer[y] {
			r.buffer[y][x] = ' '
		}
	}
}

// toScreen converts a time and altitude to buffer coordinates; row 0 is
// the top of the chart
func (r *TerminalRenderer) toScreen(t, altitude float64) (int, int) {
	x := int(math.Round(t / r.maxTime * float64(r.width-1)))
	y := r.height - 1 - int(math.Round(altitude/r.maxAltitude*float64(r.height-1)))
	return x, y
}

func (r *TerminalRenderer) set(x, y int, c rune) {
	if x >= 0 && x < r.width && y >= 0 && y < r.height {
		r.buffer[y][x] = c
	}
}

// scale fits the axes to the largest time and altitude of all traces
func (r *TerminalRenderer) scale(traces []Trace) {
	r.maxTime, r.maxAltitude = 0, 0
	for _, tr := range traces {
		for _, s := range tr.Samples {
			r.maxTime = math.Max(r.maxTime, s.Time)
			r.maxAltitude = math.Max(r.maxAltitude, s.Altitude)
		}
	}
	if r.maxTime <= 0 {
		r.maxTime = 1
	}
	if r.maxAltitude <= 0 {
		r.maxAltitude = 1
	}
}

// RenderTrace plots one trace with the given symbol, then its event marks
func (r *TerminalRenderer) RenderTrace(tr Trace, symbol rune) {
	for _, s := range tr.Samples {
		x, y := r.toScreen(s.Time, math.Max(s.Altitude, 0))
		r.set(x, y, symbol)
	}
	for _, m := range tr.Marks {
		c, ok := markSymbols[m.Type]
		if !ok {
			continue
		}
		x, y := r.toScreen(m.Time, altitudeAt(tr, m.Time))
		r.set(x, y, c)
	}
}

// Render draws the traces into w with axis labels and a legend
func (r *TerminalRenderer) Render(w io.Writer, traces ...Trace) error {
	r.Clear()
	r.scale(traces)
	for i, tr := range traces {
		r.RenderTrace(tr, traceSymbols[i%len(traceSymbols)])
	}

	bw := bufio.NewWriter(w)
	label := fmt.Sprintf("%.0f m", r.maxAltitude)
	pad := len(label)

	fmt.Fprintf(bw, "%s +%s+\n", label, strings.Repeat("-", r.width))
	for y := range r.buffer {
		fmt.Fprintf(bw, "%*s |%s|\n", pad, "", string(r.buffer[y]))
	}
	fmt.Fprintf(bw, "%*s +%s+\n", pad, "0", strings.Repeat("-", r.width))
	fmt.Fprintf(bw, "%*s  0 s%*s\n", pad, "", r.width-3, fmt.Sprintf("%.0f s", r.maxTime))

	for i, tr := range traces {
		fmt.Fprintf(bw, "  %c %s\n", traceSymbols[i%len(traceSymbols)], tr.Label)
	}
	return bw.Flush()
}

// altitudeAt returns the altitude of the last sample at or before t
func altitudeAt(tr Trace, t float64) float64 {
	alt := 0.0
	for _, s := range tr.Samples {
		if s.Time > t {
			break
		}
		alt = s.Altitude
	}
	return math.Max(alt, 0)
}
