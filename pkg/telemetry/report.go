package telemetry

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/opd-ai/go-lander/pkg/lander"
)

// WriteReport prints the end-of-episode summary
func WriteReport(w io.Writer, label string, r lander.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	headline := "Lander is still flying"
	switch {
	case r.Crashed:
		headline = "Lander crashed"
	case r.Landed:
		headline = "Lander landed safely"
	}
	if label != "" {
		headline = label + ": " + headline
	}

	fmt.Fprintln(tw, headline)
	fmt.Fprintf(tw, "  time\t%.1f s\t(%d steps)\n", r.Time, r.Steps)
	fmt.Fprintf(tw, "  altitude\t%.3f m\t\n", r.Altitude)
	fmt.Fprintf(tw, "  ground speed\t%.3f m/s\t\n", r.GroundSpeed)
	fmt.Fprintf(tw, "  descent rate\t%.3f m/s\t\n", r.DescentRate)
	fmt.Fprintf(tw, "  fuel remaining\t%.2f l\t\n", r.FuelLitres)
	if r.ThrottleGranularity > 0 {
		fmt.Fprintf(tw, "  throttle\t%d/%d\t\n", r.ThrottleSetting, r.ThrottleGranularity)
	}
	fmt.Fprintf(tw, "  parachute\t%s\t\n", r.Parachute)
	return tw.Flush()
}
