package viz

import (
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/ravi-mn/prognos/internal/sim"
)

// Plot renders one series as an ASCII chart.
func Plot(series []float64, caption string, height int) string {
	if len(series) < 2 {
		return "not enough points to plot"
	}
	return asciigraph.Plot(series,
		asciigraph.Height(height),
		asciigraph.Width(graphWidth),
		asciigraph.Caption(caption),
	)
}

// PlotEventStates renders one chart per event in a recorded run.
func PlotEventStates(res *sim.Result, events []string, height int) string {
	var b strings.Builder
	for i, e := range events {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(Plot(res.EventSeries(e), e, height))
	}
	return b.String()
}
