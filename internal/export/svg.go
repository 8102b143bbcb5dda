// Package export renders stored runs as standalone SVG charts.
package export

import (
	"fmt"
	"strings"

	"github.com/ravi-mn/prognos/internal/sim"
)

var strokeColors = []string{"#00ff00", "#00bfff", "#ff6b6b", "#ffd93d", "#c084fc", "#f97316"}

// SeriesSVG renders one series against time as an SVG polyline.
func SeriesSVG(times, values []float64, width, height int, strokeColor string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))
	writePath(&sb, times, values, width, height, bounds(times), bounds(values), strokeColor)
	sb.WriteString("</svg>")
	return sb.String()
}

// EventStatesSVG renders every event state series of a run in one chart.
// Event states share the [0, 1] scale, so the series overlay cleanly.
func EventStatesSVG(res *sim.Result, events []string, width, height int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	tb := bounds(res.Times)
	vb := span{0, 1}
	for i, e := range events {
		color := strokeColors[i%len(strokeColors)]
		writePath(&sb, res.Times, res.EventSeries(e), width, height, tb, vb, color)
		sb.WriteString(fmt.Sprintf(`<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 16+14*i, color, e))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

type span struct{ min, max float64 }

func bounds(values []float64) span {
	if len(values) == 0 {
		return span{0, 1}
	}
	b := span{values[0], values[0]}
	for _, v := range values {
		if v < b.min {
			b.min = v
		}
		if v > b.max {
			b.max = v
		}
	}
	if b.max == b.min {
		b.max = b.min + 1
	}
	return b
}

func writePath(sb *strings.Builder, xs, ys []float64, width, height int, xb, yb span, strokeColor string) {
	if len(xs) < 2 || len(xs) != len(ys) {
		return
	}
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor))
	for i := range xs {
		x := (xs[i] - xb.min) / (xb.max - xb.min) * float64(width)
		y := float64(height) - (ys[i]-yb.min)/(yb.max-yb.min)*float64(height)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	sb.WriteString("\"/>\n")
}
