// Package components provides reusable terminal UI components.
package components

import (
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/garmindl/internal/ui/styles"
)

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	// Ensure minimum dimensions
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Red),
	)
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderSparkline creates a compact inline sparkline scaled between the
// smallest and largest value.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	minVal, maxVal := values[0], values[0]
	for _, v := range values {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
	}
	span := maxVal - minVal
	if span == 0 {
		span = 1
	}

	// Sample values to fit width
	step := float64(len(values)) / float64(width)
	if step < 1 {
		step = 1
	}

	var result strings.Builder
	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		val := values[int(float64(i)*step)]
		idx := int((val - minVal) / span * float64(len(sparkChars)-1))
		idx = max(0, min(idx, len(sparkChars)-1))
		result.WriteRune(sparkChars[idx])
	}

	return result.String()
}
