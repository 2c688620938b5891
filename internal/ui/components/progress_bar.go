package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/garmindl/internal/ui/styles"
)

// UnitBar renders how many units of a run are done.
type UnitBar struct {
	progress progress.Model
}

// NewUnitBar creates a bar with the app's gradient.
func NewUnitBar(width int) UnitBar {
	return UnitBar{
		progress: progress.New(
			progress.WithScaledGradient("#7D56F4", "#51cf66"),
			progress.WithWidth(width),
			progress.WithoutPercentage(),
		),
	}
}

// SetWidth sets the bar width, leaving room for the counter.
func (b *UnitBar) SetWidth(width int) {
	barWidth := width - 12
	if barWidth < 10 {
		barWidth = 10
	}
	b.progress.Width = barWidth
}

// View renders the bar with a done/total counter.
func (b UnitBar) View(done, total int) string {
	percent := 0.0
	if total > 0 {
		percent = float64(done) / float64(total)
	}
	counter := styles.ProgressLabelStyle.Width(10).Align(lipgloss.Right).Render(fmt.Sprintf("%d/%d", done, total))
	return lipgloss.JoinHorizontal(lipgloss.Center, b.progress.ViewAs(percent), counter)
}
