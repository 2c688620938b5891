// Package report renders run outcomes and the run history for the terminal.
package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/garmindl/internal/models"
	"github.com/j-veylop/garmindl/internal/ui/components"
	"github.com/j-veylop/garmindl/internal/ui/styles"
)

const (
	defaultWidth   = 100
	sparklineWidth = 16
	chartHeight    = 8
)

// Options controls report rendering.
type Options struct {
	// Width is the terminal width; zero means 100 columns.
	Width int
	// Chart adds a daily mean heart rate chart per hr unit.
	Chart bool
	// Plain drops table borders for piping into other tools.
	Plain bool
}

func (o Options) width() int {
	if o.Width <= 0 {
		return defaultWidth
	}
	return o.Width
}

// Render renders the outcome of one run.
func Render(report *models.RunReport, opts Options) string {
	if report == nil {
		return ""
	}

	sections := []string{renderHeader(report)}

	if report.Err != nil && len(report.Units) == 0 {
		sections = append(sections, styles.ErrorTextStyle.Render("Error: ")+report.Err.Error())
		return strings.Join(sections, "\n") + "\n"
	}

	sections = append(sections, renderUnits(report.Units, opts))

	if warnings := renderWarnings(report.Units); warnings != "" {
		sections = append(sections, warnings)
	}

	if opts.Chart {
		for _, unit := range report.Units {
			if unit.Kind != models.KindHeartRate || len(unit.DailyMeans) == 0 {
				continue
			}
			caption := fmt.Sprintf("%s daily mean bpm", unit.Label())
			sections = append(sections, components.RenderLineChart(unit.DailyMeans, opts.width()-10, chartHeight, caption))
		}
	}

	sections = append(sections, renderSummary(report))
	return strings.Join(sections, "\n") + "\n"
}

func renderHeader(report *models.RunReport) string {
	status := report.Status()
	title := styles.TitleStyle.Render("Run "+shortID(report.ID)) + " " +
		styles.GetStatusStyle(status).Render(status)

	req := report.Request
	details := fmt.Sprintf("year %d  months %s  datatypes %s", req.Year,
		models.MonthSpan(req.Months), models.JoinKinds(req.Kinds))
	if !report.FinishedAt.IsZero() && !report.StartedAt.IsZero() {
		details += "  took " + report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond).String()
	}

	return title + "\n" + styles.MutedTextStyle.Render(details)
}

func renderUnits(units []models.UnitResult, opts Options) string {
	detailWidth := max(opts.width()-60, 20)

	rows := make([][]string, 0, len(units))
	for _, u := range units {
		detail := filepath.Base(u.Path)
		if u.Path == "" {
			detail = ""
		}
		if u.Err != nil {
			detail = u.Err.Error()
		}

		var size, count, trend string
		if u.Status == models.UnitOK || u.Status == models.UnitEmpty {
			size = humanize.Bytes(uint64(u.Bytes))
			count = humanize.Comma(int64(u.Rows))
		}
		if len(u.DailyMeans) > 0 {
			trend = components.RenderSparkline(u.DailyMeans, sparklineWidth)
		}

		rows = append(rows, []string{
			string(u.Kind),
			fmt.Sprintf("%d-%02d", u.Year, u.Month),
			string(u.Status),
			string(u.Change),
			count,
			size,
			trend,
			ansi.Truncate(detail, detailWidth, "…"),
		})
	}

	t := newTable(opts).
		Headers("KIND", "MONTH", "STATUS", "CHANGE", "ROWS", "SIZE", "TREND", "FILE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.TableHeaderStyle
			}
			cell := styles.TableCellStyle
			switch col {
			case 0:
				return cell.Foreground(styles.GetKindColor(rows[row][0]))
			case 2:
				return cell.Foreground(styles.GetStatusStyle(rows[row][2]).GetForeground())
			case 3:
				if rows[row][3] == string(models.ChangeUpdated) {
					return cell.Foreground(styles.Info)
				}
				return cell.Foreground(styles.TextMuted)
			case 4, 5:
				return cell.Align(lipgloss.Right)
			case 7:
				if units[row].Err != nil {
					return cell.Foreground(styles.Error)
				}
			}
			return cell
		})

	return t.String()
}

func renderWarnings(units []models.UnitResult) string {
	var lines []string
	for _, u := range units {
		for _, w := range u.Warnings {
			lines = append(lines, styles.WarningTextStyle.Render("warning: ")+u.Label()+": "+w)
		}
	}
	return strings.Join(lines, "\n")
}

func renderSummary(report *models.RunReport) string {
	parts := []string{
		fmt.Sprintf("%d written", report.Count(models.UnitOK)),
		fmt.Sprintf("%d empty", report.Count(models.UnitEmpty)),
		fmt.Sprintf("%d failed", report.Count(models.UnitFailed)),
	}
	if skipped := report.Count(models.UnitSkipped); skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", skipped))
	}
	return styles.SubTitleStyle.Render(strings.Join(parts, ", "))
}

func newTable(opts Options) *table.Table {
	t := table.New().BorderStyle(lipgloss.NewStyle().Foreground(styles.Subtle))
	if opts.Plain {
		return t.Border(lipgloss.HiddenBorder())
	}
	return t.Border(lipgloss.RoundedBorder())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
