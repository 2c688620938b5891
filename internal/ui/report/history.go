package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/garmindl/internal/models"
	"github.com/j-veylop/garmindl/internal/ui/styles"
)

const historyTimeLayout = "2006-01-02 15:04"

// RenderHistory renders ledger runs, newest first as given.
func RenderHistory(runs []models.RunRecord, opts Options) string {
	if len(runs) == 0 {
		return styles.HelpStyle.Render("No runs recorded yet") + "\n"
	}

	errWidth := max(opts.width()-80, 20)

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		ok := 0
		for _, u := range r.Units {
			if u.Status == models.UnitOK || u.Status == models.UnitEmpty {
				ok++
			}
		}
		total := len(r.Kinds) * len(r.Months)

		rows = append(rows, []string{
			shortID(r.ID),
			r.StartedAt.Local().Format(historyTimeLayout),
			fmt.Sprintf("%d", r.Year),
			models.MonthSpan(r.Months),
			models.JoinKinds(r.Kinds),
			fmt.Sprintf("%d/%d", ok, total),
			r.Status,
			ansi.Truncate(firstLine(r.Error), errWidth, "…"),
		})
	}

	t := newTable(opts).
		Headers("RUN", "STARTED", "YEAR", "MONTHS", "DATATYPES", "UNITS", "STATUS", "ERROR").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.TableHeaderStyle
			}
			switch col {
			case 6:
				return styles.TableCellStyle.Foreground(styles.GetStatusStyle(rows[row][6]).GetForeground())
			case 7:
				return styles.TableCellStyle.Foreground(styles.Error)
			}
			return styles.TableCellStyle
		})

	return t.String() + "\n"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// RenderStats renders ledger totals as a short footer.
func RenderStats(stats *models.LedgerStats) string {
	if stats == nil || stats.Runs == 0 {
		return ""
	}

	lines := []string{styles.SubTitleStyle.Render(fmt.Sprintf("%d runs since %s, last %s",
		stats.Runs, stats.FirstRun.Local().Format(time.DateOnly), humanize.Time(stats.LastRun)))}

	for _, ks := range stats.Kinds {
		label := lipgloss.NewStyle().Foreground(styles.GetKindColor(string(ks.Kind))).Render(ks.Kind.DisplayName())
		lines = append(lines, fmt.Sprintf("  %s: %d files, %s rows, %s", label, ks.Files,
			humanize.Comma(ks.Rows), humanize.Bytes(uint64(ks.Bytes))))
	}
	if stats.FailedUnits > 0 {
		lines = append(lines, styles.ErrorTextStyle.Render(fmt.Sprintf("  %d failed units", stats.FailedUnits)))
	}

	return strings.Join(lines, "\n") + "\n"
}
