// Package styles defines the visual styling for terminal output.
package styles

import "github.com/charmbracelet/lipgloss"

// Color definitions.
var (
	Primary   = lipgloss.Color("205") // Pink
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	// Metric colors
	BodyBattery = lipgloss.Color("39")  // Blue
	HeartRate   = lipgloss.Color("196") // Red

	// Status colors
	Success = lipgloss.Color("42")  // Green
	Error   = lipgloss.Color("196") // Red
	Warning = lipgloss.Color("220") // Yellow
	Info    = lipgloss.Color("39")  // Blue

	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")
)

// TitleStyle is used for main headings.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary)

// SubTitleStyle is used for section headings.
var SubTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Secondary)

// ProgressLabelStyle styles progress bar labels.
var ProgressLabelStyle = lipgloss.NewStyle().
	Foreground(TextSecondary).
	Width(20)

// HelpStyle is the base style for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(TextMuted)

// TableHeaderStyle styles table headers.
var TableHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	Padding(0, 1)

// TableCellStyle styles table cells.
var TableCellStyle = lipgloss.NewStyle().
	Padding(0, 1)

// ErrorTextStyle for error messages.
var ErrorTextStyle = lipgloss.NewStyle().
	Foreground(Error)

// SuccessTextStyle for success messages.
var SuccessTextStyle = lipgloss.NewStyle().
	Foreground(Success)

// WarningTextStyle for warning messages.
var WarningTextStyle = lipgloss.NewStyle().
	Foreground(Warning)

// MutedTextStyle for skipped and empty entries.
var MutedTextStyle = lipgloss.NewStyle().
	Foreground(TextMuted)

// GetStatusStyle returns the style for a unit or run status.
func GetStatusStyle(status string) lipgloss.Style {
	switch status {
	case "ok":
		return SuccessTextStyle
	case "partial", "interrupted", "running":
		return WarningTextStyle
	case "failed":
		return ErrorTextStyle
	default:
		return MutedTextStyle
	}
}

// GetKindColor returns the accent color of a metric kind.
func GetKindColor(kind string) lipgloss.Color {
	switch kind {
	case "bb":
		return BodyBattery
	case "hr":
		return HeartRate
	default:
		return Subtle
	}
}
