// Package tui provides Bubble Tea views for the keycut CLI.
//
// TUI mode is opt-in (--tui) and read-only. Views render the same payloads
// as the json, yaml and table formats and add no data of their own.
package tui

import "github.com/charmbracelet/lipgloss"

// The palette follows what an edit costs: green for stream copies and
// keyframe-aligned points, amber for ranges that must be re-encoded, red
// for failures.
var (
	copyColor      = lipgloss.Color("#10B981")
	transcodeColor = lipgloss.Color("#F59E0B")
	failureColor   = lipgloss.Color("#EF4444")
	keyframeColor  = lipgloss.Color("#3B82F6")
	accentColor    = lipgloss.Color("#7C3AED")
	dimColor       = lipgloss.Color("#6B7280")
	textColor      = lipgloss.Color("#F9FAFB")
)

var (
	// TitleStyle heads a view with the file or dataset it shows.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor).MarginBottom(1)

	// LabelStyle is the fixed-width label column of detail boxes.
	LabelStyle = lipgloss.NewStyle().Foreground(dimColor).Width(14)

	// ValueStyle is a plain value.
	ValueStyle = lipgloss.NewStyle().Foreground(textColor)

	// DimStyle is secondary text: gaps, paths, key hints.
	DimStyle = lipgloss.NewStyle().Foreground(dimColor)

	// NoticeStyle flags an empty window or an empty journal.
	NoticeStyle = lipgloss.NewStyle().Foreground(transcodeColor)

	// BoxStyle frames detail panels.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dimColor).
			Padding(1, 2)

	statBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2).
			Width(20).
			Align(lipgloss.Center)
	statValueStyle = lipgloss.NewStyle().Bold(true).Align(lipgloss.Center)
	statLabelStyle = lipgloss.NewStyle().Foreground(dimColor).Align(lipgloss.Center)
)

// kindColors maps the keywords keycut prints for match kinds, step kinds
// and edit outcomes onto the palette.
var kindColors = map[string]lipgloss.Color{
	"exact":               copyColor,
	"boundary":            copyColor,
	"between":             transcodeColor,
	"aligned-copy":        copyColor,
	"unaligned-transcode": transcodeColor,
	"success":             copyColor,
	"invalid_input":       transcodeColor,
	"no_keyframe":         transcodeColor,
	"tool_failure":        failureColor,
	"probe_failure":       failureColor,
}

// KindStyle returns the style for a match kind, step kind or outcome
// keyword, and false for any other word.
func KindStyle(word string) (lipgloss.Style, bool) {
	c, ok := kindColors[word]
	if !ok {
		return ValueStyle, false
	}
	return lipgloss.NewStyle().Foreground(c), true
}

// statBox renders one headline number of a view.
func statBox(label, value string, color lipgloss.Color) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		statValueStyle.Foreground(color).Render(value),
		statLabelStyle.Render(label))
	return statBoxStyle.BorderForeground(color).Render(content)
}

// footer renders the key hint line under a view.
func footer(hint string) string {
	return DimStyle.MarginTop(1).Render(hint)
}
