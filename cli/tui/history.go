package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/keycut/cli/reader"
)

// HistoryModel is a navigable table of journal entries with a detail pane
// for the selected edit.
type HistoryModel struct {
	items    []reader.HistoryItem
	table    table.Model
	quitting bool
}

var historyColumns = []table.Column{
	{Title: "Edit", Width: 36},
	{Title: "Operation", Width: 11},
	{Title: "Outcome", Width: 13},
	{Title: "Started", Width: 20},
	{Title: "ms", Width: 8},
}

// NewHistoryModel creates a history view. data must be a []reader.HistoryItem.
func NewHistoryModel(data any) (HistoryModel, error) {
	items, ok := data.([]reader.HistoryItem)
	if !ok {
		return HistoryModel{}, fmt.Errorf("invalid data type for history view: %T", data)
	}

	rows := make([]table.Row, 0, len(items))
	for _, it := range items {
		started := it.StartedAt
		if len(started) > 19 {
			started = started[:19]
		}
		rows = append(rows, table.Row{it.EditID, it.Operation, it.Outcome, started, fmt.Sprintf("%d", it.DurationMs)})
	}

	t := table.New(
		table.WithColumns(historyColumns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(max(len(rows), 1), 15)),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.Foreground(textColor).Background(accentColor)
	t.SetStyles(s)

	return HistoryModel{items: items, table: t}, nil
}

// Init implements tea.Model.
func (m HistoryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m HistoryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Edit History"))
	b.WriteString("\n")
	if len(m.items) == 0 {
		b.WriteString(NoticeStyle.Render("no edits recorded"))
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
		b.WriteString(m.detail(m.items[m.table.Cursor()]))
	}

	return b.String() + "\n" + footer("↑/↓ select  q quit")
}

func (m HistoryModel) detail(it reader.HistoryItem) string {
	rows := [][2]string{
		{"Edit ID", it.EditID},
		{"Operation", it.Operation},
		{"Outcome", it.Outcome},
		{"Exit Code", fmt.Sprintf("%d", it.ExitCode)},
		{"Source", it.Source},
		{"Outputs", fmt.Sprintf("%d", it.Outputs)},
		{"Dry Run", fmt.Sprintf("%t", it.DryRun)},
	}

	var b strings.Builder
	for _, row := range rows {
		style, _ := KindStyle(row[1])
		value := style.Render(row[1])
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(row[0]+":"), value)
	}
	return BoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
