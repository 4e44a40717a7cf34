package tui

import (
	"fmt"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
)

// View types with an interactive rendering.
const (
	ViewProbe   = "probe"
	ViewPlan    = "plan"
	ViewHistory = "history"
)

// Run starts the TUI for viewType over data.
// Returns an error if the view type doesn't support TUI.
func Run(viewType string, data any) error {
	model, err := NewModel(viewType, data)
	if err != nil {
		return err
	}
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// NewModel returns the Bubble Tea model for viewType.
func NewModel(viewType string, data any) (tea.Model, error) {
	if !IsTUISupported(viewType) {
		return nil, fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
	switch viewType {
	case ViewProbe:
		return NewProbeModel(data)
	case ViewPlan:
		return NewPlanModel(data)
	default:
		return NewHistoryModel(data)
	}
}

// IsTUISupported returns true if the view type supports TUI mode.
func IsTUISupported(viewType string) bool {
	return slices.Contains(SupportedTUIViews(), viewType)
}

// SupportedTUIViews returns a list of view types that support TUI.
func SupportedTUIViews() []string {
	return []string{ViewProbe, ViewPlan, ViewHistory}
}
