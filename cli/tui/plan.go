package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/keycut/cli/reader"
)

// PlanModel shows the matched edit points of an extraction and the ffmpeg
// steps it would run, colored by what they cost.
type PlanModel struct {
	data     *reader.PlanResponse
	quitting bool
}

// NewPlanModel creates a plan view. data must be a *reader.PlanResponse.
func NewPlanModel(data any) (PlanModel, error) {
	resp, ok := data.(*reader.PlanResponse)
	if !ok {
		return PlanModel{}, fmt.Errorf("invalid data type for plan view: %T", data)
	}
	return PlanModel{data: resp}, nil
}

// Init implements tea.Model.
func (m PlanModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m PlanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m PlanModel) View() string {
	if m.quitting {
		return ""
	}
	p := m.data

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Plan: %s → %s", p.Source, p.Output)))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("stream copies", fmt.Sprintf("%d", p.Copies), copyColor),
		statBox("re-encodes", fmt.Sprintf("%d", p.Transcodes), transcodeColor),
		statBox("output length", p.Duration, accentColor),
	))
	b.WriteString("\n")

	points := []string{
		matchLine("start", p.Start),
		matchLine("end", p.End),
	}
	if p.Widened {
		points = append(points, LabelStyle.Render("window:")+" "+NoticeStyle.Render("widened after a missed keyframe"))
	}
	b.WriteString(BoxStyle.Render(strings.Join(points, "\n")))
	b.WriteString("\n")

	for i, st := range p.Steps {
		style, _ := KindStyle(st.Kind)
		fmt.Fprintf(&b, "%d. %s %s %s %s\n",
			i+1,
			LabelStyle.Render(st.Role),
			style.Render(fmt.Sprintf("%-19s", st.Kind)),
			ValueStyle.Render(fmt.Sprintf("[%s, %s)", st.Start, st.End)),
			DimStyle.Render(st.Dest))
	}
	if len(p.Pieces) > 0 {
		fmt.Fprintf(&b, "%s %d pieces\n", LabelStyle.Render("concat"), len(p.Pieces))
	}
	return b.String() + footer("span "+p.Span+"  q quit")
}

func matchLine(label string, v reader.MatchView) string {
	style, _ := KindStyle(v.Kind)
	line := LabelStyle.Render(label+":") + " " + style.Render(v.Kind) + " " + ValueStyle.Render(v.Target)
	if v.Before != "" {
		line += DimStyle.Render(fmt.Sprintf("  keyframes %s and %s", v.Before, v.After))
	}
	return line
}
