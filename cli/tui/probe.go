package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/keycut/cli/reader"
	"github.com/pithecene-io/keycut/types"
)

// headerHeight is the number of lines above the keyframe list.
const headerHeight = 11

// ProbeModel shows keyframe statistics above a scrollable keyframe list.
type ProbeModel struct {
	data     *reader.ProbeResponse
	rows     []reader.KeyframeRow
	list     viewport.Model
	ready    bool
	quitting bool
}

// NewProbeModel creates a probe view. data must be a *reader.ProbeResponse.
func NewProbeModel(data any) (ProbeModel, error) {
	resp, ok := data.(*reader.ProbeResponse)
	if !ok {
		return ProbeModel{}, fmt.Errorf("invalid data type for probe view: %T", data)
	}
	return ProbeModel{data: resp, rows: reader.KeyframeRows(resp)}, nil
}

// Init implements tea.Model.
func (m ProbeModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ProbeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := max(msg.Height-headerHeight-2, 3)
		if !m.ready {
			m.list = viewport.New(msg.Width, height)
			m.list.SetContent(m.listing())
			m.ready = true
		} else {
			m.list.Width = msg.Width
			m.list.Height = height
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m ProbeModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Keyframes: " + m.data.File))
	b.WriteString("\n")

	duration := m.data.Duration
	if duration == "" {
		duration = "n/a"
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("keyframes", fmt.Sprintf("%d", m.data.Count), keyframeColor),
		statBox("ms / keyframe", fmt.Sprintf("%.1f", m.data.FrequencyMs), accentColor),
		statBox("avg gap ms", fmt.Sprintf("%.1f", m.data.SpacingMs), copyColor),
		statBox("duration", duration, transcodeColor),
	))
	b.WriteString("\n")
	b.WriteString(Timeline(m.data.Keyframes, probeEnd(m.data), timelineWidth))
	b.WriteString("\n")

	if m.ready {
		b.WriteString(m.list.View())
	} else {
		b.WriteString(m.listing())
	}
	return b.String() + "\n" + footer(fmt.Sprintf("window %s  ↑/↓ scroll  q quit", m.data.Window))
}

func (m ProbeModel) listing() string {
	if len(m.rows) == 0 {
		return NoticeStyle.Render("no keyframes in window")
	}
	var b strings.Builder
	for _, row := range m.rows {
		gap := row.GapMs
		if gap != "" {
			gap = "+" + gap + "ms"
		}
		fmt.Fprintf(&b, "%s %s %s\n",
			LabelStyle.Render(fmt.Sprintf("#%d", row.Index)),
			ValueStyle.Render(fmt.Sprintf("%-14s", row.Time)),
			DimStyle.Render(gap))
	}
	return b.String()
}

// timelineWidth is the character width of the probe view's keyframe strip.
const timelineWidth = 80

// probeEnd is the right edge of the timeline: the stream duration when the
// container reports one past the last keyframe, else the last keyframe.
func probeEnd(p *reader.ProbeResponse) types.Timestamp {
	var end types.Timestamp
	if n := len(p.Keyframes); n > 0 {
		end = p.Keyframes[n-1]
	}
	if d, err := time.ParseDuration(p.Duration); err == nil {
		end = max(end, types.FromDuration(d))
	}
	return end
}

// Timeline draws keyframes as ticks on a strip width cells wide spanning
// [0, end]. Cells holding no keyframe stay dim, so long GOPs show up as
// gaps.
func Timeline(keys []types.Timestamp, end types.Timestamp, width int) string {
	if width < 1 || len(keys) == 0 {
		return ""
	}
	cells := make([]bool, width)
	for _, k := range keys {
		i := width - 1
		if end > 0 && k < end {
			i = int(uint64(k) * uint64(width) / uint64(end))
		}
		cells[i] = true
	}
	var b strings.Builder
	for _, tick := range cells {
		if tick {
			b.WriteString(lipgloss.NewStyle().Foreground(keyframeColor).Render("┃"))
		} else {
			b.WriteString(DimStyle.Render("─"))
		}
	}
	return b.String()
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RenderStatic renders a view once without an interactive program.
func RenderStatic(viewType string, data any) (string, error) {
	model, err := NewModel(viewType, data)
	if err != nil {
		return "", err
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View()), nil
}
