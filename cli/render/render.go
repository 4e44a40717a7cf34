// Package render writes keycut command responses as json, yaml or a table.
//
// Without --format, a terminal gets a table and anything else gets json.
// Tables are laid out per response: a probe is a summary plus its keyframe
// listing, a plan is its matched edit points plus one row per ffmpeg step,
// and history is one row per edit. --no-color drops the highlighting of
// match kinds in summaries.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/keycut/cli/reader"
	"github.com/pithecene-io/keycut/cli/tui"
)

// Format is an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a --format value. Empty means "choose by terminal".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatTable, FormatYAML, "":
		return f, nil
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

// Field is one labelled value in the summary block of a table.
type Field struct {
	Label string
	Value string
}

// Sheet is the table layout of a response: a summary block of fields,
// then an optional listing under column headers.
type Sheet struct {
	Fields  []Field
	Columns []string
	Rows    [][]string
	// Empty is printed instead of the listing when Rows is empty.
	Empty string
}

// Tabler is implemented by responses that lay themselves out.
type Tabler interface {
	Sheet() Sheet
}

// Renderer writes responses in one format.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer creates a renderer from the --format and --no-color flags,
// writing to stdout.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatJSON
		if isTTY(os.Stdout) {
			format = FormatTable
		}
	}
	return &Renderer{format: format, noColor: c.Bool("no-color"), out: os.Stdout}, nil
}

// NewRendererWithWriter creates a renderer writing to out.
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{format: format, noColor: noColor, out: out}
}

// Format returns the selected output format.
func (r *Renderer) Format() Format {
	return r.format
}

// Render writes data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable:
		sheet, err := SheetFor(data)
		if err != nil {
			return err
		}
		return r.writeSheet(sheet)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// RenderTUI runs the interactive view for viewType.
func (r *Renderer) RenderTUI(viewType string, data any) error {
	if !tui.IsTUISupported(viewType) {
		return fmt.Errorf("--tui is not supported for %s", viewType)
	}
	return tui.Run(viewType, data)
}

// RenderLines writes one line per item whatever the format, for listings
// piped into other tools such as keyframe times.
func (r *Renderer) RenderLines(items []string) error {
	for _, it := range items {
		if _, err := fmt.Fprintln(r.out, it); err != nil {
			return err
		}
	}
	return nil
}

// SheetFor returns the table layout of a keycut response.
func SheetFor(data any) (Sheet, error) {
	switch d := data.(type) {
	case Tabler:
		return d.Sheet(), nil
	case *reader.ProbeResponse:
		return probeSheet(d), nil
	case reader.ProbeResponse:
		return probeSheet(&d), nil
	case *reader.PlanResponse:
		return planSheet(d), nil
	case reader.PlanResponse:
		return planSheet(&d), nil
	case []reader.HistoryItem:
		return historySheet(d), nil
	default:
		return Sheet{}, fmt.Errorf("no table layout for %T; use --format json or yaml", data)
	}
}

func probeSheet(p *reader.ProbeResponse) Sheet {
	s := Sheet{
		Fields: []Field{
			{"file", p.File},
			{"window", p.Window},
			{"keyframes", strconv.Itoa(p.Count)},
			{"ms/keyframe", fmt.Sprintf("%.1f", p.FrequencyMs)},
			{"spacing", fmt.Sprintf("%.1fms", p.SpacingMs)},
			{"first", p.FirstKeyframe},
			{"last", p.LastKeyframe},
			{"duration", orNA(p.Duration)},
		},
		Columns: []string{"#", "TIME", "US", "GAP MS"},
		Empty:   "(no keyframes in window)",
	}
	for _, row := range reader.KeyframeRows(p) {
		s.Rows = append(s.Rows, []string{
			strconv.Itoa(row.Index), row.Time, strconv.FormatUint(row.Micros, 10), row.GapMs,
		})
	}
	return s
}

func planSheet(p *reader.PlanResponse) Sheet {
	s := Sheet{
		Fields: []Field{
			{"source", p.Source},
			{"output", p.Output},
			{"span", p.Span},
			{"start", matchText(p.Start)},
			{"end", matchText(p.End)},
			{"steps", fmt.Sprintf("%d copy, %d transcode", p.Copies, p.Transcodes)},
			{"duration", p.Duration},
		},
		Columns: []string{"ROLE", "KIND", "RANGE", "SOURCE", "DEST"},
	}
	if p.Widened {
		s.Fields = append(s.Fields, Field{"window", "widened"})
	}
	if len(p.Pieces) > 0 {
		s.Fields = append(s.Fields, Field{"concat", strings.Join(p.Pieces, " + ")})
	}
	for _, st := range p.Steps {
		s.Rows = append(s.Rows, []string{
			st.Role, st.Kind, "[" + st.Start + ", " + st.End + ")", st.Source, st.Dest,
		})
	}
	return s
}

func historySheet(items []reader.HistoryItem) Sheet {
	s := Sheet{
		Columns: []string{"EDIT", "OPERATION", "OUTCOME", "EXIT", "STARTED", "MS", "OUTPUTS", "SOURCE"},
		Empty:   "(no edits recorded)",
	}
	for _, it := range items {
		outcome := it.Outcome
		if it.DryRun {
			outcome += " (dry run)"
		}
		s.Rows = append(s.Rows, []string{
			it.EditID, it.Operation, outcome, strconv.Itoa(it.ExitCode), it.StartedAt,
			strconv.FormatInt(it.DurationMs, 10), strconv.Itoa(it.Outputs), it.Source,
		})
	}
	return s
}

// matchText renders a matched edit point, e.g. "between 0s < 1.5s < 2s".
func matchText(m reader.MatchView) string {
	if m.Before == "" {
		return m.Kind + " " + m.Target
	}
	return fmt.Sprintf("%s %s < %s < %s", m.Kind, m.Before, m.Target, m.After)
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}

func (r *Renderer) writeSheet(s Sheet) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, f := range s.Fields {
		fmt.Fprintf(w, "%s:\t%s\n", f.Label, r.highlight(f.Value))
	}
	if len(s.Columns) > 0 {
		if len(s.Fields) > 0 {
			fmt.Fprintln(w)
		}
		switch {
		case len(s.Rows) > 0:
			fmt.Fprintln(w, strings.Join(s.Columns, "\t"))
			for _, row := range s.Rows {
				fmt.Fprintln(w, strings.Join(row, "\t"))
			}
		case s.Empty != "":
			fmt.Fprintln(w, s.Empty)
		default:
			fmt.Fprintln(w, "(no results)")
		}
	}
	return w.Flush()
}

// highlight colors a summary value by its leading keyword, such as a match
// kind. Only summary values are colored: they end their line, so escape
// codes cannot skew column widths. Colors need a terminal.
func (r *Renderer) highlight(value string) string {
	if r.noColor {
		return value
	}
	if f, ok := r.out.(*os.File); !ok || !isTTY(f) {
		return value
	}
	word, _, _ := strings.Cut(value, " ")
	style, ok := tui.KindStyle(word)
	if !ok {
		return value
	}
	return style.Render(value)
}

func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
