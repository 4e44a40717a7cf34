package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/keycut/cli/reader"
	"github.com/pithecene-io/keycut/cli/tui"
	"github.com/pithecene-io/keycut/runtime"
	"github.com/pithecene-io/keycut/types"
)

// ProbeCommand returns the probe command. It reports keyframe statistics
// for a file and never writes media.
func ProbeCommand() *cli.Command {
	flags := append(ReadOnlyFlags(),
		&cli.BoolFlag{Name: "keyframes", Aliases: []string{"k"}, Usage: "Print keyframe times in seconds, one per line"},
		&cli.StringFlag{Name: "start", Aliases: []string{"s"}, Usage: "Probe window start (default: beginning)"},
		&cli.StringFlag{Name: "end", Aliases: []string{"e"}, Usage: "Probe window end (default: end of stream)"},
	)
	return &cli.Command{
		Name:      "probe",
		Usage:     "Show keyframe count, frequency, spacing and duration of a file",
		ArgsUsage: "<source>",
		Flags:     flags,
		Action:    probeAction,
	}
}

func probeAction(c *cli.Context) error {
	source, err := sourceArg(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") && c.Bool("keyframes") {
		return cli.Exit("--tui and --keyframes are mutually exclusive", runtime.ExitCodeInvalidInput)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}
	window, err := types.ParseSpan(c.String("start"), c.String("end"))
	if err != nil {
		return cli.Exit(invalidInput(err).Error(), runtime.ExitCodeInvalidInput)
	}
	index, err := newIndex(newTool(c, cfg, false), cfg, nil)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}

	resp, err := reader.Probe(c.Context, index, source, window)
	if err != nil {
		outcome, code := runtime.ClassifyOutcome(err)
		return cli.Exit(outcome.Message, code)
	}

	r, err := newRenderer(c)
	if err != nil {
		return err
	}
	switch {
	case c.Bool("keyframes"):
		lines := make([]string, 0, len(resp.Keyframes))
		for _, k := range resp.Keyframes {
			lines = append(lines, fmt.Sprintf("%.6f", k.Seconds()))
		}
		return r.RenderLines(lines)
	case c.Bool("tui"):
		if !isStderrTTY() {
			return cli.Exit("--tui requires a terminal", runtime.ExitCodeInvalidInput)
		}
		return r.RenderTUI(tui.ViewProbe, resp)
	default:
		return r.Render(resp)
	}
}
