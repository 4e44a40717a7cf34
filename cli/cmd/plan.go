package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/keycut/cli/reader"
	"github.com/pithecene-io/keycut/cli/tui"
	"github.com/pithecene-io/keycut/runtime"
	"github.com/pithecene-io/keycut/types"
)

// PlanCommand returns the plan command. It shows how extract would cut a
// span, matched edit points and ffmpeg steps included, without writing.
func PlanCommand() *cli.Command {
	flags := append(ReadOnlyFlags(),
		&cli.StringFlag{Name: "start", Aliases: []string{"s"}, Usage: "Span start (default: beginning)"},
		&cli.StringFlag{Name: "end", Aliases: []string{"e"}, Usage: "Span end (default: end of stream)"},
		outputFlag("Output file the plan is made for (default: <source>.cut.<ext>)"),
	)
	return &cli.Command{
		Name:      "plan",
		Usage:     "Show the copy and transcode steps an extract would run",
		ArgsUsage: "<source>",
		Flags:     flags,
		Action:    planAction,
	}
}

func planAction(c *cli.Context) error {
	source, err := sourceArg(c)
	if err != nil {
		return err
	}
	dest := c.String("output")
	if dest == "" {
		dest = DefaultOutput(source)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}
	span, err := types.ParseSpan(c.String("start"), c.String("end"))
	if err != nil {
		return cli.Exit(invalidInput(err).Error(), runtime.ExitCodeInvalidInput)
	}
	tool := newTool(c, cfg, true)
	index, err := newIndex(tool, cfg, nil)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}
	engine := runtime.NewEngine(runtime.EngineConfig{Tool: tool, Index: index})

	resp, err := reader.Plan(c.Context, engine, source, span, dest)
	if err != nil {
		outcome, code := runtime.ClassifyOutcome(err)
		return cli.Exit(outcome.Message, code)
	}

	r, err := newRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		if !isStderrTTY() {
			return cli.Exit("--tui requires a terminal", runtime.ExitCodeInvalidInput)
		}
		return r.RenderTUI(tui.ViewPlan, resp)
	}
	return r.Render(resp)
}
