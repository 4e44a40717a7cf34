package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/keycut/iox"
	"github.com/pithecene-io/keycut/runtime"
	"github.com/pithecene-io/keycut/types"
)

// Operation names, shared by logs, metrics, the journal and notifications.
const (
	OpExtract    = "extract"
	OpSplit      = "split"
	OpSplitEvery = "split-every"
	OpSequence   = "sequence"
)

// editFunc runs one edit against an open session.
type editFunc func(ctx context.Context, s *session) ([]string, error)

// runEdit opens a session, runs edit under signal handling, and finishes
// the session with its result.
func runEdit(c *cli.Context, operation, source string, edit editFunc) error {
	s, err := openSession(c, operation, source)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outputs, err := edit(ctx, s)
	return s.finish(ctx, outputs, err)
}

// sourceArg returns the single positional source file.
func sourceArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit(fmt.Sprintf("%s expects exactly one source file, got %d arguments", c.Command.Name, c.NArg()), runtime.ExitCodeInvalidInput)
	}
	return c.Args().First(), nil
}

// DefaultOutput returns the output path used when --output is omitted:
// source with ".cut" before the extension.
func DefaultOutput(source string) string {
	return iox.PathWithSuffix(source, "cut")
}

// ExtractCommand returns the extract command.
func ExtractCommand() *cli.Command {
	return &cli.Command{
		Name:      OpExtract,
		Usage:     "Extract a time span without re-encoding aligned GOPs",
		ArgsUsage: "<source>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "start", Aliases: []string{"s"}, Usage: "Span start (1m30.5s, 1500ms or 90.5); default: beginning"},
			&cli.StringFlag{Name: "end", Aliases: []string{"e"}, Usage: "Span end; default: end of stream"},
			outputFlag("Output file (default: <source>.cut.<ext>)"),
		},
		Action: extractAction,
	}
}

func extractAction(c *cli.Context) error {
	source, err := sourceArg(c)
	if err != nil {
		return err
	}
	dest := c.String("output")
	if dest == "" {
		dest = DefaultOutput(source)
	}
	return runEdit(c, OpExtract, source, func(ctx context.Context, s *session) ([]string, error) {
		span, err := types.ParseSpan(c.String("start"), c.String("end"))
		if err != nil {
			return nil, invalidInput(err)
		}
		out, err := s.engine.Extract(ctx, source, span, dest)
		if err != nil {
			return nil, err
		}
		return []string{out}, nil
	})
}

// SplitCommand returns the split command.
func SplitCommand() *cli.Command {
	return &cli.Command{
		Name:      OpSplit,
		Usage:     "Split a file in two at a time point",
		ArgsUsage: "<source>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "at", Usage: "Split point", Required: true},
			outputFlag("Base output name; parts get .cut1 and .cut2 (default: <source>)"),
		},
		Action: splitAction,
	}
}

func splitAction(c *cli.Context) error {
	source, err := sourceArg(c)
	if err != nil {
		return err
	}
	base := outputBase(c, source)
	return runEdit(c, OpSplit, source, func(ctx context.Context, s *session) ([]string, error) {
		at, err := types.ParseTimestamp(c.String("at"))
		if err != nil {
			return nil, invalidInput(fmt.Errorf("--at: %w", err))
		}
		return s.engine.SplitAt(ctx, source, at, runtime.CutPath(base, 1), runtime.CutPath(base, 2))
	})
}

// SplitEveryCommand returns the split-every command.
func SplitEveryCommand() *cli.Command {
	return &cli.Command{
		Name:      OpSplitEvery,
		Usage:     "Split a file into equal parts or fixed-length intervals",
		ArgsUsage: "<source>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "parts", Aliases: []string{"n"}, Usage: "Number of equal parts"},
			&cli.StringFlag{Name: "interval", Aliases: []string{"i"}, Usage: "Part length; the last part takes the rest"},
			outputFlag("Base output name; parts get .cut1, .cut2, ... (default: <source>)"),
		},
		Action: splitEveryAction,
	}
}

func splitEveryAction(c *cli.Context) error {
	source, err := sourceArg(c)
	if err != nil {
		return err
	}
	if c.IsSet("parts") == c.IsSet("interval") {
		return cli.Exit("split-every requires exactly one of --parts or --interval", runtime.ExitCodeInvalidInput)
	}
	base := outputBase(c, source)
	return runEdit(c, OpSplitEvery, source, func(ctx context.Context, s *session) ([]string, error) {
		if c.IsSet("parts") {
			return s.engine.SplitEvery(ctx, source, c.Int("parts"), base)
		}
		interval, err := types.ParseTimestamp(c.String("interval"))
		if err != nil {
			return nil, invalidInput(fmt.Errorf("--interval: %w", err))
		}
		return s.engine.SplitInterval(ctx, source, interval, base)
	})
}

func outputBase(c *cli.Context, source string) string {
	if base := c.String("output"); base != "" {
		return base
	}
	return source
}
