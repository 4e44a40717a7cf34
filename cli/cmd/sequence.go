package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/keycut/runtime"
	"github.com/pithecene-io/keycut/types"
)

// SequenceCommand returns the sequence command, which renders a fragment
// tree described in YAML:
//
//	sequence:
//	  - whole: intro.mkv
//	  - segment: {file: talk.mkv, start: 1m2s, end: 95.5}
func SequenceCommand() *cli.Command {
	return &cli.Command{
		Name:      OpSequence,
		Usage:     "Render a fragment tree (segments, whole files, nested sequences)",
		ArgsUsage: "<fragment.yaml>",
		Flags: []cli.Flag{
			outputFlag("Output file (required unless the root is a whole file)"),
		},
		Action: sequenceAction,
	}
}

func sequenceAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("sequence expects exactly one fragment file", runtime.ExitCodeInvalidInput)
	}
	path := c.Args().First()
	dest := c.String("output")

	return runEdit(c, OpSequence, "", func(ctx context.Context, s *session) ([]string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, invalidInput(fmt.Errorf("fragment file: %w", err))
		}
		fragment, err := types.ParseFragment(data)
		if err != nil {
			return nil, err
		}
		if dest == "" && fragment.Kind != types.FragmentWhole {
			return nil, fmt.Errorf("%w: --output is required for %s fragments", types.ErrInvalidInput, fragment.Kind)
		}
		out, err := s.engine.Evaluate(ctx, fragment, dest)
		if err != nil {
			return nil, err
		}
		return []string{out}, nil
	})
}
