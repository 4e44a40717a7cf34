// Package main provides the keycut CLI entrypoint.
//
// Usage:
//
//	keycut [global options] <command> [options] <source>
//
// Exit codes for editing commands:
//   - 0: success
//   - 1: ffmpeg copy, transcode or concat failure
//   - 2: invalid input (span, fragment, flags or config)
//   - 3: an edit point could not be bracketed by keyframes
//   - 4: ffprobe failure
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/keycut/cli/cmd"
	"github.com/pithecene-io/keycut/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "keycut",
		Usage:          "Cut, split and join media on keyframes without re-encoding whole files",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Flags:          cmd.GlobalFlags(),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.ExtractCommand(),
			cmd.SplitCommand(),
			cmd.SplitEveryCommand(),
			cmd.SequenceCommand(),
			cmd.ProbeCommand(),
			cmd.PlanCommand(),
			cmd.HistoryCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	msg, code := exitStatus(err)
	if msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(code)
}

// exitStatus returns the message to print and the process exit code for err.
func exitStatus(err error) (string, int) {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N", so skip those.
		if msg == fmt.Sprintf("exit status %d", code) {
			msg = ""
		}
		return msg, code
	}

	// Unexpected error - print and exit with code 1
	return fmt.Sprintf("Error: %v", err), 1
}
