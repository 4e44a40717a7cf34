// Package cmd provides CLI commands for the keycut binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for select read-only commands (probe, plan, history).
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (probe, plan, history only)",
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// GlobalFlags returns the application-level flags. Values given here
// override keycut.yaml.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to keycut.yaml (default: ./keycut.yaml when present)",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Print ffmpeg commands instead of running them (probes still run)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
			Value: "info",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write a JSON edit report to this path (- for stderr)",
		},
		&cli.StringFlag{
			Name:  "ffmpeg",
			Usage: "ffmpeg binary",
			Value: "ffmpeg",
		},
		&cli.StringFlag{
			Name:  "ffprobe",
			Usage: "ffprobe binary",
			Value: "ffprobe",
		},
	}
}

// outputFlag is the destination of a single-output or base-named edit.
func outputFlag(usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   usage,
	}
}
