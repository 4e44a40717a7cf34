package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/keycut/cli/reader"
	"github.com/pithecene-io/keycut/cli/tui"
	"github.com/pithecene-io/keycut/iox"
	"github.com/pithecene-io/keycut/journal"
	"github.com/pithecene-io/keycut/runtime"
	"github.com/pithecene-io/keycut/types"
)

// HistoryCommand returns the history command, which lists journaled edits
// newest first.
func HistoryCommand() *cli.Command {
	flags := append(ReadOnlyFlags(),
		&cli.StringFlag{Name: "operation", Usage: "Only edits of this operation"},
		&cli.StringFlag{Name: "day", Usage: "Only edits started on this UTC day (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "edit-id", Usage: "Only this edit"},
		&cli.StringFlag{Name: "outcome", Usage: "Only edits with this outcome (success, tool_failure, ...)"},
		&cli.IntFlag{Name: "limit", Usage: "Maximum number of edits (0 for all)", Value: 20},
	)
	return &cli.Command{
		Name:   "history",
		Usage:  "List recorded edits from the journal",
		Flags:  flags,
		Action: historyAction,
	}
}

func historyAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}
	if !cfg.Journal.Enabled() {
		return cli.Exit("no journal configured: set journal.backend and journal.path in keycut.yaml", runtime.ExitCodeInvalidInput)
	}

	j, err := openJournal(c.Context, cfg, nil)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeToolFailure)
	}
	defer iox.DiscardClose(j)

	items, err := reader.History(c.Context, j, journal.Filter{
		Operation: c.String("operation"),
		Day:       c.String("day"),
		EditID:    c.String("edit-id"),
		Outcome:   types.OutcomeStatus(c.String("outcome")),
		Limit:     c.Int("limit"),
	})
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeToolFailure)
	}

	r, err := newRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		if !isStderrTTY() {
			return cli.Exit("--tui requires a terminal", runtime.ExitCodeInvalidInput)
		}
		return r.RenderTUI(tui.ViewHistory, items)
	}
	return r.Render(items)
}
