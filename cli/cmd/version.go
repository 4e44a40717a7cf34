package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/keycut/cli/render"
	"github.com/pithecene-io/keycut/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// Sheet lays the version out as a table.
func (v VersionResponse) Sheet() render.Sheet {
	return render.Sheet{Fields: []render.Field{
		{Label: "version", Value: v.Version},
		{Label: "commit", Value: v.Commit},
	}}
}

// VersionCommand returns the version command.
// It never touches media tools or the journal.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ReadOnlyFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.Bool("tui") {
			return cli.Exit("--tui is not supported for version command", 1)
		}

		r, err := newRenderer(c)
		if err != nil {
			return err
		}

		return r.Render(VersionResponse{
			Version: types.Version,
			Commit:  commit,
		})
	}
}

// newRenderer builds a renderer that writes to the app's writer.
func newRenderer(c *cli.Context) (*render.Renderer, error) {
	r, err := render.NewRenderer(c)
	if err != nil {
		return nil, err
	}
	if c.App.Writer == nil {
		return r, nil
	}
	return render.NewRendererWithWriter(r.Format(), c.Bool("no-color"), c.App.Writer), nil
}
