// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yae-build/yae/internal/issue"
	"github.com/yae-build/yae/internal/project"
)

func newCleanCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove cloned repositories, the build directory and caches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(cmd, runClean(cmd.Context(), app))
		},
	}
}

func runClean(ctx context.Context, app *App) error {
	lp, err := app.loadProject(ctx)
	if err != nil {
		return err
	}

	removed, err := project.Clean(lp.Paths)
	for _, dir := range removed {
		fmt.Fprintln(app.stdout, SuccessStyle.Render("removed ")+displayPath(lp.Paths, dir))
	}
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("clean project").
			WithResource(lp.Paths.ProjectRoot).
			Wrap(err).
			BuildError()
	}
	if len(removed) == 0 {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("nothing to clean"))
	}
	return nil
}
