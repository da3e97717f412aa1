// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yae-build/yae/internal/clonedrepo"
	"github.com/yae-build/yae/internal/repostatus"
)

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show git status of the tool root and every cloned repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(cmd, runStatus(cmd.Context(), app))
		},
	}
}

func runStatus(ctx context.Context, app *App) error {
	lp, err := app.loadProject(ctx)
	if err != nil {
		return err
	}
	repos, err := clonedrepo.Open(lp.Paths.ClonedReposDir, lp.Paths.RegistryFile, app.Cloner, app.Logger())
	if err != nil {
		return err
	}
	if len(repos.Paths()) == 0 {
		app.Logger().Info("no cloned repositories registered", "registry", lp.Paths.RegistryFile)
	}

	reports, err := repostatus.Collect(ctx, repostatus.Targets(lp.Paths.ToolRoot, repos))
	if err != nil {
		return err
	}

	dirty := 0
	for _, r := range reports {
		fmt.Fprintln(app.stdout, TitleStyle.Render(r.Path))
		switch {
		case r.Err != nil:
			fmt.Fprintln(app.stdout, "  "+ErrorStyle.Render(r.Err.Error()))
		case r.Clean():
			fmt.Fprintln(app.stdout, "  "+SuccessStyle.Render("clean")+" "+SubtitleStyle.Render(headLabel(r)))
		default:
			dirty++
			fmt.Fprintln(app.stdout, "  "+WarningStyle.Render(fmt.Sprintf("%d changed", len(r.Changes)))+" "+SubtitleStyle.Render(headLabel(r)))
			for _, c := range r.Changes {
				fmt.Fprintf(app.stdout, "    %c%c %s\n", c.Staging, c.Worktree, c.Path)
			}
		}
	}
	app.Logger().Debug("status collected", "repositories", len(reports), "dirty", dirty)
	return nil
}

func headLabel(r repostatus.Report) string {
	switch {
	case r.Head == "":
		return "no commits"
	case r.Branch == "":
		return "detached at " + r.Head
	default:
		return r.Branch + " " + r.Head
	}
}
