// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yae-build/yae/internal/config"
)

// newConfigCommand creates the `yae config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the project configuration",
		Long: `Inspect the project configuration.

The configuration is read from yae_project.json (or yae_project.toml) in
the project root. Values can be overridden with YAE_* environment
variables, for example YAE_CPP_STANDARD=23.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration and directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(cmd, showConfig(cmd.Context(), app))
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lp, err := app.loadProject(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}
			fmt.Fprint(app.stdout, config.GenerateJSON(lp.Project))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	lp, err := app.loadProject(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render("Project Configuration"))
	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s: %s\n", NameStyle.Render("Project file"), lp.Path)
	fmt.Fprintln(app.stdout)
	fmt.Fprint(app.stdout, config.GenerateJSON(lp.Project))
	fmt.Fprintln(app.stdout)

	fmt.Fprintln(app.stdout, TitleStyle.Render("Directories"))
	for _, kv := range []struct{ key, value string }{
		{"project root", lp.Paths.ProjectRoot},
		{"tool root", lp.Paths.ToolRoot},
		{"modules", lp.Paths.ModulesDir},
		{"cloned repositories", lp.Paths.ClonedReposDir},
		{"registry", lp.Paths.RegistryFile},
		{"build", lp.Paths.BuildDir},
		{"cache", lp.Paths.CacheDir},
	} {
		fmt.Fprintf(app.stdout, "%s: %s\n", NameStyle.Render(kv.key), kv.value)
	}
	return nil
}
