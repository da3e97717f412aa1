// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yae-build/yae/internal/cmake"
	"github.com/yae-build/yae/internal/config"
	"github.com/yae-build/yae/internal/issue"
)

func newGenerateCommand(app *App) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Resolve packages, validate modules and write CMakeLists.txt files",
		Long: `Resolve packages, validate modules and write CMakeLists.txt files.

External packages and GitClone modules are cloned into the cloned
repositories directory first. No CMake file is written unless the whole
module graph is valid. Files whose content did not change are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(cmd, runGenerate(cmd.Context(), app, dryRun))
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and list the files without writing them")
	return cmd
}

func runGenerate(ctx context.Context, app *App, dryRun bool) error {
	graph, err := app.loadGraph(ctx)
	if err != nil {
		return err
	}

	files, err := cmake.Generate(cmake.Input{
		Project:  graph.Project,
		Paths:    graph.Paths,
		Registry: graph.Registry,
		Order:    graph.Order,
	})
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("generate CMake files").
			WithResource(graph.Paths.ProjectRoot).
			WithSuggestion("Only ON/OFF (boolean) CMakeOptions are supported").
			WithSuggestion("Executables need at least one .cpp file").
			Wrap(err).
			BuildError()
	}

	if dryRun {
		for _, f := range files {
			fmt.Fprintln(app.stdout, displayPath(graph.Paths, f.Path))
		}
		return nil
	}

	written, err := cmake.Write(files)
	if err != nil {
		return issue.WrapWithOperation(err, "write CMake files")
	}
	for _, path := range written {
		app.Logger().Debug("wrote", "file", path)
	}

	fmt.Fprintf(app.stdout, "%s %d modules, %d of %d files updated\n",
		SuccessStyle.Render("✓"), len(graph.Order), len(written), len(files))
	return nil
}

// displayPath shortens path relative to the project root when possible.
func displayPath(paths config.Paths, path string) string {
	if rel, ok := config.Rel(paths.ProjectRoot, path); ok {
		return rel
	}
	return path
}
