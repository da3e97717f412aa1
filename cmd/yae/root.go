// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "yae",
		Short: "Materialize a C++ module graph into CMake build files",
		Long: TitleStyle.Render("yae") + SubtitleStyle.Render(" - Materialize a C++ module graph into CMake build files") + `

yae discovers module descriptors (*.module.json) and package descriptors
(*.package.json) under the project's modules directory, fetches external
packages and GitClone modules, validates the module graph and emits
CMakeLists.txt files in dependency order.

` + SubtitleStyle.Render("Examples:") + `
  yae generate                      Resolve, validate and write CMake files
  yae modules                       List modules, dependents first
  yae status                        Show git status of the tool root and clones
  yae clean                         Remove cloned repositories and build caches
  yae config show                   Print the effective project configuration`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	flags.StringVarP(&app.projectDir, "project-dir", "C", "", "project root (default is the working directory)")
	flags.StringVar(&app.externalModulesDir, "external-modules-dir", "", "override the cloned repositories directory")
	flags.StringVar(&app.toolRoot, "tool-root", "", "directory holding yae's cmake helpers (default is the project root)")

	rootCmd.AddCommand(
		newGenerateCommand(app),
		newModulesCommand(app),
		newStatusCommand(app),
		newCleanCommand(app),
		newConfigCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
