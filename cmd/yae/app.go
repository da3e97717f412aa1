// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"

	"github.com/yae-build/yae/internal/clonedrepo"
	"github.com/yae-build/yae/internal/config"
	"github.com/yae-build/yae/internal/project"
)

type (
	// App wires CLI services and shared state. Command handlers receive an
	// App and delegate to the internal packages through it.
	App struct {
		Config config.Provider
		// Cloner performs clones; nil means go-git.
		Cloner clonedrepo.Cloner

		stdout io.Writer
		stderr io.Writer

		// persistent flags
		verbose            bool
		projectDir         string
		externalModulesDir string
		toolRoot           string

		logger *slog.Logger
	}

	// Dependencies are the injection points of NewApp. Nil fields are
	// replaced with production defaults.
	Dependencies struct {
		Config config.Provider
		Cloner clonedrepo.Cloner
		Stdout io.Writer
		Stderr io.Writer
	}

	// loadedProject is a project configuration with its resolved directories.
	loadedProject struct {
		Project *config.Project
		Path    string
		Paths   config.Paths
	}
)

// NewApp creates an App from deps.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config: deps.Config,
		Cloner: deps.Cloner,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// Logger returns the structured logger, creating it on first use so the
// --verbose flag is honored.
func (a *App) Logger() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	level := log.InfoLevel
	if a.verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(a.stderr, log.Options{
		Prefix:          config.AppName,
		Level:           level,
		ReportTimestamp: a.verbose,
	})
	a.logger = slog.New(handler)
	return a.logger
}

func (a *App) pathOptions() config.PathOptions {
	return config.PathOptions{
		ProjectDir:         a.projectDir,
		ExternalModulesDir: a.externalModulesDir,
		ToolRoot:           a.toolRoot,
	}
}

// loadProject reads the project configuration and resolves its directories.
func (a *App) loadProject(ctx context.Context) (*loadedProject, error) {
	opts := a.pathOptions()
	dir, err := config.ResolveProjectDir(opts)
	if err != nil {
		return nil, err
	}
	opts.ProjectDir = dir

	cfg, path, err := a.Config.Load(ctx, config.LoadOptions{ProjectDir: dir})
	if err != nil {
		return nil, err
	}
	paths, err := config.NewPaths(opts, cfg)
	if err != nil {
		return nil, err
	}
	a.Logger().Debug("project loaded", "name", cfg.Name, "file", path, "cloned_repos_dir", paths.ClonedReposDir)
	return &loadedProject{Project: cfg, Path: path, Paths: paths}, nil
}

// loadGraph loads the project and builds its validated module graph.
func (a *App) loadGraph(ctx context.Context) (*project.Graph, error) {
	lp, err := a.loadProject(ctx)
	if err != nil {
		return nil, err
	}
	return project.Load(ctx, project.Options{
		Project: lp.Project,
		Paths:   lp.Paths,
		Cloner:  a.Cloner,
		Logger:  a.Logger(),
	})
}
