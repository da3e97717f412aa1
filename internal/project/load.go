// SPDX-License-Identifier: MPL-2.0

package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/yae-build/yae/internal/clonedrepo"
	"github.com/yae-build/yae/internal/config"
	"github.com/yae-build/yae/internal/issue"
	"github.com/yae-build/yae/internal/modregistry"
	"github.com/yae-build/yae/internal/resolver"
	"github.com/yae-build/yae/pkg/yaemod"
)

type (
	// Options are the inputs of Load.
	Options struct {
		Project *config.Project
		Paths   config.Paths
		// Cloner performs clones; nil means go-git.
		Cloner clonedrepo.Cloner
		Logger *slog.Logger
	}

	// Graph is a fully validated project.
	Graph struct {
		Project    *config.Project
		Paths      config.Paths
		Repos      *clonedrepo.Registry
		Resolution *resolver.Resolution
		Registry   *modregistry.Registry
		// Order lists every module after all of its dependencies.
		Order []string
	}
)

// Load builds and validates the project's module graph. Nothing is written
// except clones and the repository registration file.
func Load(ctx context.Context, opts Options) (*Graph, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cloner := opts.Cloner
	if cloner == nil {
		cloner = clonedrepo.NewGitCloner()
	}
	paths := opts.Paths

	repos, err := clonedrepo.Open(paths.ClonedReposDir, paths.RegistryFile, cloner, logger)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("open repository registry").
			WithResource(paths.RegistryFile).
			WithSuggestion("Run 'yae clean' to discard cloned repositories and start over").
			Wrap(err).
			BuildError()
	}

	local, err := LocalPackages(opts.Project, paths)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load local packages").
			WithResource(paths.ModulesDir).
			WithSuggestion("Fix the package descriptors listed above").
			Wrap(err).
			BuildError()
	}

	resolution, err := resolver.New(repos, logger).Resolve(ctx, local)
	if err != nil {
		return nil, resolveError(err)
	}

	mods, err := collectModules(resolution.Packages)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load module descriptors").
			WithSuggestion("Check the ModuleType and field types of the descriptors listed").
			Wrap(err).
			BuildError()
	}

	registry := modregistry.New(logger)
	dupErr := registry.Add(mods...)
	fetchErr := fetchClones(ctx, repos, registry)
	if dupErr != nil || fetchErr != nil {
		return nil, validationError("register modules", []error{dupErr, fetchErr},
			"Rename or remove one of each duplicated module",
			"Check that every GitClone module's GitUrl and GitTag exist")
	}

	if err := registry.EnsureSingleModuleRules(); err != nil {
		return nil, validationError("validate modules", []error{err},
			"Add the missing modules or remove the dependencies on them",
			"Name each descriptor <directory name>.module.json")
	}
	if err := registry.EnsureDependencyGraphIsValid(); err != nil {
		return nil, validationError("validate dependency graph", []error{err},
			"Break the cycle by removing one of the listed dependencies")
	}

	order, err := registry.TopologicalSort()
	if err != nil {
		return nil, validationError("order modules", []error{err})
	}

	return &Graph{
		Project:    opts.Project,
		Paths:      paths,
		Repos:      repos,
		Resolution: resolution,
		Registry:   registry,
		Order:      order,
	}, nil
}

// LocalPackages returns the package descriptors under the modules
// directory. A modules directory without any is treated as one implicit
// package named after the project.
func LocalPackages(project *config.Project, paths config.Paths) ([]*yaemod.Package, error) {
	info, err := os.Stat(paths.ModulesDir)
	if err != nil {
		return nil, fmt.Errorf("modules directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("modules directory %s is not a directory", paths.ModulesDir)
	}

	pkgs, err := yaemod.LoadPackages(paths.ModulesDir)
	if err != nil {
		return nil, err
	}
	if len(pkgs) > 0 {
		return pkgs, nil
	}

	return []*yaemod.Package{{
		Name:       project.Name,
		RootDir:    paths.ModulesDir,
		ModulesDir: paths.ModulesDir,
	}}, nil
}

// collectModules parses every module descriptor under the packages'
// module directories. Directories shared by several packages are read once.
func collectModules(pkgs []*yaemod.Package) ([]*yaemod.Module, error) {
	var (
		mods []*yaemod.Module
		errs []error
		seen = make(map[string]bool)
	)
	for _, pkg := range pkgs {
		paths, err := yaemod.FindDescriptors(pkg.ModulesDir, yaemod.ModuleFileExt)
		if err != nil {
			errs = append(errs, fmt.Errorf("package %s: %w", pkg.Name, err))
			continue
		}
		for _, p := range paths {
			abs, err := filepath.Abs(p)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if seen[abs] {
				continue
			}
			seen[abs] = true

			m, err := yaemod.LoadModule(abs)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			mods = append(mods, m)
		}
	}
	return mods, errors.Join(errs...)
}

// fetchClones makes sure every registered ExternalClone module is cloned.
func fetchClones(ctx context.Context, repos *clonedrepo.Registry, registry *modregistry.Registry) error {
	var reqs []clonedrepo.Request
	for _, m := range registry.Modules() {
		if m.Kind != yaemod.KindExternalClone {
			continue
		}
		reqs = append(reqs, clonedrepo.Request{
			Path:      m.Clone.LocalPath,
			Reference: clonedrepo.Reference{URL: m.Clone.URL, Revision: m.Clone.Revision},
		})
	}
	return repos.FetchAll(ctx, reqs)
}

func resolveError(err error) error {
	ec := issue.NewErrorContext().WithOperation("resolve packages").Wrap(err)
	switch {
	case errors.Is(err, resolver.ErrProvenanceConflict):
		ec.WithSuggestion("Make every package that requires it use the same link and revision")
	case errors.Is(err, resolver.ErrFetchFailed):
		ec.WithSuggestion("Check that the repository exists and has the requested branch or tag")
		ec.WithSuggestion("Set GITHUB_TOKEN, GITLAB_TOKEN or GIT_TOKEN for private repositories")
	case errors.Is(err, resolver.ErrPackageNotFound):
		ec.WithSuggestion("Check the package name against the repository's *.package.json files")
	case errors.Is(err, resolver.ErrDuplicateLocalPackage):
		ec.WithSuggestion("Rename one of the package descriptors")
	}
	return ec.BuildError()
}

// validationError lists each aggregated diagnostic on its own line. The
// cause keeps the full error chain but prints only a summary, so the
// diagnostics are not repeated.
func validationError(operation string, errs []error, suggestions ...string) error {
	var (
		kept       []error
		messages   []string
		aggregated bool
	)
	for _, err := range errs {
		if err == nil {
			continue
		}
		kept = append(kept, err)
		var verr *modregistry.ValidationError
		if errors.As(err, &verr) {
			aggregated = true
			for _, d := range verr.Diagnostics {
				messages = append(messages, d.Message)
			}
			continue
		}
		messages = append(messages, strings.Split(err.Error(), "\n")...)
	}
	if len(kept) == 0 {
		return nil
	}

	cause := errors.Join(kept...)
	ec := issue.NewErrorContext().WithOperation(operation)
	if aggregated || len(messages) > 1 {
		ec.WithDetails(messages...)
		cause = &summaryError{msg: fmt.Sprintf("%d problem(s) found", len(messages)), err: cause}
	}
	ec.Wrap(cause)
	for _, s := range suggestions {
		ec.WithSuggestion(s)
	}
	return ec.BuildError()
}

type summaryError struct {
	msg string
	err error
}

func (e *summaryError) Error() string { return e.msg }

func (e *summaryError) Unwrap() error { return e.err }
