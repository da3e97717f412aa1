// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RegistryFileName is the repository registration file inside the cloned repositories directory.
const RegistryFileName = "registry.json"

type (
	// PathOptions are the directory overrides taken from the command line.
	PathOptions struct {
		// ProjectDir is the project root. Defaults to the working directory.
		ProjectDir string
		// ExternalModulesDir overrides the project's cloned_repos_dir.
		ExternalModulesDir string
		// ToolRoot is where yae's own cmake helpers live. Defaults to the project root.
		ToolRoot string
	}

	// Paths holds every directory a run touches, all absolute.
	Paths struct {
		ProjectRoot    string
		ToolRoot       string
		ModulesDir     string
		ClonedReposDir string
		RegistryFile   string
		BuildDir       string
		CacheDir       string
	}
)

// ResolveProjectDir returns the absolute project root for opts.
func ResolveProjectDir(opts PathOptions) (string, error) {
	dir := opts.ProjectDir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving project directory %s: %w", dir, err)
	}
	return abs, nil
}

// NewPaths combines the command-line overrides with the project configuration.
func NewPaths(opts PathOptions, project *Project) (Paths, error) {
	root, err := ResolveProjectDir(opts)
	if err != nil {
		return Paths{}, err
	}

	toolRoot := root
	if opts.ToolRoot != "" {
		if toolRoot, err = filepath.Abs(opts.ToolRoot); err != nil {
			return Paths{}, fmt.Errorf("resolving tool root %s: %w", opts.ToolRoot, err)
		}
	}

	cloned := filepath.Join(root, filepath.FromSlash(project.ClonedReposDir))
	if filepath.IsAbs(project.ClonedReposDir) {
		cloned = filepath.Clean(project.ClonedReposDir)
	}
	if opts.ExternalModulesDir != "" {
		if cloned, err = filepath.Abs(opts.ExternalModulesDir); err != nil {
			return Paths{}, fmt.Errorf("resolving external modules directory %s: %w", opts.ExternalModulesDir, err)
		}
	}

	return Paths{
		ProjectRoot:    root,
		ToolRoot:       toolRoot,
		ModulesDir:     filepath.Join(root, filepath.FromSlash(project.ModulesDir)),
		ClonedReposDir: cloned,
		RegistryFile:   filepath.Join(cloned, RegistryFileName),
		BuildDir:       filepath.Join(root, "build"),
		CacheDir:       filepath.Join(root, ".cache"),
	}, nil
}

// Rel returns path relative to base in slash form, and whether path is
// inside base.
func Rel(base, path string) (string, bool) {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
