// SPDX-License-Identifier: MPL-2.0

package config

import (
	"path/filepath"
	"testing"
)

func TestNewPaths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	project := DefaultProject()
	project.Name = "engine"

	paths, err := NewPaths(PathOptions{ProjectDir: root}, project)
	if err != nil {
		t.Fatalf("NewPaths() error: %v", err)
	}

	want := Paths{
		ProjectRoot:    root,
		ToolRoot:       root,
		ModulesDir:     filepath.Join(root, "modules"),
		ClonedReposDir: filepath.Join(root, "cloned_repositories"),
		RegistryFile:   filepath.Join(root, "cloned_repositories", "registry.json"),
		BuildDir:       filepath.Join(root, "build"),
		CacheDir:       filepath.Join(root, ".cache"),
	}
	if paths != want {
		t.Errorf("NewPaths() =\n%+v\nwant\n%+v", paths, want)
	}
}

func TestNewPaths_Overrides(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	external := filepath.Join(t.TempDir(), "shared")
	tool := t.TempDir()

	project := DefaultProject()
	paths, err := NewPaths(PathOptions{ProjectDir: root, ExternalModulesDir: external, ToolRoot: tool}, project)
	if err != nil {
		t.Fatalf("NewPaths() error: %v", err)
	}
	if paths.ClonedReposDir != external || paths.RegistryFile != filepath.Join(external, "registry.json") {
		t.Errorf("cloned dir = %q, registry = %q", paths.ClonedReposDir, paths.RegistryFile)
	}
	if paths.ToolRoot != tool {
		t.Errorf("ToolRoot = %q, want %q", paths.ToolRoot, tool)
	}
}

func TestRel(t *testing.T) {
	t.Parallel()

	base := filepath.Join("/work", "project")
	tests := []struct {
		path   string
		want   string
		inside bool
	}{
		{filepath.Join(base, "modules", "core"), "modules/core", true},
		{base, ".", true},
		{filepath.Join("/work", "other"), "", false},
		{filepath.Join("/work", "project2"), "", false},
		{filepath.Join(base, "..dotdir"), "..dotdir", true},
	}

	for _, tt := range tests {
		got, ok := Rel(base, tt.path)
		if got != tt.want || ok != tt.inside {
			t.Errorf("Rel(%q, %q) = %q, %v; want %q, %v", base, tt.path, got, ok, tt.want, tt.inside)
		}
	}
}
