// SPDX-License-Identifier: MPL-2.0

package project

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/yae-build/yae/internal/clonedrepo"
	"github.com/yae-build/yae/internal/config"
	"github.com/yae-build/yae/internal/issue"
	"github.com/yae-build/yae/internal/modregistry"
	"github.com/yae-build/yae/internal/resolver"
	"github.com/yae-build/yae/internal/testutil"
	"github.com/yae-build/yae/pkg/yaemod"
)

const (
	mathURL  = "https://github.com/acme/math"
	gtestURL = "https://github.com/google/googletest"
)

type testProject struct {
	opts   Options
	cloner *testutil.FakeCloner
}

func newTestProject(t *testing.T) *testProject {
	t.Helper()
	root := t.TempDir()
	project := config.DefaultProject()
	project.Name = "demo"

	paths, err := config.NewPaths(config.PathOptions{ProjectDir: root}, project)
	if err != nil {
		t.Fatalf("NewPaths() error: %v", err)
	}
	testutil.MustMkdirAll(t, paths.ModulesDir)

	cloner := testutil.NewFakeCloner()
	return &testProject{
		opts:   Options{Project: project, Paths: paths, Cloner: cloner},
		cloner: cloner,
	}
}

func (p *testProject) module(t *testing.T, name, content string) {
	t.Helper()
	testutil.WriteModule(t, p.opts.Paths.ModulesDir, name, content)
}

func TestLoad_ImplicitPackage(t *testing.T) {
	t.Parallel()
	p := newTestProject(t)
	p.module(t, "app", `{"ModuleType": "Executable", "Dependencies": {"Private": ["core"]}}`)
	p.module(t, "core", `{"ModuleType": "Library"}`)

	g, err := Load(context.Background(), p.opts)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if want := []string{"core", "app"}; !slices.Equal(g.Order, want) {
		t.Errorf("Order = %v, want %v", g.Order, want)
	}
	if len(g.Resolution.Packages) != 1 || g.Resolution.Packages[0].Name != "demo" {
		t.Errorf("expected one implicit package named demo, got %+v", g.Resolution.Packages)
	}
	if len(p.cloner.Calls()) != 0 {
		t.Errorf("no clone expected, got %v", p.cloner.Calls())
	}
}

func TestLoad_ExternalPackagesAndClones(t *testing.T) {
	t.Parallel()
	p := newTestProject(t)

	testutil.WritePackage(t, p.opts.Paths.ModulesDir, "game", `{
		"dependencies": {"packages": [{"link": "https://github.com/acme/math v1", "packages": ["math"]}]}
	}`)
	p.module(t, "game", `{"ModuleType": "Executable", "Dependencies": {"Public": ["linalg"], "Private": ["gtest"]}}`)
	p.module(t, "gtest", `{
		"ModuleType": "GitClone",
		"GitUrl": "https://github.com/google/googletest",
		"GitTag": "v1.14.0",
		"LocalPath": "google/googletest"
	}`)

	p.cloner.AddRepo(mathURL, "v1", testutil.FakeRepo{
		"math.package.json":                 `{"modules_dir": "modules"}`,
		"modules/linalg/linalg.module.json": `{"ModuleType": "Library", "Dependencies": {"Public": ["simd"]}}`,
		"modules/simd/simd.module.json":     `{"ModuleType": "Library"}`,
	})
	p.cloner.AddRepo(gtestURL, "v1.14.0", testutil.FakeRepo{"CMakeLists.txt": "project(googletest)"})

	g, err := Load(context.Background(), p.opts)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if want := []string{"simd", "linalg", "gtest", "game"}; !slices.Equal(g.Order, want) {
		t.Errorf("Order = %v, want %v", g.Order, want)
	}
	if !g.Resolution.External("math") || g.Resolution.External("game") {
		t.Errorf("Sources = %v", g.Resolution.Sources)
	}
	if got := g.Repos.Paths(); !slices.Equal(got, []string{"acme/math", "google/googletest"}) {
		t.Errorf("registered repositories = %v", got)
	}

	// A second run reuses both clones.
	again, err := Load(context.Background(), p.opts)
	if err != nil {
		t.Fatalf("second Load() error: %v", err)
	}
	if !slices.Equal(again.Order, g.Order) {
		t.Errorf("second Order = %v, want %v", again.Order, g.Order)
	}
	if n := len(p.cloner.Calls()); n != 2 {
		t.Errorf("clone calls = %v, want exactly two", p.cloner.Calls())
	}
}

func TestLoad_AggregatesStructuralProblems(t *testing.T) {
	t.Parallel()
	p := newTestProject(t)
	p.module(t, "app", `{"ModuleType": "Executable", "Dependencies": {"Public": ["ghost"], "Private": ["phantom"]}}`)
	testutil.MustWriteFile(t, filepath.Join(p.opts.Paths.ModulesDir, "net", "network.module.json"), `{"ModuleType": "Library"}`)

	_, err := Load(context.Background(), p.opts)
	if !errors.Is(err, modregistry.ErrDanglingDependency) || !errors.Is(err, modregistry.ErrNameMismatch) {
		t.Fatalf("Load() error = %v, want dangling and naming problems", err)
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *issue.ActionableError, got %T", err)
	}
	if len(ae.Details) != 3 {
		t.Errorf("Details = %v, want three problems", ae.Details)
	}
	if strings.Count(ae.Format(false), "ghost") != 1 {
		t.Errorf("each problem should be printed once:\n%s", ae.Format(false))
	}
}

func TestLoad_DuplicateModules(t *testing.T) {
	t.Parallel()
	p := newTestProject(t)
	testutil.WriteModule(t, filepath.Join(p.opts.Paths.ModulesDir, "a"), "core", `{"ModuleType": "Library"}`)
	testutil.WriteModule(t, filepath.Join(p.opts.Paths.ModulesDir, "b"), "core", `{"ModuleType": "Library"}`)

	_, err := Load(context.Background(), p.opts)
	if !errors.Is(err, modregistry.ErrDuplicateModule) {
		t.Fatalf("Load() error = %v, want ErrDuplicateModule", err)
	}
}

func TestLoad_CloneFailureAborts(t *testing.T) {
	t.Parallel()
	p := newTestProject(t)
	p.module(t, "dep", `{"ModuleType": "GitClone", "GitUrl": "https://github.com/acme/missing", "GitTag": "v0", "LocalPath": "acme/missing"}`)

	_, err := Load(context.Background(), p.opts)
	if !errors.Is(err, clonedrepo.ErrCloneFailed) {
		t.Fatalf("Load() error = %v, want ErrCloneFailed", err)
	}
}

func TestLoad_Cycle(t *testing.T) {
	t.Parallel()
	p := newTestProject(t)
	p.module(t, "a", `{"ModuleType": "Library", "Dependencies": {"Public": ["b"]}}`)
	p.module(t, "b", `{"ModuleType": "Library", "Dependencies": {"Public": ["c"]}}`)
	p.module(t, "c", `{"ModuleType": "Library", "Dependencies": {"Private": ["a"]}}`)

	_, err := Load(context.Background(), p.opts)
	var cycle *modregistry.CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("Load() error = %v, want *CycleError", err)
	}
	if want := []string{"a", "b", "c", "a"}; !slices.Equal(cycle.Walk, want) {
		t.Errorf("Walk = %v, want %v", cycle.Walk, want)
	}
}

func TestLoad_NoModules(t *testing.T) {
	t.Parallel()
	p := newTestProject(t)

	if _, err := Load(context.Background(), p.opts); !errors.Is(err, modregistry.ErrNoModules) {
		t.Errorf("Load() error = %v, want ErrNoModules", err)
	}
}

func TestLoad_DescriptorError(t *testing.T) {
	t.Parallel()
	p := newTestProject(t)
	p.module(t, "bad", `{"ModuleType": "GitClone"}`)

	if _, err := Load(context.Background(), p.opts); !errors.Is(err, yaemod.ErrInvalidDescriptor) {
		t.Errorf("Load() error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestLoad_ResolutionError(t *testing.T) {
	t.Parallel()
	p := newTestProject(t)
	testutil.WritePackage(t, p.opts.Paths.ModulesDir, "game", `{
		"dependencies": {"packages": [{"link": "https://github.com/acme/offline", "packages": ["x"]}]}
	}`)

	_, err := Load(context.Background(), p.opts)
	if !errors.Is(err, resolver.ErrFetchFailed) {
		t.Fatalf("Load() error = %v, want ErrFetchFailed", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || !ae.HasSuggestions() {
		t.Errorf("resolution failures should carry suggestions: %v", err)
	}
}

func TestLoad_MissingModulesDir(t *testing.T) {
	t.Parallel()
	p := newTestProject(t)
	p.opts.Paths.ModulesDir = filepath.Join(p.opts.Paths.ProjectRoot, "absent")

	if _, err := Load(context.Background(), p.opts); err == nil {
		t.Error("expected error for a missing modules directory")
	}
}
