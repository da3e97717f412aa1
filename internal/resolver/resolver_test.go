// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/yae-build/yae/internal/clonedrepo"
	"github.com/yae-build/yae/internal/testutil"
	"github.com/yae-build/yae/pkg/yaemod"
)

const (
	mathURL   = "https://github.com/acme/math"
	ioURL     = "https://github.com/acme/io"
	forkURL   = "https://github.com/fork/math"
	emptyURL  = "https://github.com/acme/empty"
	brokenURL = "https://github.com/acme/broken"
)

type fixture struct {
	cloner   *testutil.FakeCloner
	registry *clonedrepo.Registry
	resolver *Resolver
	root     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	cloner := testutil.NewFakeCloner()
	reg, err := clonedrepo.Open(filepath.Join(root, "cloned"), filepath.Join(root, "cloned", "registry.json"), cloner, nil)
	if err != nil {
		t.Fatalf("clonedrepo.Open() error: %v", err)
	}
	return &fixture{cloner: cloner, registry: reg, resolver: New(reg, nil), root: root}
}

func (f *fixture) localPackage(t *testing.T, name, content string) *yaemod.Package {
	t.Helper()
	path := testutil.WritePackage(t, filepath.Join(f.root, "project", name), name, content)
	p, err := yaemod.LoadPackage(path)
	if err != nil {
		t.Fatalf("LoadPackage(%s) error: %v", name, err)
	}
	return p
}

func names(pkgs []*yaemod.Package) []string {
	out := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, p.Name)
	}
	return out
}

func TestResolve_TransitiveClosure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// P -> Q (math), Q -> R (io).
	f.cloner.AddRepo(mathURL, "v1", testutil.FakeRepo{
		"Q.package.json": `{"dependencies": {"packages": [{"link": "https://github.com/acme/io v2", "packages": ["R"]}]}}`,
	})
	f.cloner.AddRepo(ioURL, "v2", testutil.FakeRepo{
		"R.package.json": `{}`,
	})
	p := f.localPackage(t, "P", `{"dependencies": {"packages": [{"link": "https://github.com/acme/math v1", "packages": ["Q"]}]}}`)

	res, err := f.resolver.Resolve(context.Background(), []*yaemod.Package{p})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if got := names(res.Packages); !slices.Equal(got, []string{"P", "Q", "R"}) {
		t.Errorf("packages = %v, want [P Q R]", got)
	}
	if f.cloner.CallCount(mathURL, "v1") != 1 || f.cloner.CallCount(ioURL, "v2") != 1 {
		t.Errorf("each location should be fetched once, calls = %v", f.cloner.Calls())
	}
	if res.External("P") || !res.External("Q") || !res.External("R") {
		t.Errorf("Sources = %v", res.Sources)
	}
	if res.Sources["R"].Subdir != "acme/io" {
		t.Errorf("R source = %+v", res.Sources["R"])
	}
}

func TestResolve_SharedLocationFetchedOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// One repository provides several packages; only the required ones are kept.
	f.cloner.AddRepo(mathURL, "main", testutil.FakeRepo{
		"linalg/linalg.package.json":     `{}`,
		"geometry/geometry.package.json": `{"dependencies": {"packages": [{"link": "https://github.com/acme/math", "packages": ["linalg"]}]}}`,
		"unused/unused.package.json":     `{}`,
	})
	a := f.localPackage(t, "A", `{"dependencies": {"packages": [{"link": "https://github.com/acme/math", "packages": ["geometry"]}]}}`)
	b := f.localPackage(t, "B", `{"dependencies": {"packages": [{"link": "https://github.com/acme/math", "packages": ["linalg"]}]}}`)

	res, err := f.resolver.Resolve(context.Background(), []*yaemod.Package{a, b})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if got := names(res.Packages); !slices.Equal(got, []string{"A", "B", "geometry", "linalg"}) {
		t.Errorf("packages = %v", got)
	}
	if n := len(f.cloner.Calls()); n != 1 {
		t.Errorf("clone calls = %d, want 1", n)
	}
}

func TestResolve_AvailablePackagePromotedLater(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// X is discovered while fetching for W but only required afterwards,
	// so its own requirement on Y must still be followed.
	f.cloner.AddRepo(mathURL, "main", testutil.FakeRepo{
		"W.package.json": `{}`,
		"X.package.json": `{"dependencies": {"packages": [{"link": "https://github.com/acme/io", "packages": ["Y"]}]}}`,
	})
	f.cloner.AddRepo(ioURL, "main", testutil.FakeRepo{"Y.package.json": `{}`})

	p := f.localPackage(t, "P", `{"dependencies": {"packages": [
		{"link": "https://github.com/acme/math", "packages": ["W"]},
		{"link": "https://github.com/acme/math", "packages": ["X"]}
	]}}`)

	res, err := f.resolver.Resolve(context.Background(), []*yaemod.Package{p})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got := names(res.Packages); !slices.Equal(got, []string{"P", "W", "X", "Y"}) {
		t.Errorf("packages = %v", got)
	}
}

func TestResolve_LocalWinsOverExternal(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.cloner.AddRepo(mathURL, "main", testutil.FakeRepo{
		"Q.package.json":    `{}`,
		"Base.package.json": `{"dependencies": {"packages": [{"link": "https://github.com/acme/io", "packages": ["never"]}]}}`,
	})
	base := f.localPackage(t, "Base", `{}`)
	p := f.localPackage(t, "P", `{"dependencies": {"packages": [
		{"link": "https://github.com/acme/math", "packages": ["Q"]},
		{"link": "https://github.com/fork/math", "packages": ["Base"]}
	]}}`)

	res, err := f.resolver.Resolve(context.Background(), []*yaemod.Package{base, p})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got := names(res.Packages); !slices.Equal(got, []string{"Base", "P", "Q"}) {
		t.Errorf("packages = %v", got)
	}
	if res.Packages[0] != base {
		t.Error("the local Base package should be kept")
	}
	if f.cloner.CallCount(forkURL, "main") != 0 {
		t.Error("a locally satisfied requirement should not be fetched")
	}
}

func TestResolve_ProvenanceConflict(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.cloner.AddRepo(mathURL, "v1", testutil.FakeRepo{"Q.package.json": `{}`})
	f.cloner.AddRepo(forkURL, "v1", testutil.FakeRepo{"Q.package.json": `{}`})

	a := f.localPackage(t, "A", `{"dependencies": {"packages": [{"link": "https://github.com/acme/math v1", "packages": ["Q"]}]}}`)
	b := f.localPackage(t, "B", `{"dependencies": {"packages": [{"link": "https://github.com/fork/math v1", "packages": ["Q"]}]}}`)

	_, err := f.resolver.Resolve(context.Background(), []*yaemod.Package{a, b})
	if !errors.Is(err, ErrProvenanceConflict) {
		t.Fatalf("Resolve() error = %v, want ErrProvenanceConflict", err)
	}
	var conflict *ProvenanceConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected *ProvenanceConflictError, got %T", err)
	}
	if conflict.Package != "Q" || conflict.First.URL != mathURL || conflict.Second.URL != forkURL {
		t.Errorf("conflict = %+v", conflict)
	}
	if f.cloner.CallCount(mathURL, "v1") != 1 {
		t.Errorf("first location fetched %d times, want 1", f.cloner.CallCount(mathURL, "v1"))
	}
	if f.cloner.CallCount(forkURL, "v1") != 0 {
		t.Error("the disputed location should never be fetched")
	}
}

func TestResolve_RevisionConflictIsProvenanceConflict(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.cloner.AddRepo(mathURL, "v1", testutil.FakeRepo{"Q.package.json": `{}`})
	f.cloner.AddRepo(mathURL, "v2", testutil.FakeRepo{"Q.package.json": `{}`})
	a := f.localPackage(t, "A", `{"dependencies": {"packages": [{"link": "https://github.com/acme/math v1", "packages": ["Q"]}]}}`)
	b := f.localPackage(t, "B", `{"dependencies": {"packages": [{"link": "https://github.com/acme/math v2", "packages": ["Q"]}]}}`)

	_, err := f.resolver.Resolve(context.Background(), []*yaemod.Package{a, b})
	if !errors.Is(err, ErrProvenanceConflict) {
		t.Fatalf("Resolve() error = %v, want ErrProvenanceConflict", err)
	}
	if f.cloner.CallCount(mathURL, "v2") != 0 {
		t.Error("the second revision should never be fetched")
	}
	if !f.registry.ExistsWithSameReference("acme/math", mathURL, "v1") {
		t.Error("the first fetch should stay registered")
	}
}

func TestResolve_PackageNotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.cloner.AddRepo(emptyURL, "main", testutil.FakeRepo{"README.md": "nothing here"})
	p := f.localPackage(t, "P", `{"dependencies": {"packages": [{"link": "https://github.com/acme/empty", "packages": ["ghost"]}]}}`)

	_, err := f.resolver.Resolve(context.Background(), []*yaemod.Package{p})
	if !errors.Is(err, ErrPackageNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrPackageNotFound", err)
	}
}

func TestResolve_FetchFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	p := f.localPackage(t, "P", `{"dependencies": {"packages": [{"link": "https://github.com/acme/broken v3", "packages": ["Q"]}]}}`)

	_, err := f.resolver.Resolve(context.Background(), []*yaemod.Package{p})
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("Resolve() error = %v, want ErrFetchFailed", err)
	}
	if !errors.Is(err, clonedrepo.ErrCloneFailed) {
		t.Errorf("the clone failure should be preserved: %v", err)
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Source.URL != brokenURL || fetchErr.Source.Revision != "v3" {
		t.Errorf("FetchError should name the unreachable location, got %v", err)
	}
}

func TestResolve_DuplicateLocalPackage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	first := f.localPackage(t, "dup", `{}`)
	path := testutil.WritePackage(t, filepath.Join(f.root, "elsewhere"), "dup", `{}`)
	second, err := yaemod.LoadPackage(path)
	if err != nil {
		t.Fatalf("LoadPackage() error: %v", err)
	}

	_, err = f.resolver.Resolve(context.Background(), []*yaemod.Package{first, second})
	if !errors.Is(err, ErrDuplicateLocalPackage) {
		t.Fatalf("Resolve() error = %v, want ErrDuplicateLocalPackage", err)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()

	build := func() []string {
		f := newFixture(t)
		f.cloner.AddRepo(mathURL, "main", testutil.FakeRepo{
			"c.package.json": `{}`,
			"b.package.json": `{}`,
			"a.package.json": `{}`,
		})
		p := f.localPackage(t, "P", `{"dependencies": {"packages": [{"link": "https://github.com/acme/math", "packages": ["c", "a", "b"]}]}}`)
		res, err := f.resolver.Resolve(context.Background(), []*yaemod.Package{p})
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		return names(res.Packages)
	}

	first, second := build(), build()
	if !slices.Equal(first, []string{"P", "a", "b", "c"}) || !slices.Equal(first, second) {
		t.Errorf("resolution should be stable: %v vs %v", first, second)
	}
}

func TestResolve_NoRequirements(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	p := f.localPackage(t, "solo", `{}`)
	res, err := f.resolver.Resolve(context.Background(), []*yaemod.Package{p})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got := names(res.Packages); !slices.Equal(got, []string{"solo"}) {
		t.Errorf("packages = %v", got)
	}
	if len(f.cloner.Calls()) != 0 {
		t.Error("nothing should be fetched")
	}
}
