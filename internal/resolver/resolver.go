// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"log/slog"
	"slices"

	"github.com/yae-build/yae/pkg/yaemod"
)

type (
	// Fetcher materializes a source location on local storage.
	Fetcher interface {
		FetchRepo(ctx context.Context, localPath, url, revision string) error
		AbsPath(localPath string) string
	}

	// Resolution is the outcome of a successful Resolve.
	Resolution struct {
		// Packages holds the local packages in input order, followed by the
		// required external packages sorted by name.
		Packages []*yaemod.Package
		// Sources maps each external package name to where it was found.
		Sources map[string]yaemod.SourceLocation
	}

	// Resolver computes package closures. A Resolver holds no state between runs.
	Resolver struct {
		fetcher Fetcher
		logger  *slog.Logger
	}

	// run is the state of a single Resolve call.
	run struct {
		*Resolver
		local     map[string]*yaemod.Package
		required  map[string]bool
		available map[string]*yaemod.Package
		locations map[string]yaemod.SourceLocation
		fetched   map[yaemod.SourceLocation]bool
		frontier  []yaemod.Requirement
	}
)

// New creates a Resolver that fetches through f.
func New(f Fetcher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{fetcher: f, logger: logger}
}

// External reports whether the package was fetched rather than found locally.
func (r *Resolution) External(name string) bool {
	_, ok := r.Sources[name]
	return ok
}

// Resolve returns the local packages plus every external package they
// require, directly or transitively. Each source location is fetched at
// most once. Local packages always take precedence over external ones of
// the same name.
func (r *Resolver) Resolve(ctx context.Context, local []*yaemod.Package) (*Resolution, error) {
	st := &run{
		Resolver:  r,
		local:     make(map[string]*yaemod.Package, len(local)),
		required:  make(map[string]bool),
		available: make(map[string]*yaemod.Package),
		locations: make(map[string]yaemod.SourceLocation),
		fetched:   make(map[yaemod.SourceLocation]bool),
	}

	for _, p := range local {
		if prev, ok := st.local[p.Name]; ok {
			return nil, &DuplicateLocalPackageError{Package: p.Name, First: prev.DescriptorPath, Second: p.DescriptorPath}
		}
		st.local[p.Name] = p
		st.required[p.Name] = true
	}
	for _, p := range local {
		st.frontier = append(st.frontier, p.Requirements...)
	}

	for len(st.frontier) > 0 {
		req := st.frontier[0]
		st.frontier = st.frontier[1:]
		if err := st.visit(ctx, req); err != nil {
			return nil, err
		}
	}

	return st.result(local), nil
}

func (st *run) visit(ctx context.Context, req yaemod.Requirement) error {
	name := req.Package
	if _, ok := st.local[name]; ok {
		st.logger.Debug("requirement satisfied locally", "package", name)
		return nil
	}

	if prev, ok := st.locations[name]; ok && prev != req.Source {
		return &ProvenanceConflictError{Package: name, First: prev, Second: req.Source}
	}
	st.locations[name] = req.Source
	st.require(name)

	if _, ok := st.available[name]; ok {
		return nil
	}

	if !st.fetched[req.Source] {
		if err := st.fetch(ctx, name, req.Source); err != nil {
			return err
		}
	}

	if _, ok := st.available[name]; !ok {
		return &PackageNotFoundError{Package: name, Source: req.Source}
	}
	return nil
}

// require marks name as required and, if it is already available,
// enqueues its own requirements.
func (st *run) require(name string) {
	if st.required[name] {
		return
	}
	st.required[name] = true
	if p, ok := st.available[name]; ok {
		st.frontier = append(st.frontier, p.Requirements...)
	}
}

func (st *run) fetch(ctx context.Context, name string, src yaemod.SourceLocation) error {
	st.logger.Info("fetching package", "package", name, "url", src.URL, "revision", src.Revision)
	if err := st.fetcher.FetchRepo(ctx, src.Subdir, src.URL, src.Revision); err != nil {
		return &FetchError{Package: name, Source: src, Err: err}
	}
	st.fetched[src] = true

	discovered, err := yaemod.LoadPackages(st.fetcher.AbsPath(src.Subdir))
	if err != nil {
		return err
	}

	for _, p := range discovered {
		if _, ok := st.local[p.Name]; ok {
			st.logger.Debug("ignoring fetched package shadowed by a local one", "package", p.Name, "url", src.URL)
			continue
		}
		if prev, ok := st.locations[p.Name]; ok && prev != src {
			return &ProvenanceConflictError{Package: p.Name, First: prev, Second: src}
		}
		if _, ok := st.available[p.Name]; ok {
			continue
		}
		st.locations[p.Name] = src
		st.available[p.Name] = p
		st.logger.Debug("package available", "package", p.Name, "url", src.URL)
		if st.required[p.Name] {
			st.frontier = append(st.frontier, p.Requirements...)
		}
	}
	return nil
}

func (st *run) result(local []*yaemod.Package) *Resolution {
	res := &Resolution{
		Packages: slices.Clone(local),
		Sources:  make(map[string]yaemod.SourceLocation),
	}

	var external []string
	for name := range st.available {
		if st.required[name] {
			external = append(external, name)
		}
	}
	slices.Sort(external)

	for _, name := range external {
		res.Packages = append(res.Packages, st.available[name])
		res.Sources[name] = st.locations[name]
	}
	return res
}
