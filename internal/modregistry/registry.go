// SPDX-License-Identifier: MPL-2.0

package modregistry

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/yae-build/yae/internal/dag"
	"github.com/yae-build/yae/pkg/yaemod"
)

// Registry indexes modules by name. It is built once per run and then only
// queried; it is not safe for concurrent mutation.
type Registry struct {
	modules map[string]*yaemod.Module
	order   []string
	diags   []Diagnostic
	logger  *slog.Logger
}

// New creates an empty Registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		modules: make(map[string]*yaemod.Module),
		logger:  logger,
	}
}

// AddOne registers m. If a module with the same name is already registered
// it returns false, records a diagnostic and keeps the first module.
func (r *Registry) AddOne(m *yaemod.Module) bool {
	if prev, ok := r.modules[m.Name]; ok {
		msg := fmt.Sprintf("module %q is defined twice: %s and %s", m.Name, prev.DescriptorPath, m.DescriptorPath)
		r.diags = append(r.diags, Diagnostic{Kind: ErrDuplicateModule, Module: m.Name, Message: msg})
		r.logger.Debug("duplicate module", "module", m.Name, "first", prev.DescriptorPath, "second", m.DescriptorPath)
		return false
	}
	r.modules[m.Name] = m
	r.order = append(r.order, m.Name)
	r.logger.Debug("module registered", "module", m.Name, "kind", m.Kind.String())
	return true
}

// Add registers every module and returns a *ValidationError listing all
// duplicates rejected by this call.
func (r *Registry) Add(mods ...*yaemod.Module) error {
	before := len(r.diags)
	for _, m := range mods {
		r.AddOne(m)
	}
	if len(r.diags) == before {
		return nil
	}
	return &ValidationError{Diagnostics: slices.Clone(r.diags[before:])}
}

// Find returns the module registered under name.
func (r *Registry) Find(name string) (*yaemod.Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	return len(r.order)
}

// Names returns the module names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Modules returns the registered modules in registration order.
func (r *Registry) Modules() []*yaemod.Module {
	mods := make([]*yaemod.Module, 0, len(r.order))
	for _, name := range r.order {
		mods = append(mods, r.modules[name])
	}
	return mods
}

// Diagnostics returns every duplicate registration recorded by AddOne.
func (r *Registry) Diagnostics() []Diagnostic {
	return slices.Clone(r.diags)
}

// EnsureSingleModuleRules checks that every dependency names a registered
// module and that every descriptor file is named after its module.
// ExternalClone modules are exempt from the naming rule. All violations
// are returned together.
func (r *Registry) EnsureSingleModuleRules() error {
	var diags []Diagnostic

	for _, name := range r.order {
		m := r.modules[name]
		for _, dep := range m.AllDependencies() {
			if _, ok := r.modules[dep]; !ok {
				diags = append(diags, Diagnostic{
					Kind:    ErrDanglingDependency,
					Module:  name,
					Message: fmt.Sprintf("%s depends on %s, which does not exist", name, dep),
				})
			}
		}

		if m.Kind == yaemod.KindExternalClone {
			continue
		}
		if file := filepath.Base(m.DescriptorPath); file != m.ExpectedFileName() {
			diags = append(diags, Diagnostic{
				Kind:    ErrNameMismatch,
				Module:  name,
				Message: fmt.Sprintf("module %s is described by %s, expected %s", name, file, m.ExpectedFileName()),
			})
		}
	}

	if len(diags) == 0 {
		return nil
	}
	for _, d := range diags {
		r.logger.Debug("module rule violated", "module", d.Module, "problem", d.Message)
	}
	return &ValidationError{Diagnostics: diags}
}

// EnsureDependencyGraphIsValid fails with ErrNoModules on an empty registry
// and with a *CycleError when the dependency graph has a cycle.
func (r *Registry) EnsureDependencyGraphIsValid() error {
	g := r.graph()
	if g.Len() == 0 {
		return ErrNoModules
	}
	if _, err := g.TopologicalSort(); err != nil {
		var cycle *CycleError
		if errors.As(err, &cycle) {
			r.logger.Debug("dependency cycle", "walk", strings.Join(cycle.Walk, " -> "))
		}
		return err
	}
	return nil
}

// TopologicalSort orders the given modules and everything they depend on
// (the whole registry when no targets are given) so that each module comes
// after all of its dependencies. Dependencies are visited in declared
// order, public before private, so the result is stable for a given input.
func (r *Registry) TopologicalSort(targets ...string) ([]string, error) {
	g := r.graph()
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return order, nil
	}

	var unknown []error
	for _, name := range targets {
		if !g.HasNode(name) {
			unknown = append(unknown, fmt.Errorf("%w: %s", ErrUnknownModule, name))
		}
	}
	if err := errors.Join(unknown...); err != nil {
		return nil, err
	}
	return g.PostOrder(targets...), nil
}

// ReverseTopologicalSort is TopologicalSort with dependents first.
func (r *Registry) ReverseTopologicalSort(targets ...string) ([]string, error) {
	order, err := r.TopologicalSort(targets...)
	if err != nil {
		return nil, err
	}
	slices.Reverse(order)
	return order, nil
}

// graph builds the dependency graph. Dependencies on unregistered modules
// are left out; EnsureSingleModuleRules reports them.
func (r *Registry) graph() *dag.Graph {
	g := dag.New()
	for _, name := range r.order {
		g.AddNode(name)
	}
	for _, name := range r.order {
		for _, dep := range r.modules[name].AllDependencies() {
			if _, ok := r.modules[dep]; ok {
				g.AddEdge(name, dep)
			}
		}
	}
	return g
}
