// SPDX-License-Identifier: MPL-2.0

package clonedrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/yae-build/yae/pkg/yaemod"
)

var (
	// ErrURLMismatch is returned when a path is already registered with another URL.
	ErrURLMismatch = errors.New("repository URL mismatch")
	// ErrRevisionMismatch is returned when a path is already registered with another revision.
	ErrRevisionMismatch = errors.New("repository revision mismatch")
	// ErrCloneFailed is returned when the underlying clone fails.
	ErrCloneFailed = errors.New("clone failed")
	// ErrInvalidPath is returned for local paths outside the cloned repositories directory.
	ErrInvalidPath = errors.New("invalid local path")
)

type (
	// Cloner performs a shallow, single-revision clone of url at revision into dest.
	Cloner interface {
		Clone(ctx context.Context, url, revision, dest string) error
	}

	// Reference is the (URL, revision) pair a local path was cloned from.
	Reference struct {
		URL      string `json:"GitUrl"`
		Revision string `json:"GitTag"`
	}

	// Request asks for url at revision to be available at Path.
	Request struct {
		Path string
		Reference
	}

	// ReferenceConflictError reports a second registration of a path with a
	// different URL or revision.
	ReferenceConflictError struct {
		Path       string
		Registered Reference
		Requested  Reference
	}

	// CloneError reports a failed clone. The path is not registered.
	CloneError struct {
		Path string
		Reference
		Err error
	}

	// Registry tracks which repositories have been cloned where.
	// It is safe for concurrent use; registrations are serialized.
	Registry struct {
		baseDir string
		file    string
		cloner  Cloner
		logger  *slog.Logger

		mu      sync.Mutex
		entries map[string]Reference
		// inflight holds paths whose clone has been dispatched but not finished.
		inflight map[string]Reference
	}
)

func (e *ReferenceConflictError) Error() string {
	if e.Registered.URL != e.Requested.URL {
		return fmt.Sprintf("%s is already cloned from %s, cannot clone %s there", e.Path, e.Registered.URL, e.Requested.URL)
	}
	return fmt.Sprintf("%s is already cloned at %s (%s), cannot switch to %s", e.Path, e.Registered.Revision, e.Registered.URL, e.Requested.Revision)
}

// Unwrap returns ErrURLMismatch or ErrRevisionMismatch.
func (e *ReferenceConflictError) Unwrap() error {
	if e.Registered.URL != e.Requested.URL {
		return ErrURLMismatch
	}
	return ErrRevisionMismatch
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("cloning %s at %s into %s: %v", e.URL, e.Revision, e.Path, e.Err)
}

// Unwrap returns both ErrCloneFailed and the underlying cause.
func (e *CloneError) Unwrap() []error {
	return []error{ErrCloneFailed, e.Err}
}

// Open loads the registration file (a missing file is an empty registry)
// and returns a Registry that clones into baseDir.
func Open(baseDir, file string, cloner Cloner, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		baseDir:  baseDir,
		file:     file,
		cloner:   cloner,
		logger:   logger,
		entries:  make(map[string]Reference),
		inflight: make(map[string]Reference),
	}

	data, err := os.ReadFile(file)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return r, nil
	case err != nil:
		return nil, fmt.Errorf("reading repository registry: %w", err)
	}

	var stored map[string]Reference
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parsing repository registry %s: %w", file, err)
	}
	for p, ref := range stored {
		clean, err := yaemod.CleanLocalPath(p)
		if err != nil {
			return nil, fmt.Errorf("repository registry %s: %w: %w", file, ErrInvalidPath, err)
		}
		r.entries[clean] = ref
	}
	return r, nil
}

// FetchRepo ensures url at revision is cloned at localPath. It is a no-op
// when the same reference is already registered there, and fails without
// touching any state when a different one is.
func (r *Registry) FetchRepo(ctx context.Context, localPath, url, revision string) error {
	req, err := r.reserve(Request{Path: localPath, Reference: Reference{URL: url, Revision: revision}})
	if err != nil || req == nil {
		return err
	}
	return r.clone(ctx, *req)
}

// FetchAll fetches every request. Conflicts are checked for all requests
// before any clone is dispatched; clones then run concurrently and each
// successful one is persisted as it completes. Every failure is returned.
func (r *Registry) FetchAll(ctx context.Context, reqs []Request) error {
	var (
		pending []Request
		errs    []error
	)
	for _, req := range reqs {
		p, err := r.reserve(req)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if p != nil {
			pending = append(pending, *p)
		}
	}
	if len(errs) > 0 {
		r.release(pending)
		return errors.Join(errs...)
	}

	return runParallel(ctx, pending, r.clone)
}

// Exists reports whether localPath is registered.
func (r *Registry) Exists(localPath string) bool {
	_, ok := r.Lookup(localPath)
	return ok
}

// ExistsWithSameReference reports whether localPath is registered with
// exactly url and revision.
func (r *Registry) ExistsWithSameReference(localPath, url, revision string) bool {
	ref, ok := r.Lookup(localPath)
	return ok && ref == Reference{URL: url, Revision: revision}
}

// Lookup returns the reference registered at localPath.
func (r *Registry) Lookup(localPath string) (Reference, bool) {
	clean, err := yaemod.CleanLocalPath(localPath)
	if err != nil {
		return Reference{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.entries[clean]
	return ref, ok
}

// Paths returns every registered local path in sorted order.
func (r *Registry) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.entries))
}

// AbsPath returns where localPath lives on disk.
func (r *Registry) AbsPath(localPath string) string {
	return filepath.Join(r.baseDir, filepath.FromSlash(localPath))
}

// BaseDir returns the cloned repositories directory.
func (r *Registry) BaseDir() string {
	return r.baseDir
}

// reserve validates req against registered and in-flight references.
// A nil request means nothing needs to be cloned.
func (r *Registry) reserve(req Request) (*Request, error) {
	clean, err := yaemod.CleanLocalPath(req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	req.Path = clean

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.entries[clean]
	if !ok {
		existing, ok = r.inflight[clean]
		if ok && existing == req.Reference {
			// Another request in this batch already clones it.
			return nil, nil
		}
	}
	if ok {
		if existing != req.Reference {
			r.logger.Debug("conflicting repository registration",
				"path", clean,
				"registered_url", existing.URL, "registered_tag", existing.Revision,
				"requested_url", req.URL, "requested_tag", req.Revision)
			return nil, &ReferenceConflictError{Path: clean, Registered: existing, Requested: req.Reference}
		}
		r.logger.Debug("repository already cloned", "path", clean, "url", req.URL, "tag", req.Revision)
		return nil, nil
	}

	r.inflight[clean] = req.Reference
	return &req, nil
}

func (r *Registry) release(reqs []Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range reqs {
		delete(r.inflight, req.Path)
	}
}

func (r *Registry) clone(ctx context.Context, req Request) error {
	dest := r.AbsPath(req.Path)
	r.logger.Info("cloning repository", "url", req.URL, "tag", req.Revision, "path", req.Path)

	if err := r.cloner.Clone(ctx, req.URL, req.Revision, dest); err != nil {
		r.release([]Request{req})
		return &CloneError{Path: req.Path, Reference: req.Reference, Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, req.Path)
	r.entries[req.Path] = req.Reference
	if err := r.saveLocked(); err != nil {
		return err
	}
	return nil
}

// saveLocked writes the registration table atomically. Keys are sorted by
// encoding/json, so an unchanged table always produces the same bytes.
func (r *Registry) saveLocked() error {
	data, err := json.MarshalIndent(r.entries, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding repository registry: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(r.file), 0o755); err != nil {
		return fmt.Errorf("creating repository registry directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.file), ".registry-*.json")
	if err != nil {
		return fmt.Errorf("writing repository registry: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing repository registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing repository registry: %w", err)
	}
	if err := os.Rename(tmpName, r.file); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing repository registry: %w", err)
	}
	return nil
}
