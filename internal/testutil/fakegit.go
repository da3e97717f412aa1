// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type (
	// FakeRepo is the content a FakeCloner materializes for one URL and
	// revision: file paths relative to the clone root mapped to content.
	FakeRepo map[string]string

	// FakeCloner satisfies the clone interface used by the repository
	// fetcher without touching the network. Repositories are keyed by
	// "<url>@<revision>"; cloning anything else fails.
	FakeCloner struct {
		mu    sync.Mutex
		repos map[string]FakeRepo
		calls []string
	}
)

// NewFakeCloner returns a cloner with no known repositories.
func NewFakeCloner() *FakeCloner {
	return &FakeCloner{repos: make(map[string]FakeRepo)}
}

// AddRepo makes url at revision clonable with the given files.
func (f *FakeCloner) AddRepo(url, revision string, files FakeRepo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repos[url+"@"+revision] = files
}

// Clone writes the registered files below dest.
func (f *FakeCloner) Clone(_ context.Context, url, revision, dest string) error {
	f.mu.Lock()
	key := url + "@" + revision
	f.calls = append(f.calls, key)
	files, ok := f.repos[key]
	f.mu.Unlock()

	if !ok {
		return fmt.Errorf("remote branch or tag %q not found in %s", revision, url)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for rel, content := range files {
		path := filepath.Join(dest, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Calls returns every attempted clone as "<url>@<revision>", in order.
func (f *FakeCloner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how many times url at revision was cloned.
func (f *FakeCloner) CallCount(url, revision string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == url+"@"+revision {
			n++
		}
	}
	return n
}
