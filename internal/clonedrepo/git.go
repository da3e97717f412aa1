// SPDX-License-Identifier: MPL-2.0

package clonedrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// ErrDestinationNotEmpty is returned when the clone destination already has content.
var ErrDestinationNotEmpty = errors.New("clone destination is not empty")

// GitCloner clones repositories in-process with go-git.
type GitCloner struct {
	auth transport.AuthMethod
}

// NewGitCloner creates a cloner that authenticates HTTPS remotes with a
// token from GITHUB_TOKEN, GITLAB_TOKEN or GIT_TOKEN when one is set.
func NewGitCloner() *GitCloner {
	return &GitCloner{auth: httpAuthFromEnv(os.Getenv)}
}

// Clone performs a shallow, single-branch clone of url at revision into
// dest. The revision is tried as a tag first, then as a branch. A failed
// attempt removes only what it created.
func (c *GitCloner) Clone(ctx context.Context, url, revision, dest string) error {
	created, err := prepareDestination(dest)
	if err != nil {
		return err
	}

	refs := []plumbing.ReferenceName{
		plumbing.NewTagReferenceName(revision),
		plumbing.NewBranchReferenceName(revision),
	}

	var errs []error
	for _, ref := range refs {
		_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
			URL:           url,
			Auth:          c.authFor(url),
			ReferenceName: ref,
			SingleBranch:  true,
			Depth:         1,
		})
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", ref.Short(), err))
		cleanupAttempt(dest, created)
	}

	return fmt.Errorf("no tag or branch %q in %s: %w", revision, url, errors.Join(errs...))
}

func (c *GitCloner) authFor(url string) transport.AuthMethod {
	if strings.HasPrefix(url, "https://") {
		return c.auth
	}
	return nil
}

// prepareDestination makes sure dest can receive a clone and reports
// whether it had to be created.
func prepareDestination(dest string) (created bool, err error) {
	entries, err := os.ReadDir(dest)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return false, fmt.Errorf("creating parent directory: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("inspecting clone destination: %w", err)
	case len(entries) > 0:
		return false, fmt.Errorf("%w: %s", ErrDestinationNotEmpty, dest)
	default:
		return false, nil
	}
}

// cleanupAttempt empties dest after a failed clone, removing dest itself
// only when the clone created it.
func cleanupAttempt(dest string, created bool) {
	if created {
		_ = os.RemoveAll(dest)
		return
	}
	entries, err := os.ReadDir(dest)
	if err != nil {
		return
	}
	for _, e := range entries {
		_ = os.RemoveAll(filepath.Join(dest, e.Name()))
	}
}

// httpAuthFromEnv picks the first configured token, the way CI systems expose them.
func httpAuthFromEnv(getenv func(string) string) transport.AuthMethod {
	tokens := []struct {
		env, user string
	}{
		{"GITHUB_TOKEN", "x-access-token"},
		{"GITLAB_TOKEN", "gitlab-ci-token"},
		{"GIT_TOKEN", "git"},
	}
	for _, tok := range tokens {
		if v := getenv(tok.env); v != "" {
			return &http.BasicAuth{Username: tok.user, Password: v}
		}
	}
	return nil
}
