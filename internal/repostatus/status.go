// SPDX-License-Identifier: MPL-2.0

package repostatus

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"golang.org/x/sync/errgroup"
)

const maxParallelStatus = 8

// ErrNotRepository is reported for paths that are not git working trees.
var ErrNotRepository = errors.New("not a git repository")

type (
	// Change is one path that differs from HEAD.
	Change struct {
		Path     string
		Staging  git.StatusCode
		Worktree git.StatusCode
	}

	// Report is the state of one working tree. Err is set when the tree
	// could not be inspected; the other fields are then empty.
	Report struct {
		Path string
		// Branch is empty for a detached HEAD.
		Branch string
		// Head is the abbreviated commit hash, empty before the first commit.
		Head    string
		Changes []Change
		Err     error
	}

	// Lister lists registered clone locations as absolute paths.
	Lister interface {
		Paths() []string
		AbsPath(localPath string) string
	}
)

// Clean reports whether the tree has no changes.
func (r Report) Clean() bool {
	return r.Err == nil && len(r.Changes) == 0
}

// Targets returns the tool root followed by every registered clone.
func Targets(toolRoot string, repos Lister) []string {
	targets := []string{toolRoot}
	if repos == nil {
		return targets
	}
	for _, p := range repos.Paths() {
		targets = append(targets, repos.AbsPath(p))
	}
	return targets
}

// Collect inspects every path concurrently. Reports keep the order of
// paths; per-path failures are recorded in Report.Err. The returned error
// is only set when ctx is done.
func Collect(ctx context.Context, paths []string) ([]Report, error) {
	reports := make([]Report, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelStatus)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = inspect(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func inspect(path string) Report {
	report := Report{Path: path}

	repo, err := git.PlainOpen(path)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			err = fmt.Errorf("%w: %s", ErrNotRepository, path)
		}
		report.Err = err
		return report
	}

	head, err := repo.Head()
	switch {
	case err == nil:
		if head.Name().IsBranch() {
			report.Branch = head.Name().Short()
		}
		report.Head = head.Hash().String()[:7]
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		// Unborn branch.
	default:
		report.Err = fmt.Errorf("reading HEAD of %s: %w", path, err)
		return report
	}

	wt, err := repo.Worktree()
	if err != nil {
		report.Err = fmt.Errorf("opening worktree of %s: %w", path, err)
		return report
	}
	status, err := wt.Status()
	if err != nil {
		report.Err = fmt.Errorf("reading status of %s: %w", path, err)
		return report
	}

	for file, st := range status {
		if st.Staging == git.Unmodified && st.Worktree == git.Unmodified {
			continue
		}
		report.Changes = append(report.Changes, Change{
			Path:     filepath.ToSlash(file),
			Staging:  st.Staging,
			Worktree: st.Worktree,
		})
	}
	slices.SortFunc(report.Changes, func(a, b Change) int {
		return cmp.Compare(a.Path, b.Path)
	})
	return report
}
