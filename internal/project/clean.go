// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yae-build/yae/internal/config"
)

// CleanTargets returns the directories Clean removes.
func CleanTargets(paths config.Paths) []string {
	return []string{paths.ClonedReposDir, paths.BuildDir, paths.CacheDir}
}

// Clean removes cloned repositories and build caches. It returns the
// directories that existed and were removed. Missing directories are skipped.
func Clean(paths config.Paths) ([]string, error) {
	var (
		removed []string
		errs    []error
	)
	for _, dir := range CleanTargets(paths) {
		if dir == "" || dir == filepath.Dir(dir) || dir == paths.ProjectRoot || dir == paths.ToolRoot {
			errs = append(errs, fmt.Errorf("refusing to remove %q", dir))
			continue
		}
		if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, fmt.Errorf("removing %s: %w", dir, err))
			continue
		}
		removed = append(removed, dir)
	}
	return removed, errors.Join(errs...)
}
