// SPDX-License-Identifier: MPL-2.0

package yaemod

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// FindDescriptors returns every file below root whose name ends in ext,
// sorted by path. ".git" directories are not descended into.
func FindDescriptors(root, ext string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ext) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s for *%s: %w", root, ext, err)
	}
	slices.Sort(found)
	return found, nil
}

// LoadPackages parses every package descriptor below root. All descriptor
// errors are returned together.
func LoadPackages(root string) ([]*Package, error) {
	paths, err := FindDescriptors(root, PackageFileExt)
	if err != nil {
		return nil, err
	}

	var (
		pkgs []*Package
		errs []error
	)
	for _, p := range paths {
		pkg, err := LoadPackage(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pkgs = append(pkgs, pkg)
	}
	return pkgs, errors.Join(errs...)
}

// LoadModules parses every module descriptor below root. All descriptor
// errors are returned together.
func LoadModules(root string) ([]*Module, error) {
	paths, err := FindDescriptors(root, ModuleFileExt)
	if err != nil {
		return nil, err
	}

	var (
		mods []*Module
		errs []error
	)
	for _, p := range paths {
		m, err := LoadModule(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		mods = append(mods, m)
	}
	return mods, errors.Join(errs...)
}
