// SPDX-License-Identifier: MPL-2.0

package yaemod

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yae-build/yae/internal/cueutil"
)

// PackageFileExt is the suffix of package descriptor files.
const PackageFileExt = ".package.json"

//go:embed package_schema.cue
var packageSchema []byte

type (
	// Requirement is one external package a package needs.
	Requirement struct {
		// Package is the required package name.
		Package string
		// Source is where the package is expected to be found.
		Source SourceLocation
	}

	// Package is a parsed package descriptor. It is not modified after parsing.
	Package struct {
		// Name is the descriptor file name without PackageFileExt.
		Name string
		// DescriptorPath is the absolute path of the descriptor file.
		DescriptorPath string
		// RootDir is the directory holding the descriptor.
		RootDir string
		// ModulesDir is the absolute directory searched for module descriptors.
		ModulesDir string
		// Requirements lists the external packages in declaration order.
		Requirements []Requirement
	}

	packageDocument struct {
		ModulesDir   string `json:"modules_dir"`
		Dependencies struct {
			Packages []struct {
				Link     string   `json:"link"`
				Packages []string `json:"packages"`
			} `json:"packages"`
		} `json:"dependencies"`
	}
)

// LoadPackage reads and parses the package descriptor at path.
func LoadPackage(path string) (*Package, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving package descriptor path %s: %w", path, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, &DescriptorError{Path: absPath, Err: err}
	}

	return ParsePackage(data, absPath)
}

// ParsePackage parses a package descriptor document located at path.
func ParsePackage(data []byte, path string) (*Package, error) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, PackageFileExt) || base == PackageFileExt {
		return nil, &DescriptorError{Path: path, Err: fmt.Errorf("package descriptor file name must be <name>%s", PackageFileExt)}
	}

	result, err := cueutil.ParseAndDecode[packageDocument](packageSchema, data, "#Package",
		cueutil.WithFilename(path), cueutil.WithMaxFileSize(MaxDescriptorSize))
	if err != nil {
		return nil, &DescriptorError{Path: path, Err: err}
	}
	doc := result.Value

	rootDir := filepath.Dir(path)
	p := &Package{
		Name:           strings.TrimSuffix(base, PackageFileExt),
		DescriptorPath: path,
		RootDir:        rootDir,
		ModulesDir:     rootDir,
	}
	if doc.ModulesDir != "" {
		if filepath.IsAbs(doc.ModulesDir) {
			return nil, &DescriptorError{Path: path, Err: fmt.Errorf("modules_dir %q must be relative to the descriptor", doc.ModulesDir)}
		}
		p.ModulesDir = filepath.Join(rootDir, filepath.FromSlash(doc.ModulesDir))
	}

	seen := make(map[string]bool)
	for _, link := range doc.Dependencies.Packages {
		loc, err := ParseSourceLocation(link.Link)
		if err != nil {
			return nil, &DescriptorError{Path: path, Err: err}
		}
		for _, name := range link.Packages {
			if seen[name] {
				return nil, &DescriptorError{Path: path, Err: fmt.Errorf("package %q is required more than once", name)}
			}
			seen[name] = true
			p.Requirements = append(p.Requirements, Requirement{Package: name, Source: loc})
		}
	}

	return p, nil
}
