// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"errors"
	"fmt"

	"github.com/yae-build/yae/pkg/yaemod"
)

var (
	// ErrProvenanceConflict is returned when one package name is claimed by two source locations.
	ErrProvenanceConflict = errors.New("package provenance conflict")
	// ErrPackageNotFound is returned when a fetched tree lacks the package it was fetched for.
	ErrPackageNotFound = errors.New("package not found at expected location")
	// ErrDuplicateLocalPackage is returned when two local descriptors share a package name.
	ErrDuplicateLocalPackage = errors.New("duplicate local package")
	// ErrFetchFailed is returned when a source location could not be fetched.
	ErrFetchFailed = errors.New("package fetch failed")
)

type (
	// ProvenanceConflictError names both locations claiming Package.
	ProvenanceConflictError struct {
		Package string
		First   yaemod.SourceLocation
		Second  yaemod.SourceLocation
	}

	// PackageNotFoundError reports a package missing from the tree fetched for it.
	PackageNotFoundError struct {
		Package string
		Source  yaemod.SourceLocation
	}

	// DuplicateLocalPackageError reports two local descriptors with the same name.
	DuplicateLocalPackageError struct {
		Package string
		First   string
		Second  string
	}

	// FetchError reports an unreachable source location.
	FetchError struct {
		Package string
		Source  yaemod.SourceLocation
		Err     error
	}
)

func (e *ProvenanceConflictError) Error() string {
	return fmt.Sprintf("package %q is provided by both %q and %q", e.Package, e.First.String(), e.Second.String())
}

// Unwrap returns ErrProvenanceConflict for errors.Is() compatibility.
func (e *ProvenanceConflictError) Unwrap() error { return ErrProvenanceConflict }

func (e *PackageNotFoundError) Error() string {
	return fmt.Sprintf("package %q not found in %q (cloned into %s)", e.Package, e.Source.String(), e.Source.Subdir)
}

// Unwrap returns ErrPackageNotFound for errors.Is() compatibility.
func (e *PackageNotFoundError) Unwrap() error { return ErrPackageNotFound }

func (e *DuplicateLocalPackageError) Error() string {
	return fmt.Sprintf("package %q is declared by both %s and %s", e.Package, e.First, e.Second)
}

// Unwrap returns ErrDuplicateLocalPackage for errors.Is() compatibility.
func (e *DuplicateLocalPackageError) Unwrap() error { return ErrDuplicateLocalPackage }

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching package %q from %s at %s: %v", e.Package, e.Source.URL, e.Source.Revision, e.Err)
}

// Unwrap returns both ErrFetchFailed and the underlying cause.
func (e *FetchError) Unwrap() []error {
	return []error{ErrFetchFailed, e.Err}
}
