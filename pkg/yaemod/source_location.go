// SPDX-License-Identifier: MPL-2.0

package yaemod

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// DefaultRevision is the revision used when a package link names none.
const DefaultRevision = "main"

// ErrInvalidSourceLocation is returned for malformed package links.
var ErrInvalidSourceLocation = errors.New("invalid source location")

// SourceLocation is where an external package comes from: a repository URL,
// the revision to clone and the subdirectory (relative to the cloned
// repositories directory) the clone lives in.
//
// SourceLocation is comparable; two requirements for the same package name
// must carry equal locations.
type SourceLocation struct {
	URL      string
	Revision string
	Subdir   string
}

// ParseSourceLocation parses a package link of the form
// "https://<host>/<owner>/<repo> [<revision>]".
func ParseSourceLocation(link string) (SourceLocation, error) {
	fields := strings.Fields(link)
	if len(fields) == 0 || len(fields) > 2 {
		return SourceLocation{}, fmt.Errorf("%w: %q: expected \"<url> [<revision>]\"", ErrInvalidSourceLocation, link)
	}

	u, err := url.Parse(fields[0])
	if err != nil {
		return SourceLocation{}, fmt.Errorf("%w: %q: %w", ErrInvalidSourceLocation, link, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return SourceLocation{}, fmt.Errorf("%w: %q: only https URLs are supported", ErrInvalidSourceLocation, link)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return SourceLocation{}, fmt.Errorf("%w: %q: expected https://<host>/<owner>/<repo>", ErrInvalidSourceLocation, link)
	}
	owner, repo := segments[0], strings.TrimSuffix(segments[1], ".git")
	if repo == "" || owner == "." || owner == ".." || repo == "." || repo == ".." {
		return SourceLocation{}, fmt.Errorf("%w: %q: invalid repository path", ErrInvalidSourceLocation, link)
	}

	revision := DefaultRevision
	if len(fields) == 2 {
		revision = fields[1]
	}

	return SourceLocation{
		URL:      fields[0],
		Revision: revision,
		Subdir:   path.Join(owner, repo),
	}, nil
}

// String renders the location the way it is written in package links.
func (l SourceLocation) String() string {
	return l.URL + " " + l.Revision
}
