// SPDX-License-Identifier: MPL-2.0

// Package resolver computes the transitive closure of package requirements,
// fetching external packages on demand until no new package is referenced.
package resolver
