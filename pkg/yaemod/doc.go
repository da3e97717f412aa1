// SPDX-License-Identifier: MPL-2.0

// Package yaemod is the descriptor store for yae projects.
//
// Two kinds of descriptor documents are understood, both JSON:
//
//   - Module descriptors ("<name>.module.json"): one compilation unit. The
//     module name is the name of the directory holding the descriptor.
//   - Package descriptors ("<name>.package.json"): a named bundle of modules
//     (everything under its modules_dir) plus the external packages it needs,
//     each mapped to a [SourceLocation].
//
// Every document is validated against an embedded CUE schema and then
// converted into an immutable typed record ([Module], [Package]). Nothing
// outside this package looks at raw descriptor maps.
package yaemod
