// SPDX-License-Identifier: MPL-2.0

// Package repostatus summarizes the working tree state of the tool root and
// every repository recorded in the clone registration file.
package repostatus
