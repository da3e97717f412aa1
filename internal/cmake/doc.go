// SPDX-License-Identifier: MPL-2.0

// Package cmake emits CMakeLists.txt files for a validated module graph:
// one root file that adds every module in dependency order, and one file
// per local Library or Executable module declaring its target.
//
// All files are rendered in memory first. Nothing is written when any
// module fails to render.
package cmake
