// SPDX-License-Identifier: MPL-2.0

package cmake

import (
	"fmt"
	"strings"
)

const (
	minimumMajor = 3
	minimumMinor = 20

	currentSourceDir = "${CMAKE_CURRENT_SOURCE_DIR}"
)

// writer accumulates CMake commands.
type writer struct {
	sb strings.Builder
}

func (w *writer) line(parts ...string) {
	for _, p := range parts {
		w.sb.WriteString(p)
	}
	w.sb.WriteByte('\n')
}

func (w *writer) linef(format string, args ...any) {
	fmt.Fprintf(&w.sb, format, args...)
	w.sb.WriteByte('\n')
}

func (w *writer) versionLine() {
	w.linef("cmake_minimum_required(VERSION %d.%d)", minimumMajor, minimumMinor)
}

func (w *writer) include(module string) {
	w.linef("include(%s)", module)
}

func (w *writer) set(name, value string) {
	w.linef("set(%s %s)", name, value)
}

// listVariable writes a multi-line set() with one value per line.
func (w *writer) listVariable(name string, values []string) {
	w.sb.WriteString("set(" + name + "\n    ")
	w.sb.WriteString(strings.Join(values, "\n    "))
	w.line(")")
}

// targetCommand writes "<command>(<target> <access> v1 v2 ...)" with the
// values aligned below the first one. Nothing is written for no values.
func (w *writer) targetCommand(command, target, access string, values []string) {
	if len(values) == 0 {
		return
	}
	decl := fmt.Sprintf("%s(%s %s ", command, target, access)
	w.sb.WriteString(decl)
	w.sb.WriteString(strings.Join(values, "\n"+strings.Repeat(" ", len(decl))))
	w.line(")")
}

func (w *writer) option(name string, value bool) {
	state := "OFF"
	if value {
		state = "ON"
	}
	w.linef("option(%s \"\" %s)", name, state)
}

func (w *writer) addSubdirectory(source, binary string) {
	w.linef("add_subdirectory(%s %s SYSTEM)", source, binary)
}

func (w *writer) String() string {
	return w.sb.String()
}

// sourceRelative prefixes a slash path with ${CMAKE_CURRENT_SOURCE_DIR}.
func sourceRelative(rel string) string {
	return currentSourceDir + "/" + rel
}

// quote wraps a value in double quotes when it contains spaces.
func quote(v string) string {
	if strings.ContainsAny(v, " \t;") {
		return `"` + v + `"`
	}
	return v
}
