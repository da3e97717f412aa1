// SPDX-License-Identifier: MPL-2.0

// Package config handles project configuration using Viper with JSON (or
// TOML) project files validated against a CUE schema.
//
// A project is described by yae_project.json (or yae_project.toml) at its
// root. The file is validated against project_schema.cue, merged over the
// built-in defaults and may be overridden with YAE_* environment variables.
//
// [Paths] replaces every ambient directory lookup: it is built once from
// the command-line flags and the loaded [Project] and handed to each
// component that touches the filesystem.
package config
