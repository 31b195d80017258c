// SPDX-License-Identifier: MPL-2.0

// Package config handles hostpack configuration using Viper with CUE as the file format.
//
// The first file found wins: an explicit --config path, then config.cue in the
// user config directory ($XDG_CONFIG_HOME/hostpack on Linux,
// ~/Library/Application Support/hostpack on macOS, %APPDATA%\hostpack on
// Windows), then hostpack.cue in the project directory. Files are validated
// against the embedded #Config schema. HOSTPACK_* environment variables
// override file values, e.g. HOSTPACK_BUILD_MAX_PARALLEL=2.
package config
