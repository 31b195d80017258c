// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride redirects ConfigDir in tests, where os.UserHomeDir
// does not reliably follow HOME (macOS in CI).
var configDirOverride string

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride makes ConfigDir return dir until Reset is called.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
