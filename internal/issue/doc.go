// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors for the CLI and a catalog of
// longer remediation guides, written in Markdown and rendered with glamour
// by 'hostpack explain'.
package issue
