// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Color palette shared by all CLI output, tuned for dark backgrounds.
const (
	// ColorPrimary is purple, for titles and headers.
	ColorPrimary = lipgloss.Color("#7C3AED")
	// ColorMuted is gray, for secondary text.
	ColorMuted = lipgloss.Color("#6B7280")
	// ColorSuccess is green.
	ColorSuccess = lipgloss.Color("#10B981")
	// ColorError is red.
	ColorError = lipgloss.Color("#EF4444")
	// ColorWarning is amber.
	ColorWarning = lipgloss.Color("#F59E0B")
	// ColorHighlight is blue, for job names, specifiers and commands.
	ColorHighlight = lipgloss.Color("#3B82F6")
	// ColorVerbose is light gray, for details.
	ColorVerbose = lipgloss.Color("#9CA3AF")
)

var (
	// TitleStyle is for primary headers.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	// SubtitleStyle is for secondary headers and descriptions.
	SubtitleStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	// SuccessStyle marks successful jobs.
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	// ErrorStyle marks failures.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	// WarningStyle marks warnings.
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	// CmdStyle is for names the user can type back: jobs, specifiers, commands.
	CmdStyle = lipgloss.NewStyle().Foreground(ColorHighlight)
	// VerboseStyle is for supplementary detail.
	VerboseStyle = lipgloss.NewStyle().Foreground(ColorVerbose)

	// Class labels in classification tables.
	classStyles = map[string]lipgloss.Style{
		"pass-through":   lipgloss.NewStyle().Foreground(ColorMuted),
		"rewrite-alias":  lipgloss.NewStyle().Foreground(ColorHighlight),
		"leave-external": lipgloss.NewStyle().Foreground(ColorWarning),
		"embed":          lipgloss.NewStyle().Foreground(ColorSuccess),
	}

	// Error and topic output.
	renderHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	renderLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)
	renderHintStyle   = lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)
)
