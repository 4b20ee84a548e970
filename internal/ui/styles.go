// Package ui styling definitions.
// This file defines lipgloss styles for consistent terminal output.
package ui

import "github.com/charmbracelet/lipgloss"

// Styles holds all the lipgloss styles used for CLI output.
type Styles struct {
	// Arrow is the style for the "==>" phase announcement prefix (bold blue).
	Arrow lipgloss.Style

	// Phase is the style for phase descriptions in announcement lines (bold).
	Phase lipgloss.Style

	// Command is the style for the literal command line being invoked (dim).
	Command lipgloss.Style

	// Success is the style for success markers and completion lines (green).
	Success lipgloss.Style

	// Failure is the style for failure markers (red).
	Failure lipgloss.Style

	// Header is the style for table headers (bold).
	Header lipgloss.Style

	// URL is the style for deployment URLs (cyan).
	URL lipgloss.Style
}

// DefaultStyles returns the standard styles for CLI output.
func DefaultStyles() Styles {
	return Styles{
		Arrow:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")), // Blue
		Phase:   lipgloss.NewStyle().Bold(true),
		Command: lipgloss.NewStyle().Faint(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("2")), // Green
		Failure: lipgloss.NewStyle().Foreground(lipgloss.Color("1")), // Red
		Header:  lipgloss.NewStyle().Bold(true),
		URL:     lipgloss.NewStyle().Foreground(lipgloss.Color("6")), // Cyan
	}
}
