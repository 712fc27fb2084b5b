package tui

import (
	"charm.land/lipgloss/v2"
)

var (
	Primary = lipgloss.Color("#F7931A") // Bitcoin orange
	Success = lipgloss.Color("#22C55E")
	Error   = lipgloss.Color("#F43F5E")
	Text    = lipgloss.Color("#F8FAFC")
	TextDim = lipgloss.Color("#94A3B8")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	questionStyle = lipgloss.NewStyle().Foreground(Text).Bold(true)
	hintStyle     = lipgloss.NewStyle().Foreground(TextDim).Italic(true)
	noticeStyle   = lipgloss.NewStyle().Foreground(Error)
)
