package prompt

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	colorPrimary = lipgloss.Color("#4A9EFF")
	colorSuccess = lipgloss.Color("#22C55E")
	colorWarning = lipgloss.Color("#EAB308")
	colorDanger  = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")
	colorWhite   = lipgloss.Color("#F9FAFB")
	colorDim     = lipgloss.Color("#9CA3AF")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Italic(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Italic(true)

	issueStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			PaddingLeft(6)

	fixStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			PaddingLeft(6)

	failBadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorDanger)

	warnBadgeStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(colorMuted).
			MarginTop(1).
			PaddingTop(1)

	cursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	checkOnStyle = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	focusStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
)
