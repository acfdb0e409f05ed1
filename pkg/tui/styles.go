package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/KjellKod/quest/pkg/status"
)

// Color palette
var (
	ColorPurple      = lipgloss.Color("#7D56F4")
	ColorGreen       = lipgloss.Color("#25A065")
	ColorBlue        = lipgloss.Color("#4285F4")
	ColorRed         = lipgloss.Color("#E05252")
	ColorYellow      = lipgloss.Color("#E5C07B")
	ColorGray        = lipgloss.Color("#626262")
	ColorGrayDim     = lipgloss.Color("#404040")
	ColorWhite       = lipgloss.Color("#FFFFFF")
	ColorOffWhite    = lipgloss.Color("#D0D0D0")
	ColorSelectionBg = lipgloss.Color("#2D3B4D")
	ColorCyan        = lipgloss.Color("#56B6C2")
	ColorOrange      = lipgloss.Color("#D19A66")
)

// Header styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPurple)

	HeaderCountStyle = lipgloss.NewStyle().
				Foreground(ColorGray)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)
)

// List styles
var (
	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite).
			Background(ColorSelectionBg)
)

// Status styles
var (
	FinishedStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	InProgressStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	BlockedStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	AbandonedStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	UnknownStyle = lipgloss.NewStyle().
			Foreground(ColorOffWhite)
)

// Modal styles
var (
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPurple).
			Padding(1, 2)

	ModalTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPurple)

	ModalValueStyle = lipgloss.NewStyle().
			Foreground(ColorWhite)
)

// Search styles
var (
	ColorSearchRowBg  = lipgloss.Color("#1E1A2E")
	ColorSearchCharBg = lipgloss.Color("#2E2545")

	SearchBarStyle = lipgloss.NewStyle().
			Foreground(ColorWhite)

	SearchRowStyle = lipgloss.NewStyle().
			Background(ColorSearchRowBg)

	SearchCharStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPurple).
			Background(ColorSearchCharBg)

	SearchCharSelectedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorPurple).
				Background(ColorSelectionBg)

	SearchCountStyle = lipgloss.NewStyle().
				Foreground(ColorGray)
)

// Status icons
const (
	IconFinished   = "✓"
	IconInProgress = "◐"
	IconBlocked    = "■"
	IconAbandoned  = "✗"
	IconUnknown    = "○"
)

// StatusStyle returns the foreground style for s.
func StatusStyle(s status.Status) lipgloss.Style {
	switch s {
	case status.Finished:
		return FinishedStyle
	case status.InProgress:
		return InProgressStyle
	case status.Blocked:
		return BlockedStyle
	case status.Abandoned:
		return AbandonedStyle
	default:
		return UnknownStyle
	}
}

// StatusIcon returns the list glyph for s.
func StatusIcon(s status.Status) string {
	switch s {
	case status.Finished:
		return IconFinished
	case status.InProgress:
		return IconInProgress
	case status.Blocked:
		return IconBlocked
	case status.Abandoned:
		return IconAbandoned
	default:
		return IconUnknown
	}
}
