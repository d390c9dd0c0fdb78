package ui

import "github.com/charmbracelet/lipgloss"

// Common UI styles
var (
	TitleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true).MarginLeft(2)
	InfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("140"))
	HelpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Margin(1, 0)
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	FocusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
)

// Card styles
var (
	CardStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("255")).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1).
			Margin(0, 1).
			Border(lipgloss.RoundedBorder())

	RedCardStyle = CardStyle.
			Foreground(lipgloss.Color("196"))

	HiddenCardStyle = CardStyle.
			Background(lipgloss.Color("24")).
			Foreground(lipgloss.Color("24"))
)

// Player styles
var (
	PlayerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Margin(0, 1)

	CurrentPlayerStyle = PlayerBoxStyle.
				Border(lipgloss.ThickBorder()).
				BorderForeground(lipgloss.Color("46"))

	YourPlayerStyle = PlayerBoxStyle.
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("39"))

	FoldedPlayerStyle = PlayerBoxStyle.
				BorderForeground(lipgloss.Color("241")).
				Foreground(lipgloss.Color("241"))
)

// PotStyle frames the pot and board.
var PotStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("46")).
	Padding(0, 2).
	Margin(1, 1, 0).
	Border(lipgloss.ThickBorder()).
	BorderForeground(lipgloss.Color("46")).
	Align(lipgloss.Center).
	Bold(true)
