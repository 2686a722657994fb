// Package styles contains Lip Gloss style definitions.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/defluff/internal/rules"
)

var (
	// Text hierarchy
	TextPrimaryColor   = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#CCCCCC"}
	TextSecondaryColor = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"}
	TextMutedColor     = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#696969"} // hints, footers

	// Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#FECA57", Dark: "#FECA57"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}

	// Category colors (Catppuccin Mocha)
	WeakQualifierColor = lipgloss.AdaptiveColor{Light: "#DF8E1D", Dark: "#F9E2AF"} // yellow
	FillerWordColor    = lipgloss.AdaptiveColor{Light: "#FE640B", Dark: "#FAB387"} // peach
	WeaselWordColor    = lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"} // red
	JargonColor        = lipgloss.AdaptiveColor{Light: "#8839EF", Dark: "#CBA6F7"} // mauve
	ComplexityColor    = lipgloss.AdaptiveColor{Light: "#1E66F5", Dark: "#89B4FA"} // blue
	RedundancyColor    = lipgloss.AdaptiveColor{Light: "#179299", Dark: "#94E2D5"} // teal
	CustomColor        = lipgloss.AdaptiveColor{Light: "#40A02B", Dark: "#A6E3A1"} // green

	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(TextPrimaryColor)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextSecondaryColor).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().Foreground(TextMutedColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(StatusErrorColor).
			Bold(true)

	OffBadgeStyle = lipgloss.NewStyle().Foreground(StatusWarningColor).Bold(true)
	OnBadgeStyle  = lipgloss.NewStyle().Foreground(StatusSuccessColor).Bold(true)
)

// CategoryColor returns the color used for spans of category c.
func CategoryColor(c rules.Category) lipgloss.AdaptiveColor {
	switch c {
	case rules.WeakQualifier:
		return WeakQualifierColor
	case rules.FillerWord:
		return FillerWordColor
	case rules.WeaselWord:
		return WeaselWordColor
	case rules.Jargon:
		return JargonColor
	case rules.Complexity:
		return ComplexityColor
	case rules.Redundancy:
		return RedundancyColor
	default:
		return CustomColor
	}
}

// ApplyTheme overrides the muted and error colors. Empty strings keep the defaults.
func ApplyTheme(muted, errorColor string) {
	if muted != "" {
		TextMutedColor = lipgloss.AdaptiveColor{Light: muted, Dark: muted}
		HelpStyle = HelpStyle.Foreground(TextMutedColor)
	}
	if errorColor != "" {
		StatusErrorColor = lipgloss.AdaptiveColor{Light: errorColor, Dark: errorColor}
		ErrorStyle = ErrorStyle.Foreground(StatusErrorColor)
	}
}
