package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/defluff/internal/rules"
)

func TestCategoryColor_Distinct(t *testing.T) {
	seen := map[lipgloss.AdaptiveColor]rules.Category{}
	for _, c := range append(append([]rules.Category{}, rules.BuiltinCategories...), rules.Custom) {
		color := CategoryColor(c)
		prev, dup := seen[color]
		require.False(t, dup, "%s shares a color with %s", c, prev)
		seen[color] = c
	}
}

func TestApplyTheme(t *testing.T) {
	muted, errColor := TextMutedColor, StatusErrorColor
	helpStyle, errorStyle := HelpStyle, ErrorStyle
	t.Cleanup(func() {
		TextMutedColor, StatusErrorColor = muted, errColor
		HelpStyle, ErrorStyle = helpStyle, errorStyle
	})

	ApplyTheme("", "")
	require.Equal(t, muted, TextMutedColor)

	ApplyTheme("#123456", "#abcdef")
	require.Equal(t, lipgloss.AdaptiveColor{Light: "#123456", Dark: "#123456"}, TextMutedColor)
	require.Equal(t, lipgloss.AdaptiveColor{Light: "#abcdef", Dark: "#abcdef"}, StatusErrorColor)
}
