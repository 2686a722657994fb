package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/defluff/internal/config"
	"github.com/zjrosen/defluff/internal/rules"
	"github.com/zjrosen/defluff/internal/scan"
	"github.com/zjrosen/defluff/internal/ui/styles"
)

// ANSI renders spans with terminal escape sequences.
type ANSI struct {
	renderer *lipgloss.Renderer
	style    config.HighlightStyle
}

// NewANSI returns an ANSI sink drawing with style. A nil renderer uses the
// default lipgloss renderer, which detects the terminal's color profile.
func NewANSI(r *lipgloss.Renderer, style config.HighlightStyle) *ANSI {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return &ANSI{renderer: r, style: style}
}

// Style returns the lipgloss style for spans of category c.
func (a *ANSI) Style(c rules.Category) lipgloss.Style {
	base := a.renderer.NewStyle().TabWidth(lipgloss.NoTabConversion)
	color := styles.CategoryColor(c)
	switch a.style {
	case config.StyleDim:
		return base.Faint(true)
	case config.StyleWavyUnderline:
		// Terminals without curly underline support fall back to a straight one.
		return base.Underline(true).Foreground(color)
	case config.StyleStrikethrough:
		return base.Strikethrough(true).Foreground(color)
	default:
		return base
	}
}

// Render returns text with every span styled.
func (a *ANSI) Render(text string, spans []scan.Span) string {
	if a.style == config.StyleNone || len(spans) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(spans)*16)
	for _, seg := range segments(text, spans) {
		if seg.span == nil {
			b.WriteString(seg.text)
			continue
		}
		st := a.Style(seg.span.Category)
		// Style each line on its own so the renderer does not pad a
		// multi-line span into a block.
		for i, line := range strings.Split(seg.text, "\n") {
			if i > 0 {
				b.WriteByte('\n')
			}
			if line != "" {
				b.WriteString(st.Render(line))
			}
		}
	}
	return b.String()
}
