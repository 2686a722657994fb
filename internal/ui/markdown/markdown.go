// Package markdown renders rule listings as styled terminal Markdown.
package markdown

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/zjrosen/defluff/internal/rules"
)

// noMarginStyle is a JSON style that removes document margins.
// It inherits from auto (dark/light detection) but overrides margin to 0.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// Renderer wraps glamour with defluff's configuration.
type Renderer struct {
	renderer *glamour.TermRenderer
	width    int
}

// New creates a markdown renderer with the given width.
func New(width int) (*Renderer, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{renderer: r, width: width}, nil
}

// NewPlain creates a renderer without colors, for output that is not a terminal.
func NewPlain(width int) (*Renderer, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("notty"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{renderer: r, width: width}, nil
}

// Width returns the configured word wrap width.
func (r *Renderer) Width() int {
	return r.width
}

// Render transforms markdown to styled terminal output.
func (r *Renderer) Render(markdown string) (string, error) {
	return r.renderer.Render(markdown)
}

// RuleTable returns a Markdown table of rs. Phrases listed in active are
// marked as compiled into the current pattern.
func RuleTable(title string, rs []rules.Rule, active []string) string {
	on := make(map[string]bool, len(active))
	for _, p := range active {
		on[p] = true
	}

	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "## %s\n\n", title)
	}
	b.WriteString("| Phrase | Category | Highlight | Active |\n")
	b.WriteString("|---|---|---|:---:|\n")
	for _, r := range rs {
		highlight := r.Match
		if lo, hi, ok := r.Bounds(r.Match); ok {
			highlight = r.Match[lo:hi]
		}
		mark := ""
		if on[r.Match] {
			mark = "✓"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", escapeCell(r.Match), r.Category.Title(), escapeCell(highlight), mark)
	}
	fmt.Fprintf(&b, "\n%d rules, %d active\n", len(rs), countActive(rs, on))
	return b.String()
}

func countActive(rs []rules.Rule, on map[string]bool) int {
	n := 0
	for _, r := range rs {
		if on[r.Match] {
			n++
		}
	}
	return n
}

func escapeCell(s string) string {
	return strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`").Replace(s)
}
