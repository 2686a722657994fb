package render

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/zjrosen/defluff/internal/scan"
)

// HTML renders spans as <span class="fluff fluff-<category>"> elements
// inside a <pre> block.
type HTML struct {
	policy *bluemonday.Policy
}

// NewHTML returns an HTML sink. Output passes through a user-generated
// content policy that only admits the span classes this sink writes.
func NewHTML() *HTML {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^fluff fluff-[a-z-]+$`)).OnElements("span")
	p.AllowElements("pre", "span")
	return &HTML{policy: p}
}

// Render returns text as escaped HTML with every span wrapped.
func (h *HTML) Render(text string, spans []scan.Span) string {
	var b strings.Builder
	b.WriteString("<pre>")
	for _, seg := range segments(text, spans) {
		if seg.span == nil {
			b.WriteString(html.EscapeString(seg.text))
			continue
		}
		c := seg.span.Category
		b.WriteString(`<span class="fluff `)
		b.WriteString(c.ClassName())
		b.WriteString(`" title="`)
		b.WriteString(html.EscapeString(c.Title()))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(seg.text))
		b.WriteString("</span>")
	}
	b.WriteString("</pre>")
	return h.policy.Sanitize(b.String())
}

// Stylesheet returns a default stylesheet for the span classes.
func Stylesheet() string {
	return `.fluff { text-decoration-thickness: 2px; }
.fluff-weak-qualifier { text-decoration: underline wavy #df8e1d; }
.fluff-filler-word { text-decoration: underline wavy #fe640b; }
.fluff-weasel-word { text-decoration: underline wavy #d20f39; }
.fluff-jargon { text-decoration: underline wavy #8839ef; }
.fluff-complexity { text-decoration: underline wavy #1e66f5; }
.fluff-redundancy { text-decoration: underline wavy #179299; }
.fluff-custom { text-decoration: underline wavy #40a02b; }
`
}
