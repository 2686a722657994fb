// Package structure classifies Markdown documents into the structural nodes
// that phrase highlighting must skip: code, comments, links and URLs.
package structure

import (
	"bytes"
	"regexp"
	"sort"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/zjrosen/defluff/internal/exclusion"
)

// Node names reported by Document.Classify.
const (
	NodeFencedCode      = "fenced-code"
	NodeCodeBlock       = "code-block"
	NodeInlineCode      = "inline-code"
	NodeLink            = "link"
	NodeLinkDefinition  = "link-reference-definition"
	NodeImageLink       = "image-link"
	NodeAutolink        = "autolink-url"
	NodeHTMLComment     = "html-comment"
	NodeHTML            = "html"
	NodeObsidianComment = "obsidian-comment"
	NodeWikilink        = "wikilink"
)

var (
	// An unterminated %% comments out the rest of the note.
	obsidianComment = regexp.MustCompile(`(?s)%%.*?(?:%%|\z)`)
	wikilink        = regexp.MustCompile(`!?\[\[[^\[\]\n]+\]\]`)
	// goldmark consumes reference definitions without leaving a node.
	linkDefinition  = regexp.MustCompile(`(?m)^ {0,3}\[[^\]\n]+\]:[ \t]*\S+[^\n]*`)
)

// Parser turns Markdown text into a Document. A Parser is safe for concurrent use.
type Parser struct {
	md goldmark.Markdown
}

// NewParser returns a parser for GitHub Flavored Markdown, which also links
// bare URLs.
func NewParser() *Parser {
	return &Parser{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Parse classifies src. Offsets in the result are byte offsets into src.
func (p *Parser) Parse(src string) *Document {
	source := []byte(src)
	root := p.md.Parser().Parse(text.NewReader(source))

	w := &walker{src: source}
	_ = ast.Walk(root, w.visit)

	for _, loc := range obsidianComment.FindAllIndex(source, -1) {
		w.add(NodeObsidianComment, loc[0], loc[1])
	}
	for _, loc := range wikilink.FindAllIndex(source, -1) {
		w.add(NodeWikilink, loc[0], loc[1])
	}
	for _, loc := range linkDefinition.FindAllIndex(source, -1) {
		w.add(NodeLinkDefinition, loc[0], loc[1])
	}

	sort.SliceStable(w.nodes, func(i, j int) bool {
		if w.nodes[i].Start != w.nodes[j].Start {
			return w.nodes[i].Start < w.nodes[j].Start
		}
		return w.nodes[i].End < w.nodes[j].End
	})
	return &Document{nodes: w.nodes, size: len(source)}
}

// walker collects nodes in document order. cursor is the furthest byte any
// visited text or node reached; it anchors the search for autolink labels,
// which carry no segment of their own.
type walker struct {
	src    []byte
	nodes  []exclusion.Node
	cursor int
}

func (w *walker) add(name string, start, end int) {
	if end <= start {
		return
	}
	w.nodes = append(w.nodes, exclusion.Node{Name: name, Start: start, End: end})
	if end > w.cursor {
		w.cursor = end
	}
}

func (w *walker) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	switch node := n.(type) {
	case *ast.Text:
		if node.Segment.Stop > w.cursor {
			w.cursor = node.Segment.Stop
		}
	case *ast.FencedCodeBlock:
		if start, end, ok := w.fencedBounds(node); ok {
			w.add(NodeFencedCode, start, end)
		}
		return ast.WalkSkipChildren, nil
	case *ast.CodeBlock:
		if start, end, ok := linesBounds(node.Lines()); ok {
			w.add(NodeCodeBlock, start, end)
		}
		return ast.WalkSkipChildren, nil
	case *ast.HTMLBlock:
		start, end, ok := linesBounds(node.Lines())
		if node.HasClosure() {
			if !ok {
				start = node.ClosureLine.Start
			}
			end = max(end, node.ClosureLine.Stop)
			ok = true
		}
		if ok {
			name := NodeHTML
			if node.HTMLBlockType == ast.HTMLBlockType2 {
				name = NodeHTMLComment
			}
			w.add(name, start, end)
		}
		return ast.WalkSkipChildren, nil
	case *ast.RawHTML:
		if start, end, ok := linesBounds(node.Segments); ok {
			name := NodeHTML
			if bytes.HasPrefix(w.src[start:], []byte("<!--")) {
				name = NodeHTMLComment
			}
			w.add(name, start, end)
		}
		return ast.WalkSkipChildren, nil
	case *ast.CodeSpan:
		if start, end, ok := textBounds(node); ok {
			start, end = w.expandCodeSpan(start, end)
			w.add(NodeInlineCode, start, end)
		}
		return ast.WalkSkipChildren, nil
	case *ast.Link:
		if start, end, ok := textBounds(node); ok {
			start, end = w.expandLink(start, end, false)
			w.add(NodeLink, start, end)
		} else if start, end, ok := w.destinationBounds(node.Destination, false); ok {
			w.add(NodeLink, start, end)
		}
	case *ast.Image:
		if start, end, ok := textBounds(node); ok {
			start, end = w.expandLink(start, end, true)
			w.add(NodeImageLink, start, end)
		} else if start, end, ok := w.destinationBounds(node.Destination, true); ok {
			w.add(NodeImageLink, start, end)
		}
	case *ast.AutoLink:
		if start, end, ok := w.autolinkBounds(node); ok {
			w.add(NodeAutolink, start, end)
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

// fencedBounds spans the opening fence through the closing fence.
func (w *walker) fencedBounds(n *ast.FencedCodeBlock) (int, int, bool) {
	lines := n.Lines()
	var start, end int
	switch {
	case n.Info != nil:
		start = lineStart(w.src, n.Info.Segment.Start)
		end = lineEnd(w.src, n.Info.Segment.Stop)
	case lines.Len() > 0:
		first := lineStart(w.src, lines.At(0).Start)
		if first == 0 {
			return 0, 0, false
		}
		start = lineStart(w.src, first-1)
		end = lineEnd(w.src, start)
	default:
		return 0, 0, false
	}

	if lines.Len() > 0 {
		end = max(end, lines.At(lines.Len()-1).Stop)
	}

	// The closing fence, when present, is the next line.
	next := end
	if next < len(w.src) && w.src[next] == '\n' {
		next++
	}
	closing := bytes.TrimLeft(w.src[next:lineEnd(w.src, next)], " ")
	if bytes.HasPrefix(closing, []byte("```")) || bytes.HasPrefix(closing, []byte("~~~")) {
		end = lineEnd(w.src, next)
	}
	return start, end, true
}

// expandCodeSpan widens a code span's content to include its backticks.
func (w *walker) expandCodeSpan(start, end int) (int, int) {
	i := start
	for i > 0 && w.src[i-1] == ' ' {
		i--
	}
	if i > 0 && w.src[i-1] == '`' {
		start = i
		for start > 0 && w.src[start-1] == '`' {
			start--
		}
	}

	j := end
	for j < len(w.src) && w.src[j] == ' ' {
		j++
	}
	if j < len(w.src) && w.src[j] == '`' {
		end = j
		for end < len(w.src) && w.src[end] == '`' {
			end++
		}
	}
	return start, end
}

// expandLink widens link text to the whole link: from "[" (or "![") through
// the destination's ")" or the reference label's "]".
func (w *walker) expandLink(start, end int, image bool) (int, int) {
	if open := bytes.LastIndexByte(w.src[:start], '['); open >= 0 {
		start = open
		if image && start > 0 && w.src[start-1] == '!' {
			start--
		}
	}

	closeIdx := bytes.IndexByte(w.src[end:], ']')
	if closeIdx < 0 {
		return start, end
	}
	end += closeIdx + 1
	if end >= len(w.src) {
		return start, end
	}

	switch w.src[end] {
	case '(':
		if stop := matchingParen(w.src, end); stop > 0 {
			end = stop
		}
	case '[':
		if stop := bytes.IndexByte(w.src[end:], ']'); stop >= 0 {
			end += stop + 1
		}
	}
	return start, end
}

// destinationBounds locates a link without text, such as "[](url)", by its
// destination after the cursor.
func (w *walker) destinationBounds(dest []byte, image bool) (int, int, bool) {
	if len(dest) == 0 || w.cursor > len(w.src) {
		return 0, 0, false
	}
	idx := bytes.Index(w.src[w.cursor:], dest)
	if idx < 0 {
		return 0, 0, false
	}
	at := w.cursor + idx

	start := bytes.LastIndexByte(w.src[:at], '[')
	if start < 0 {
		return 0, 0, false
	}
	if image && start > 0 && w.src[start-1] == '!' {
		start--
	}

	end := at + len(dest)
	if paren := bytes.LastIndexByte(w.src[:at], '('); paren > start {
		if stop := matchingParen(w.src, paren); stop > 0 {
			end = stop
		}
	}
	return start, end, true
}

// autolinkBounds locates the label after the cursor, including angle brackets.
func (w *walker) autolinkBounds(n *ast.AutoLink) (int, int, bool) {
	label := n.Label(w.src)
	if len(label) == 0 || w.cursor > len(w.src) {
		return 0, 0, false
	}
	idx := bytes.Index(w.src[w.cursor:], label)
	if idx < 0 {
		return 0, 0, false
	}
	start := w.cursor + idx
	end := start + len(label)
	if start > 0 && w.src[start-1] == '<' && end < len(w.src) && w.src[end] == '>' {
		start--
		end++
	}
	return start, end, true
}

// matchingParen returns the index after the ")" closing the "(" at open, or -1.
func matchingParen(src []byte, open int) int {
	depth := 0
	for i := open; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		case '\n':
			if i+1 < len(src) && src[i+1] == '\n' {
				return -1
			}
		}
	}
	return -1
}

// textBounds returns the extent of the text segments under n.
func textBounds(n ast.Node) (int, int, bool) {
	start, end, ok := 0, 0, false
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, isText := c.(*ast.Text); isText {
			seg := t.Segment
			if !ok || seg.Start < start {
				start = seg.Start
			}
			if !ok || seg.Stop > end {
				end = seg.Stop
			}
			ok = true
		}
		return ast.WalkContinue, nil
	})
	return start, end, ok
}

func linesBounds(lines *text.Segments) (int, int, bool) {
	if lines == nil || lines.Len() == 0 {
		return 0, 0, false
	}
	return lines.At(0).Start, lines.At(lines.Len() - 1).Stop, true
}

func lineStart(src []byte, i int) int {
	if i > len(src) {
		i = len(src)
	}
	return bytes.LastIndexByte(src[:i], '\n') + 1
}

func lineEnd(src []byte, i int) int {
	if i >= len(src) {
		return len(src)
	}
	if j := bytes.IndexByte(src[i:], '\n'); j >= 0 {
		return i + j
	}
	return len(src)
}

// Document is the classified structure of one text.
type Document struct {
	nodes []exclusion.Node
	size  int
}

var _ exclusion.Classifier = (*Document)(nil)

// Classify returns the nodes intersecting [start, end), ordered by start.
func (d *Document) Classify(start, end int) []exclusion.Node {
	if d == nil {
		return nil
	}
	// Nodes are sorted by start; none at or past end can intersect.
	limit := sort.Search(len(d.nodes), func(i int) bool { return d.nodes[i].Start >= end })
	var out []exclusion.Node
	for _, n := range d.nodes[:limit] {
		if n.End >= start {
			out = append(out, n)
		}
	}
	return out
}

// Nodes returns every classified node.
func (d *Document) Nodes() []exclusion.Node {
	if d == nil {
		return nil
	}
	out := make([]exclusion.Node, len(d.nodes))
	copy(out, d.nodes)
	return out
}

// Size returns the byte length of the parsed text.
func (d *Document) Size() int {
	if d == nil {
		return 0
	}
	return d.size
}
