package cmd

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zjrosen/defluff/internal/engine"
	"github.com/zjrosen/defluff/internal/log"
	"github.com/zjrosen/defluff/internal/render"
	"github.com/zjrosen/defluff/internal/scan"
	"github.com/zjrosen/defluff/internal/structure"
	"github.com/zjrosen/defluff/internal/tracing"
)

// ErrFindings is returned by check --fail when any phrase was highlighted.
var ErrFindings = errors.New("fluff found")

// Output formats of the check command.
const (
	formatList = "list"
	formatANSI = "ansi"
	formatJSON = "json"
	formatHTML = "html"
)

type checkOptions struct {
	format   string
	fail     bool
	lines    string
	wrap     int
	fragment bool
}

func newCheckCmd(c *cli) *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check [file...]",
		Short: "Report fluff in files or standard input",
		Long: `Scan each file (or standard input when no file or "-" is given) and
report every highlighted phrase.

Formats:
  list   path:line:column: category: phrase (default)
  ansi   the text with phrases styled for a terminal
  json   findings with line, column and byte offsets
  html   the text with phrases wrapped in <span class="fluff fluff-<category>">`,
		Example: `  defluff check README.md
  defluff check --format json --lines 10:40 notes.md
  cat draft.md | defluff check --fail`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.format, "format", "f", formatList, "output format: list, ansi, json, html")
	f.BoolVar(&opts.fail, "fail", false, "exit with status 1 when any phrase is found")
	f.StringVar(&opts.lines, "lines", "", "only scan lines FROM:TO (1-based, inclusive; either side may be empty)")
	f.IntVar(&opts.wrap, "wrap", 0, "wrap ansi output at this width (0 disables)")
	f.BoolVar(&opts.fragment, "fragment", false, "html: omit the surrounding document and stylesheet")
	return cmd
}

// checked is one scanned input.
type checked struct {
	path  string
	text  string
	spans []scan.Span
}

func (c *cli) runCheck(cmd *cobra.Command, args []string, opts *checkOptions) error {
	switch opts.format {
	case formatList, formatANSI, formatJSON, formatHTML:
	default:
		return fmt.Errorf("unknown format %q (want list, ansi, json or html)", opts.format)
	}
	if len(args) == 0 {
		args = []string{"-"}
	}

	e, provider, shutdown, err := c.newEngine(cmd)
	if err != nil {
		return err
	}
	defer shutdown()

	parser := structure.NewParser()
	results := make([]checked, 0, len(args))
	total := 0
	for _, path := range args {
		res, err := checkOne(cmd.Context(), cmd, e, provider, parser, path, opts.lines)
		if err != nil {
			return err
		}
		total += len(res.spans)
		results = append(results, res)
	}

	if err := writeChecked(cmd, results, opts, c); err != nil {
		return err
	}

	log.Info(log.CatScan, "check finished", "inputs", len(results), "phrases", total)
	if opts.fail && total > 0 {
		return fmt.Errorf("%w: %d phrases", ErrFindings, total)
	}
	return nil
}

func checkOne(ctx context.Context, cmd *cobra.Command, e *engine.Engine, provider *tracing.Provider, parser *structure.Parser, path, lines string) (checked, error) {
	ctx, span := provider.Tracer().Start(ctx, tracing.SpanCheck)
	defer span.End()
	span.SetAttributes(attribute.String(tracing.AttrPath, displayName(path)))

	text, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return checked{}, err
	}
	region, err := linesRegion(text, lines)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return checked{}, err
	}

	spans := e.Highlight(ctx, text, []scan.Region{region}, parser.Parse(text))
	st := e.Stats()
	log.Debug(log.CatScan, "checked",
		"path", displayName(path),
		"matches", st.Matches,
		"spans", st.Emitted,
		"excluded", st.Excluded,
		"unresolved", st.Unresolved)
	return checked{path: displayName(path), text: text, spans: spans}, nil
}

func writeChecked(cmd *cobra.Command, results []checked, opts *checkOptions, c *cli) error {
	out := cmd.OutOrStdout()
	switch opts.format {
	case formatList:
		for _, r := range results {
			for _, f := range render.Findings(r.text, r.spans) {
				fmt.Fprintln(out, render.FormatFinding(r.path, f))
			}
		}

	case formatANSI:
		sink := render.NewANSI(lipgloss.NewRenderer(out), c.settings.HighlightStyle)
		for i, r := range results {
			if len(results) > 1 {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "==> %s <==\n", r.path)
			}
			text := sink.Render(r.text, r.spans)
			if opts.wrap > 0 {
				text = wordwrap.String(text, opts.wrap)
			}
			fmt.Fprint(out, text)
			if !strings.HasSuffix(text, "\n") {
				fmt.Fprintln(out)
			}
		}

	case formatJSON:
		reports := make([]render.Report, 0, len(results))
		for _, r := range results {
			reports = append(reports, render.NewReport(r.path, render.Findings(r.text, r.spans)))
		}
		if len(reports) == 1 {
			return render.WriteJSON(out, reports[0])
		}
		return render.WriteJSON(out, reports)

	case formatHTML:
		return writeHTML(out, results, opts.fragment)
	}
	return nil
}

func writeHTML(out io.Writer, results []checked, fragment bool) error {
	sink := render.NewHTML()
	var b strings.Builder
	if !fragment {
		b.WriteString("<!doctype html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>defluff</title>\n<style>\n")
		b.WriteString(render.Stylesheet())
		b.WriteString("</style>\n</head>\n<body>\n")
	}
	for _, r := range results {
		if len(results) > 1 || !fragment {
			fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(r.path))
		}
		b.WriteString(sink.Render(r.text, r.spans))
		b.WriteString("\n")
	}
	if !fragment {
		b.WriteString("</body>\n</html>\n")
	}
	_, err := io.WriteString(out, b.String())
	return err
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading standard input: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is a user-supplied document
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func displayName(path string) string {
	if path == "-" {
		return "<stdin>"
	}
	return path
}

// linesRegion maps a "FROM:TO" line range onto byte offsets of text. An empty
// spec covers the whole text.
func linesRegion(text, spec string) (scan.Region, error) {
	whole := scan.Region{Start: 0, End: len(text)}
	if spec == "" {
		return whole, nil
	}

	fromStr, toStr, ok := strings.Cut(spec, ":")
	if !ok {
		fromStr, toStr = spec, spec
	}
	from, to := 1, -1
	var err error
	if fromStr != "" {
		if from, err = strconv.Atoi(fromStr); err != nil || from < 1 {
			return whole, fmt.Errorf("invalid --lines %q: start must be a positive number", spec)
		}
	}
	if toStr != "" {
		if to, err = strconv.Atoi(toStr); err != nil || to < from {
			return whole, fmt.Errorf("invalid --lines %q: end must be a number not before the start", spec)
		}
	}

	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	if from > len(starts) {
		return scan.Region{Start: len(text), End: len(text)}, nil
	}

	region := scan.Region{Start: starts[from-1], End: len(text)}
	if to >= 0 && to < len(starts) {
		region.End = starts[to] - 1
	}
	return region, nil
}
