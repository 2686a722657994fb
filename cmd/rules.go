package cmd

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/zjrosen/defluff/internal/rules"
	"github.com/zjrosen/defluff/internal/ui/markdown"
)

type rulesOptions struct {
	all      bool
	validate string
	plain    bool
	width    int
}

func newRulesCmd(c *cli) *cobra.Command {
	opts := &rulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the active rules, or validate a ruleset file",
		Example: `  defluff rules
  defluff rules --all --lang de
  defluff rules --validate my-rules.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.validate != "" {
				return validateRuleset(cmd, opts.validate)
			}
			return c.runRules(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&opts.all, "all", "a", false, "include rules whose category is off or that the word list excludes")
	f.StringVar(&opts.validate, "validate", "", "check a ruleset file and exit")
	f.BoolVar(&opts.plain, "plain", false, "print the Markdown table without styling")
	f.IntVar(&opts.width, "width", 100, "wrap width of the rendered table")
	return cmd
}

func (c *cli) runRules(cmd *cobra.Command, opts *rulesOptions) error {
	e, _, shutdown, err := c.newEngine(cmd)
	if err != nil {
		return err
	}
	defer shutdown()

	active := e.ActiveMatches()
	all := e.Catalog().Rules()
	shown := all
	if !opts.all {
		shown = slices.DeleteFunc(slices.Clone(all), func(r rules.Rule) bool {
			return !slices.Contains(active, r.Match)
		})
	}

	title := fmt.Sprintf("Rules (%s)", e.Catalog().Language())
	table := markdown.RuleTable(title, shown, active)

	out := cmd.OutOrStdout()
	if opts.plain {
		_, err := fmt.Fprint(out, table)
		return err
	}

	newRenderer := markdown.New
	if lipgloss.NewRenderer(out).ColorProfile() == termenv.Ascii {
		newRenderer = markdown.NewPlain
	}
	r, err := newRenderer(opts.width)
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}
	rendered, err := r.Render(table)
	if err != nil {
		return fmt.Errorf("rendering rules: %w", err)
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}

func validateRuleset(cmd *cobra.Command, path string) error {
	rs, err := rules.LoadRuleset(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	list, err := rs.Rules()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	counts := make(map[rules.Category]int)
	for _, r := range list {
		counts[r.Category]++
	}
	lang := string(rs.Language)
	if lang == "" {
		lang = "unspecified"
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d rules OK (language %s)\n", path, len(list), lang)
	for _, cat := range rules.BuiltinCategories {
		if counts[cat] > 0 {
			fmt.Fprintf(out, "  %-15s %d\n", cat.Title(), counts[cat])
		}
	}
	return nil
}
