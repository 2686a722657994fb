package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/zjrosen/defluff/internal/cachemanager"
	"github.com/zjrosen/defluff/internal/engine"
	"github.com/zjrosen/defluff/internal/structure"
	"github.com/zjrosen/defluff/internal/ui/viewer"
	"github.com/zjrosen/defluff/internal/watcher"
)

func newViewCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "view <file>",
		Short: "Page through a file with fluff highlighted",
		Long: `Open a file in a pager that highlights the lines on screen. The view
follows changes to the file and the config file. Press t to toggle
highlighting (saved to the config file), s to cycle the style, ? for help.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runView(cmd, args[0])
		},
	}
}

func (c *cli) runView(cmd *cobra.Command, path string) error {
	// Query the terminal background before the program owns stdin, so the
	// terminal's reply does not arrive as key presses.
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()

	text, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	e, _, shutdown, err := c.newEngine(cmd)
	if err != nil {
		return err
	}
	defer shutdown()

	w, err := watcher.New(watcher.DefaultConfig(c.watchPaths(path)...))
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	model := viewer.New(c.viewerOptions(path, text, e, changes))

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running viewer: %w", err)
	}
	return nil
}

// viewerOptions wires the viewer to the config file in use. Running on
// defaults leaves ConfigPath empty, so toggles are not persisted.
func (c *cli) viewerOptions(path, text string, e *engine.Engine, changes <-chan watcher.Change) viewer.Options {
	opts := viewer.Options{
		Path:      path,
		Text:      text,
		Engine:    e,
		Documents: structure.NewCache(structure.NewParser(), cachemanager.DefaultExpiration),
		Changes:   changes,
	}
	if c.configPath != "" {
		opts.ConfigPath = c.configPath
		opts.Reload = c.reload
	}
	return opts
}
