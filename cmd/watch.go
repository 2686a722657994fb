package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/zjrosen/defluff/internal/config"
	"github.com/zjrosen/defluff/internal/engine"
	"github.com/zjrosen/defluff/internal/log"
	"github.com/zjrosen/defluff/internal/render"
	"github.com/zjrosen/defluff/internal/scan"
	"github.com/zjrosen/defluff/internal/structure"
	"github.com/zjrosen/defluff/internal/watcher"
)

type watchOptions struct {
	clear    bool
	debounce time.Duration
}

func newWatchCmd(c *cli) *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-check a file every time it or the config is saved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return c.runWatch(ctx, cmd, args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.clear, "clear", true, "clear the screen before each report")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", watcher.DefaultConfig().DebounceDur, "quiet period before re-checking")
	return cmd
}

func (c *cli) runWatch(ctx context.Context, cmd *cobra.Command, path string, opts *watchOptions) error {
	e, _, shutdown, err := c.newEngine(cmd)
	if err != nil {
		return err
	}
	defer shutdown()

	w, err := watcher.New(watcher.Config{
		Paths:       c.watchPaths(path),
		DebounceDur: opts.debounce,
	})
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	docs := structure.NewCache(structure.NewParser(), 10*time.Minute)
	report := func() {
		if err := watchReport(ctx, cmd, e, docs, path, opts.clear); err != nil {
			cmd.PrintErrf("error: %v\n", err)
		}
	}
	report()

	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-changes:
			if c.configPath != "" && change.Has(c.configPath) {
				reloadSettings(cmd, e, c.reload)
			}
			report()
		}
	}
}

// reloadSettings applies freshly loaded settings, keeping the current ones
// when the config file cannot be read.
func reloadSettings(cmd *cobra.Command, e *engine.Engine, reload func() (config.Settings, error)) {
	s, err := reload()
	if errors.Is(err, config.ErrReadConfig) {
		cmd.PrintErrf("warning: %v; keeping previous settings\n", err)
		return
	}
	if err != nil {
		cmd.PrintErrf("warning: %v\n", err)
	}
	if err := e.Apply(s); err != nil {
		cmd.PrintErrf("warning: %v\n", err)
		return
	}
	log.Info(log.CatConfig, "settings reloaded", "generation", e.Generation())
}

func watchReport(ctx context.Context, cmd *cobra.Command, e *engine.Engine, docs *structure.Cache, path string, clear bool) error {
	text, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}
	spans := e.Highlight(ctx, text, []scan.Region{{Start: 0, End: len(text)}}, docs.Document(ctx, text))

	out := cmd.OutOrStdout()
	if clear {
		termenv.NewOutput(out).ClearScreen()
	}
	state := "on"
	if !e.Settings().Enabled {
		state = "off"
	}
	fmt.Fprintf(out, "%s  %s  highlighting %s  %d phrases\n\n",
		time.Now().Format(time.TimeOnly), path, state, len(spans))
	for _, f := range render.Findings(text, spans) {
		fmt.Fprintln(out, render.FormatFinding(path, f))
	}
	return nil
}
