package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/defluff/internal/config"
	"github.com/zjrosen/defluff/internal/engine"
	"github.com/zjrosen/defluff/internal/log"
	"github.com/zjrosen/defluff/internal/rules"
	"github.com/zjrosen/defluff/internal/tracing"
)

var version = "dev"

// cli holds state shared by every subcommand of one invocation.
type cli struct {
	v        *viper.Viper
	cfgFile  string
	debug    bool
	logFile  string
	logLevel string
	off      []string

	settings   config.Settings
	configPath string // config file in use; empty when running on defaults
	closeLog   func()
}

func newRootCmd() *cobra.Command {
	_, root := newCLI()
	return root
}

func newCLI() (*cli, *cobra.Command) {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "defluff",
		Short: "Highlight filler, hedging and jargon in prose",
		Long: `defluff finds weak qualifiers, filler words, weasel words, jargon,
needless complexity and redundancy in Markdown and plain text. Code,
comments, links and URLs are never flagged.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) { c.teardown() },
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&c.cfgFile, "config", "c", "",
		"config file (default: "+config.LocalConfigPath+", then ~/.config/defluff/config.yaml)")
	pf.BoolVarP(&c.debug, "debug", "d", false,
		"write a debug log (also enabled by "+log.EnvDebug+")")
	pf.StringVar(&c.logFile, "log-file", "debug.log", `debug log path ("-" for stderr)`)
	pf.StringVar(&c.logLevel, "log-level", "debug", "minimum debug log level: debug, info, warn, error")
	pf.StringSliceVar(&c.off, "off", nil, "turn categories off for this run (e.g. --off jargon,complexity)")
	pf.String("lang", "", "ruleset language: en, de")
	pf.String("style", "", "highlight style: dim, wavy-underline, strikethrough, none")

	_ = c.v.BindPFlag("language", pf.Lookup("lang"))
	_ = c.v.BindPFlag("highlight_style", pf.Lookup("style"))

	root.AddCommand(
		newCheckCmd(c),
		newRulesCmd(c),
		newWatchCmd(c),
		newViewCmd(c),
		newConfigCmd(c),
	)
	return c, root
}

// setup initializes logging and loads settings before any subcommand runs.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if c.debug || os.Getenv(log.EnvDebug) != "" {
		level := log.ParseLevel(c.logLevel)
		if c.logFile == "-" {
			log.InitWriter(cmd.ErrOrStderr(), level)
			c.closeLog = log.Reset
		} else {
			cleanup, err := log.Init(c.logFile)
			if err != nil {
				return fmt.Errorf("initializing debug log: %w", err)
			}
			log.SetMinLevel(level)
			c.closeLog = cleanup
		}
		log.Info(log.CatConfig, "defluff starting", "version", version, "command", cmd.Name())
	}

	c.initConfig(cmd)

	s, err := config.Load(c.v)
	if err != nil {
		// Invalid fields were reset to their defaults.
		cmd.PrintErrf("warning: %v\n", err)
	}
	if s, err = c.applyOverrides(s); err != nil {
		return err
	}
	c.settings = s
	return nil
}

// applyOverrides applies flags that have no config key.
func (c *cli) applyOverrides(s config.Settings) (config.Settings, error) {
	for _, name := range c.off {
		cat, err := rules.ParseCategory(name)
		if err != nil {
			return s, fmt.Errorf("--off: %w", err)
		}
		if cat == rules.Custom {
			return s, fmt.Errorf("--off: custom rules have no toggle; edit custom_word_list instead")
		}
		s.Categories = s.Categories.Set(cat, false)
	}
	return s, nil
}

// reload re-reads the config file through the command's viper instance, so
// flags keep precedence over the file.
func (c *cli) reload() (config.Settings, error) {
	if err := c.v.ReadInConfig(); err != nil {
		return c.settings, fmt.Errorf("%w: %w", config.ErrReadConfig, err)
	}
	s, loadErr := config.Load(c.v)
	s, err := c.applyOverrides(s)
	if err != nil {
		return s, err
	}
	return s, loadErr
}

func (c *cli) teardown() {
	if c.closeLog != nil {
		c.closeLog()
		c.closeLog = nil
	}
}

// initConfig locates the config file. Lookup order:
//  1. --config
//  2. .defluff/config.yaml (current directory)
//  3. ~/.config/defluff/config.yaml
func (c *cli) initConfig(cmd *cobra.Command) {
	config.SetDefaults(c.v)

	switch {
	case c.cfgFile != "":
		c.v.SetConfigFile(c.cfgFile)
	case fileExists(config.LocalConfigPath):
		c.v.SetConfigFile(config.LocalConfigPath)
	default:
		if dir := config.UserConfigDir(); dir != "" {
			c.v.AddConfigPath(dir)
		}
		c.v.SetConfigName("config")
		c.v.SetConfigType("yaml")
	}

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || c.cfgFile != "" {
			cmd.PrintErrf("warning: %v; using defaults\n", err)
		}
		log.Debug(log.CatConfig, "no config file loaded", "error", err)
	}

	// Running on defaults never creates a file; see "config init".
	c.configPath = ""
	if used := c.v.ConfigFileUsed(); used != "" && fileExists(used) {
		c.configPath = used
		if abs, err := filepath.Abs(used); err == nil {
			c.configPath = abs
		}
	}
	log.Debug(log.CatConfig, "config resolved", "path", c.configPath)
}

// newEngine builds an engine for the loaded settings. The returned function
// flushes traces.
func (c *cli) newEngine(cmd *cobra.Command) (*engine.Engine, *tracing.Provider, func(), error) {
	provider, err := tracing.NewProvider(c.settings.Tracing)
	if err != nil {
		cmd.PrintErrf("warning: tracing disabled: %v\n", err)
		provider, _ = tracing.NewProvider(config.TracingConfig{})
	}
	shutdown := func() {
		if err := provider.Shutdown(cmd.Context()); err != nil {
			log.ErrorErr(log.CatTrace, "Failed to flush traces", err)
		}
	}

	e, err := engine.New(c.settings, engine.WithTracer(provider.Tracer()))
	if err != nil {
		shutdown()
		return nil, nil, nil, fmt.Errorf("building engine: %w", err)
	}
	return e, provider, shutdown, nil
}

// watchPaths returns doc plus the config file when one is in use.
func (c *cli) watchPaths(doc string) []string {
	paths := []string{doc}
	if c.configPath != "" {
		paths = append(paths, c.configPath)
	}
	return paths
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Execute runs the root command
func Execute() error {
	root := newRootCmd()
	err := root.Execute()
	if err != nil && !errors.Is(err, ErrFindings) {
		root.PrintErrln("Error:", err)
	}
	return err
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
}
