package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/defluff/internal/config"
)

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the config file",
	}
	cmd.AddCommand(newConfigInitCmd(c), newConfigShowCmd(c), newConfigPathCmd(c))
	return cmd
}

func newConfigInitCmd(c *cli) *cobra.Command {
	var user, force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented default config file",
		Long: `Write the default config to --config, or to ` + config.LocalConfigPath + `
(or ~/.config/defluff/config.yaml with --user).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.LocalConfigPath
			switch {
			case c.cfgFile != "":
				path = c.cfgFile
			case user:
				dir := config.UserConfigDir()
				if dir == "" {
					return fmt.Errorf("cannot determine home directory")
				}
				path = filepath.Join(dir, "config.yaml")
			}

			if fileExists(path) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.WriteDefaultConfig(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&user, "user", false, "write to the user config directory")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			source := c.configPath
			if source == "" {
				source = "defaults"
			}
			fmt.Fprintf(out, "# %s\n", source)
			data, err := yaml.Marshal(settingsMap(c.settings))
			if err != nil {
				return fmt.Errorf("encoding settings: %w", err)
			}
			_, err = out.Write(data)
			return err
		},
	}
}

func newConfigPathCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.configPath == "" {
				return errNoConfig
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.configPath)
			return nil
		},
	}
}

var errNoConfig = errors.New("no config file in use (run defluff config init)")

// settingsMap mirrors the config file layout.
func settingsMap(s config.Settings) map[string]any {
	return map[string]any{
		"enabled":          s.Enabled,
		"highlight_style":  string(s.HighlightStyle),
		"language":         string(s.Language),
		"custom_word_list": s.CustomWordList,
		"categories": map[string]bool{
			"weak_qualifier": s.Categories.WeakQualifier,
			"filler_word":    s.Categories.FillerWord,
			"weasel_word":    s.Categories.WeaselWord,
			"jargon":         s.Categories.Jargon,
			"complexity":     s.Categories.Complexity,
			"redundancy":     s.Categories.Redundancy,
		},
		"tracing": map[string]any{
			"enabled":       s.Tracing.Enabled,
			"exporter":      s.Tracing.Exporter,
			"file_path":     s.Tracing.FilePath,
			"otlp_endpoint": s.Tracing.OTLPEndpoint,
			"sample_rate":   s.Tracing.SampleRate,
		},
	}
}
