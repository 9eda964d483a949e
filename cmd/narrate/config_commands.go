package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"narrate/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}
			if err := config.WriteSample(target); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set gemini api_key (or export GEMINI_API_KEY) and tts api_key (or GOOGLE_TTS_API_KEY) before running.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration invalid: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Output dir:   %s\n", cfg.Paths.OutputDir)
			fmt.Fprintf(out, "Work dir:     %s\n", cfg.Paths.WorkDir)
			fmt.Fprintf(out, "Log dir:      %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "Gemini model: %s (key %s)\n", cfg.Gemini.Model, redacted(cfg.Gemini.APIKey))
			fmt.Fprintf(out, "TTS voice:    %s %s (key %s)\n", cfg.TTS.LanguageCode, cfg.TTS.Voice, redacted(cfg.TTS.APIKey))
			fmt.Fprintf(out, "Audio:        %s %s %dHz\n", cfg.Assembly.AudioFormat, cfg.Assembly.AudioBitrate, cfg.Assembly.SampleRate)
			fmt.Fprintf(out, "Log level:    %s (%s)\n", cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}
}

func redacted(key string) string {
	if strings.TrimSpace(key) == "" {
		return "unset"
	}
	return "set"
}
