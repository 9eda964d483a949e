package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"narrate/internal/pipeline"
	"narrate/internal/services/gemini"
	"narrate/internal/tts/googletts"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var scriptPath string
	var scriptOnly bool
	var muxOutput bool

	cmd := &cobra.Command{
		Use:   "run <video>",
		Short: "Narrate a video end to end",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var narrator pipeline.Narrator
			if scriptPath == "" {
				narrator = gemini.NewClient(gemini.Config{
					APIKey:                   cfg.Gemini.APIKey,
					BaseURL:                  cfg.Gemini.BaseURL,
					Model:                    cfg.Gemini.Model,
					TimeoutSeconds:           cfg.Gemini.TimeoutSeconds,
					Temperature:              cfg.Gemini.Temperature,
					MaxInlineDurationSeconds: float64(cfg.Gemini.MaxInlineDurationSeconds),
					MaxInlineSizeMB:          float64(cfg.Gemini.MaxInlineSizeMB),
				})
			}
			engine := googletts.NewClient(googletts.Config{
				APIKey:         cfg.TTS.APIKey,
				BaseURL:        cfg.TTS.BaseURL,
				Voice:          cfg.TTS.Voice,
				LanguageCode:   cfg.TTS.LanguageCode,
				SpeakingRate:   cfg.TTS.SpeakingRate,
				TimeoutSeconds: cfg.TTS.TimeoutSeconds,
				FFprobeBinary:  cfg.Assembly.FFprobeBinary,
			})

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p := pipeline.New(cfg, store, narrator, engine, logger)
			outcome, err := p.Run(runCtx, args[0], pipeline.Options{
				ScriptPath: scriptPath,
				ScriptOnly: scriptOnly,
				Mux:        muxOutput,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s completed (%d segments", outcome.RunID, len(outcome.Segments))
			if len(outcome.Skipped) > 0 {
				fmt.Fprintf(out, ", %d skipped", len(outcome.Skipped))
			}
			fmt.Fprintln(out, ")")
			for _, line := range pipeline.SkipSummary(outcome.Skipped) {
				fmt.Fprintf(out, "  skipped %s\n", line)
			}
			fmt.Fprintf(out, "Subtitles: %s\n", outcome.SubtitlePath)
			if outcome.AudioPath != "" {
				fmt.Fprintf(out, "Narration: %s\n", outcome.AudioPath)
			}
			if outcome.OutputPath != "" {
				fmt.Fprintf(out, "Video:     %s\n", outcome.OutputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scriptPath, "script", "", "Use a pre-written narration script instead of calling the model")
	cmd.Flags().BoolVar(&scriptOnly, "script-only", false, "Stop after validation; write only the script and subtitles")
	cmd.Flags().BoolVar(&muxOutput, "mux", false, "Mux the narration into a copy of the source video")

	return cmd
}
