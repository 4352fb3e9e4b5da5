// Command ecg-poc analyzes a single ECG image from a file or URL and prints
// the structured result. Useful for trying prompts and providers without
// the web UI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/raine/ecg-analyzer/internal/capture"
	"github.com/raine/ecg-analyzer/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	provider   string
	promptFile string
	timeout    time.Duration
	jsonOutput bool
	verbose    bool
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ecg-poc <image-path-or-url>",
		Short: "Analyze an ECG image from the command line",
		Long: `Analyze an ECG image with the configured vision model and print the
metrics, arrhythmia level and summary.

Reads the same config.env and environment variables as the server.

Examples:
  ecg-poc ecg.png
  ecg-poc --provider openai https://example.com/ecg.jpg
  ecg-poc --prompt-file ./prompts/ecg-v2.yaml --json ecg.png`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.WarnLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
		},
		RunE: runAnalyze,
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "vision provider (gemini, openai); defaults to ECG_PROVIDER")
	cmd.Flags().StringVar(&promptFile, "prompt-file", "", "prompt YAML file; defaults to ECG_PROMPT_FILE or the embedded prompt")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "analysis timeout")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the raw result as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	config.LoadEnvFile()
	if provider != "" {
		os.Setenv("ECG_PROVIDER", provider)
	}
	if missing := config.CheckRequired(); len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if promptFile != "" {
		cfg.PromptFile = promptFile
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	img, err := loadImage(ctx, args[0], cfg.MaxUploadBytes)
	if err != nil {
		return err
	}

	analyzer, err := cfg.NewAnalyzer(ctx)
	if err != nil {
		return err
	}

	encoded, err := img.Base64()
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := analyzer.Analyze(ctx, encoded, img.MIMEType)
	if err != nil {
		return err
	}
	log.Debug().Dur("duration", time.Since(start)).Msg("analysis finished")

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprintln(out, formatResult(img, result))
	return nil
}

// loadImage reads a local file, or downloads the image when source is an
// http(s) URL.
func loadImage(ctx context.Context, source string, maxSize int64) (*capture.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return capture.NewDownloader().WithMaxSize(maxSize).Download(ctx, source)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	defer f.Close()
	return capture.FromReader(source, "", f, maxSize)
}
