package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aixgo-dev/therapist/internal/llm/provider"
	"github.com/aixgo-dev/therapist/pkg/config"
	"github.com/spf13/cobra"
)

var errDoctorFailed = errors.New("the selected backend is not ready")

func newDoctorCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the selected backend can be used",
		Long: `Reports whether OPENAI_API_KEY is set, whether the local Ollama server
answers, and whether the configured model has been pulled. Exits non-zero when
the selected provider is not ready.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd, opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			if !diagnose(ctx, cmd.OutOrStdout(), cfg) {
				return errDoctorFailed
			}
			return nil
		},
	}
}

// diagnose prints one line per check and reports whether the selected
// provider is usable.
func diagnose(ctx context.Context, out io.Writer, cfg *config.Config) bool {
	selected := provider.ParseKind(cfg.Provider)
	fmt.Fprintf(out, "provider: %s, mode: %s\n", selected, cfg.Mode)

	if !selected.Supported() {
		errorColor.Fprintf(out, "✗ unsupported provider %q (use openai or ollama)\n", cfg.Provider)
		return false
	}

	openaiOK := checkOpenAI(out, cfg, selected == provider.KindOpenAI)
	ollamaOK := checkOllama(ctx, out, cfg, selected == provider.KindOllama)

	if selected == provider.KindOpenAI {
		return openaiOK
	}
	return ollamaOK
}

func checkOpenAI(out io.Writer, cfg *config.Config, selected bool) bool {
	if cfg.OpenAI.APIKey != "" {
		successColor.Fprintln(out, "✓ openai: OPENAI_API_KEY is set")
		return true
	}
	report(out, selected, "openai: OPENAI_API_KEY is not set")
	return false
}

func checkOllama(ctx context.Context, out io.Writer, cfg *config.Config, selected bool) bool {
	ollama, err := provider.NewOllamaProvider(cfg.Ollama.Host)
	if err != nil {
		report(out, selected, fmt.Sprintf("ollama: %v", err))
		return false
	}
	if !ollama.Available(ctx) {
		report(out, selected, fmt.Sprintf("ollama: not reachable at %s", ollama.Endpoint()))
		return false
	}
	successColor.Fprintf(out, "✓ ollama: reachable at %s\n", ollama.Endpoint())

	model := cfg.Model
	if model == "" || !selected {
		model = provider.OllamaDefaultModel
	}
	if !ollama.HasModel(ctx, model) {
		report(out, selected, fmt.Sprintf("ollama: model %q is not pulled (run: ollama pull %s)", model, model))
		return false
	}
	successColor.Fprintf(out, "✓ ollama: model %q is available\n", model)
	return true
}

// report prints a failed check as an error for the selected provider and as
// a warning otherwise.
func report(out io.Writer, selected bool, msg string) {
	if selected {
		errorColor.Fprintf(out, "✗ %s\n", msg)
		return
	}
	warningColor.Fprintf(out, "⚠ %s\n", msg)
}
