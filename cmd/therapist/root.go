package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aixgo-dev/therapist/internal/llm/provider"
	"github.com/aixgo-dev/therapist/internal/logging"
	"github.com/aixgo-dev/therapist/internal/observability"
	"github.com/aixgo-dev/therapist/internal/terminal"
	"github.com/aixgo-dev/therapist/pkg/config"
	metrics "github.com/aixgo-dev/therapist/pkg/observability"
	"github.com/aixgo-dev/therapist/pkg/persona"
	"github.com/aixgo-dev/therapist/pkg/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// options holds the command line flags. Flags override the config file and
// the environment only when set explicitly.
type options struct {
	configPath  string
	mode        string
	provider    string
	model       string
	verbose     bool
	metricsAddr string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "therapist",
		Short: "Talk things through with a therapy-style chat assistant",
		Long: `therapist is a terminal chat client that relays what you write to a
language model and prints its replies, framed by a supportive persona.

Personas (--mode): cbt, person, trauma.
Backends (--provider): openai (needs OPENAI_API_KEY) or ollama (local).

Run it in a terminal for a conversation, or pipe text in for a single reply:
  echo "I can't sleep before exams" | therapist --provider ollama

Type exit, quit or bye to leave. Nothing you write is saved.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file")
	flags.StringVarP(&opts.mode, "mode", "m", config.DefaultMode, "persona: cbt, person or trauma")
	flags.StringVarP(&opts.provider, "provider", "p", config.DefaultProvider, "backend: openai or ollama")
	flags.StringVar(&opts.model, "model", "", "model name (backend default when empty)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log backend traffic and state changes to stderr")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address")

	cmd.AddCommand(newModesCmd(), newDoctorCmd(opts))
	return cmd
}

// loadSettings merges the config file, the environment and explicit flags,
// in that order of precedence.
func loadSettings(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Mode = opts.mode
	}
	if flags.Changed("provider") {
		cfg.Provider = opts.provider
	}
	if flags.Changed("model") {
		cfg.Model = opts.model
	}
	if flags.Changed("verbose") {
		cfg.Verbose = opts.verbose
	}
	if flags.Changed("metrics-addr") {
		cfg.Observability.MetricsAddr = opts.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runChat(cmd *cobra.Command, opts *options) error {
	cfg, err := loadSettings(cmd, opts)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := observability.Init(observability.Config{
		ExporterType: cfg.Observability.TracesExporter,
		OTLPEndpoint: cfg.Observability.OTLPEndpoint,
		OTLPHeaders:  observability.ParseHeaders(cfg.Observability.OTLPHeaders),
		Writer:       cmd.ErrOrStderr(),
	}); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := observability.Shutdown(ctx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()
	metrics.InitMetrics()

	adapter, err := provider.NewAdapter(provider.Settings{
		OpenAIKey:     cfg.OpenAI.APIKey,
		OpenAIBaseURL: cfg.OpenAI.BaseURL,
		OllamaURL:     cfg.Ollama.Host,
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	var server *metrics.Server
	if cfg.Observability.MetricsAddr != "" {
		server = metrics.NewServer(cfg.Observability.MetricsAddr, healthChecks(cfg))
		if err := server.Listen(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		logger.Info("metrics server listening", zap.String("addr", server.Addr()))
		g.Go(server.Serve)
	}

	g.Go(func() error {
		if server != nil {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Warn("metrics server shutdown failed", zap.Error(err))
				}
			}()
		}
		return chat(gctx, cmd, cfg, adapter, logger)
	})

	return g.Wait()
}

func chat(ctx context.Context, cmd *cobra.Command, cfg *config.Config, backend session.Backend, logger *zap.Logger) error {
	stdin := cmd.InOrStdin()
	f, isFile := stdin.(*os.File)
	interactive := isFile && terminal.IsTerminal(f)

	var src session.InputSource
	if interactive {
		lines := terminal.NewLineSource(terminal.DefaultPrompt)
		defer func() { _ = lines.Close() }()
		src = lines
	} else {
		src = terminal.NewPipedSource(stdin)
	}

	sessionCfg := session.Config{
		Mode:     persona.ParseMode(cfg.Mode),
		Provider: provider.ParseKind(cfg.Provider),
		Model:    cfg.Model,
		Verbose:  cfg.Verbose,
	}
	engineOpts := []session.Option{session.WithLogger(logger)}
	if cfg.Persona != "" {
		engineOpts = append(engineOpts, session.WithPersona(cfg.Persona))
	}
	engine := session.New(sessionCfg, backend, engineOpts...)

	renderer := terminal.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), interactive)
	renderer.Banner(string(sessionCfg.Mode), sessionCfg.Provider.String())

	for ev := range engine.Run(ctx, src) {
		renderer.Render(ev)
	}

	if err := engine.Err(); err != nil {
		return reportedError{err}
	}
	return nil
}

// healthChecks reports on the selected backend when it is the local one.
func healthChecks(cfg *config.Config) *metrics.HealthChecker {
	checker := metrics.NewHealthChecker()
	if provider.ParseKind(cfg.Provider) != provider.KindOllama {
		return checker
	}

	ollama, err := provider.NewOllamaProvider(cfg.Ollama.Host)
	if err != nil {
		return checker
	}
	checker.RegisterCheck(metrics.ExternalServiceCheck("ollama", func(ctx context.Context) error {
		if !ollama.Available(ctx) {
			return fmt.Errorf("ollama not reachable at %s", ollama.Endpoint())
		}
		return nil
	}))
	return checker
}
