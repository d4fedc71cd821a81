package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/aixgo-dev/therapist/internal/observability"
	"gopkg.in/yaml.v3"
)

// maxConfigSize bounds the config file read.
const maxConfigSize = 1 << 20

// Environment variables read by LoadWithEnv.
const (
	EnvProvider       = "THERAPIST_PROVIDER"
	EnvMode           = "THERAPIST_MODE"
	EnvModel          = "THERAPIST_MODEL"
	EnvVerbose        = "THERAPIST_VERBOSE"
	EnvMetricsAddr    = "THERAPIST_METRICS_ADDR"
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvOpenAIBaseURL  = "OPENAI_BASE_URL"
	EnvOllamaHost     = "OLLAMA_HOST"
	EnvTracesExporter = "OTEL_TRACES_EXPORTER"
	EnvOTLPEndpoint   = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTLPHeaders    = "OTEL_EXPORTER_OTLP_HEADERS"
)

// Defaults
const (
	DefaultProvider = "openai"
	DefaultMode     = "cbt"
)

// Config represents the application configuration
type Config struct {
	// Provider selects the backend: openai or ollama.
	Provider string `yaml:"provider"`
	// Mode selects the persona: cbt, person or trauma.
	Mode string `yaml:"mode"`
	// Model overrides the backend's default model.
	Model string `yaml:"model"`
	// Persona replaces the built-in persona text when set.
	Persona string `yaml:"persona,omitempty"`
	Verbose bool   `yaml:"verbose"`

	OpenAI        OpenAIConfig        `yaml:"openai"`
	Ollama        OllamaConfig        `yaml:"ollama"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// OpenAIConfig holds settings for the OpenAI-compatible backend
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// OllamaConfig holds settings for the local Ollama backend
type OllamaConfig struct {
	Host string `yaml:"host"`
}

// ObservabilityConfig holds metrics and tracing settings
type ObservabilityConfig struct {
	// MetricsAddr enables the /metrics and /health server when set.
	MetricsAddr    string `yaml:"metrics_addr"`
	TracesExporter string `yaml:"traces_exporter"` // none, stdout, otlp
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	// OTLPHeaders is a comma-separated key=value list sent with every export.
	OTLPHeaders string `yaml:"otlp_headers"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Provider: DefaultProvider,
		Mode:     DefaultMode,
		Observability: ObservabilityConfig{
			TracesExporter: observability.ExporterNone,
		},
	}
}

// LoadConfig loads configuration from an optional YAML file and the process
// environment.
func LoadConfig(path string) (*Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv loads path (skipped when empty) and then applies non-empty
// values from getenv on top of it.
func LoadWithEnv(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.Provider, EnvProvider)
	set(&c.Mode, EnvMode)
	set(&c.Model, EnvModel)
	set(&c.OpenAI.APIKey, EnvOpenAIKey)
	set(&c.OpenAI.BaseURL, EnvOpenAIBaseURL)
	set(&c.Ollama.Host, EnvOllamaHost)
	set(&c.Observability.MetricsAddr, EnvMetricsAddr)
	set(&c.Observability.TracesExporter, EnvTracesExporter)
	set(&c.Observability.OTLPEndpoint, EnvOTLPEndpoint)
	set(&c.Observability.OTLPHeaders, EnvOTLPHeaders)

	if v := getenv(EnvVerbose); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvVerbose, err)
		}
		c.Verbose = b
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.Mode == "" {
		c.Mode = DefaultMode
	}
	if c.Observability.TracesExporter == "" {
		c.Observability.TracesExporter = observability.ExporterNone
	}
}

// Validate checks the settings that cannot be corrected later. Provider and
// mode are not checked here: an unknown mode falls back to cbt and an unknown
// provider is reported by the backend on first use.
func (c *Config) Validate() error {
	if !observability.ValidExporter(c.Observability.TracesExporter) {
		return fmt.Errorf("unknown traces exporter %q", c.Observability.TracesExporter)
	}
	return nil
}
