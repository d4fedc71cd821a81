package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "therapist.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func TestLoadConfig_FileSizeLimit(t *testing.T) {
	largeFile := writeConfig(t, strings.Repeat("x: value\n", 200000)) // ~1.6MB

	_, err := LoadWithEnv(largeFile, envMap(nil))
	if err == nil {
		t.Fatal("expected error for large file")
	}
	if !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected 'too large' error, got: %v", err)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadWithEnv("", envMap(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %s", cfg.Provider)
	}
	if cfg.Mode != "cbt" {
		t.Errorf("expected mode 'cbt', got %s", cfg.Mode)
	}
	if cfg.Observability.TracesExporter != "none" {
		t.Errorf("expected exporter 'none', got %s", cfg.Observability.TracesExporter)
	}
	if cfg.OpenAI.APIKey != "" {
		t.Error("expected no API key")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
provider: ollama
mode: trauma
model: llama3.1
verbose: true
persona: You are a gentle listener.
ollama:
  host: http://127.0.0.1:11434
observability:
  metrics_addr: 127.0.0.1:9090
  traces_exporter: stdout
`)

	cfg, err := LoadWithEnv(path, envMap(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider != "ollama" || cfg.Mode != "trauma" || cfg.Model != "llama3.1" {
		t.Errorf("unexpected session settings: %+v", cfg)
	}
	if !cfg.Verbose {
		t.Error("expected verbose")
	}
	if cfg.Persona != "You are a gentle listener." {
		t.Errorf("unexpected persona %q", cfg.Persona)
	}
	if cfg.Ollama.Host != "http://127.0.0.1:11434" {
		t.Errorf("unexpected ollama host %q", cfg.Ollama.Host)
	}
	if cfg.Observability.MetricsAddr != "127.0.0.1:9090" {
		t.Errorf("unexpected metrics addr %q", cfg.Observability.MetricsAddr)
	}
	if cfg.Observability.TracesExporter != "stdout" {
		t.Errorf("unexpected exporter %q", cfg.Observability.TracesExporter)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
provider: ollama
mode: person
openai:
  api_key: from-file
`)

	cfg, err := LoadWithEnv(path, envMap(map[string]string{
		EnvProvider:      "openai",
		EnvModel:         "gpt-4o",
		EnvOpenAIKey:     "from-env",
		EnvOpenAIBaseURL: "http://localhost:8080/v1",
		EnvVerbose:       "true",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider != "openai" {
		t.Errorf("expected env provider, got %s", cfg.Provider)
	}
	if cfg.Mode != "person" {
		t.Errorf("expected file mode to survive, got %s", cfg.Mode)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("expected env model, got %s", cfg.Model)
	}
	if cfg.OpenAI.APIKey != "from-env" {
		t.Errorf("expected env key, got %s", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("unexpected base url %s", cfg.OpenAI.BaseURL)
	}
	if !cfg.Verbose {
		t.Error("expected verbose from env")
	}
}

func TestLoadConfig_InvalidVerbose(t *testing.T) {
	_, err := LoadWithEnv("", envMap(map[string]string{EnvVerbose: "loud"}))
	if err == nil {
		t.Error("expected error for invalid verbose value")
	}
}

func TestLoadConfig_NonexistentFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	invalidFile := writeConfig(t, `
provider: openai
invalid yaml here: [[[
`)

	_, err := LoadWithEnv(invalidFile, envMap(nil))
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		exporter string
		wantErr  bool
	}{
		{name: "none", exporter: "none"},
		{name: "stdout", exporter: "stdout"},
		{name: "otlp", exporter: "otlp"},
		{name: "unknown", exporter: "jaeger", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Observability.TracesExporter = tt.exporter
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
