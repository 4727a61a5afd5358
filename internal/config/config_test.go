package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.StoreBackend != StoreMemory {
		t.Errorf("Expected memory store, got %s", cfg.StoreBackend)
	}
	if cfg.OpenAIBaseURL != "https://api.openai.com/v1" {
		t.Errorf("Unexpected OpenAI URL %s", cfg.OpenAIBaseURL)
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Errorf("Unexpected model %s", cfg.OpenAIModel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OPENAI_API_URL", "http://localhost:11434/v1")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("BULK_CONCURRENCY", "not-a-number")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
	if cfg.OpenAIBaseURL != "http://localhost:11434/v1" {
		t.Errorf("Expected overridden URL, got %s", cfg.OpenAIBaseURL)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected 5s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.BulkConcurrency != 8 {
		t.Errorf("Expected invalid int to fall back to 8, got %d", cfg.BulkConcurrency)
	}
	if cfg.APIKeyFallback() != "g-key" || cfg.Model() != "gemini-2.5-flash" {
		t.Errorf("Expected gemini key and model, got %q %q", cfg.APIKeyFallback(), cfg.Model())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "bad port", mutate: func(c *Config) { c.Port = "http" }, wantErr: "invalid port"},
		{name: "unknown store", mutate: func(c *Config) { c.StoreBackend = "firestore" }, wantErr: "invalid store backend"},
		{name: "bigquery without project", mutate: func(c *Config) { c.StoreBackend = StoreBigQuery; c.BigQueryProject = "" }, wantErr: "BIGQUERY_PROJECT"},
		{name: "google auth without client", mutate: func(c *Config) { c.AuthMode = AuthGoogle; c.GoogleClientID = "" }, wantErr: "GOOGLE_CLIENT_ID"},
		{name: "bad amqp scheme", mutate: func(c *Config) { c.QueueBackend = QueueAMQP; c.AMQPURL = "http://x" }, wantErr: "AMQP URL"},
		{name: "amqp with memory job store", mutate: func(c *Config) { c.QueueBackend = QueueAMQP; c.AMQPURL = "amqp://localhost"; c.JobStoreBackend = JobStoreMemory }, wantErr: "JOB_STORE_BACKEND=sqlite"},
		{name: "bad openai url", mutate: func(c *Config) { c.OpenAIBaseURL = "ftp://x" }, wantErr: "OPENAI_API_URL"},
		{name: "zero concurrency", mutate: func(c *Config) { c.BulkConcurrency = 0 }, wantErr: "bulk concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Load()
	cfg.Port = "0"
	cfg.LogFormat = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "port") || !strings.Contains(err.Error(), "log format") {
		t.Errorf("Expected both problems reported, got %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("VT_DOTENV_PROBE=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VT_DOTENV_PROBE", "")
	os.Unsetenv("VT_DOTENV_PROBE")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("VT_DOTENV_PROBE"); got != "from-file" {
		t.Errorf("Expected value from file, got %q", got)
	}
}
