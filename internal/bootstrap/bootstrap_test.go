package bootstrap

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/dvloznov/vehicle-tracker/internal/auth"
	"github.com/dvloznov/vehicle-tracker/internal/config"
	"github.com/dvloznov/vehicle-tracker/internal/jobs/inmemory"
	jobssqlite "github.com/dvloznov/vehicle-tracker/internal/jobs/sqlite"
	"github.com/dvloznov/vehicle-tracker/internal/llm"
	"github.com/dvloznov/vehicle-tracker/internal/logger"
	"github.com/dvloznov/vehicle-tracker/internal/store/memory"
)

var testLog = logger.NewWithWriter(io.Discard)

func TestOpenStore(t *testing.T) {
	st, err := OpenStore(context.Background(), &config.Config{StoreBackend: config.StoreMemory}, testLog)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := st.(*memory.Store); !ok {
		t.Errorf("Expected *memory.Store, got %T", st)
	}

	if _, err := OpenStore(context.Background(), &config.Config{StoreBackend: "postgres"}, testLog); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestNewCompleter(t *testing.T) {
	tests := []struct {
		provider string
		check    func(llm.Completer) bool
		wantErr  bool
	}{
		{provider: config.ProviderOpenAI, check: func(c llm.Completer) bool { _, ok := c.(*llm.OpenAIClient); return ok }},
		{provider: config.ProviderGemini, check: func(c llm.Completer) bool { _, ok := c.(*llm.GeminiClient); return ok }},
		{provider: "claude", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			c, err := NewCompleter(&config.Config{LLMProvider: tt.provider})
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil || !tt.check(c) {
				t.Errorf("Unexpected completer %T (%v)", c, err)
			}
		})
	}
}

func TestNewAuthenticator(t *testing.T) {
	a, err := NewAuthenticator(&config.Config{AuthMode: config.AuthHeader, UserHeader: "X-Forwarded-User"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if h, ok := a.(auth.HeaderAuthenticator); !ok || h.Header != "X-Forwarded-User" {
		t.Errorf("Unexpected authenticator %#v", a)
	}

	a, err = NewAuthenticator(&config.Config{AuthMode: config.AuthGoogle, GoogleClientID: "client"})
	if _, ok := a.(*auth.GoogleIDTokenAuthenticator); err != nil || !ok {
		t.Errorf("Unexpected authenticator %T (%v)", a, err)
	}

	if _, err := NewAuthenticator(&config.Config{AuthMode: "basic"}); err == nil {
		t.Error("Expected error for unknown mode")
	}
}

func TestOpenJobStoreAndQueue(t *testing.T) {
	js, cleanup, err := OpenJobStore(&config.Config{JobStoreBackend: config.JobStoreMemory}, testLog)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := js.(*inmemory.Store); !ok {
		t.Errorf("Expected in-memory store, got %T", js)
	}
	if err := cleanup(); err != nil {
		t.Errorf("Unexpected cleanup error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "jobs.db")
	js, cleanup, err = OpenJobStore(&config.Config{JobStoreBackend: config.JobStoreSQLite, SQLitePath: path}, testLog)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer cleanup()
	if _, ok := js.(*jobssqlite.Store); !ok {
		t.Errorf("Expected SQLite store, got %T", js)
	}

	q, err := OpenQueue(&config.Config{QueueBackend: config.QueueMemory, QueueBuffer: 4, QueueWorkers: 1}, js, testLog)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := q.(*inmemory.Queue); !ok {
		t.Errorf("Expected in-memory queue, got %T", q)
	}
	_ = q.Close()

	if _, err := OpenQueue(&config.Config{QueueBackend: "kafka"}, js, testLog); err == nil {
		t.Error("Expected error for unknown queue")
	}
}

func TestOpenAttachments_Disabled(t *testing.T) {
	svc, cleanup, err := OpenAttachments(context.Background(), &config.Config{}, memory.New(), testLog)
	if err != nil || svc != nil {
		t.Errorf("Expected disabled attachments, got %v (%v)", svc, err)
	}
	if err := cleanup(); err != nil {
		t.Errorf("Unexpected cleanup error: %v", err)
	}
}

func TestNewParser(t *testing.T) {
	cfg := &config.Config{LLMProvider: config.ProviderGemini, GeminiAPIKey: "g-key", GeminiModel: "gemini-x"}
	p := NewParser(cfg, llm.NewGeminiClient(""), memory.New())
	key, err := p.ResolveAPIKey(context.Background(), "u1")
	if err != nil || key != "g-key" {
		t.Errorf("Expected provider fallback key, got %q (%v)", key, err)
	}
}
