package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yungbote/babetranslator-backend/internal/services"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := defaultConfig()
	cfg.Env = "test"
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return cfg
}

func TestNewWiresStubStack(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = true
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, ok := a.caps.Extractor.(services.StubExtractor); !ok {
		t.Fatalf("extractor: %T", a.caps.Extractor)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/users/u1/replies", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	a.Server.Engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("reply: %d %s", rec.Code, rec.Body.String())
	}
	if got := a.Metrics.RepliesTotal("admitted"); got != 1 {
		t.Fatalf("admitted replies: %v", got)
	}
}

func TestNewNoneExtractorAndSQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.Capabilities.Extractor = BackendNone
	cfg.State.Backend = StateSQLite
	cfg.State.SQLitePath = filepath.Join(t.TempDir(), "state.db")
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, ok := a.caps.Extractor.(services.NoExtractor); !ok {
		t.Fatalf("extractor: %T", a.caps.Extractor)
	}
	if statePing(a.Store) == nil {
		t.Fatalf("sqlite store should expose Ping")
	}
	if err := statePing(a.Store)(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTP.Addr = "127.0.0.1:0"
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
