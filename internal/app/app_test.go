package app

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/vovakirdan/loungecore/internal/auth"
	"github.com/vovakirdan/loungecore/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	hash, err := auth.HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.ShutdownTimeout = time.Second
	cfg.DatabasePath = filepath.Join(t.TempDir(), "lounge.db")
	cfg.Prefetch = true
	cfg.PrefetchStorage = true
	cfg.Accounts = []config.AccountConfig{{
		Name:     "alice",
		Password: hash,
		Log:      true,
		Networks: []config.NetworkConfig{{Name: "libera", Host: "irc.libera.chat", Nick: "alice"}},
	}}
	return cfg
}

func TestNewWiresAccounts(t *testing.T) {
	cfg := testConfig(t)
	logger := zerolog.Nop()

	a, err := New(&cfg, afero.NewMemMapFs(), &logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(a.cleanup)

	if a.store == nil {
		t.Fatalf("expected a database outside public mode")
	}
	if got := len(a.hub.Networks()); got != 1 {
		t.Fatalf("expected one network, got %d", got)
	}

	ts := httptest.NewServer(a.Handler())
	t.Cleanup(ts.Close)

	body, _ := json.Marshal(map[string]string{"account": "alice", "password": "hunter22"})
	resp, err := stdhttp.Post(ts.URL+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("unexpected login status: %d", resp.StatusCode)
	}
}

func TestNewPublicSkipsPersistence(t *testing.T) {
	cfg := testConfig(t)
	cfg.Public = true
	cfg.DatabasePath = ""
	logger := zerolog.Nop()
	fs := afero.NewMemMapFs()

	a, err := New(&cfg, fs, &logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if a.store != nil {
		t.Fatalf("public mode must not open a database")
	}
	if exists, _ := afero.DirExists(fs, cfg.LogsDir); exists {
		t.Fatalf("public mode must not create the log directory")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.LobbyLogTarget = "everywhere"
	logger := zerolog.Nop()

	if _, err := New(&cfg, afero.NewMemMapFs(), &logger); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	logger := zerolog.Nop()

	a, err := New(&cfg, afero.NewMemMapFs(), &logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}
	if a.store != nil {
		t.Fatalf("store was not closed")
	}
}
