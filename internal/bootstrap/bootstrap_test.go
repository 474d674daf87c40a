package bootstrap

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"lumina/internal/config"
	"lumina/internal/fragment"
	"lumina/internal/gateway"
	"lumina/internal/storage"
)

type offlineGateway struct{}

func (offlineGateway) Name() string { return "offline" }
func (offlineGateway) Organize(context.Context, []fragment.Fragment) (gateway.PlanningResult, error) {
	return gateway.PlanningResult{}, errors.New("offline")
}
func (offlineGateway) Brainstorm(context.Context, string) ([]gateway.BrainstormIdea, error) {
	return nil, errors.New("offline")
}
func (offlineGateway) Review(context.Context, []fragment.Fragment) (string, error) {
	return "", errors.New("offline")
}
func (offlineGateway) Chat(context.Context, gateway.ChatRequest) (gateway.ChatStream, error) {
	return nil, io.ErrUnexpectedEOF
}

func testConfig(t *testing.T, backend string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Backend = backend
	cfg.Storage.BaseDir = filepath.Join(t.TempDir(), "data")
	cfg.Locale = "en"
	return cfg
}

func TestBuildMissingAPIKey(t *testing.T) {
	cfg := testConfig(t, "memory")
	_, err := Build(context.Background(), cfg, Options{Logger: zap.NewNop()})
	if !errors.Is(err, config.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t, "redis")
	if _, err := Build(context.Background(), cfg, Options{Gateway: offlineGateway{}, Logger: zap.NewNop()}); err == nil {
		t.Fatal("expected validation error for unknown backend")
	}
}

func TestBuildSQLiteSeedsAndPersists(t *testing.T) {
	cfg := testConfig(t, "sqlite")
	app, err := Build(context.Background(), cfg, Options{Gateway: offlineGateway{}, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer app.Close()

	if app.Manager == nil || app.Metrics == nil {
		t.Fatal("manager or metrics is nil")
	}
	if _, ok := app.KV.(*storage.SQLiteKV); !ok {
		t.Fatalf("KV=%T, want *storage.SQLiteKV", app.KV)
	}
	if app.Fragments.Len() != 5 {
		t.Fatalf("expected seed data, got %d fragments", app.Fragments.Len())
	}
	if _, err := os.Stat(filepath.Join(cfg.Storage.BaseDir, DatabaseFile)); err != nil {
		t.Fatalf("database file missing: %v", err)
	}

	if _, err := app.Manager.AddFragment("persist me"); err != nil {
		t.Fatal(err)
	}
	if err := app.Close(); err != nil {
		t.Fatal(err)
	}

	again, err := Build(context.Background(), cfg, Options{Gateway: offlineGateway{}, Logger: zap.NewNop()})
	if err != nil {
		t.Fatal(err)
	}
	defer again.Close()
	if again.Fragments.Len() != 6 {
		t.Fatalf("expected persisted fragment, got %d", again.Fragments.Len())
	}
}

func TestBuildFallsBackToMemory(t *testing.T) {
	cfg := testConfig(t, "file")
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Storage.BaseDir = filepath.Join(blocker, "sub")

	app, err := Build(context.Background(), cfg, Options{Gateway: offlineGateway{}, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("storage failure should not be fatal: %v", err)
	}
	defer app.Close()
	if _, ok := app.KV.(*storage.MemoryKV); !ok {
		t.Fatalf("KV=%T, want memory fallback", app.KV)
	}
}

func TestFileBackendReloadsExternalWrites(t *testing.T) {
	cfg := testConfig(t, "file")
	app, err := Build(context.Background(), cfg, Options{Gateway: offlineGateway{}, Logger: zap.NewNop()})
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	// 给 watcher 一点时间完成注册
	time.Sleep(50 * time.Millisecond)

	external := `[{"id":"ext-1","content":"written elsewhere","createdAt":1,"tags":[],"type":"fragment"}]`
	other, err := storage.NewFileKV(cfg.Storage.BaseDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := other.Put(fragment.StorageKey, external); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f, ok := app.Fragments.Get("ext-1"); ok && f.Content == "written elsewhere" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("external write not picked up, have %d fragments", app.Fragments.Len())
}

func TestGatewayConfigMapping(t *testing.T) {
	cfg := config.Default()
	cfg.Provider.Name = "openai"
	cfg.Provider.APIKey = "k"
	cfg.Provider.TimeoutMS = 1500
	cfg.Provider.Models.Brainstorm = "gpt-4o"

	got := gatewayConfig(cfg)
	if got.Provider != "openai" || got.APIKey != "k" || got.Timeout != 1500*time.Millisecond || got.Models.Brainstorm != "gpt-4o" {
		t.Fatalf("unexpected gateway config: %+v", got)
	}
}
