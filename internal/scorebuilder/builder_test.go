package scorebuilder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/park285/cuescore/internal/config"
	"github.com/park285/cuescore/internal/gateway"
	"github.com/park285/cuescore/internal/match"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{
		LocalBackend:    config.LocalMemory,
		RemoteBackend:   config.RemoteNone,
		RemoteTimeout:   time.Second,
		AutosaveTimeout: time.Second,
	}
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestNewMemoryStaysLocal(t *testing.T) {
	cfg := baseConfig()
	cfg.AuthToken = "ignored-without-remote"
	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if d.Remote != nil || d.Gateway.Route() != gateway.RouteLocal {
		t.Fatalf("memory build should route locally")
	}
	if d.Catalog == nil || len(d.Catalog.Keys()) == 0 {
		t.Fatalf("catalog not loaded")
	}
}

func TestNewSQLitePersistsAcrossBuilds(t *testing.T) {
	cfg := baseConfig()
	cfg.LocalBackend = config.LocalSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "score.db")
	ctx := context.Background()

	d, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := d.Service.Start(ctx, match.Config{PlayerOne: "alice", PlayerTwo: "bob", Mode: match.ModeRace, Target: 3}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := d.Service.Increment(match.PlayerOne); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	d.Close()

	d2, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("second New: %v", err)
	}
	defer d2.Close()
	st, err := d2.Service.Resume(ctx)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if st.Game.P1Score != 1 || st.Game.PlayerOne != "alice" {
		t.Fatalf("resumed game = %+v", st.Game)
	}
}

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.LocalBackend = config.LocalRedis
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.LocalNamespace = "t1"

	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if _, err := d.Service.Start(context.Background(), match.Config{PlayerOne: "a", PlayerTwo: "b", Mode: match.ModeFree}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Service.Abandon(context.Background()); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if mr.Exists("t1:active_game") {
		t.Fatalf("abandon should clear the stored match")
	}
}

func TestNewRedisUnreachable(t *testing.T) {
	cfg := baseConfig()
	cfg.LocalBackend = config.LocalRedis
	cfg.RedisURL = "redis://127.0.0.1:1"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected ping error")
	}
}

func TestNewHTTPRemoteRoutesWithToken(t *testing.T) {
	cfg := baseConfig()
	cfg.RemoteBackend = config.RemoteHTTP
	cfg.RemoteAPIURL = "http://127.0.0.1:1"

	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Remote == nil || d.Gateway.Route() != gateway.RouteLocal {
		t.Fatalf("no token should start local")
	}
	d.Close()

	cfg.AuthToken = "tok"
	d, err = New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if d.Gateway.Route() != gateway.RouteRemote {
		t.Fatalf("token should start remote")
	}
}
