package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cuescore/internal/adapter/scorepresenter"
	"github.com/park285/cuescore/internal/config"
	"github.com/park285/cuescore/internal/match"
	"github.com/park285/cuescore/internal/scorebuilder"
)

func TestParseNew(t *testing.T) {
	cases := []struct {
		in   string
		ok   bool
		want match.Config
	}{
		{"race 5 alice bob", true, match.Config{Mode: match.ModeRace, Target: 5, PlayerOne: "alice", PlayerTwo: "bob"}},
		{"sets 3 alice bob 2", true, match.Config{Mode: match.ModeSets, Target: 3, SetsToWin: 2, PlayerOne: "alice", PlayerTwo: "bob"}},
		{"free alice bob", true, match.Config{Mode: match.ModeFree, PlayerOne: "alice", PlayerTwo: "bob"}},
		{"free 5 alice bob", false, match.Config{}},
		{"race x alice bob", false, match.Config{}},
		{"race 0 alice bob", false, match.Config{}},
		{"snooker 5 alice bob", false, match.Config{}},
		{"race 5 alice", false, match.Config{}},
	}
	for _, c := range cases {
		got, err := parseNew(strings.Fields(c.in))
		if (err == nil) != c.ok {
			t.Fatalf("parseNew(%q) err = %v", c.in, err)
		}
		if c.ok && (got.Mode != c.want.Mode || got.Target != c.want.Target || got.SetsToWin != c.want.SetsToWin ||
			got.PlayerOne != c.want.PlayerOne || got.PlayerTwo != c.want.PlayerTwo) {
			t.Fatalf("parseNew(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestShellSession(t *testing.T) {
	deps, err := scorebuilder.New(context.Background(), &config.AppConfig{
		LocalBackend:    config.LocalMemory,
		RemoteBackend:   config.RemoteNone,
		AutosaveTimeout: time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer deps.Close()

	var out bytes.Buffer
	sh := &shell{
		deps:      deps,
		formatter: scorepresenter.NewFormatter(deps.Catalog),
		presenter: scorepresenter.WriterPresenter(&out),
		logger:    zap.NewNop(),
	}
	ctx := context.Background()
	for _, line := range []string{"new race 2 alice bob", "+ alice", "miss bob", "+ carol", "end", "tally Alice", "login tok"} {
		if sh.handle(ctx, line) {
			t.Fatalf("%q should not exit", line)
		}
	}
	text := out.String()
	for _, want := range []string{
		"Alice 0 : 0 Bob",
		"Alice 2 : 0 Bob",
		"That player is not in this match.",
		"Alice beat Bob 2-0",
		"Alice: 1 played, 1 won, 0 lost, 0 drawn",
		"No remote store is configured",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
	if !sh.handle(ctx, "quit") {
		t.Fatalf("quit should exit")
	}
}
