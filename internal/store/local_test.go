package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/cuescore/internal/match"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sq, err := OpenSQLiteKV(filepath.Join(t.TempDir(), "cuescore.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteKV: %v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })

	return map[string]KV{
		"memory": NewMemoryKV(),
		"redis":  NewRedisKV(rdb),
		"sqlite": sq,
	}
}

func game(id string, date time.Time) *match.Game {
	return &match.Game{
		ID: id, PlayerOne: "alice", PlayerTwo: "bob", P1Score: 3, P2Score: 1,
		Target: 3, Mode: match.ModeRace, Winner: "alice",
		Date: date, StartTime: date.Add(-time.Minute), EndTime: date,
		Frames: []match.Frame{{Time: date, Player: "alice", Delta: 1, P1Score: 1}},
	}
}

func TestLocalStore_ActiveGame(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewLocalStore(kv, "test", nil)

			got, err := s.GetActiveGame(ctx)
			if err != nil || got != nil {
				t.Fatalf("empty store: got %+v, %v", got, err)
			}

			a := &match.ActiveGame{ID: "a1", PlayerOne: "alice", PlayerTwo: "bob", P1Score: 2, Mode: match.ModeRace, Target: 5, BreakPlayer: "bob"}
			if err := s.SaveActiveGame(ctx, a); err != nil {
				t.Fatalf("SaveActiveGame: %v", err)
			}
			got, err = s.GetActiveGame(ctx)
			if err != nil || got == nil || got.ID != "a1" || got.P1Score != 2 || got.BreakPlayer != "bob" {
				t.Fatalf("reload: got %+v, %v", got, err)
			}

			if err := s.SaveActiveGame(ctx, nil); err != nil {
				t.Fatalf("clear: %v", err)
			}
			if got, _ := s.GetActiveGame(ctx); got != nil {
				t.Fatalf("active game should be cleared, got %+v", got)
			}
		})
	}
}

func TestLocalStore_History(t *testing.T) {
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewLocalStore(kv, "", nil)

			if games, err := s.GetPastGames(ctx); err != nil || len(games) != 0 {
				t.Fatalf("empty history: %v, %v", games, err)
			}
			_ = s.AddGame(ctx, game("old", base))
			_ = s.AddGame(ctx, game("new", base.Add(time.Hour)))
			_ = s.AddGame(ctx, game("mid", base.Add(30*time.Minute)))

			games, err := s.GetPastGames(ctx)
			if err != nil {
				t.Fatalf("GetPastGames: %v", err)
			}
			if len(games) != 3 || games[0].ID != "new" || games[1].ID != "mid" || games[2].ID != "old" {
				t.Fatalf("history should be date desc, got %v", ids(games))
			}

			if err := s.DeleteGame(ctx, "mid"); err != nil {
				t.Fatalf("DeleteGame: %v", err)
			}
			if err := s.DeleteGame(ctx, "missing"); err != nil {
				t.Fatalf("DeleteGame missing: %v", err)
			}
			games, _ = s.GetPastGames(ctx)
			if len(games) != 2 || games[0].ID != "new" || games[1].ID != "old" {
				t.Fatalf("after delete: %v", ids(games))
			}
		})
	}
}

func TestLocalStore_CorruptBlobs(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	_ = kv.Set(ctx, keyPastGames, []byte("{oops"))
	_ = kv.Set(ctx, keyActiveGame, []byte("not json"))
	s := NewLocalStore(kv, "", nil)

	games, err := s.GetPastGames(ctx)
	if err != nil || len(games) != 0 {
		t.Fatalf("corrupt history should read as empty, got %v, %v", games, err)
	}
	a, err := s.GetActiveGame(ctx)
	if err != nil || a != nil {
		t.Fatalf("corrupt active game should read as none, got %+v, %v", a, err)
	}
	if err := s.AddGame(ctx, game("g1", time.Now())); err != nil {
		t.Fatalf("AddGame over corrupt blob: %v", err)
	}
	if games, _ := s.GetPastGames(ctx); len(games) != 1 {
		t.Fatalf("history should recover, got %d", len(games))
	}
}

func TestLocalStore_Namespace(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	a := NewLocalStore(kv, "dev-a", nil)
	b := NewLocalStore(kv, "dev-b", nil)
	_ = a.AddGame(ctx, game("g1", time.Now()))
	if games, _ := b.GetPastGames(ctx); len(games) != 0 {
		t.Fatalf("namespaces must not share history")
	}
	if _, err := kv.Get(ctx, "dev-a:past_games"); err != nil {
		t.Fatalf("expected namespaced key: %v", err)
	}
}

func ids(games []*match.Game) []string {
	out := make([]string, 0, len(games))
	for _, g := range games {
		out = append(out, g.ID)
	}
	return out
}
