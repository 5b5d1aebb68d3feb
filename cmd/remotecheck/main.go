package main

import (
	"context"
	"errors"
	"log"
	"time"

	appcfg "github.com/park285/cuescore/internal/config"
	"github.com/park285/cuescore/internal/obslog"
	"github.com/park285/cuescore/internal/scorebuilder"
	"github.com/park285/cuescore/internal/store"
)

// remotecheck verifies that the configured remote store accepts AUTH_TOKEN
// and prints what it holds for that user.
func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.RemoteBackend == appcfg.RemoteNone {
		log.Fatal("REMOTE_BACKEND is required (http or postgres)")
	}
	if cfg.AuthToken == "" {
		log.Fatal("AUTH_TOKEN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	deps, err := scorebuilder.New(ctx, cfg, obslog.L())
	if err != nil {
		log.Fatalf("init error: %v", err)
	}
	defer deps.Close()

	active, err := deps.Remote.GetActiveGame(ctx)
	switch {
	case err != nil:
		report("active_games", err)
	case active == nil:
		log.Printf("active_games ok: none")
	default:
		log.Printf("active_games ok: id=%s %s %d-%d %s mode=%s frames=%d",
			active.ID, active.PlayerOne, active.P1Score, active.P2Score, active.PlayerTwo, active.Mode, len(active.Frames))
	}

	games, err := deps.Remote.GetPastGames(ctx)
	if err != nil {
		report("games", err)
		return
	}
	log.Printf("games ok: %d", len(games))
	for i, g := range games {
		if i == 10 {
			log.Printf("... %d more", len(games)-10)
			break
		}
		log.Printf("  %s %s %s %d-%d %s winner=%q", g.Date.Format(time.RFC3339), g.ID, g.PlayerOne, g.P1Score, g.P2Score, g.PlayerTwo, g.Winner)
	}
}

func report(op string, err error) {
	var re *store.RemoteError
	if errors.As(err, &re) {
		log.Printf("%s error: class=%s status=%d code=%s msg=%s", op, re.Class(), re.Status, re.Code, re.Message)
		return
	}
	log.Printf("%s error: class=%s %v", op, store.Classify(err), err)
}
