// Package gateway routes persistence calls to the local or the remote store
// depending on the authentication flag.
package gateway

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/cuescore/internal/match"
	"github.com/park285/cuescore/internal/store"
)

type Route int

const (
	RouteLocal Route = iota
	RouteRemote
)

func (r Route) String() string {
	if r == RouteRemote {
		return "remote"
	}
	return "local"
}

type Gateway struct {
	local  store.Store
	remote store.Store
	logger *zap.Logger

	mu            sync.RWMutex
	authenticated bool
}

// New builds a gateway. remote may be nil, in which case every call stays local.
func New(local, remote store.Store, authenticated bool, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{local: local, remote: remote, authenticated: authenticated, logger: logger}
}

func (g *Gateway) SetAuthenticated(v bool) {
	g.mu.Lock()
	g.authenticated = v
	g.mu.Unlock()
}

func (g *Gateway) Authenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.authenticated
}

// Route reports where a call issued now would go.
func (g *Gateway) Route() Route {
	if g.remote != nil && g.Authenticated() {
		return RouteRemote
	}
	return RouteLocal
}

func (g *Gateway) storeFor(r Route) store.Store {
	if r == RouteRemote && g.remote != nil {
		return g.remote
	}
	return g.local
}

// GetActiveGame loads the in-progress game. Remote failures read as "none".
func (g *Gateway) GetActiveGame(ctx context.Context) (*match.ActiveGame, error) {
	r := g.Route()
	a, err := g.storeFor(r).GetActiveGame(ctx)
	if err != nil && r == RouteRemote {
		g.logger.Warn("remote_read_failed", zap.String("op", "get_active_game"), zap.Stringer("class", store.Classify(err)), zap.Error(err))
		return nil, nil
	}
	return a, err
}

func (g *Gateway) SaveActiveGame(ctx context.Context, game *match.ActiveGame) error {
	return g.saveActiveOn(ctx, g.Route(), game)
}

// saveActiveOn writes to the given route. A remote write rejected for auth,
// policy, permission or transport reasons is written locally instead; any
// other remote error is returned.
func (g *Gateway) saveActiveOn(ctx context.Context, r Route, game *match.ActiveGame) error {
	if r == RouteLocal {
		return g.local.SaveActiveGame(ctx, game)
	}
	err := g.storeFor(r).SaveActiveGame(ctx, game)
	if err == nil {
		return nil
	}
	if !store.Recoverable(err) {
		return err
	}
	g.logger.Warn("active_game_save_fallback",
		zap.Stringer("class", store.Classify(err)),
		zap.Bool("clear", game == nil),
		zap.Error(err),
	)
	return g.local.SaveActiveGame(ctx, game)
}

// GetPastGames loads the history. Remote failures read as an empty history.
func (g *Gateway) GetPastGames(ctx context.Context) ([]*match.Game, error) {
	r := g.Route()
	games, err := g.storeFor(r).GetPastGames(ctx)
	if err != nil && r == RouteRemote {
		g.logger.Warn("remote_read_failed", zap.String("op", "get_past_games"), zap.Stringer("class", store.Classify(err)), zap.Error(err))
		return []*match.Game{}, nil
	}
	return games, err
}

func (g *Gateway) AddGame(ctx context.Context, game *match.Game) error {
	return g.storeFor(g.Route()).AddGame(ctx, game)
}

func (g *Gateway) DeleteGame(ctx context.Context, id string) error {
	return g.storeFor(g.Route()).DeleteGame(ctx, id)
}

var _ store.Store = (*Gateway)(nil)
