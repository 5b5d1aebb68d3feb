// Package store holds the persistence contract shared by the local and remote
// adapters, the local key/value implementation and the remote error taxonomy.
package store

import (
	"context"

	"github.com/park285/cuescore/internal/match"
)

// Store is implemented by every persistence adapter.
// GetActiveGame returns (nil, nil) when nothing is in progress.
// SaveActiveGame with a nil game clears the in-progress record.
type Store interface {
	GetActiveGame(ctx context.Context) (*match.ActiveGame, error)
	SaveActiveGame(ctx context.Context, game *match.ActiveGame) error
	GetPastGames(ctx context.Context) ([]*match.Game, error)
	AddGame(ctx context.Context, game *match.Game) error
	DeleteGame(ctx context.Context, id string) error
}
