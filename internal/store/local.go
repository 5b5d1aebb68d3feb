package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/cuescore/internal/codec"
	"github.com/park285/cuescore/internal/match"
)

const (
	keyPastGames  = "past_games"
	keyActiveGame = "active_game"
)

// LocalStore persists one device's games as two JSON blobs in a KV.
type LocalStore struct {
	kv        KV
	namespace string
	logger    *zap.Logger

	// serializes read-modify-write of the history blob
	mu sync.Mutex
}

func NewLocalStore(kv KV, namespace string, logger *zap.Logger) *LocalStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalStore{kv: kv, namespace: strings.TrimSpace(namespace), logger: logger}
}

func (s *LocalStore) key(name string) string {
	if s.namespace == "" {
		return name
	}
	return s.namespace + ":" + name
}

func (s *LocalStore) GetActiveGame(ctx context.Context) (*match.ActiveGame, error) {
	raw, err := s.kv.Get(ctx, s.key(keyActiveGame))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load active game: %w", err)
	}
	a, err := codec.DecodeActive(raw)
	if err != nil {
		s.logger.Warn("active_game_decode_failed", zap.Error(err))
		return nil, nil
	}
	return a, nil
}

func (s *LocalStore) SaveActiveGame(ctx context.Context, game *match.ActiveGame) error {
	if game == nil {
		return s.kv.Delete(ctx, s.key(keyActiveGame))
	}
	raw, err := codec.EncodeActive(game)
	if err != nil {
		return fmt.Errorf("encode active game: %w", err)
	}
	return s.kv.Set(ctx, s.key(keyActiveGame), raw)
}

func (s *LocalStore) GetPastGames(ctx context.Context) ([]*match.Game, error) {
	games, err := s.loadGames(ctx)
	if err != nil {
		return nil, err
	}
	sortByDateDesc(games)
	return games, nil
}

// AddGame prepends the record to the history blob.
func (s *LocalStore) AddGame(ctx context.Context, game *match.Game) error {
	if game == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	games, err := s.loadGames(ctx)
	if err != nil {
		return err
	}
	out := make([]*match.Game, 0, len(games)+1)
	out = append(out, game)
	for _, g := range games {
		if g.ID != game.ID {
			out = append(out, g)
		}
	}
	return s.storeGames(ctx, out)
}

func (s *LocalStore) DeleteGame(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	games, err := s.loadGames(ctx)
	if err != nil {
		return err
	}
	out := games[:0]
	for _, g := range games {
		if g.ID != id {
			out = append(out, g)
		}
	}
	return s.storeGames(ctx, out)
}

// loadGames returns the stored history. A corrupt blob degrades to an empty
// history; records that fail validation are skipped.
func (s *LocalStore) loadGames(ctx context.Context) ([]*match.Game, error) {
	raw, err := s.kv.Get(ctx, s.key(keyPastGames))
	if errors.Is(err, ErrNotFound) {
		return []*match.Game{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load past games: %w", err)
	}
	games, err := codec.DecodeGames(raw)
	if err != nil {
		s.logger.Warn("past_games_decode_failed", zap.Error(err), zap.Int("kept", len(games)))
	}
	return games, nil
}

func (s *LocalStore) storeGames(ctx context.Context, games []*match.Game) error {
	raw, err := codec.EncodeGames(games)
	if err != nil {
		return fmt.Errorf("encode past games: %w", err)
	}
	return s.kv.Set(ctx, s.key(keyPastGames), raw)
}

func sortByDateDesc(games []*match.Game) {
	sort.SliceStable(games, func(i, j int) bool {
		return games[i].Date.After(games[j].Date)
	})
}

var _ Store = (*LocalStore)(nil)
