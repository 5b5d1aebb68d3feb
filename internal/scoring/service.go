// Package scoring runs a live match: it owns the engine and the history
// cache, pushes every change to the autosaver and records finished matches.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/park285/cuescore/internal/gateway"
	"github.com/park285/cuescore/internal/match"
	"github.com/park285/cuescore/internal/names"
)

var (
	ErrNoActiveMatch   = errors.New("no match in progress")
	ErrMatchInProgress = errors.New("match already in progress")
	ErrUnknownPlayer   = errors.New("player is not in this match")
	ErrGameNotFound    = errors.New("game not found")
)

type Config struct {
	AutosaveTimeout time.Duration
	Now             func() time.Time
}

// State is what callers see after each operation.
type State struct {
	Game      *match.ActiveGame
	Outcome   match.Outcome
	BreakSide match.Side
	// frames of the running set (sets mode)
	SetFrames int
	Changed   bool
}

type Tally struct {
	Player string
	Played int
	Wins   int
	Losses int
	Draws  int
}

type Service struct {
	gw     *gateway.Gateway
	saver  *gateway.Autosaver
	now    func() time.Time
	logger *zap.Logger

	mu            sync.Mutex
	engine        *match.Engine
	history       []*match.Game
	historyLoaded bool
}

func NewService(gw *gateway.Gateway, cfg Config, logger *zap.Logger) (*Service, error) {
	if gw == nil {
		return nil, fmt.Errorf("persistence gateway is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		gw:     gw,
		saver:  gateway.NewAutosaver(gw, cfg.AutosaveTimeout, logger.Named("autosave")),
		now:    now,
		logger: logger,
	}, nil
}

// Close flushes pending writes and stops the autosaver.
func (s *Service) Close() {
	s.saver.Close()
}

// Start begins a new match. An unfinished match must be ended or abandoned first.
func (s *Service) Start(ctx context.Context, cfg match.Config) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine != nil && !s.engine.Finished() {
		return nil, ErrMatchInProgress
	}
	if cfg.Now == nil {
		cfg.Now = s.now
	}
	e, err := match.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	s.engine = e
	s.logger.Info("match_start",
		zap.String("id", e.ID()),
		zap.String("mode", string(e.Mode())),
		zap.String("player_one", e.Player(match.PlayerOne)),
		zap.String("player_two", e.Player(match.PlayerTwo)),
	)
	s.saver.Submit(e.Snapshot())
	return s.stateLocked(true), nil
}

// Resume loads the stored in-progress match, if any.
func (s *Service) Resume(ctx context.Context) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine != nil && !s.engine.Finished() {
		return s.stateLocked(false), nil
	}
	a, err := s.gw.GetActiveGame(ctx)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNoActiveMatch
	}
	e, err := match.Resume(a, s.now)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", a.ID, err)
	}
	s.engine = e
	return s.stateLocked(false), nil
}

// Status returns the current match without changing it.
func (s *Service) Status() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return nil, ErrNoActiveMatch
	}
	return s.stateLocked(false), nil
}

func (s *Service) Increment(side match.Side) (*State, error) {
	return s.mutate(func(e *match.Engine) bool { return e.Increment(side) })
}

func (s *Service) Decrement(side match.Side) (*State, error) {
	return s.mutate(func(e *match.Engine) bool { return e.Decrement(side) })
}

func (s *Service) SpecialScore(side match.Side) (*State, error) {
	return s.mutate(func(e *match.Engine) bool { return e.SpecialScore(side) })
}

func (s *Service) Miss(side match.Side) (*State, error) {
	return s.mutate(func(e *match.Engine) bool { return e.Miss(side) })
}

func (s *Service) TrickShotBlack(side match.Side) (*State, error) {
	return s.mutate(func(e *match.Engine) bool { return e.TrickShotBlack(side) })
}

func (s *Service) StartNextSet() (*State, error) {
	return s.mutate(func(e *match.Engine) bool { return e.StartNextSet() })
}

func (s *Service) AssignBalls(p1, p2 match.BallColor) (*State, error) {
	return s.mutate(func(e *match.Engine) bool {
		e.AssignBalls(p1, p2)
		return true
	})
}

// SideOf resolves a player name against the current match.
func (s *Service) SideOf(name string) (match.Side, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return match.NoSide, ErrNoActiveMatch
	}
	side := s.engine.SideOf(name)
	if side == match.NoSide {
		return match.NoSide, fmt.Errorf("%w: %q", ErrUnknownPlayer, name)
	}
	return side, nil
}

func (s *Service) mutate(fn func(*match.Engine) bool) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil || s.engine.Finished() {
		return nil, ErrNoActiveMatch
	}
	changed := fn(s.engine)
	if changed {
		s.saver.Submit(s.engine.Snapshot())
	}
	return s.stateLocked(changed), nil
}

// EndMatch finalizes the match. A match with nothing recorded returns a nil
// game; either way the in-progress record is cleared.
func (s *Service) EndMatch(ctx context.Context) (*match.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return nil, ErrNoActiveMatch
	}
	if err := s.saver.Flush(ctx); err != nil {
		s.logger.Warn("autosave_flush_failed", zap.Error(err))
	}
	before := s.engine.Snapshot()
	game, ok := s.engine.Finalize()
	if ok {
		if err := s.gw.AddGame(ctx, game); err != nil {
			// reopen so the caller can retry
			if e, rerr := match.Resume(before, s.now); rerr == nil {
				s.engine = e
			}
			return nil, fmt.Errorf("store finished match: %w", err)
		}
		if s.historyLoaded {
			s.history = append([]*match.Game{game}, s.history...)
		}
		s.logger.Info("match_finalize",
			zap.String("id", game.ID),
			zap.String("winner", game.Winner),
			zap.Int("p1", game.P1Score),
			zap.Int("p2", game.P2Score),
			zap.Int("frames", len(game.Frames)),
		)
	} else {
		s.logger.Info("match_discarded", zap.String("id", s.engine.ID()))
	}
	s.engine = nil
	if err := s.gw.SaveActiveGame(ctx, nil); err != nil {
		return game, fmt.Errorf("clear active match: %w", err)
	}
	return game, nil
}

// Abandon drops the current match without recording it.
func (s *Service) Abandon(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return ErrNoActiveMatch
	}
	if err := s.saver.Flush(ctx); err != nil {
		s.logger.Warn("autosave_flush_failed", zap.Error(err))
	}
	s.logger.Info("match_abandon", zap.String("id", s.engine.ID()))
	s.engine = nil
	return s.gw.SaveActiveGame(ctx, nil)
}

// History returns finished games, newest first.
func (s *Service) History(ctx context.Context) ([]*match.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadHistoryLocked(ctx); err != nil {
		return nil, err
	}
	out := make([]*match.Game, 0, len(s.history))
	for _, g := range s.history {
		out = append(out, g.Clone())
	}
	return out, nil
}

func (s *Service) loadHistoryLocked(ctx context.Context) error {
	if s.historyLoaded {
		return nil
	}
	games, err := s.gw.GetPastGames(ctx)
	if err != nil {
		return err
	}
	s.history = games
	s.historyLoaded = true
	return nil
}

func (s *Service) DeleteGame(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadHistoryLocked(ctx); err != nil {
		return err
	}
	idx := -1
	for i, g := range s.history {
		if g.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrGameNotFound
	}
	if err := s.gw.DeleteGame(ctx, id); err != nil {
		return err
	}
	s.history = append(s.history[:idx:idx], s.history[idx+1:]...)
	return nil
}

// Tally counts wins, losses and draws for one player over the history.
func (s *Service) Tally(ctx context.Context, name string) (*Tally, error) {
	games, err := s.History(ctx)
	if err != nil {
		return nil, err
	}
	return tally(games, name), nil
}

func tally(games []*match.Game, name string) *Tally {
	who := names.Canonical(name)
	t := &Tally{Player: who}
	for _, g := range games {
		if !names.Same(g.PlayerOne, who) && !names.Same(g.PlayerTwo, who) {
			continue
		}
		t.Played++
		switch {
		case g.IsDraw():
			t.Draws++
		case names.Same(g.Winner, who):
			t.Wins++
		default:
			t.Losses++
		}
	}
	return t
}

// SetAuthenticated switches persistence between local and remote. Signing
// out drops the cached match and history; signing in reloads both.
func (s *Service) SetAuthenticated(ctx context.Context, authenticated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saver.Flush(ctx); err != nil {
		s.logger.Warn("autosave_flush_failed", zap.Error(err))
	}
	s.gw.SetAuthenticated(authenticated)
	s.engine = nil
	s.history = nil
	s.historyLoaded = false
	if !authenticated {
		s.logger.Info("auth_signed_out")
		return nil
	}

	var (
		active *match.ActiveGame
		games  []*match.Game
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.gw.GetActiveGame(gCtx)
		active = a
		return err
	})
	g.Go(func() error {
		list, err := s.gw.GetPastGames(gCtx)
		games = list
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("reload after sign-in: %w", err)
	}

	s.history = games
	s.historyLoaded = true
	if active != nil {
		e, err := match.Resume(active, s.now)
		if err != nil {
			s.logger.Warn("active_game_resume_failed", zap.String("id", active.ID), zap.Error(err))
		} else {
			s.engine = e
		}
	}
	s.logger.Info("auth_signed_in", zap.Bool("active", s.engine != nil), zap.Int("history", len(games)))
	return nil
}

func (s *Service) stateLocked(changed bool) *State {
	e := s.engine
	return &State{
		Game:      e.Snapshot(),
		Outcome:   e.Outcome(),
		BreakSide: e.BreakSide(),
		SetFrames: len(e.CurrentSetFrames()),
		Changed:   changed,
	}
}
