// Package codec converts match state to and from the storage shape shared by
// the local and remote stores: timestamps as epoch milliseconds, enums as
// their string names, optional fields as JSON nulls.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cuescore/internal/match"
)

var ErrUnknownMode = errors.New("unknown game mode")

type StoredFrame struct {
	Timestamp      int64   `json:"timestamp"`
	Player         string  `json:"player"`
	ScoreChange    int     `json:"score_change"`
	PlayerOneScore int     `json:"player_one_score"`
	PlayerTwoScore int     `json:"player_two_score"`
	Tag            *string `json:"tag,omitempty"`
}

type StoredSet struct {
	SetNumber      int           `json:"set_number"`
	PlayerOneScore int           `json:"player_one_score"`
	PlayerTwoScore int           `json:"player_two_score"`
	Winner         *string       `json:"winner"`
	Frames         []StoredFrame `json:"frames"`
}

type StoredKillerPlayer struct {
	Name         string `json:"name"`
	Lives        int    `json:"lives"`
	EliminatedAt int64  `json:"eliminated_at,omitempty"`
}

type StoredKiller struct {
	StartingLives int                  `json:"starting_lives"`
	Players       []StoredKillerPlayer `json:"players"`
}

// StoredActiveGame is the persisted in-progress match.
type StoredActiveGame struct {
	ID                string        `json:"id"`
	PlayerOne         string        `json:"player_one"`
	PlayerTwo         string        `json:"player_two"`
	PlayerOneScore    int           `json:"player_one_score"`
	PlayerTwoScore    int           `json:"player_two_score"`
	PlayerOneGamesWon int           `json:"player_one_games_won"`
	PlayerTwoGamesWon int           `json:"player_two_games_won"`
	GamesPlayed       int           `json:"games_played,omitempty"`
	PlayerOneSetsWon  int           `json:"player_one_sets_won"`
	PlayerTwoSetsWon  int           `json:"player_two_sets_won"`
	Mode              string        `json:"game_mode"`
	TargetValue       int           `json:"target_value"`
	SetsToWin         int           `json:"sets_to_win,omitempty"`
	StartTime         int64         `json:"start_time"`
	FrameHistory      []StoredFrame `json:"frame_history"`
	CompletedSets     []StoredSet   `json:"completed_sets"`
	BreakPlayer       string        `json:"break_player"`
	PlayerOneBall     *string       `json:"player_one_ball"`
	PlayerTwoBall     *string       `json:"player_two_ball"`
}

// StoredGame is the persisted completed match.
type StoredGame struct {
	ID               string        `json:"id"`
	PlayerOne        string        `json:"player_one"`
	PlayerTwo        string        `json:"player_two"`
	PlayerOneScore   int           `json:"player_one_score"`
	PlayerTwoScore   int           `json:"player_two_score"`
	TargetValue      int           `json:"target_value"`
	Mode             string        `json:"game_mode"`
	Winner           *string       `json:"winner"`
	Date             int64         `json:"date"`
	StartTime        int64         `json:"start_time"`
	EndTime          int64         `json:"end_time"`
	FrameHistory     []StoredFrame `json:"frame_history"`
	PlayerOneSetsWon int           `json:"player_one_sets_won"`
	PlayerTwoSetsWon int           `json:"player_two_sets_won"`
	Sets             []StoredSet   `json:"sets"`
	BreakPlayer      string        `json:"break_player"`
	Killer           *StoredKiller `json:"killer,omitempty"`
}

func ToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func FromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func FromFrame(f match.Frame) StoredFrame {
	return StoredFrame{
		Timestamp:      ToMillis(f.Time),
		Player:         f.Player,
		ScoreChange:    f.Delta,
		PlayerOneScore: f.P1Score,
		PlayerTwoScore: f.P2Score,
		Tag:            optString(string(f.Tag)),
	}
}

// ToFrame converts a stored frame. Unrecognized tags are dropped, not rejected.
func (s StoredFrame) ToFrame() match.Frame {
	tag, _ := match.ParseShotTag(derefString(s.Tag))
	return match.Frame{
		Time:    FromMillis(s.Timestamp),
		Player:  s.Player,
		Delta:   s.ScoreChange,
		P1Score: s.PlayerOneScore,
		P2Score: s.PlayerTwoScore,
		Tag:     tag,
	}
}

func fromFrames(in []match.Frame) []StoredFrame {
	out := make([]StoredFrame, 0, len(in))
	for _, f := range in {
		out = append(out, FromFrame(f))
	}
	return out
}

func toFrames(in []StoredFrame) []match.Frame {
	if len(in) == 0 {
		return nil
	}
	out := make([]match.Frame, 0, len(in))
	for _, f := range in {
		out = append(out, f.ToFrame())
	}
	return out
}

func fromSets(in []match.Set) []StoredSet {
	out := make([]StoredSet, 0, len(in))
	for _, s := range in {
		out = append(out, StoredSet{
			SetNumber:      s.Number,
			PlayerOneScore: s.P1Score,
			PlayerTwoScore: s.P2Score,
			Winner:         optString(s.Winner),
			Frames:         fromFrames(s.Frames),
		})
	}
	return out
}

func toSets(in []StoredSet) []match.Set {
	if len(in) == 0 {
		return nil
	}
	out := make([]match.Set, 0, len(in))
	for _, s := range in {
		out = append(out, match.Set{
			Number:  s.SetNumber,
			P1Score: s.PlayerOneScore,
			P2Score: s.PlayerTwoScore,
			Winner:  derefString(s.Winner),
			Frames:  toFrames(s.Frames),
		})
	}
	return out
}

func parseMode(s string) (match.Mode, error) {
	m, ok := match.ParseMode(s)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

// parseBall drops unrecognized colours; the assignment is optional.
func parseBall(s *string) match.BallColor {
	c, _ := match.ParseBallColor(derefString(s))
	return c
}

func FromActive(a *match.ActiveGame) *StoredActiveGame {
	if a == nil {
		return nil
	}
	return &StoredActiveGame{
		ID:                a.ID,
		PlayerOne:         a.PlayerOne,
		PlayerTwo:         a.PlayerTwo,
		PlayerOneScore:    a.P1Score,
		PlayerTwoScore:    a.P2Score,
		PlayerOneGamesWon: a.P1GamesWon,
		PlayerTwoGamesWon: a.P2GamesWon,
		GamesPlayed:       a.GamesPlayed,
		PlayerOneSetsWon:  a.P1SetsWon,
		PlayerTwoSetsWon:  a.P2SetsWon,
		Mode:              string(a.Mode),
		TargetValue:       a.Target,
		SetsToWin:         a.SetsToWin,
		StartTime:         ToMillis(a.StartTime),
		FrameHistory:      fromFrames(a.Frames),
		CompletedSets:     fromSets(a.Sets),
		BreakPlayer:       a.BreakPlayer,
		PlayerOneBall:     optString(string(a.P1Ball)),
		PlayerTwoBall:     optString(string(a.P2Ball)),
	}
}

func (s *StoredActiveGame) ToActive() (*match.ActiveGame, error) {
	if s == nil {
		return nil, nil
	}
	mode, err := parseMode(s.Mode)
	if err != nil {
		return nil, err
	}
	return &match.ActiveGame{
		ID:          s.ID,
		PlayerOne:   s.PlayerOne,
		PlayerTwo:   s.PlayerTwo,
		P1Score:     s.PlayerOneScore,
		P2Score:     s.PlayerTwoScore,
		P1GamesWon:  s.PlayerOneGamesWon,
		P2GamesWon:  s.PlayerTwoGamesWon,
		GamesPlayed: s.GamesPlayed,
		P1SetsWon:   s.PlayerOneSetsWon,
		P2SetsWon:   s.PlayerTwoSetsWon,
		Mode:        mode,
		Target:      s.TargetValue,
		SetsToWin:   s.SetsToWin,
		StartTime:   FromMillis(s.StartTime),
		Frames:      toFrames(s.FrameHistory),
		Sets:        toSets(s.CompletedSets),
		BreakPlayer: s.BreakPlayer,
		P1Ball:      parseBall(s.PlayerOneBall),
		P2Ball:      parseBall(s.PlayerTwoBall),
	}, nil
}

func FromGame(g *match.Game) *StoredGame {
	if g == nil {
		return nil
	}
	out := &StoredGame{
		ID:               g.ID,
		PlayerOne:        g.PlayerOne,
		PlayerTwo:        g.PlayerTwo,
		PlayerOneScore:   g.P1Score,
		PlayerTwoScore:   g.P2Score,
		TargetValue:      g.Target,
		Mode:             string(g.Mode),
		Winner:           optString(g.Winner),
		Date:             ToMillis(g.Date),
		StartTime:        ToMillis(g.StartTime),
		EndTime:          ToMillis(g.EndTime),
		FrameHistory:     fromFrames(g.Frames),
		PlayerOneSetsWon: g.P1SetsWon,
		PlayerTwoSetsWon: g.P2SetsWon,
		Sets:             fromSets(g.Sets),
		BreakPlayer:      g.BreakPlayer,
	}
	if k := g.Killer; k != nil {
		sk := &StoredKiller{StartingLives: k.StartingLives}
		for _, p := range k.Players {
			sk.Players = append(sk.Players, StoredKillerPlayer{Name: p.Name, Lives: p.Lives, EliminatedAt: ToMillis(p.EliminatedAt)})
		}
		out.Killer = sk
	}
	return out
}

func (s *StoredGame) ToGame() (*match.Game, error) {
	if s == nil {
		return nil, nil
	}
	mode, err := parseMode(s.Mode)
	if err != nil {
		return nil, err
	}
	g := &match.Game{
		ID:          s.ID,
		PlayerOne:   s.PlayerOne,
		PlayerTwo:   s.PlayerTwo,
		P1Score:     s.PlayerOneScore,
		P2Score:     s.PlayerTwoScore,
		Target:      s.TargetValue,
		Mode:        mode,
		Winner:      derefString(s.Winner),
		Date:        FromMillis(s.Date),
		StartTime:   FromMillis(s.StartTime),
		EndTime:     FromMillis(s.EndTime),
		Frames:      toFrames(s.FrameHistory),
		P1SetsWon:   s.PlayerOneSetsWon,
		P2SetsWon:   s.PlayerTwoSetsWon,
		Sets:        toSets(s.Sets),
		BreakPlayer: s.BreakPlayer,
	}
	if k := s.Killer; k != nil {
		kr := &match.KillerResult{StartingLives: k.StartingLives}
		for _, p := range k.Players {
			kr.Players = append(kr.Players, match.KillerPlayer{Name: p.Name, Lives: p.Lives, EliminatedAt: FromMillis(p.EliminatedAt)})
		}
		g.Killer = kr
	}
	return g, nil
}

func EncodeActive(a *match.ActiveGame) ([]byte, error) {
	if a == nil {
		return nil, errors.New("nil active game")
	}
	return json.Marshal(FromActive(a))
}

func DecodeActive(raw []byte) (*match.ActiveGame, error) {
	var s StoredActiveGame
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode active game: %w", err)
	}
	return s.ToActive()
}

func EncodeGame(g *match.Game) ([]byte, error) {
	if g == nil {
		return nil, errors.New("nil game")
	}
	return json.Marshal(FromGame(g))
}

func DecodeGame(raw []byte) (*match.Game, error) {
	var s StoredGame
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode game: %w", err)
	}
	return s.ToGame()
}

func EncodeGames(games []*match.Game) ([]byte, error) {
	out := make([]*StoredGame, 0, len(games))
	for _, g := range games {
		if g == nil {
			continue
		}
		out = append(out, FromGame(g))
	}
	return json.Marshal(out)
}

// DecodeGames decodes a history blob. A corrupt blob yields an empty history
// and the decode error; records with an unknown mode are skipped and reported.
func DecodeGames(raw []byte) ([]*match.Game, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []*match.Game{}, fmt.Errorf("decode game history: %w", err)
	}
	games := make([]*match.Game, 0, len(items))
	var errs []error
	for i, item := range items {
		g, err := DecodeGame(item)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		if g != nil {
			games = append(games, g)
		}
	}
	return games, errors.Join(errs...)
}
