package match

import (
	"strings"
	"time"
)

// Mode selects the scoring rules of a match.
type Mode string

const (
	ModeRace   Mode = "race"
	ModeSets   Mode = "sets"
	ModeBestOf Mode = "bestof"
	ModeFree   Mode = "free"
	ModeKiller Mode = "killer"
)

func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeRace:
		return ModeRace, true
	case ModeSets:
		return ModeSets, true
	case ModeBestOf:
		return ModeBestOf, true
	case ModeFree:
		return ModeFree, true
	case ModeKiller:
		return ModeKiller, true
	default:
		return "", false
	}
}

// ShotTag classifies a frame. The zero value means unclassified.
type ShotTag string

const (
	TagNone             ShotTag = ""
	TagBreakClearance   ShotTag = "break_clearance"
	TagReverseClearance ShotTag = "reverse_clearance"
	TagMiss             ShotTag = "miss"
	TagTrickShotBlack   ShotTag = "trick_shot_black"
)

func ParseShotTag(s string) (ShotTag, bool) {
	switch ShotTag(strings.ToLower(strings.TrimSpace(s))) {
	case TagBreakClearance:
		return TagBreakClearance, true
	case TagReverseClearance:
		return TagReverseClearance, true
	case TagMiss:
		return TagMiss, true
	case TagTrickShotBlack:
		return TagTrickShotBlack, true
	default:
		return TagNone, false
	}
}

// BallColor is a player's group assignment. Carried through, never scored.
type BallColor string

const (
	BallNone    BallColor = ""
	BallRed     BallColor = "red"
	BallYellow  BallColor = "yellow"
	BallSpots   BallColor = "spots"
	BallStripes BallColor = "stripes"
)

func ParseBallColor(s string) (BallColor, bool) {
	switch BallColor(strings.ToLower(strings.TrimSpace(s))) {
	case BallRed:
		return BallRed, true
	case BallYellow:
		return BallYellow, true
	case BallSpots:
		return BallSpots, true
	case BallStripes:
		return BallStripes, true
	default:
		return BallNone, false
	}
}

// Side identifies one of the two seats in a match.
type Side int

const (
	NoSide Side = iota
	PlayerOne
	PlayerTwo
)

func (s Side) Other() Side {
	switch s {
	case PlayerOne:
		return PlayerTwo
	case PlayerTwo:
		return PlayerOne
	default:
		return NoSide
	}
}

func (s Side) String() string {
	switch s {
	case PlayerOne:
		return "player_one"
	case PlayerTwo:
		return "player_two"
	default:
		return "none"
	}
}

// Frame is one scoring event. P1Score/P2Score hold the totals after Delta was applied.
// Player is the canonical name of the side whose score changed.
type Frame struct {
	Time    time.Time
	Player  string
	Delta   int
	P1Score int
	P2Score int
	Tag     ShotTag
}

// Set is a finalized sub-match of a sets-mode game. Winner is empty for a tied set.
type Set struct {
	Number  int
	P1Score int
	P2Score int
	Winner  string
	Frames  []Frame
}

func (s Set) clone() Set {
	s.Frames = cloneFrames(s.Frames)
	return s
}

// ActiveGame is the mutable in-progress match. At most one exists per user.
type ActiveGame struct {
	ID          string
	PlayerOne   string
	PlayerTwo   string
	P1Score     int
	P2Score     int
	P1GamesWon  int
	P2GamesWon  int
	GamesPlayed int
	P1SetsWon   int
	P2SetsWon   int
	Mode        Mode
	Target      int
	SetsToWin   int
	StartTime   time.Time
	Frames      []Frame
	Sets        []Set
	BreakPlayer string
	P1Ball      BallColor
	P2Ball      BallColor
}

func (a *ActiveGame) Clone() *ActiveGame {
	if a == nil {
		return nil
	}
	c := *a
	c.Frames = cloneFrames(a.Frames)
	c.Sets = cloneSets(a.Sets)
	return &c
}

// Game is the immutable record of a completed match. Winner is empty for a draw.
type Game struct {
	ID          string
	PlayerOne   string
	PlayerTwo   string
	P1Score     int
	P2Score     int
	Target      int
	Mode        Mode
	Winner      string
	Date        time.Time
	StartTime   time.Time
	EndTime     time.Time
	Frames      []Frame
	P1SetsWon   int
	P2SetsWon   int
	Sets        []Set
	BreakPlayer string
	Killer      *KillerResult
}

func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := *g
	c.Frames = cloneFrames(g.Frames)
	c.Sets = cloneSets(g.Sets)
	if g.Killer != nil {
		k := *g.Killer
		k.Players = append([]KillerPlayer(nil), g.Killer.Players...)
		c.Killer = &k
	}
	return &c
}

// IsDraw reports whether the match finished without a winner.
func (g *Game) IsDraw() bool { return g != nil && g.Winner == "" }

// KillerPlayer is one participant of a killer elimination game.
// EliminatedAt is zero for the survivor.
type KillerPlayer struct {
	Name         string
	Lives        int
	EliminatedAt time.Time
}

// KillerResult holds the persisted shape of a killer game. There is no live
// scoring engine for this mode; records are only stored and displayed.
type KillerResult struct {
	StartingLives int
	Players       []KillerPlayer
}

func cloneFrames(in []Frame) []Frame {
	if in == nil {
		return nil
	}
	return append([]Frame(nil), in...)
}

func cloneSets(in []Set) []Set {
	if in == nil {
		return nil
	}
	out := make([]Set, len(in))
	for i := range in {
		out[i] = in[i].clone()
	}
	return out
}
