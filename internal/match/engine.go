package match

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/park285/cuescore/internal/names"
)

var (
	ErrInvalidConfig   = errors.New("invalid match configuration")
	ErrModeUnsupported = errors.New("match mode has no scoring engine")
)

// Config describes a new match.
type Config struct {
	ID        string
	PlayerOne string
	PlayerTwo string
	Mode      Mode
	// Target is the race length, the frames needed to win a set, or the
	// number of frames per sub-game and sub-games per match for best-of.
	Target int
	// SetsToWin is the number of sets needed in sets mode. Zero means Target.
	SetsToWin   int
	BreakPlayer Side
	P1Ball      BallColor
	P2Ball      BallColor
	Now         func() time.Time
}

// Engine is the scoring state machine for a single two-player match.
// It is not safe for concurrent use.
type Engine struct {
	id        string
	playerOne string
	playerTwo string
	mode      Mode
	target    int
	setsToWin int
	start     time.Time
	now       func() time.Time
	rules     rules

	p1, p2           int
	p1Games, p2Games int
	gamesPlayed      int
	p1Sets, p2Sets   int
	breaker          Side
	subGameEnded     bool
	finished         bool

	ledger    *Ledger
	setLedger *Ledger
	sets      []Set

	p1Ball, p2Ball BallColor
}

func NewEngine(cfg Config) (*Engine, error) {
	r, err := rulesFor(cfg.Mode)
	if err != nil {
		return nil, err
	}
	p1 := names.Canonical(cfg.PlayerOne)
	p2 := names.Canonical(cfg.PlayerTwo)
	if p1 == "" || p2 == "" {
		return nil, fmt.Errorf("%w: both player names are required", ErrInvalidConfig)
	}
	if p1 == p2 {
		return nil, fmt.Errorf("%w: player names must differ", ErrInvalidConfig)
	}
	if cfg.Mode != ModeFree && cfg.Target <= 0 {
		return nil, fmt.Errorf("%w: target must be positive for %s", ErrInvalidConfig, cfg.Mode)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	breaker := cfg.BreakPlayer
	if breaker != PlayerTwo {
		breaker = PlayerOne
	}
	setsToWin := cfg.SetsToWin
	if setsToWin <= 0 {
		setsToWin = cfg.Target
	}
	return &Engine{
		id:        id,
		playerOne: p1,
		playerTwo: p2,
		mode:      cfg.Mode,
		target:    cfg.Target,
		setsToWin: setsToWin,
		start:     now(),
		now:       now,
		rules:     r,
		breaker:   breaker,
		ledger:    NewLedger(nil),
		setLedger: NewLedger(nil),
		p1Ball:    cfg.P1Ball,
		p2Ball:    cfg.P2Ball,
	}, nil
}

// Resume rebuilds an engine from a stored in-progress game.
func Resume(a *ActiveGame, now func() time.Time) (*Engine, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil active game", ErrInvalidConfig)
	}
	e, err := NewEngine(Config{
		ID:        a.ID,
		PlayerOne: a.PlayerOne,
		PlayerTwo: a.PlayerTwo,
		Mode:      a.Mode,
		Target:    a.Target,
		SetsToWin: a.SetsToWin,
		P1Ball:    a.P1Ball,
		P2Ball:    a.P2Ball,
		Now:       now,
	})
	if err != nil {
		return nil, err
	}
	if !a.StartTime.IsZero() {
		e.start = a.StartTime
	}
	e.p1, e.p2 = a.P1Score, a.P2Score
	e.p1Games, e.p2Games = a.P1GamesWon, a.P2GamesWon
	e.gamesPlayed = a.GamesPlayed
	if e.gamesPlayed < e.p1Games+e.p2Games {
		e.gamesPlayed = e.p1Games + e.p2Games
	}
	e.p1Sets, e.p2Sets = a.P1SetsWon, a.P2SetsWon
	e.sets = cloneSets(a.Sets)
	e.ledger = NewLedger(a.Frames)
	switch names.Canonical(a.BreakPlayer) {
	case e.playerTwo:
		e.breaker = PlayerTwo
	default:
		e.breaker = PlayerOne
	}
	if e.mode == ModeSets {
		// the running set is whatever the completed sets do not account for
		settled := 0
		for _, s := range e.sets {
			settled += len(s.Frames)
		}
		if settled < len(a.Frames) {
			e.setLedger = NewLedger(a.Frames[settled:])
		}
	}
	return e, nil
}

func (e *Engine) ID() string { return e.id }
func (e *Engine) Mode() Mode { return e.mode }
func (e *Engine) Finished() bool { return e.finished }
func (e *Engine) BreakSide() Side { return e.breaker }

func (e *Engine) Scores() (int, int) { return e.p1, e.p2 }

func (e *Engine) GamesWon() (int, int) { return e.p1Games, e.p2Games }

func (e *Engine) SetsWon() (int, int) { return e.p1Sets, e.p2Sets }

func (e *Engine) LedgerLen() int { return e.ledger.Len() }

// Player returns the canonical name seated at side.
func (e *Engine) Player(side Side) string {
	switch side {
	case PlayerOne:
		return e.playerOne
	case PlayerTwo:
		return e.playerTwo
	default:
		return ""
	}
}

// SideOf maps a name to its seat.
func (e *Engine) SideOf(name string) Side {
	switch names.Canonical(name) {
	case e.playerOne:
		return PlayerOne
	case e.playerTwo:
		return PlayerTwo
	default:
		return NoSide
	}
}

// Outcome derives the current win and end-of-set state.
func (e *Engine) Outcome() Outcome { return e.rules.outcome(e) }

// Increment credits one frame to side. It reports whether anything changed.
func (e *Engine) Increment(side Side) bool { return e.score(side, TagNone) }

// SpecialScore credits a clearance: a break clearance when side holds the
// break, a reverse clearance otherwise.
func (e *Engine) SpecialScore(side Side) bool {
	tag := TagReverseClearance
	if side == e.breaker {
		tag = TagBreakClearance
	}
	return e.score(side, tag)
}

// Miss records that side missed; the frame goes to the opponent.
func (e *Engine) Miss(side Side) bool { return e.score(side.Other(), TagMiss) }

// TrickShotBlack credits a frame won on a trick shot on the black.
func (e *Engine) TrickShotBlack(side Side) bool { return e.score(side, TagTrickShotBlack) }

func (e *Engine) score(side Side, tag ShotTag) bool {
	if side != PlayerOne && side != PlayerTwo {
		return false
	}
	if e.finished || e.rules.closed(e) {
		return false
	}
	if side == PlayerOne {
		e.p1++
	} else {
		e.p2++
	}
	f := Frame{
		Time:    e.now(),
		Player:  e.Player(side),
		Delta:   1,
		P1Score: e.p1,
		P2Score: e.p2,
		Tag:     tag,
	}
	e.ledger.Append(f)
	if e.mode == ModeSets {
		e.setLedger.Append(f)
	}
	e.breaker = e.breaker.Other()
	e.rules.afterScore(e)
	return true
}

// Decrement takes one frame back from side by popping the newest ledger entry.
// Games and sets already settled are never rewound.
func (e *Engine) Decrement(side Side) bool {
	if e.finished {
		return false
	}
	switch side {
	case PlayerOne:
		if e.p1 == 0 {
			return false
		}
		e.p1--
	case PlayerTwo:
		if e.p2 == 0 {
			return false
		}
		e.p2--
	default:
		return false
	}
	e.ledger.Pop()
	if e.mode == ModeSets {
		e.setLedger.Pop()
	}
	e.breaker = e.breaker.Other()
	return true
}

// rollover settles a finished best-of sub-game. A tied sub-game counts as
// played but awards no game.
func (e *Engine) rollover() {
	switch leader(e.p1, e.p2) {
	case PlayerOne:
		e.p1Games++
	case PlayerTwo:
		e.p2Games++
	}
	e.gamesPlayed++
	e.p1, e.p2 = 0, 0
	e.subGameEnded = false
}

// AssignBalls records the colour groups. The engine does not use them.
func (e *Engine) AssignBalls(p1, p2 BallColor) {
	e.p1Ball, e.p2Ball = p1, p2
}

// Snapshot returns a deep copy of the in-progress state.
func (e *Engine) Snapshot() *ActiveGame {
	return &ActiveGame{
		ID:          e.id,
		PlayerOne:   e.playerOne,
		PlayerTwo:   e.playerTwo,
		P1Score:     e.p1,
		P2Score:     e.p2,
		P1GamesWon:  e.p1Games,
		P2GamesWon:  e.p2Games,
		GamesPlayed: e.gamesPlayed,
		P1SetsWon:   e.p1Sets,
		P2SetsWon:   e.p2Sets,
		Mode:        e.mode,
		Target:      e.target,
		SetsToWin:   e.setsToWin,
		StartTime:   e.start,
		Frames:      e.ledger.Frames(),
		Sets:        cloneSets(e.sets),
		BreakPlayer: e.Player(e.breaker),
		P1Ball:      e.p1Ball,
		P2Ball:      e.p2Ball,
	}
}
