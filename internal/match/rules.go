package match

// Outcome is the win/end-of-set state derived after every mutation.
type Outcome struct {
	P1Won     bool
	P2Won     bool
	SetEnded  bool
	GameEnded bool
	// Winner is NoSide while undecided and for a drawn best-of match.
	Winner Side
}

// rules holds everything that differs between modes. One implementation is
// picked when the engine is built; mutation paths never switch on the mode.
type rules interface {
	outcome(e *Engine) Outcome
	// closed reports whether scoring is currently not accepted.
	closed(e *Engine) bool
	// afterScore runs after a frame was credited and settles any rollover.
	afterScore(e *Engine)
	// earlyWinner decides the winner of a match ended by the user before a win condition fired.
	earlyWinner(e *Engine) Side
}

func rulesFor(mode Mode) (rules, error) {
	switch mode {
	case ModeRace:
		return raceRules{}, nil
	case ModeSets:
		return setsRules{}, nil
	case ModeBestOf:
		return bestOfRules{}, nil
	case ModeFree:
		return freeRules{}, nil
	case ModeKiller:
		return nil, ErrModeUnsupported
	default:
		return nil, ErrInvalidConfig
	}
}

func leader(a, b int) Side {
	switch {
	case a > b:
		return PlayerOne
	case b > a:
		return PlayerTwo
	default:
		return NoSide
	}
}

func outcomeFor(winner Side) Outcome {
	return Outcome{
		P1Won:     winner == PlayerOne,
		P2Won:     winner == PlayerTwo,
		GameEnded: winner != NoSide,
		Winner:    winner,
	}
}

// Race to N: first to N frames wins.
type raceRules struct{}

func (raceRules) outcome(e *Engine) Outcome {
	switch {
	case e.p1 >= e.target:
		return outcomeFor(PlayerOne)
	case e.p2 >= e.target:
		return outcomeFor(PlayerTwo)
	}
	return Outcome{}
}

func (r raceRules) closed(e *Engine) bool { return r.outcome(e).GameEnded }
func (raceRules) afterScore(*Engine) {}
func (raceRules) earlyWinner(e *Engine) Side { return leader(e.p1, e.p2) }

// Sets of N: a set is won at target frames, the match at setsToWin sets.
// Moving on to the next set needs an explicit StartNextSet.
type setsRules struct{}

func (setsRules) outcome(e *Engine) Outcome {
	var o Outcome
	switch {
	case e.p1Sets >= e.setsToWin:
		o = outcomeFor(PlayerOne)
	case e.p2Sets >= e.setsToWin:
		o = outcomeFor(PlayerTwo)
	}
	o.SetEnded = e.p1 >= e.target || e.p2 >= e.target
	return o
}

func (r setsRules) closed(e *Engine) bool {
	o := r.outcome(e)
	return o.GameEnded || o.SetEnded
}

func (setsRules) afterScore(*Engine) {}

func (setsRules) earlyWinner(e *Engine) Side {
	var p1, p2 int
	for _, s := range e.sets {
		switch {
		case s.Winner == "":
		case s.Winner == e.playerOne:
			p1++
		case s.Winner == e.playerTwo:
			p2++
		}
	}
	return leader(p1, p2)
}

// Best of N: sub-games of N frames; the match is over after N sub-games.
type bestOfRules struct{}

func (bestOfRules) outcome(e *Engine) Outcome {
	if e.gamesPlayed < e.target {
		return Outcome{}
	}
	o := outcomeFor(leader(e.p1Games, e.p2Games))
	o.GameEnded = true
	return o
}

func (r bestOfRules) closed(e *Engine) bool {
	return e.subGameEnded || r.outcome(e).GameEnded
}

func (bestOfRules) afterScore(e *Engine) {
	if e.p1+e.p2 >= e.target {
		e.subGameEnded = true
	}
	if e.subGameEnded {
		e.rollover()
	}
}

func (bestOfRules) earlyWinner(e *Engine) Side { return leader(e.p1Games, e.p2Games) }

// Free play never ends on its own.
type freeRules struct{}

func (freeRules) outcome(*Engine) Outcome { return Outcome{} }
func (freeRules) closed(*Engine) bool { return false }
func (freeRules) afterScore(*Engine) {}
func (freeRules) earlyWinner(e *Engine) Side { return leader(e.p1, e.p2) }
