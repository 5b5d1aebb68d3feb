package match

// Finalize ends the match and builds its record. A match with no frames and
// no progress yields (nil, false): nothing should be stored for it.
// After Finalize the engine accepts no further scoring.
func (e *Engine) Finalize() (*Game, bool) {
	if e.finished {
		return nil, false
	}
	e.finished = true
	if e.isEmpty() {
		return nil, false
	}

	fired := e.Outcome()
	if e.mode == ModeSets && e.setLedger.Len() > 0 {
		e.closeSet()
	}

	winner := fired.Winner
	if !fired.GameEnded {
		winner = e.rules.earlyWinner(e)
	}

	end := e.now()
	g := &Game{
		ID:          e.id,
		PlayerOne:   e.playerOne,
		PlayerTwo:   e.playerTwo,
		P1Score:     e.p1,
		P2Score:     e.p2,
		Target:      e.target,
		Mode:        e.mode,
		Winner:      e.Player(winner),
		Date:        end,
		StartTime:   e.start,
		EndTime:     end,
		Frames:      e.ledger.Frames(),
		P1SetsWon:   e.p1Sets,
		P2SetsWon:   e.p2Sets,
		Sets:        cloneSets(e.sets),
		BreakPlayer: e.Player(e.breaker),
	}
	return g, true
}

func (e *Engine) isEmpty() bool {
	return e.ledger.Len() == 0 &&
		e.p1 == 0 && e.p2 == 0 &&
		e.p1Games == 0 && e.p2Games == 0 && e.gamesPlayed == 0 &&
		e.p1Sets == 0 && e.p2Sets == 0 &&
		len(e.sets) == 0
}
