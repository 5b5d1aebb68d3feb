package match

// StartNextSet closes the running set and opens the next one. It only acts in
// sets mode, once the running set reached its target and the match is still open.
func (e *Engine) StartNextSet() bool {
	if e.mode != ModeSets || e.finished {
		return false
	}
	o := e.Outcome()
	if !o.SetEnded || o.GameEnded {
		return false
	}
	e.closeSet()
	e.p1, e.p2 = 0, 0
	e.breaker = e.breaker.Other()
	return true
}

// closeSet appends the running set to the completed list and credits its winner.
func (e *Engine) closeSet() {
	s := Set{
		Number:  len(e.sets) + 1,
		P1Score: e.p1,
		P2Score: e.p2,
		Frames:  e.setLedger.Frames(),
	}
	switch leader(e.p1, e.p2) {
	case PlayerOne:
		s.Winner = e.playerOne
		e.p1Sets++
	case PlayerTwo:
		s.Winner = e.playerTwo
		e.p2Sets++
	}
	e.sets = append(e.sets, s)
	e.setLedger.Reset()
}

// Sets returns a copy of the completed sets.
func (e *Engine) Sets() []Set { return cloneSets(e.sets) }

// CurrentSetFrames returns the frames of the running set.
func (e *Engine) CurrentSetFrames() []Frame { return e.setLedger.Frames() }
