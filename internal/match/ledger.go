package match

// Ledger is an append-only frame log. Undo pops the newest entry; entries are never edited.
type Ledger struct {
	frames []Frame
}

func NewLedger(frames []Frame) *Ledger {
	return &Ledger{frames: cloneFrames(frames)}
}

func (l *Ledger) Append(f Frame) { l.frames = append(l.frames, f) }

// Pop removes and returns the most recent frame.
func (l *Ledger) Pop() (Frame, bool) {
	n := len(l.frames)
	if n == 0 {
		return Frame{}, false
	}
	f := l.frames[n-1]
	l.frames = l.frames[:n-1]
	return f, true
}

func (l *Ledger) Last() (Frame, bool) {
	if len(l.frames) == 0 {
		return Frame{}, false
	}
	return l.frames[len(l.frames)-1], true
}

func (l *Ledger) Len() int { return len(l.frames) }

// Frames returns a copy of the log in creation order.
func (l *Ledger) Frames() []Frame {
	out := make([]Frame, len(l.frames))
	copy(out, l.frames)
	return out
}

func (l *Ledger) Reset() { l.frames = nil }
