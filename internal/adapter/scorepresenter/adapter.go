package scorepresenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/cuescore/internal/match"
	"github.com/park285/cuescore/internal/names"
	"github.com/park285/cuescore/internal/scoring"
)

// Board is the view model of a running match. Field names are the template keys.
type Board struct {
	P1, P2           string
	P1Score, P2Score int
	Mode             match.Mode
	Target           int

	SetNumber      int
	SetsToWin      int
	P1Sets, P2Sets int

	P1Games, P2Games int
	GamesPlayed      int

	Breaker        string
	P1Ball, P2Ball string

	HasLast    bool
	LastPlayer string
	LastDelta  int
	LastTag    string

	SetEnded  bool
	SetLeader string
	NextSet   int
	GameEnded bool
	Winner    string
	Changed   bool
}

func ToBoard(st *scoring.State) *Board {
	if st == nil || st.Game == nil {
		return nil
	}
	g := st.Game
	b := &Board{
		P1:          names.Display(g.PlayerOne),
		P2:          names.Display(g.PlayerTwo),
		P1Score:     g.P1Score,
		P2Score:     g.P2Score,
		Mode:        g.Mode,
		Target:      g.Target,
		SetNumber:   len(g.Sets) + 1,
		SetsToWin:   g.SetsToWin,
		P1Sets:      g.P1SetsWon,
		P2Sets:      g.P2SetsWon,
		P1Games:     g.P1GamesWon,
		P2Games:     g.P2GamesWon,
		GamesPlayed: g.GamesPlayed,
		Breaker:     names.Display(g.BreakPlayer),
		P1Ball:      string(g.P1Ball),
		P2Ball:      string(g.P2Ball),
		SetEnded:    st.Outcome.SetEnded,
		NextSet:     len(g.Sets) + 2,
		GameEnded:   st.Outcome.GameEnded,
		Changed:     st.Changed,
	}
	if b.SetsToWin == 0 {
		b.SetsToWin = g.Target
	}
	if n := len(g.Frames); n > 0 {
		last := g.Frames[n-1]
		b.HasLast = true
		b.LastPlayer = names.Display(last.Player)
		b.LastDelta = last.Delta
		b.LastTag = tagLabel(last.Tag)
	}
	if b.SetEnded {
		switch {
		case g.P1Score > g.P2Score:
			b.SetLeader = b.P1
		case g.P2Score > g.P1Score:
			b.SetLeader = b.P2
		}
	}
	switch st.Outcome.Winner {
	case match.PlayerOne:
		b.Winner = b.P1
	case match.PlayerTwo:
		b.Winner = b.P2
	}
	return b
}

// Result is the view model of a finished game, used for the end-of-match
// summary and history rows.
type Result struct {
	ID               string
	Date             string
	P1, P2           string
	P1Score, P2Score int
	Mode             string
	Draw             bool
	Winner, Loser    string
	WinnerScore      int
	LoserScore       int
	Frames           int
	Duration         string
	Sets             string
}

func ToResult(g *match.Game) *Result {
	if g == nil {
		return nil
	}
	r := &Result{
		ID:      g.ID,
		Date:    g.Date.Local().Format("2006-01-02 15:04"),
		P1:      names.Display(g.PlayerOne),
		P2:      names.Display(g.PlayerTwo),
		P1Score: g.P1Score,
		P2Score: g.P2Score,
		Mode:    modeLabel(g.Mode, g.Target),
		Draw:    g.IsDraw(),
		Frames:  len(g.Frames),
	}
	if g.Mode == match.ModeSets {
		r.P1Score, r.P2Score = g.P1SetsWon, g.P2SetsWon
		parts := make([]string, 0, len(g.Sets))
		for _, s := range g.Sets {
			parts = append(parts, fmt.Sprintf("%d-%d", s.P1Score, s.P2Score))
		}
		r.Sets = strings.Join(parts, ", ")
	}
	if g.Killer != nil {
		r.Frames = len(g.Killer.Players)
	}
	if !g.StartTime.IsZero() && !g.EndTime.IsZero() {
		r.Duration = formatDuration(g.EndTime.Sub(g.StartTime))
	}
	if !r.Draw {
		r.Winner = names.Display(g.Winner)
		if names.Same(g.Winner, g.PlayerOne) {
			r.Loser = r.P2
			r.WinnerScore, r.LoserScore = r.P1Score, r.P2Score
		} else {
			r.Loser = r.P1
			r.WinnerScore, r.LoserScore = r.P2Score, r.P1Score
		}
	}
	return r
}

func ToResults(list []*match.Game) []*Result {
	out := make([]*Result, 0, len(list))
	for _, g := range list {
		if r := ToResult(g); r != nil {
			out = append(out, r)
		}
	}
	return out
}

func modeLabel(m match.Mode, target int) string {
	switch m {
	case match.ModeRace:
		return fmt.Sprintf("race to %d", target)
	case match.ModeSets:
		return fmt.Sprintf("sets of %d", target)
	case match.ModeBestOf:
		return fmt.Sprintf("best of %d", target)
	case match.ModeFree:
		return "free play"
	case match.ModeKiller:
		return "killer"
	default:
		return string(m)
	}
}

func tagLabel(t match.ShotTag) string {
	switch t {
	case match.TagBreakClearance:
		return "break clearance"
	case match.TagReverseClearance:
		return "reverse clearance"
	case match.TagMiss:
		return "miss"
	case match.TagTrickShotBlack:
		return "trick shot on the black"
	default:
		return ""
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return "under a minute"
	}
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}
