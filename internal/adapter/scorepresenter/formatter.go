package scorepresenter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/park285/cuescore/internal/gateway"
	"github.com/park285/cuescore/internal/match"
	"github.com/park285/cuescore/internal/msgcat"
	"github.com/park285/cuescore/internal/names"
	"github.com/park285/cuescore/internal/scoring"
)

const historyLimit = 20

// Formatter renders view models into terminal text. Templates come from the
// message catalog; a nil catalog or a broken template falls back to built-in text.
type Formatter struct {
	catalog *msgcat.Catalog
}

func NewFormatter(catalog *msgcat.Catalog) *Formatter {
	return &Formatter{catalog: catalog}
}

func (f *Formatter) cat() *msgcat.Catalog {
	if f == nil {
		return nil
	}
	return f.catalog
}

func (f *Formatter) Board(b *Board) string {
	if b == nil {
		return f.cat().RenderOr("errors.no_match", nil, "No match in progress.")
	}
	c := f.cat()
	lines := []string{
		c.RenderOr("board.score", b, fmt.Sprintf("%s %d : %d %s", b.P1, b.P1Score, b.P2Score, b.P2)),
		f.modeLine(b),
	}
	if b.Breaker != "" {
		lines = append(lines, c.RenderOr("board.break", b, "Break: "+b.Breaker))
	}
	if b.P1Ball != "" || b.P2Ball != "" {
		lines = append(lines, c.RenderOr("board.balls", b, fmt.Sprintf("Balls: %s %s / %s %s", b.P1, b.P1Ball, b.P2, b.P2Ball)))
	}
	if b.HasLast {
		lines = append(lines, c.RenderOr("board.last", b, fmt.Sprintf("Last: %s +%d", b.LastPlayer, b.LastDelta)))
	}
	switch {
	case b.GameEnded && b.Winner != "":
		lines = append(lines, c.RenderOr("board.game_ended", b, b.Winner+" wins the match."))
	case b.GameEnded:
		lines = append(lines, "The match is level. Type `end` to record it.")
	case b.SetEnded:
		lines = append(lines, c.RenderOr("board.set_ended", b, fmt.Sprintf("Set over. Type `next` to start set %d.", b.NextSet)))
	}
	if !b.Changed {
		lines = append(lines, c.RenderOr("board.unchanged", nil, "(no change)"))
	}
	return strings.Join(lines, "\n")
}

func (f *Formatter) modeLine(b *Board) string {
	c := f.cat()
	switch b.Mode {
	case match.ModeRace:
		return c.RenderOr("board.mode.race", b, fmt.Sprintf("Race to %d", b.Target))
	case match.ModeSets:
		return c.RenderOr("board.mode.sets", b, fmt.Sprintf("Set %d to %d", b.SetNumber, b.Target))
	case match.ModeBestOf:
		return c.RenderOr("board.mode.bestof", b, fmt.Sprintf("Best of %d", b.Target))
	case match.ModeKiller:
		return c.RenderOr("board.mode.killer", b, "Killer")
	default:
		return c.RenderOr("board.mode.free", b, "Free play")
	}
}

// Finished renders the end-of-match summary. A nil result means nothing was recorded.
func (f *Formatter) Finished(r *Result) string {
	c := f.cat()
	if r == nil {
		return c.RenderOr("finished.discarded", nil, "Nothing was scored; the match was not recorded.")
	}
	var line string
	if r.Draw {
		line = c.RenderOr("finished.draw", r, fmt.Sprintf("%s and %s drew %d-%d", r.P1, r.P2, r.P1Score, r.P2Score))
	} else {
		line = c.RenderOr("finished.win", r, fmt.Sprintf("%s beat %s %d-%d", r.Winner, r.Loser, r.WinnerScore, r.LoserScore))
	}
	if r.Sets != "" {
		line += "\n" + c.RenderOr("finished.sets", r, "Sets: "+r.Sets)
	}
	return line
}

func (f *Formatter) Abandoned() string {
	return f.cat().RenderOr("finished.abandoned", nil, "Match abandoned.")
}

func (f *Formatter) History(list []*Result) string {
	c := f.cat()
	if len(list) == 0 {
		return c.RenderOr("history.empty", nil, "No finished matches yet.")
	}
	var sb strings.Builder
	sb.WriteString(c.RenderOr("history.header", map[string]any{"Count": len(list)}, fmt.Sprintf("Recent matches (%d)", len(list))))
	for i, r := range list {
		if i == historyLimit {
			sb.WriteString(fmt.Sprintf("\n... %d more", len(list)-historyLimit))
			break
		}
		sb.WriteString("\n")
		sb.WriteString(c.RenderOr("history.row", r, fmt.Sprintf("%s %s %d-%d %s [%s]", r.Date, r.P1, r.P1Score, r.P2Score, r.P2, r.ID)))
	}
	return sb.String()
}

func (f *Formatter) Tally(t *scoring.Tally) string {
	if t == nil {
		return ""
	}
	view := *t
	view.Player = names.Display(t.Player)
	return f.cat().RenderOr("tally.line", view,
		fmt.Sprintf("%s: %d played, %d won, %d lost, %d drawn", view.Player, t.Played, t.Wins, t.Losses, t.Draws))
}

func (f *Formatter) Auth(signedIn bool) string {
	if signedIn {
		return f.cat().RenderOr("auth.signed_in", nil, "Signed in.")
	}
	return f.cat().RenderOr("auth.signed_out", nil, "Signed out.")
}

func (f *Formatter) Storage(route gateway.Route) string {
	label := "this device"
	if route == gateway.RouteRemote {
		label = "account"
	}
	return f.cat().RenderOr("auth.status", map[string]any{"Route": label}, "Storage: "+label)
}

func (f *Formatter) Usage(usage string) string {
	return f.cat().RenderOr("errors.usage", map[string]any{"Usage": usage}, "Usage: "+usage)
}

func (f *Formatter) Help() string {
	return f.cat().RenderOr("help", nil, "Commands: new, +, -, special, miss, trick, next, balls, end, abandon, history, delete, tally, login, logout, status, quit")
}

// Error maps service errors to user-facing text. Unknown errors keep their message.
func (f *Formatter) Error(err error) string {
	if err == nil {
		return ""
	}
	c := f.cat()
	switch {
	case errors.Is(err, scoring.ErrNoActiveMatch):
		return c.RenderOr("errors.no_match", nil, err.Error())
	case errors.Is(err, scoring.ErrMatchInProgress):
		return c.RenderOr("errors.in_progress", nil, err.Error())
	case errors.Is(err, scoring.ErrUnknownPlayer):
		return c.RenderOr("errors.unknown_player", nil, err.Error())
	case errors.Is(err, scoring.ErrGameNotFound):
		return c.RenderOr("errors.not_found", nil, err.Error())
	default:
		return "Error: " + err.Error()
	}
}
