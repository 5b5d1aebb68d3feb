package main

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/cuescore/internal/adapter/scorepresenter"
	"github.com/park285/cuescore/internal/match"
	"github.com/park285/cuescore/internal/scorebuilder"
	"github.com/park285/cuescore/internal/scoring"
)

type shell struct {
	deps      *scorebuilder.Deps
	formatter *scorepresenter.Formatter
	presenter *scorepresenter.Presenter
	logger    *zap.Logger
}

func (s *shell) show(msg string) {
	if err := s.presenter.Show(msg); err != nil {
		s.logger.Warn("output_failed", zap.Error(err))
	}
}

// handle runs one input line. It reports whether the shell should exit.
func (s *shell) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	svc := s.deps.Service

	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		s.show(s.formatter.Help())
	case "new":
		cfg, err := parseNew(args)
		if err != nil {
			s.show(s.formatter.Usage("new <mode> <target> <player one> <player two> [sets-to-win]"))
			return false
		}
		s.board(svc.Start(ctx, cfg))
	case "+", "-", "special", "miss", "trick":
		if len(args) != 1 {
			s.show(s.formatter.Usage(cmd + " <player>"))
			return false
		}
		side, err := svc.SideOf(args[0])
		if err != nil {
			s.show(s.formatter.Error(err))
			return false
		}
		switch cmd {
		case "+":
			s.board(svc.Increment(side))
		case "-":
			s.board(svc.Decrement(side))
		case "special":
			s.board(svc.SpecialScore(side))
		case "miss":
			s.board(svc.Miss(side))
		case "trick":
			s.board(svc.TrickShotBlack(side))
		}
	case "next":
		s.board(svc.StartNextSet())
	case "balls":
		p1, ok1 := match.ParseBallColor(argAt(args, 0))
		p2, ok2 := match.ParseBallColor(argAt(args, 1))
		if !ok1 || !ok2 {
			s.show(s.formatter.Usage("balls <red|yellow|spots|stripes> <red|yellow|spots|stripes>"))
			return false
		}
		s.board(svc.AssignBalls(p1, p2))
	case "status":
		s.show(s.formatter.Storage(s.deps.Gateway.Route()))
		if st, err := svc.Status(); err == nil {
			s.show(s.formatter.Board(scorepresenter.ToBoard(st)))
		}
	case "end":
		g, err := svc.EndMatch(ctx)
		if err != nil && g == nil {
			s.show(s.formatter.Error(err))
			return false
		}
		s.show(s.formatter.Finished(scorepresenter.ToResult(g)))
		if err != nil {
			s.show(s.formatter.Error(err))
		}
	case "abandon":
		if err := svc.Abandon(ctx); err != nil {
			s.show(s.formatter.Error(err))
			return false
		}
		s.show(s.formatter.Abandoned())
	case "history":
		games, err := svc.History(ctx)
		if err != nil {
			s.show(s.formatter.Error(err))
			return false
		}
		s.show(s.formatter.History(scorepresenter.ToResults(games)))
	case "delete":
		if len(args) != 1 {
			s.show(s.formatter.Usage("delete <id>"))
			return false
		}
		if err := svc.DeleteGame(ctx, args[0]); err != nil {
			s.show(s.formatter.Error(err))
			return false
		}
		s.show("Deleted " + args[0] + ".")
	case "tally":
		if len(args) != 1 {
			s.show(s.formatter.Usage("tally <player>"))
			return false
		}
		t, err := svc.Tally(ctx, args[0])
		if err != nil {
			s.show(s.formatter.Error(err))
			return false
		}
		s.show(s.formatter.Tally(t))
	case "login":
		if len(args) != 1 {
			s.show(s.formatter.Usage("login <token>"))
			return false
		}
		s.login(ctx, args[0])
	case "logout":
		s.logout(ctx)
	default:
		s.show(s.formatter.Help())
	}
	return false
}

func (s *shell) board(st *scoring.State, err error) {
	if err != nil {
		s.show(s.formatter.Error(err))
		return
	}
	s.show(s.formatter.Board(scorepresenter.ToBoard(st)))
}

func (s *shell) login(ctx context.Context, token string) {
	if s.deps.Remote == nil {
		s.show("No remote store is configured; set REMOTE_BACKEND to sign in.")
		return
	}
	s.deps.Tokens.Set(token)
	if err := s.deps.Service.SetAuthenticated(ctx, true); err != nil {
		s.show(s.formatter.Error(err))
		return
	}
	s.show(s.formatter.Auth(true))
	if st, err := s.deps.Service.Status(); err == nil {
		s.show(s.formatter.Board(scorepresenter.ToBoard(st)))
	}
}

func (s *shell) logout(ctx context.Context) {
	// the token must outlive the final flush to the remote store
	err := s.deps.Service.SetAuthenticated(ctx, false)
	s.deps.Tokens.Clear()
	if err != nil {
		s.show(s.formatter.Error(err))
		return
	}
	s.show(s.formatter.Auth(false))
}

var errUsage = errors.New("usage")

func parseNew(args []string) (match.Config, error) {
	if len(args) < 3 {
		return match.Config{}, errUsage
	}
	mode, ok := match.ParseMode(args[0])
	if !ok {
		return match.Config{}, errUsage
	}
	// free play takes no target
	if mode == match.ModeFree {
		if len(args) != 3 {
			return match.Config{}, errUsage
		}
		return match.Config{Mode: mode, PlayerOne: args[1], PlayerTwo: args[2]}, nil
	}
	if len(args) < 4 || len(args) > 5 {
		return match.Config{}, errUsage
	}
	target, err := strconv.Atoi(args[1])
	if err != nil || target <= 0 {
		return match.Config{}, errUsage
	}
	cfg := match.Config{Mode: mode, Target: target, PlayerOne: args[2], PlayerTwo: args[3]}
	if len(args) == 5 {
		n, err := strconv.Atoi(args[4])
		if err != nil || n <= 0 {
			return match.Config{}, errUsage
		}
		cfg.SetsToWin = n
	}
	return cfg, nil
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
