package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/park285/cuescore/internal/adapter/scorepresenter"
	appcfg "github.com/park285/cuescore/internal/config"
	"github.com/park285/cuescore/internal/obslog"
	"github.com/park285/cuescore/internal/scorebuilder"
	"github.com/park285/cuescore/internal/scoring"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := scorebuilder.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("init error: %v", err)
	}
	defer deps.Close()

	sh := &shell{
		deps:      deps,
		formatter: scorepresenter.NewFormatter(deps.Catalog),
		presenter: scorepresenter.WriterPresenter(os.Stdout),
		logger:    logger,
	}

	if st, err := deps.Service.Resume(ctx); err == nil {
		sh.show("Resumed the match in progress.")
		sh.show(sh.formatter.Board(scorepresenter.ToBoard(st)))
	} else if !errors.Is(err, scoring.ErrNoActiveMatch) {
		logger.Warn("resume_failed", zap.Error(err))
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	fmt.Print("> ")
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if sh.handle(ctx, line) {
				return
			}
			fmt.Print("> ")
		}
	}
}
