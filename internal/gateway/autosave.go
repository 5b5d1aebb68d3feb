package gateway

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cuescore/internal/match"
)

type saveJob struct {
	seq   uint64
	route Route
	game  *match.ActiveGame
}

// Autosaver writes in-progress snapshots in the background. It keeps at most
// one pending snapshot: a newer Submit replaces an older one that has not
// started yet. A single worker performs the writes, so they finish in the
// order they were issued. Each snapshot keeps the route in effect at Submit.
type Autosaver struct {
	gw      *Gateway
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	seq     uint64
	done    uint64
	lastErr error
	pending *saveJob
	changed chan struct{}
	closed  bool

	wake    chan struct{}
	stopped chan struct{}
}

func NewAutosaver(gw *Gateway, timeout time.Duration, logger *zap.Logger) *Autosaver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	a := &Autosaver{
		gw:      gw,
		timeout: timeout,
		logger:  logger,
		changed: make(chan struct{}),
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go a.run()
	return a
}

// Submit queues a snapshot and returns its sequence number (0 once closed).
// The caller must not mutate game afterwards.
func (a *Autosaver) Submit(game *match.ActiveGame) uint64 {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return 0
	}
	a.seq++
	seq := a.seq
	if a.pending != nil {
		a.logger.Debug("autosave_coalesced", zap.Uint64("replaced", a.pending.seq), zap.Uint64("seq", seq))
	}
	a.pending = &saveJob{seq: seq, route: a.gw.Route(), game: game}
	select {
	case a.wake <- struct{}{}:
	default:
	}
	a.mu.Unlock()
	return seq
}

// Flush waits until every snapshot submitted before the call has been
// written or superseded by a written one. It returns the error of that write.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	target := a.seq
	for a.done < target {
		ch := a.changed
		a.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
		a.mu.Lock()
	}
	err := a.lastErr
	a.mu.Unlock()
	return err
}

// Close writes whatever is pending and stops the worker.
func (a *Autosaver) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.stopped
		return
	}
	a.closed = true
	close(a.wake)
	a.mu.Unlock()
	<-a.stopped
}

func (a *Autosaver) run() {
	defer close(a.stopped)
	for range a.wake {
		a.drain()
	}
	a.drain()
}

func (a *Autosaver) drain() {
	for {
		a.mu.Lock()
		job := a.pending
		a.pending = nil
		a.mu.Unlock()
		if job == nil {
			return
		}
		a.write(job)
	}
}

func (a *Autosaver) write(job *saveJob) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	err := a.gw.saveActiveOn(ctx, job.route, job.game)
	cancel()
	if err != nil {
		a.logger.Warn("autosave_write_failed", zap.Uint64("seq", job.seq), zap.Stringer("route", job.route), zap.Error(err))
	} else {
		a.logger.Debug("autosave_write", zap.Uint64("seq", job.seq), zap.Stringer("route", job.route))
	}

	a.mu.Lock()
	a.done = job.seq
	a.lastErr = err
	close(a.changed)
	a.changed = make(chan struct{})
	a.mu.Unlock()
}
