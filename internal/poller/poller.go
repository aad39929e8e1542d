// Package poller watches playback in the background and announces track
// changes.
package poller

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"accessify/internal/core"
	"accessify/internal/executor"
	"accessify/internal/queue"
)

// shutdownCheckInterval bounds how long Stop takes to be noticed.
const shutdownCheckInterval = time.Second

type Poller struct {
	executor  *executor.Executor
	announcer core.Announcer
	interval  time.Duration
	logger    *zap.Logger

	tick    time.Duration
	stopped atomic.Bool

	// Only the Run goroutine touches these.
	lastURI string
	primed  bool
}

func New(exec *executor.Executor, announcer core.Announcer, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = core.DefaultPollInterval
	}
	return &Poller{
		executor:  exec,
		announcer: announcer,
		interval:  interval,
		logger:    logger,
		tick:      shutdownCheckInterval,
	}
}

// Run polls until ctx is done or Stop is called. It always returns nil so it
// can run in an errgroup beside components that fail.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Starting playback poller", zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	var nextPoll time.Time
	for {
		if p.stopped.Load() {
			p.logger.Info("Playback poller stopped")
			return nil
		}

		if now := time.Now(); !now.Before(nextPoll) {
			p.poll(ctx)
			nextPoll = now.Add(p.interval)
		}

		select {
		case <-ctx.Done():
			p.logger.Info("Playback poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Stop asks Run to return at its next shutdown check.
func (p *Poller) Stop() {
	p.stopped.Store(true)
}

func (p *Poller) poll(ctx context.Context) {
	result := executor.ExecuteWebAPI(ctx, p.executor, "poll_playback", func(ctx context.Context, api core.API) (*core.PlaybackState, error) {
		return api.Playback(ctx)
	})
	if result.Failed() {
		p.logger.Debug("Playback poll skipped",
			zap.Stringer("kind", result.Err.Kind),
			zap.String("message", result.Message()))
		return
	}

	state := result.Value
	if state == nil || state.Item == nil {
		p.logger.Debug("Nothing playing")
		return
	}

	uri := state.Item.URI
	if uri == p.lastURI {
		return
	}

	previous := p.lastURI
	p.lastURI = uri
	if !p.primed {
		p.primed = true
		return
	}

	p.logger.Debug("Track changed", zap.String("from", previous), zap.String("to", uri))
	p.announcer.Announce(queue.Describe(p.executor.Localizer(), state.Item))
}
