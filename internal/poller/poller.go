// Package poller pulls hub state snapshots and fans them out to subscribers. Polls are
// triggered by a safety-net interval and by Refresh, which the status watcher calls when
// the bridge signals a change.
package poller

import (
	"context"
	"github.com/mwindborn/rainbird-monitor/pkg/pubsub"
	"log/slog"
	"time"
)

type Poller interface {
	Subscribe() chan Snapshot
	Unsubscribe(ch chan Snapshot)
	Refresh()
}

// StateReader is the part of the hub client a HubPoller reads from.
type StateReader interface {
	IsInUse(ctx context.Context) (bool, error)
	ActiveZone(ctx context.Context) (int, bool, error)
	RemainingDuration(ctx context.Context, zone int) (time.Duration, bool, error)
	RainSetPointReached(ctx context.Context) (bool, error)
}

type HubPoller struct {
	hub StateReader
	*pubsub.Publisher[Snapshot]
	interval time.Duration
	logger   *slog.Logger
	refresh  chan struct{}
}

// New returns a HubPoller publishing snapshots of hub to publisher. The publisher is
// supplied by the caller so that subscribers survive a session rebuild.
func New(hub StateReader, publisher *pubsub.Publisher[Snapshot], interval time.Duration, logger *slog.Logger) *HubPoller {
	return &HubPoller{
		hub:       hub,
		Publisher: publisher,
		interval:  interval,
		logger:    logger,
		refresh:   make(chan struct{}, 1),
	}
}

func (p *HubPoller) Run(ctx context.Context) error {
	p.logger.Debug("started", slog.Duration("interval", p.interval))
	defer p.logger.Debug("stopped")

	// poll once before the loop so the controller reconciles immediately on startup
	p.poll(ctx)

	timer := time.NewTicker(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			p.poll(ctx)
		case <-p.refresh:
			p.poll(ctx)
		}
	}
}

// Refresh requests an immediate poll. It never blocks: a refresh while a poll is already
// pending is a no-op.
func (p *HubPoller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

func (p *HubPoller) poll(ctx context.Context) {
	start := time.Now()
	snapshot := p.snapshot(ctx)
	p.Publisher.Publish(snapshot)
	p.logger.Debug("poll completed", "snapshot", snapshot, slog.Duration("duration", time.Since(start)))
}

// snapshot reads the hub state. A read error degrades to the idle snapshot: a transiently
// unreachable hub shows up as "not watering", never as an error.
func (p *HubPoller) snapshot(ctx context.Context) Snapshot {
	var s Snapshot
	inUse, err := p.hub.IsInUse(ctx)
	if err != nil {
		p.logger.Warn("failed to read hub state, reporting idle", "err", err)
		return s
	}
	s.InUse = inUse

	if rain, err := p.hub.RainSetPointReached(ctx); err == nil {
		s.RainSetPointReached = &rain
	} else {
		p.logger.Warn("failed to read rain set point", "err", err)
	}

	if !s.InUse {
		return s
	}

	zone, ok, err := p.hub.ActiveZone(ctx)
	if err != nil {
		p.logger.Warn("failed to read active zone", "err", err)
		return s
	}
	if !ok {
		return s
	}
	s.ActiveZone = &zone

	if remaining, ok, err := p.hub.RemainingDuration(ctx, zone); err == nil && ok {
		s.TimeRemaining = &remaining
	}
	return s
}
