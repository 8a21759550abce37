// Package device implements the runtime controller for one irrigation hub session. The
// controller reconciles hub state snapshots against the last published device state,
// publishes capability values, fires edge-triggered events on transitions and arbitrates
// start/stop requests against the configured queueing policy.
package device

import (
	"context"
	"errors"
	"fmt"
	"github.com/clambin/go-common/set"
	"github.com/mwindborn/rainbird-monitor/internal/poller"
	"github.com/mwindborn/rainbird-monitor/internal/zones"
	"log/slog"
	"sync"
	"time"
)

var ErrUnknownZone = errors.New("unknown zone")

// Commander is the part of the hub client the controller sends commands to.
type Commander interface {
	ActivateZone(ctx context.Context, zone int, duration time.Duration) error
	DeactivateZone(ctx context.Context, zone int) error
	DeactivateAllZones(ctx context.Context) error
	StopIrrigation(ctx context.Context) error
}

// Publisher is the subscription half of a poller.
type Publisher[T any] interface {
	Subscribe() chan T
	Unsubscribe(ch chan T)
}

type Config struct {
	Zones zones.Zones
	// Queueing selects the arbitration policy for start requests. When off, a start
	// request pre-empts any running session; when on, the hub queues zones sequentially.
	Queueing bool
	// DefaultRuntime is used for start requests that don't specify a duration.
	DefaultRuntime time.Duration
}

// A Controller owns the runtime state of one hub session. Its state is mutated by the
// reconciliation loop and read by request handlers and condition predicates; the lock
// serializes the two. Request handlers never publish capability values themselves: the
// next reconciliation is the single source of truth for published state.
type Controller struct {
	publisher    Publisher[poller.Snapshot]
	hub          Commander
	capabilities CapabilitySink
	triggers     TriggerSink
	zones        zones.Zones
	zoneIDs      set.Set[int]
	queueing     bool
	defaultRun   time.Duration
	countdown    *countdown
	logger       *slog.Logger
	ch           chan poller.Snapshot

	mu              sync.Mutex
	initialized     bool
	inUse           bool
	setPointReached bool
	activeZone      int
}

// New creates a Controller and subscribes it to the publisher. Subscribing here rather
// than in Run means a snapshot published before the run loop is scheduled, such as the
// poller's startup poll, is buffered instead of dropped.
func New(p Publisher[poller.Snapshot], hub Commander, capabilities CapabilitySink, triggers TriggerSink, cfg Config, logger *slog.Logger) *Controller {
	return &Controller{
		publisher:    p,
		hub:          hub,
		capabilities: capabilities,
		triggers:     triggers,
		zones:        cfg.Zones,
		zoneIDs:      cfg.Zones.IDs(),
		queueing:     cfg.Queueing,
		defaultRun:   cfg.DefaultRuntime,
		countdown:    newCountdown(capabilities),
		logger:       logger,
		ch:           p.Subscribe(),
	}
}

// Run reconciles incoming snapshots until ctx is canceled. On exit it stops the countdown
// so a torn-down session can never write stale values.
func (c *Controller) Run(ctx context.Context) error {
	defer c.publisher.Unsubscribe(c.ch)

	c.logger.Debug("started")
	defer c.logger.Debug("stopped")
	defer c.countdown.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snapshot := <-c.ch:
			c.reconcile(snapshot)
		}
	}
}

// reconcile compares a fresh snapshot against the last published state, fires events on
// transitions and (re)publishes all capability values. The first reconciliation after
// instantiation publishes but fires no events: a zone that was already running when we
// booted did not just turn on.
func (c *Controller) reconcile(snapshot poller.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	initial := !c.initialized
	c.initialized = true

	if snapshot.InUse != c.inUse && !initial {
		if snapshot.InUse {
			c.triggers.EmitTrigger(TriggerTurnsOn)
		} else {
			c.triggers.EmitTrigger(TriggerTurnsOff)
		}
	}
	c.inUse = snapshot.InUse
	c.capabilities.PublishCapability(CapabilityIsActive, snapshot.InUse)

	setPoint := snapshot.RainSetPointReached != nil && *snapshot.RainSetPointReached
	if setPoint != c.setPointReached && !initial {
		c.triggers.EmitTrigger(TriggerRainSetPointChanged)
		if setPoint {
			c.triggers.EmitTrigger(TriggerRainSetPointReached)
		}
	}
	c.setPointReached = setPoint
	c.capabilities.PublishCapability(CapabilityRainSetPoint, setPoint)

	if snapshot.ActiveZone == nil {
		c.activeZone = 0
		c.countdown.stop()
		c.capabilities.PublishCapability(CapabilityActiveZone, ZoneNone)
		c.capabilities.PublishCapability(CapabilityTimeLeft, TimeLeftIdle)
		return
	}

	c.activeZone = *snapshot.ActiveZone
	name, ok := c.zones.Name(c.activeZone)
	if !ok {
		name = ZoneUnknown
	}
	c.capabilities.PublishCapability(CapabilityActiveZone, name)

	if snapshot.TimeRemaining != nil && *snapshot.TimeRemaining > 0 {
		c.countdown.set(time.Now().Add(*snapshot.TimeRemaining))
	} else {
		c.countdown.stop()
		c.capabilities.PublishCapability(CapabilityTimeLeft, TimeLeftIdle)
	}
}

// RequestStart asks the hub to water the given zone. With queueing off, any in-flight
// session is stopped first, guaranteeing at most one active zone; with queueing on, the
// hub's own sequential queueing takes effect. Capability values are not updated here:
// they follow from the next reconciliation once the hub reports the change.
func (c *Controller) RequestStart(ctx context.Context, zone int, duration time.Duration) error {
	if !c.zoneIDs.Contains(zone) {
		return fmt.Errorf("%w: %d", ErrUnknownZone, zone)
	}
	if duration <= 0 {
		duration = c.defaultRun
	}
	if duration <= 0 {
		return errors.New("no duration given and no default runtime configured")
	}
	if !c.queueing {
		// trade any in-flight session for the new request
		if err := c.stopAll(ctx); err != nil {
			c.logger.Error("failed to stop running zones", "err", err)
		}
	}
	if err := c.hub.ActivateZone(ctx, zone, duration); err != nil {
		c.logger.Error("failed to activate zone", slog.Int("zone", zone), "err", err)
		return err
	}
	c.logger.Info("zone activated", slog.Int("zone", zone), slog.Duration("duration", duration))
	return nil
}

// RequestStop deactivates a single zone, leaving any other queued zones alone.
func (c *Controller) RequestStop(ctx context.Context, zone int) error {
	if !c.zoneIDs.Contains(zone) {
		return fmt.Errorf("%w: %d", ErrUnknownZone, zone)
	}
	if err := c.hub.DeactivateZone(ctx, zone); err != nil {
		c.logger.Error("failed to deactivate zone", slog.Int("zone", zone), "err", err)
		return err
	}
	c.logger.Info("zone deactivated", slog.Int("zone", zone))
	return nil
}

// RequestStopAll deactivates every zone and stops the overall irrigation program.
func (c *Controller) RequestStopAll(ctx context.Context) error {
	if err := c.stopAll(ctx); err != nil {
		c.logger.Error("failed to stop irrigation", "err", err)
		return err
	}
	c.logger.Info("irrigation stopped")
	return nil
}

func (c *Controller) stopAll(ctx context.Context) error {
	err := c.hub.DeactivateAllZones(ctx)
	if stopErr := c.hub.StopIrrigation(ctx); stopErr != nil {
		err = errors.Join(err, stopErr)
	}
	return err
}

// IsActive reports whether the hub is currently watering.
func (c *Controller) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inUse
}

// ZoneIsActive reports whether the given zone is currently watering.
func (c *Controller) ZoneIsActive(zone int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return zone != 0 && c.activeZone == zone
}

// Zones returns the known zones.
func (c *Controller) Zones() zones.Zones {
	return c.zones
}
