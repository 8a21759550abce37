// Package session owns the lifecycle of one device's runtime stack. A settings change
// tears the whole stack down and builds a fresh one: stop the old controller and poller,
// stop any watering the old stack started, then instantiate a new client, controller and
// poller against the new settings. No state survives a rebuild.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/clambin/go-common/taskmanager"
	"github.com/mwindborn/rainbird-monitor/internal/device"
	"github.com/mwindborn/rainbird-monitor/internal/hub"
	"github.com/mwindborn/rainbird-monitor/internal/poller"
	"github.com/mwindborn/rainbird-monitor/internal/zones"
	"github.com/mwindborn/rainbird-monitor/pkg/pubsub"
)

var ErrNotRunning = errors.New("no active session")

// Settings is everything a session is built from. Changing any of these requires a
// rebuild.
type Settings struct {
	Zones          zones.Zones
	Queueing       bool
	DefaultRuntime time.Duration
	PollInterval   time.Duration
}

// ClientFactory builds a hub client for the given settings.
type ClientFactory func(Settings) (hub.Client, error)

// Manager runs the current session and rebuilds it on demand. The lock serializes
// rebuilds against in-flight requests: a request observes either the old stack or the
// new one, never a half-torn-down mix.
type Manager struct {
	build        ClientFactory
	publisher    *pubsub.Publisher[poller.Snapshot]
	capabilities device.CapabilitySink
	triggers     device.TriggerSink
	logger       *slog.Logger

	mu       sync.Mutex
	settings Settings
	ctx      context.Context
	current  *session
}

type session struct {
	controller *device.Controller
	poller     *poller.HubPoller
	zones      zones.Zones
	cancel     context.CancelFunc
	done       chan error
}

func NewManager(build ClientFactory, publisher *pubsub.Publisher[poller.Snapshot], capabilities device.CapabilitySink, triggers device.TriggerSink, settings Settings, logger *slog.Logger) *Manager {
	return &Manager{
		build:        build,
		publisher:    publisher,
		capabilities: capabilities,
		triggers:     triggers,
		settings:     settings,
		logger:       logger,
	}
}

// Run starts the initial session and keeps it (or its replacements) running until ctx is
// canceled.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	m.ctx = ctx
	err := m.startLocked()
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.logger.Debug("started")
	defer m.logger.Debug("stopped")

	<-ctx.Done()

	m.mu.Lock()
	defer m.mu.Unlock()
	// shutdown leaves the hub alone: a running zone finishes on its own timer
	m.stopLocked(false)
	return nil
}

// Reload applies new settings. A running session is torn down first: its tasks are
// stopped and any watering it started is stopped on the hub, so the old session leaves
// nothing behind. If the manager is not running yet, the settings take effect on start.
func (m *Manager) Reload(settings Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings = settings
	if m.ctx == nil {
		return nil
	}

	m.logger.Info("settings changed, rebuilding session")
	m.stopLocked(true)
	return m.startLocked()
}

func (m *Manager) startLocked() error {
	client, err := m.build(m.settings)
	if err != nil {
		return fmt.Errorf("build client: %w", err)
	}

	// handshake first: an unreachable hub fails the session, it doesn't run blind
	initCtx, cancelInit := context.WithTimeout(m.ctx, 15*time.Second)
	info, err := client.Init(initCtx)
	cancelInit()
	if err != nil {
		return fmt.Errorf("hub init: %w", err)
	}
	m.logger.Info("connected to hub", slog.String("model", info.Model), slog.Int("zones", len(info.Zones)))

	zoneNames := m.settings.Zones
	if len(zoneNames) == 0 {
		// no zones configured: take the hub's zone list so requests still resolve
		zoneNames = zones.Numbered(info.Zones)
		m.logger.Info("no zones configured, using the hub's zone list", slog.Int("zones", len(zoneNames)))
	}

	c := device.New(m.publisher, client, m.capabilities, m.triggers, device.Config{
		Zones:          zoneNames,
		Queueing:       m.settings.Queueing,
		DefaultRuntime: m.settings.DefaultRuntime,
	}, m.logger.With("component", "controller"))
	p := poller.New(client, m.publisher, m.settings.PollInterval, m.logger.With("component", "poller"))

	ctx, cancel := context.WithCancel(m.ctx)
	s := session{
		controller: c,
		poller:     p,
		zones:      zoneNames,
		cancel:     cancel,
		done:       make(chan error, 1),
	}
	tasks := taskmanager.New(c, p)
	go func() {
		s.done <- tasks.Run(ctx)
	}()
	m.current = &s
	return nil
}

func (m *Manager) stopLocked(stopIrrigation bool) {
	if m.current == nil {
		return
	}
	m.current.cancel()
	if err := <-m.current.done; err != nil {
		m.logger.Error("session tasks failed", "err", err)
	}
	if stopIrrigation {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := m.current.controller.RequestStopAll(ctx); err != nil {
			m.logger.Error("failed to stop irrigation during teardown", "err", err)
		}
		cancel()
	}
	m.current = nil
}

// Refresh asks the current poller for a fresh snapshot.
func (m *Manager) Refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.poller.Refresh()
	}
}

func (m *Manager) RequestStart(ctx context.Context, zone int, duration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ErrNotRunning
	}
	if err := m.current.controller.RequestStart(ctx, zone, duration); err != nil {
		return err
	}
	// re-poll right away so the published state catches up without waiting for the interval
	m.current.poller.Refresh()
	return nil
}

func (m *Manager) RequestStop(ctx context.Context, zone int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ErrNotRunning
	}
	if err := m.current.controller.RequestStop(ctx, zone); err != nil {
		return err
	}
	m.current.poller.Refresh()
	return nil
}

func (m *Manager) RequestStopAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ErrNotRunning
	}
	if err := m.current.controller.RequestStopAll(ctx); err != nil {
		return err
	}
	m.current.poller.Refresh()
	return nil
}

func (m *Manager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && m.current.controller.IsActive()
}

func (m *Manager) ZoneIsActive(zone int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && m.current.controller.ZoneIsActive(zone)
}

// Zones returns the zones of the running session, which may come from the hub's zone
// list when none were configured. With no session running it returns the configured
// zones.
func (m *Manager) Zones() zones.Zones {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return m.current.zones
	}
	return m.settings.Zones
}
