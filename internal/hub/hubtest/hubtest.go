// Package hubtest provides a fake hub client for tests. It simulates the bridge's
// behavior: activating a zone makes it the active zone, stop commands clear it.
package hubtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mwindborn/rainbird-monitor/internal/hub"
)

var _ hub.Client = &Hub{}

type Hub struct {
	mu         sync.Mutex
	model      string
	zones      []int
	inUse      bool
	activeZone int
	remaining  time.Duration
	rain       bool
	initErr    error
	readErr    error
	commandErr error
	commands   []string
}

func New(zones ...int) *Hub {
	return &Hub{model: "ESP-RZXe", zones: zones}
}

func (h *Hub) SetActive(zone int, remaining time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inUse = true
	h.activeZone = zone
	h.remaining = remaining
}

func (h *Hub) SetIdle() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inUse = false
	h.activeZone = 0
	h.remaining = 0
}

func (h *Hub) SetRain(reached bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rain = reached
}

func (h *Hub) FailInit(err error)     { h.mu.Lock(); defer h.mu.Unlock(); h.initErr = err }
func (h *Hub) FailReads(err error)    { h.mu.Lock(); defer h.mu.Unlock(); h.readErr = err }
func (h *Hub) FailCommands(err error) { h.mu.Lock(); defer h.mu.Unlock(); h.commandErr = err }

// Commands returns the commands received so far, oldest first.
func (h *Hub) Commands() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	commands := make([]string, len(h.commands))
	copy(commands, h.commands)
	return commands
}

func (h *Hub) Init(_ context.Context) (hub.Info, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.initErr != nil {
		return hub.Info{}, h.initErr
	}
	return hub.Info{Model: h.model, Zones: h.zones}, nil
}

func (h *Hub) IsInUse(_ context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inUse, h.readErr
}

func (h *Hub) ActiveZone(_ context.Context) (int, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.activeZone, h.activeZone > 0, h.readErr
}

func (h *Hub) RemainingDuration(_ context.Context, zone int) (time.Duration, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if zone != h.activeZone {
		return 0, false, h.readErr
	}
	return h.remaining, true, h.readErr
}

func (h *Hub) RainSetPointReached(_ context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rain, h.readErr
}

func (h *Hub) ActivateZone(_ context.Context, zone int, duration time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, fmt.Sprintf("activate %d %s", zone, duration))
	if h.commandErr != nil {
		return h.commandErr
	}
	h.inUse = true
	h.activeZone = zone
	h.remaining = duration
	return nil
}

func (h *Hub) DeactivateZone(_ context.Context, zone int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, fmt.Sprintf("deactivate %d", zone))
	if h.commandErr != nil {
		return h.commandErr
	}
	if h.activeZone == zone {
		h.inUse = false
		h.activeZone = 0
		h.remaining = 0
	}
	return nil
}

func (h *Hub) DeactivateAllZones(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, "deactivate all")
	if h.commandErr != nil {
		return h.commandErr
	}
	h.inUse = false
	h.activeZone = 0
	h.remaining = 0
	return nil
}

func (h *Hub) StopIrrigation(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, "stop irrigation")
	if h.commandErr != nil {
		return h.commandErr
	}
	h.inUse = false
	h.activeZone = 0
	h.remaining = 0
	return nil
}
