// Package health serves the last seen hub state as a health endpoint.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/mwindborn/rainbird-monitor/internal/poller"
)

// Publisher is the subscription half of a poller.
type Publisher interface {
	Subscribe() chan poller.Snapshot
	Unsubscribe(ch chan poller.Snapshot)
}

// Refresher triggers an out-of-band poll of the hub.
type Refresher interface {
	Refresh()
}

type Health struct {
	publisher Publisher
	refresher Refresher
	logger    *slog.Logger
	lock      sync.RWMutex
	snapshot  poller.Snapshot
	updated   bool
}

func New(publisher Publisher, refresher Refresher, logger *slog.Logger) *Health {
	return &Health{
		publisher: publisher,
		refresher: refresher,
		logger:    logger,
	}
}

func (h *Health) Run(ctx context.Context) error {
	h.logger.Debug("started")
	defer h.logger.Debug("stopped")

	ch := h.publisher.Subscribe()
	defer h.publisher.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case snapshot := <-ch:
			h.lock.Lock()
			h.snapshot = snapshot
			h.updated = true
			h.lock.Unlock()
		}
	}
}

func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.lock.RLock()
	defer h.lock.RUnlock()
	if !h.updated {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		h.refresher.Refresh()
		return
	}

	w.Header().Set("Content-Type", "application/json")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(h.snapshot); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
