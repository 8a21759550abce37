package poller

import (
	"log/slog"
	"time"
)

// A Snapshot is the last-known observable hub state, recomputed on every poll. ActiveZone
// is only set while the hub is in use; TimeRemaining is only set when ActiveZone is.
type Snapshot struct {
	InUse               bool           `json:"inUse"`
	ActiveZone          *int           `json:"activeZone,omitempty"`
	TimeRemaining       *time.Duration `json:"timeRemaining,omitempty"`
	RainSetPointReached *bool          `json:"rainSetPointReached,omitempty"`
}

func (s Snapshot) LogValue() slog.Value {
	attribs := make([]slog.Attr, 1, 4)
	attribs[0] = slog.Bool("inUse", s.InUse)
	if s.ActiveZone != nil {
		attribs = append(attribs, slog.Int("zone", *s.ActiveZone))
	}
	if s.TimeRemaining != nil {
		attribs = append(attribs, slog.Duration("remaining", *s.TimeRemaining))
	}
	if s.RainSetPointReached != nil {
		attribs = append(attribs, slog.Bool("rainSetPoint", *s.RainSetPointReached))
	}
	return slog.GroupValue(attribs...)
}
