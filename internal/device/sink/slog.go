package sink

import "log/slog"

// SLogSink logs capability values and triggers.
type SLogSink struct {
	Logger *slog.Logger
}

var _ Sink = SLogSink{}

func (s SLogSink) PublishCapability(name string, value any) {
	s.Logger.Debug("capability updated", slog.String("capability", name), slog.Any("value", value))
}

func (s SLogSink) EmitTrigger(name string) {
	s.Logger.Info("trigger fired", slog.String("trigger", name))
}
