// Package sink fans out capability values and triggers to their destinations.
package sink

import "github.com/mwindborn/rainbird-monitor/internal/device"

// A Sink receives published capability values and emitted triggers.
type Sink interface {
	device.CapabilitySink
	device.TriggerSink
}

type Sinks []Sink

var _ Sink = Sinks{}

func (s Sinks) PublishCapability(name string, value any) {
	for _, sink := range s {
		sink.PublishCapability(name, value)
	}
}

func (s Sinks) EmitTrigger(name string) {
	for _, sink := range s {
		sink.EmitTrigger(name)
	}
}
