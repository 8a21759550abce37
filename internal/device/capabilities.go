package device

// Capability names published by the controller.
const (
	CapabilityIsActive     = "is_active"
	CapabilityActiveZone   = "active_zone"
	CapabilityTimeLeft     = "zone_time_left"
	CapabilityRainSetPoint = "rain_set_point_reached"
)

// Values published for active_zone and zone_time_left when no session is running, or the
// hub reports a zone we don't know.
const (
	ZoneNone     = "None"
	ZoneUnknown  = "Unknown"
	TimeLeftIdle = "-"
)

// Trigger names emitted on state transitions.
const (
	TriggerTurnsOn             = "turns_on"
	TriggerTurnsOff            = "turns_off"
	TriggerRainSetPointChanged = "rain_set_point_changed"
	TriggerRainSetPointReached = "rain_set_point_reached"
)

// CapabilitySink receives capability values. Publishing is idempotent: the controller
// re-publishes unchanged values on every reconciliation. Implementations must be safe for
// concurrent use: the countdown tick publishes concurrently with reconciliation.
type CapabilitySink interface {
	PublishCapability(name string, value any)
}

// TriggerSink receives edge-triggered events, fired only on value transitions.
type TriggerSink interface {
	EmitTrigger(name string)
}
