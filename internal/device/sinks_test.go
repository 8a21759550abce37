package device

import "sync"

// capRecorder records capability publishes for tests.
type capRecorder struct {
	mu        sync.Mutex
	published []capValue
}

type capValue struct {
	name  string
	value any
}

func (in *capRecorder) PublishCapability(name string, value any) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.published = append(in.published, capValue{name: name, value: value})
}

// last returns the most recently published value for name.
func (in *capRecorder) last(name string) (any, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for i := len(in.published) - 1; i >= 0; i-- {
		if in.published[i].name == name {
			return in.published[i].value, true
		}
	}
	return nil, false
}

func (in *capRecorder) count(name string) int {
	in.mu.Lock()
	defer in.mu.Unlock()
	var n int
	for _, p := range in.published {
		if p.name == name {
			n++
		}
	}
	return n
}

// values returns all published values for name, oldest first.
func (in *capRecorder) values(name string) []any {
	in.mu.Lock()
	defer in.mu.Unlock()
	var values []any
	for _, p := range in.published {
		if p.name == name {
			values = append(values, p.value)
		}
	}
	return values
}

// triggerRecorder records emitted triggers for tests.
type triggerRecorder struct {
	mu       sync.Mutex
	triggers []string
}

func (in *triggerRecorder) EmitTrigger(name string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.triggers = append(in.triggers, name)
}

func (in *triggerRecorder) emitted() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	triggers := make([]string, len(in.triggers))
	copy(triggers, in.triggers)
	return triggers
}
