package sink

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/mwindborn/rainbird-monitor/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err error
}

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (t fakeToken) Error() error                   { return t.err }

type publication struct {
	topic    string
	retained bool
	payload  []byte
}

type fakePublisher struct {
	mu         sync.Mutex
	publishErr error
	published  []publication
}

func (f *fakePublisher) Publish(topic string, _ byte, retained bool, payload any) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publication{topic: topic, retained: retained, payload: payload.([]byte)})
	return fakeToken{err: f.publishErr}
}

func (f *fakePublisher) publications() []publication {
	f.mu.Lock()
	defer f.mu.Unlock()
	published := make([]publication, len(f.published))
	copy(published, f.published)
	return published
}

func TestMQTTSink(t *testing.T) {
	f := fakePublisher{}
	s := MQTTSink{Client: &f, Prefix: "rainbird", Logger: slog.Default()}

	s.PublishCapability(device.CapabilityActiveZone, "Front Lawn")
	s.PublishCapability(device.CapabilityIsActive, true)
	s.EmitTrigger(device.TriggerTurnsOn)

	published := f.publications()
	require.Len(t, published, 3)
	assert.Equal(t, "rainbird/capability/active_zone", published[0].topic)
	assert.True(t, published[0].retained)
	assert.Equal(t, `"Front Lawn"`, string(published[0].payload))
	assert.Equal(t, "rainbird/capability/is_active", published[1].topic)
	assert.Equal(t, `true`, string(published[1].payload))
	assert.Equal(t, "rainbird/event/turns_on", published[2].topic)
	assert.False(t, published[2].retained)
	assert.Empty(t, published[2].payload)
}

func TestMQTTSink_PublishFails(t *testing.T) {
	// a failed publish is logged, not propagated
	f := fakePublisher{publishErr: errors.New("broker unavailable")}
	s := MQTTSink{Client: &f, Prefix: "rainbird", Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	s.PublishCapability(device.CapabilityIsActive, false)
	assert.Len(t, f.publications(), 1)
}

type recordingSink struct {
	capabilities []string
	triggers     []string
}

func (r *recordingSink) PublishCapability(name string, _ any) {
	r.capabilities = append(r.capabilities, name)
}

func (r *recordingSink) EmitTrigger(name string) {
	r.triggers = append(r.triggers, name)
}

func TestSinks(t *testing.T) {
	var first, second recordingSink
	s := Sinks{&first, &second}

	s.PublishCapability(device.CapabilityIsActive, true)
	s.EmitTrigger(device.TriggerTurnsOn)

	for _, r := range []*recordingSink{&first, &second} {
		assert.Equal(t, []string{device.CapabilityIsActive}, r.capabilities)
		assert.Equal(t, []string{device.TriggerTurnsOn}, r.triggers)
	}
}
