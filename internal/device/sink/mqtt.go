package sink

import (
	"encoding/json"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher is the part of the mqtt client the sink uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
}

// MQTTSink publishes capability values and triggers over mqtt. Capability values go to
// <prefix>/capability/<name> as retained messages, so late subscribers see current state.
// Triggers go to <prefix>/event/<name>, unretained: an event is only an event once.
type MQTTSink struct {
	Client Publisher
	Prefix string
	Logger *slog.Logger
}

var _ Sink = &MQTTSink{}

func (s *MQTTSink) PublishCapability(name string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.Logger.Error("failed to encode capability value", slog.String("capability", name), "err", err)
		return
	}
	s.publish(s.Prefix+"/capability/"+name, true, payload)
}

func (s *MQTTSink) EmitTrigger(name string) {
	s.publish(s.Prefix+"/event/"+name, false, []byte{})
}

func (s *MQTTSink) publish(topic string, retained bool, payload []byte) {
	token := s.Client.Publish(topic, 1, retained, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			s.Logger.Error("mqtt publish failed", slog.String("topic", topic), "err", token.Error())
		}
	}()
}
