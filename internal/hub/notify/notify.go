// Package notify listens for the bridge's "status changed" pings. The ping carries no
// payload: its only job is to make the poller re-pull the hub state.
package notify

import (
	"context"
	"fmt"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"log/slog"
)

// Subscriber is the part of mqtt.Client used by a Watcher.
type Subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

type Watcher struct {
	client  Subscriber
	topic   string
	refresh func()
	logger  *slog.Logger
}

// New returns a Watcher that calls refresh for every message received on topic.
func New(client Subscriber, topic string, refresh func(), logger *slog.Logger) *Watcher {
	return &Watcher{
		client:  client,
		topic:   topic,
		refresh: refresh,
		logger:  logger,
	}
}

func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Debug("started", slog.String("topic", w.topic))
	defer w.logger.Debug("stopped")

	if token := w.client.Subscribe(w.topic, 1, w.onMessage); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", w.topic, token.Error())
	}

	<-ctx.Done()

	if token := w.client.Unsubscribe(w.topic); token.Wait() && token.Error() != nil {
		w.logger.Warn("failed to unsubscribe", "err", token.Error())
	}
	return nil
}

func (w *Watcher) onMessage(_ mqtt.Client, msg mqtt.Message) {
	w.logger.Debug("status notification received", slog.String("topic", msg.Topic()))
	w.refresh()
}
