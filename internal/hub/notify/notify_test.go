package notify

import (
	"context"
	"errors"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type fakeToken struct {
	err error
}

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (t fakeToken) Error() error                   { return t.err }

type fakeSubscriber struct {
	subscribeErr error
	handler      atomic.Value
}

func (f *fakeSubscriber) Subscribe(_ string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	f.handler.Store(callback)
	return fakeToken{err: f.subscribeErr}
}

func (f *fakeSubscriber) Unsubscribe(...string) mqtt.Token {
	return fakeToken{}
}

type fakeMessage struct{}

func (fakeMessage) Duplicate() bool   { return false }
func (fakeMessage) Qos() byte         { return 1 }
func (fakeMessage) Retained() bool    { return false }
func (fakeMessage) Topic() string     { return "rainbird/status" }
func (fakeMessage) MessageID() uint16 { return 1 }
func (fakeMessage) Payload() []byte   { return nil }
func (fakeMessage) Ack()              {}

func TestWatcher_Run(t *testing.T) {
	var refreshed atomic.Int32
	s := fakeSubscriber{}
	w := New(&s, "rainbird/status", func() { refreshed.Add(1) }, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return s.handler.Load() != nil
	}, time.Second, 10*time.Millisecond)

	handler := s.handler.Load().(mqtt.MessageHandler)
	handler(nil, fakeMessage{})
	handler(nil, fakeMessage{})
	assert.Equal(t, int32(2), refreshed.Load())

	cancel()
	assert.NoError(t, <-errCh)
}

func TestWatcher_Run_SubscribeFails(t *testing.T) {
	s := fakeSubscriber{subscribeErr: errors.New("broker unavailable")}
	w := New(&s, "rainbird/status", func() {}, slog.Default())

	err := w.Run(context.Background())
	assert.Error(t, err)
}
