package hub

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// bridge simulates the LAN bridge daemon.
type bridge struct {
	inUse      bool
	activeZone int
	remaining  map[int]int
	rain       bool
	rejectAll  bool
}

func (b *bridge) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method == http.MethodPost {
		if b.rejectAll {
			http.Error(w, "hub busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var response any
	switch req.URL.Path {
	case "/api/info":
		response = Info{Model: "ESP-RZXe", Zones: []int{1, 2, 4}}
	case "/api/in-use":
		response = map[string]bool{"inUse": b.inUse}
	case "/api/active-zone":
		response = map[string]int{"zone": b.activeZone}
	case "/api/rain-set-point":
		response = map[string]bool{"reached": b.rain}
	case "/api/zones/1/remaining":
		seconds, ok := b.remaining[1]
		if !ok {
			response = map[string]any{"seconds": nil}
		} else {
			response = map[string]int{"seconds": seconds}
		}
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(response)
}

func TestBridgeClient_Init(t *testing.T) {
	b := bridge{}
	s := httptest.NewServer(&b)
	defer s.Close()

	c := NewBridgeClient(s.URL, "secret", nil)
	info, err := c.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ESP-RZXe", info.Model)
	assert.Equal(t, []int{1, 2, 4}, info.Zones)
}

func TestBridgeClient_Init_Unreachable(t *testing.T) {
	s := httptest.NewServer(&bridge{})
	s.Close()

	c := NewBridgeClient(s.URL, "", nil)
	_, err := c.Init(context.Background())
	assert.True(t, errors.Is(err, ErrNotConnected))
}

func TestBridgeClient_StateReaders(t *testing.T) {
	b := bridge{inUse: true, activeZone: 1, remaining: map[int]int{1: 90}, rain: true}
	s := httptest.NewServer(&b)
	defer s.Close()

	c := NewBridgeClient(s.URL, "", nil)
	ctx := context.Background()

	inUse, err := c.IsInUse(ctx)
	require.NoError(t, err)
	assert.True(t, inUse)

	zone, ok, err := c.ActiveZone(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, zone)

	remaining, ok, err := c.RemainingDuration(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 90*time.Second, remaining)

	rain, err := c.RainSetPointReached(ctx)
	require.NoError(t, err)
	assert.True(t, rain)

	b.inUse = false
	b.activeZone = 0
	delete(b.remaining, 1)

	_, ok, err = c.ActiveZone(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.RemainingDuration(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBridgeClient_Commands(t *testing.T) {
	b := bridge{}
	s := httptest.NewServer(&b)
	defer s.Close()

	c := NewBridgeClient(s.URL, "", nil)
	ctx := context.Background()

	assert.NoError(t, c.ActivateZone(ctx, 1, 5*time.Minute))
	assert.NoError(t, c.DeactivateZone(ctx, 1))
	assert.NoError(t, c.DeactivateAllZones(ctx))
	assert.NoError(t, c.StopIrrigation(ctx))

	b.rejectAll = true

	err := c.ActivateZone(ctx, 1, 5*time.Minute)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommand))
	var commandErr *CommandError
	require.True(t, errors.As(err, &commandErr))
	assert.Equal(t, http.StatusServiceUnavailable, commandErr.StatusCode)
}
