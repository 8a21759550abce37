package device

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestCountdown(t *testing.T) {
	caps := capRecorder{}
	c := newCountdown(&caps)

	c.set(time.Now().Add(2100 * time.Millisecond))
	assert.True(t, c.isRunning())

	// the observed remaining time is published immediately, rounded up to whole seconds
	value, ok := caps.last(CapabilityTimeLeft)
	require.True(t, ok)
	assert.Equal(t, "00:00:03", value)

	// the countdown self-terminates at the end time, publishing the idle value
	assert.Eventually(t, func() bool {
		value, _ := caps.last(CapabilityTimeLeft)
		return value == TimeLeftIdle
	}, 5*time.Second, 50*time.Millisecond)
	assert.False(t, c.isRunning())
}

func TestCountdown_SetIsIdempotent(t *testing.T) {
	caps := capRecorder{}
	c := newCountdown(&caps)

	// a fresh observation recomputes the end time without arming a second tick
	c.set(time.Now().Add(time.Hour))
	c.set(time.Now().Add(30 * time.Minute))
	assert.True(t, c.isRunning())

	value, ok := caps.last(CapabilityTimeLeft)
	require.True(t, ok)
	assert.Equal(t, "00:30:00", value)

	c.stop()
}

func TestCountdown_Stop(t *testing.T) {
	caps := capRecorder{}
	c := newCountdown(&caps)

	c.set(time.Now().Add(time.Hour))
	require.True(t, c.isRunning())

	c.stop()
	assert.False(t, c.isRunning())

	// no tick fires after stop
	before := caps.count(CapabilityTimeLeft)
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, before, caps.count(CapabilityTimeLeft))

	// stop is idempotent
	c.stop()
	assert.False(t, c.isRunning())
}

func TestCountdown_TicksOncePerSecond(t *testing.T) {
	caps := capRecorder{}
	c := newCountdown(&caps)

	c.set(time.Now().Add(time.Hour))
	time.Sleep(2200 * time.Millisecond)
	c.stop()

	// initial publish plus one tick per second boundary crossed
	n := caps.count(CapabilityTimeLeft)
	assert.GreaterOrEqual(t, n, 3)
	assert.LessOrEqual(t, n, 4)
}
