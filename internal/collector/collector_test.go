package collector

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mwindborn/rainbird-monitor/internal/poller"
	"github.com/mwindborn/rainbird-monitor/pkg/pubsub"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	publisher := pubsub.New[poller.Snapshot](slog.Default())
	c := Collector{Publisher: publisher, Logger: slog.Default()}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- c.Run(ctx) }()
	require.Eventually(t, func() bool { return publisher.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	// no snapshot received yet: no metrics
	assert.Zero(t, testutil.CollectAndCount(&c))

	zone := 2
	remaining := 150 * time.Second
	reached := false
	publisher.Publish(poller.Snapshot{InUse: true, ActiveZone: &zone, TimeRemaining: &remaining, RainSetPointReached: &reached})
	assert.Eventually(t, func() bool { return testutil.CollectAndCount(&c) > 0 }, time.Second, 10*time.Millisecond)

	assert.NoError(t, testutil.CollectAndCompare(&c, strings.NewReader(`
# HELP rainbird_in_use 1 if the hub is currently watering
# TYPE rainbird_in_use gauge
rainbird_in_use 1

# HELP rainbird_rain_set_point_reached 1 if the rain sensor's set point is reached
# TYPE rainbird_rain_set_point_reached gauge
rainbird_rain_set_point_reached 0

# HELP rainbird_zone_active 1 for the zone that is currently watering
# TYPE rainbird_zone_active gauge
rainbird_zone_active{zone="2"} 1

# HELP rainbird_zone_time_left_seconds Remaining watering time of the active zone in seconds
# TYPE rainbird_zone_time_left_seconds gauge
rainbird_zone_time_left_seconds{zone="2"} 150
`)))

	publisher.Publish(poller.Snapshot{})
	assert.Eventually(t, func() bool { return testutil.CollectAndCount(&c) == 1 }, time.Second, 10*time.Millisecond)

	assert.NoError(t, testutil.CollectAndCompare(&c, strings.NewReader(`
# HELP rainbird_in_use 1 if the hub is currently watering
# TYPE rainbird_in_use gauge
rainbird_in_use 0
`)))

	cancel()
	assert.NoError(t, <-errCh)
}
