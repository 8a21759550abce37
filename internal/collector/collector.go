// Package collector exports the hub's state as prometheus metrics.
package collector

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/mwindborn/rainbird-monitor/internal/poller"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	rainbirdInUse = prometheus.NewDesc(
		prometheus.BuildFQName("rainbird", "", "in_use"),
		"1 if the hub is currently watering",
		nil,
		nil,
	)
	rainbirdZoneActive = prometheus.NewDesc(
		prometheus.BuildFQName("rainbird", "zone", "active"),
		"1 for the zone that is currently watering",
		[]string{"zone"},
		nil,
	)
	rainbirdZoneTimeLeft = prometheus.NewDesc(
		prometheus.BuildFQName("rainbird", "zone", "time_left_seconds"),
		"Remaining watering time of the active zone in seconds",
		[]string{"zone"},
		nil,
	)
	rainbirdRainSetPointReached = prometheus.NewDesc(
		prometheus.BuildFQName("rainbird", "", "rain_set_point_reached"),
		"1 if the rain sensor's set point is reached",
		nil,
		nil,
	)
)

// Publisher is the subscription half of a poller.
type Publisher interface {
	Subscribe() chan poller.Snapshot
	Unsubscribe(ch chan poller.Snapshot)
}

type Collector struct {
	Publisher    Publisher
	Logger       *slog.Logger
	lock         sync.RWMutex
	lastSnapshot *poller.Snapshot
}

func (c *Collector) Run(ctx context.Context) error {
	c.Logger.Debug("started")
	defer c.Logger.Debug("stopped")

	ch := c.Publisher.Subscribe()
	defer c.Publisher.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case snapshot := <-ch:
			c.lock.Lock()
			c.lastSnapshot = &snapshot
			c.lock.Unlock()
		}
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- rainbirdInUse
	ch <- rainbirdZoneActive
	ch <- rainbirdZoneTimeLeft
	ch <- rainbirdRainSetPointReached
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.lastSnapshot == nil {
		return
	}

	ch <- prometheus.MustNewConstMetric(rainbirdInUse, prometheus.GaugeValue, boolValue(c.lastSnapshot.InUse))

	if c.lastSnapshot.RainSetPointReached != nil {
		ch <- prometheus.MustNewConstMetric(rainbirdRainSetPointReached, prometheus.GaugeValue, boolValue(*c.lastSnapshot.RainSetPointReached))
	}

	if c.lastSnapshot.ActiveZone != nil {
		zone := strconv.Itoa(*c.lastSnapshot.ActiveZone)
		ch <- prometheus.MustNewConstMetric(rainbirdZoneActive, prometheus.GaugeValue, 1, zone)
		if c.lastSnapshot.TimeRemaining != nil {
			ch <- prometheus.MustNewConstMetric(rainbirdZoneTimeLeft, prometheus.GaugeValue, c.lastSnapshot.TimeRemaining.Seconds(), zone)
		}
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
