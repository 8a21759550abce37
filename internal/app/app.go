// Package app assembles the monitor's tasks: the session manager running the poller and
// controller, the mqtt status watcher and sinks, the prometheus exporter, the health
// endpoint and the slack bot.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/clambin/go-common/slackbot"
	"github.com/clambin/go-common/taskmanager"
	"github.com/clambin/go-common/taskmanager/httpserver"
	promserver "github.com/clambin/go-common/taskmanager/prometheus"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/fsnotify/fsnotify"
	"github.com/mwindborn/rainbird-monitor/internal/bot"
	"github.com/mwindborn/rainbird-monitor/internal/collector"
	"github.com/mwindborn/rainbird-monitor/internal/device/sink"
	"github.com/mwindborn/rainbird-monitor/internal/health"
	"github.com/mwindborn/rainbird-monitor/internal/hub"
	"github.com/mwindborn/rainbird-monitor/internal/hub/notify"
	"github.com/mwindborn/rainbird-monitor/internal/poller"
	"github.com/mwindborn/rainbird-monitor/internal/session"
	"github.com/mwindborn/rainbird-monitor/internal/zones"
	"github.com/mwindborn/rainbird-monitor/pkg/pubsub"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

func New(cfg *viper.Viper, version string, registry prometheus.Registerer, logger *slog.Logger) (*taskmanager.Manager, error) {
	zoneNames, err := maybeLoadZones(zones.ConfigPath(cfg.ConfigFileUsed()), logger)
	if err != nil {
		return nil, err
	}

	var mqttClient mqtt.Client
	if broker := cfg.GetString("mqtt.broker"); broker != "" {
		mqttClient = mqtt.NewClient(mqttOptions(broker))
		if token := mqttClient.Connect(); token.Wait() && token.Error() != nil {
			return nil, fmt.Errorf("mqtt: %w", token.Error())
		}
	}

	return taskmanager.New(makeTasks(cfg, mqttClient, zoneNames, version, registry, logger)...), nil
}

// mqttOptions builds the broker connection options. The session is persistent and
// subscriptions are resumed on reconnect, so a broker outage doesn't silently drop the
// status subscription.
func mqttOptions(broker string) *mqtt.ClientOptions {
	return mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("rainbird-monitor").
		SetAutoReconnect(true).
		SetCleanSession(false).
		SetResumeSubs(true)
}

func maybeLoadZones(path string, logger *slog.Logger) (zones.Zones, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("no zones.yaml found. using the hub's zone list instead")
			err = nil
		}
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	return zones.Load(f)
}

func makeTasks(cfg *viper.Viper, mqttClient mqtt.Client, zoneNames zones.Zones, version string, registry prometheus.Registerer, l *slog.Logger) []taskmanager.Task {
	var tasks []taskmanager.Task

	// Sinks for capability values & triggers
	sinks := sink.Sinks{sink.SLogSink{Logger: l.With("component", "device")}}
	if mqttClient != nil {
		sinks = append(sinks, &sink.MQTTSink{
			Client: mqttClient,
			Prefix: cfg.GetString("mqtt.topics.prefix"),
			Logger: l.With("component", "mqtt"),
		})
	}

	// Shared snapshot publisher. Owned here, not by the poller, so subscribers survive a
	// session rebuild.
	publisher := pubsub.New[poller.Snapshot](l.With("component", "pubsub"))

	// Session manager
	requestMetrics := hub.NewRequestMetrics("rainbird", "")
	if registry != nil {
		registry.MustRegister(requestMetrics)
	}
	build := func(session.Settings) (hub.Client, error) {
		return hub.NewBridgeClient(cfg.GetString("bridge.url"), cfg.GetString("bridge.password"), requestMetrics), nil
	}
	manager := session.NewManager(build, publisher, sinks, sinks, sessionSettings(cfg, zoneNames), l.With("component", "session"))
	tasks = append(tasks, manager)

	// Settings watcher: a config file change rebuilds the session against the new settings
	if cfg.ConfigFileUsed() != "" {
		cfg.OnConfigChange(func(_ fsnotify.Event) {
			reloadSettings(cfg, manager, l.With("component", "session"))
		})
		cfg.WatchConfig()
	}

	// Status watcher: the bridge pings us over mqtt when the hub's state changes
	if mqttClient != nil {
		tasks = append(tasks, notify.New(
			mqttClient,
			cfg.GetString("mqtt.topics.status"),
			manager.Refresh,
			l.With("component", "watcher"),
		))
	}

	// Collector
	coll := &collector.Collector{Publisher: publisher, Logger: l.With("component", "collector")}
	if registry != nil {
		registry.MustRegister(coll)
	}
	tasks = append(tasks, coll)

	// Prometheus server
	tasks = append(tasks, promserver.New(promserver.WithAddr(cfg.GetString("exporter.addr"))))

	// Health endpoint
	h := health.New(publisher, manager, l.With("component", "health"))
	tasks = append(tasks, h)
	r := http.NewServeMux()
	r.Handle("/health", h)
	tasks = append(tasks, httpserver.New(cfg.GetString("health.addr"), r))

	// Slackbot
	if token := cfg.GetString("slack.token"); token != "" {
		b := slackbot.New(
			token,
			slackbot.WithName("rainbird-monitor "+version),
			slackbot.WithLogger(l.With(slog.String("component", "slackbot"))),
		)
		tasks = append(tasks, b)
		tasks = append(tasks, bot.New(manager, b, publisher, l.With(slog.String("component", "bot"))))
	}

	return tasks
}

func sessionSettings(cfg *viper.Viper, zoneNames zones.Zones) session.Settings {
	return session.Settings{
		Zones:          zoneNames,
		Queueing:       cfg.GetBool("irrigation.queueing"),
		DefaultRuntime: cfg.GetDuration("irrigation.defaultRuntime"),
		PollInterval:   cfg.GetDuration("poller.interval"),
	}
}

// reloadSettings re-reads the zone list and applies the current configuration to the
// session manager, tearing down the running session and building a new one.
func reloadSettings(cfg *viper.Viper, manager *session.Manager, logger *slog.Logger) {
	zoneNames, err := maybeLoadZones(zones.ConfigPath(cfg.ConfigFileUsed()), logger)
	if err != nil {
		logger.Error("failed to load zones", "err", err)
		return
	}
	logger.Info("configuration changed")
	if err := manager.Reload(sessionSettings(cfg, zoneNames)); err != nil {
		logger.Error("failed to rebuild session", "err", err)
	}
}
