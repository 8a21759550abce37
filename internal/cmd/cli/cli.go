// Package cli implements the rainbird command line interface.
package cli

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/clambin/go-common/charmer"
	"github.com/mwindborn/rainbird-monitor/internal/cmd/monitor"
	"github.com/mwindborn/rainbird-monitor/internal/cmd/zoneinfo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFilename string
	RootCmd        = cobra.Command{
		Use:   "rainbird",
		Short: "Monitor and control a Rain Bird irrigation hub",
	}
)

var args = charmer.Arguments{
	"debug":                     {Default: false, Help: "Log debug messages"},
	"bridge.url":                {Default: "http://localhost:8080", Help: "URL of the Rain Bird LAN bridge"},
	"bridge.password":           {Default: "", Help: "Password of the Rain Bird LAN bridge"},
	"mqtt.broker":               {Default: "", Help: "MQTT broker URL (empty: mqtt disabled)"},
	"mqtt.topics.status":        {Default: "rainbird/status", Help: "MQTT topic the bridge publishes status changes on"},
	"mqtt.topics.prefix":        {Default: "rainbird", Help: "Topic prefix for published capabilities & events"},
	"poller.interval":           {Default: 30 * time.Second, Help: "Poller interval"},
	"exporter.addr":             {Default: ":9090", Help: "Address of Prometheus exporter"},
	"health.addr":               {Default: ":8080", Help: "Address of /health endpoint"},
	"irrigation.queueing":       {Default: false, Help: "Let the hub queue started zones instead of pre-empting"},
	"irrigation.defaultRuntime": {Default: 15 * time.Minute, Help: "Runtime for start requests without a duration"},
	"slack.token":               {Default: "", Help: "Slack bot token (empty: bot disabled)"},
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file")
	if err := charmer.SetPersistentFlags(&RootCmd, viper.GetViper(), args); err != nil {
		panic("failed to set command line flags: " + err.Error())
	}

	RootCmd.AddCommand(&monitor.Cmd, &zoneinfo.Cmd)
}

func initConfig() {
	if configFilename != "" {
		viper.SetConfigFile(configFilename)
	} else {
		viper.AddConfigPath("/etc/rainbird-monitor/")
		viper.AddConfigPath("$HOME/.rainbird-monitor")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("RAINBIRD_MONITOR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", "err", err)
			os.Exit(1)
		}
	}
}
