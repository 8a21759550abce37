// Package monitor implements the rainbird monitor command.
package monitor

import (
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/mwindborn/rainbird-monitor/internal/app"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Cmd = cobra.Command{
	Use:   "monitor",
	Short: "Monitor the hub and export its state",
	RunE:  run,
}

func run(cmd *cobra.Command, _ []string) error {
	opts := slog.HandlerOptions{}
	if viper.GetBool("debug") {
		opts.Level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &opts))

	tasks, err := app.New(viper.GetViper(), cmd.Root().Version, prometheus.DefaultRegisterer, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("rainbird monitor starting", "version", cmd.Root().Version)
	defer logger.Info("rainbird monitor stopped")
	return tasks.Run(ctx)
}
