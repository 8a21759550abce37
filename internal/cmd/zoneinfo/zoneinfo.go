// Package zoneinfo implements the rainbird zones command: it connects to the bridge and
// prints the hub model and its zones, with configured names where known.
package zoneinfo

import (
	"context"
	"fmt"
	"os"

	"github.com/mwindborn/rainbird-monitor/internal/hub"
	"github.com/mwindborn/rainbird-monitor/internal/zones"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var Cmd = cobra.Command{
	Use:   "zones",
	Short: "Show the hub's model and zones",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client := hub.NewBridgeClient(
			viper.GetString("bridge.url"),
			viper.GetString("bridge.password"),
			hub.NewRequestMetrics("rainbird", ""),
		)
		names, err := loadZoneNames()
		if err != nil {
			return err
		}
		return ShowZones(cmd.Context(), client, names, yaml.NewEncoder(os.Stdout))
	},
}

// InfoGetter is the part of the hub client needed to list zones.
type InfoGetter interface {
	Init(ctx context.Context) (hub.Info, error)
}

type Encoder interface {
	Encode(any) error
}

type entry struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name,omitempty"`
}

type report struct {
	Model string  `yaml:"model"`
	Zones []entry `yaml:"zones"`
}

func ShowZones(ctx context.Context, client InfoGetter, names zones.Zones, e Encoder) error {
	info, err := client.Init(ctx)
	if err != nil {
		return fmt.Errorf("bridge: %w", err)
	}

	r := report{Model: info.Model}
	for _, id := range info.Zones {
		name, _ := names.Name(id)
		r.Zones = append(r.Zones, entry{ID: id, Name: name})
	}
	return e.Encode(r)
}

func loadZoneNames() (zones.Zones, error) {
	f, err := os.Open(zones.ConfigPath(viper.ConfigFileUsed()))
	if err != nil {
		if os.IsNotExist(err) {
			err = nil
		}
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	return zones.Load(f)
}
