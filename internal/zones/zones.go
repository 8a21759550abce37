// Package zones holds the set of irrigation zones known to the hub. The zone list is
// supplied by the user (the hub itself only reports zone numbers) and is read-only at runtime.
package zones

import (
	"fmt"
	"github.com/clambin/go-common/set"
	"gopkg.in/yaml.v3"
	"io"
	"path/filepath"
	"strings"
)

// ConfigPath returns the location of the zones.yaml file, which lives next to the
// application's config file.
func ConfigPath(configFile string) string {
	return filepath.Join(filepath.Dir(configFile), "zones.yaml")
}

// A Zone is an addressable valve circuit on the hub, identified by a small positive number.
type Zone struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

type Zones []Zone

// Load reads a zone list from a zones.yaml file.
func Load(in io.Reader) (Zones, error) {
	var config struct {
		Zones Zones `yaml:"zones"`
	}
	if err := yaml.NewDecoder(in).Decode(&config); err != nil {
		return nil, err
	}
	for _, zone := range config.Zones {
		if zone.ID < 1 {
			return nil, fmt.Errorf("invalid zone id: %d", zone.ID)
		}
	}
	return config.Zones, nil
}

// Numbered builds a zone list from bare zone numbers, as reported by the hub.
func Numbered(ids []int) Zones {
	z := make(Zones, len(ids))
	for i, id := range ids {
		z[i] = Zone{ID: id, Name: fmt.Sprintf("Zone %d", id)}
	}
	return z
}

// Name returns the name of the zone with the given id.
func (z Zones) Name(id int) (string, bool) {
	for _, zone := range z {
		if zone.ID == id {
			return zone.Name, true
		}
	}
	return "", false
}

// IDs returns the set of known zone ids.
func (z Zones) IDs() set.Set[int] {
	ids := make([]int, len(z))
	for i, zone := range z {
		ids[i] = zone.ID
	}
	return set.New(ids...)
}

// Match returns all zones whose name contains the (case-insensitive) query string.
func (z Zones) Match(query string) Zones {
	query = strings.ToLower(query)
	var matched Zones
	for _, zone := range z {
		if strings.Contains(strings.ToLower(zone.Name), query) {
			matched = append(matched, zone)
		}
	}
	return matched
}
