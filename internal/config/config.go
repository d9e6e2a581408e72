// Package config loads and validates the directive-file configuration
// format of spec.md §6. Parsing the textual file is, per spec.md §1, an
// external collaborator's concern — this package exists because the
// daemon still needs a concrete implementation of that interface to run,
// but its correctness is not part of the core protocol engine's tested
// surface.
package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/routesim/ripd/internal/neighbour"
)

// Defaults per spec.md §6.
const (
	DefaultRouteTimeout       = 180 * time.Second
	DefaultPeriodicUpdateTime = 30 * time.Second
	DefaultGarbageTime        = 120 * time.Second
)

const (
	minID   = 1
	maxID   = 64000
	minPort = 1024
	maxPort = 64000
)

// Config is the fully validated result the external parser hands to the
// engine: (instance_id, input_ports, neighbour_info, timeout,
// periodic_update_time, garbage_time).
type Config struct {
	RouterID           int
	InputPorts         []int
	Neighbours         []neighbour.Neighbour
	RouteTimeout       time.Duration
	PeriodicUpdateTime time.Duration
	GarbageTime        time.Duration
}

// raw mirrors the koanf-tagged shape the directive parser produces; it is
// unmarshalled from the parser's map[string]interface{} output and then
// converted and validated into Config.
type raw struct {
	RouterID           int      `koanf:"router_id"`
	InputPorts         []int    `koanf:"input_ports"`
	Outputs            []string `koanf:"outputs"`
	RouteTimeout       int      `koanf:"route_timeout"`
	PeriodicUpdateTime int      `koanf:"periodic_update_time"`
	GarbageTime        int      `koanf:"garbage_time"`
}

// Load reads and validates the configuration file at path, matching the
// teacher's internal/config.Load shape: a koanf instance loads the file
// through a Parser, defaults are seeded before Unmarshal, and the result
// is validated before being returned.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), Parser{}); err != nil {
		return nil, fmt.Errorf("config: loading %s: %w", path, err)
	}

	r := raw{
		RouteTimeout:       int(DefaultRouteTimeout / time.Second),
		PeriodicUpdateTime: int(DefaultPeriodicUpdateTime / time.Second),
		GarbageTime:        int(DefaultGarbageTime / time.Second),
	}
	if err := k.Unmarshal("", &r); err != nil {
		return nil, fmt.Errorf("config: unmarshaling %s: %w", path, err)
	}

	return r.validate()
}

func (r raw) validate() (*Config, error) {
	if r.RouterID == 0 {
		return nil, fmt.Errorf("config: router-id is required")
	}
	if err := checkRange("router-id", r.RouterID, minID, maxID); err != nil {
		return nil, err
	}
	if len(r.InputPorts) == 0 {
		return nil, fmt.Errorf("config: input-ports is required")
	}

	seenPorts := make(map[int]bool, len(r.InputPorts))
	for _, p := range r.InputPorts {
		if err := checkRange("input-ports", p, minPort, maxPort); err != nil {
			return nil, err
		}
		if seenPorts[p] {
			return nil, fmt.Errorf("config: duplicate input port %d", p)
		}
		seenPorts[p] = true
	}

	if len(r.Outputs) == 0 {
		return nil, fmt.Errorf("config: outputs is required")
	}

	neighbours := make([]neighbour.Neighbour, 0, len(r.Outputs))
	seenIDs := make(map[int]bool, len(r.Outputs))
	for _, triple := range r.Outputs {
		n, err := parseOutput(triple)
		if err != nil {
			return nil, err
		}
		if seenPorts[n.Port] {
			return nil, fmt.Errorf("config: output port %d collides with an input port or another output", n.Port)
		}
		if seenIDs[n.PeerID] {
			return nil, fmt.Errorf("config: duplicate neighbour id %d", n.PeerID)
		}
		seenPorts[n.Port] = true
		seenIDs[n.PeerID] = true
		neighbours = append(neighbours, n)
	}

	if _, err := neighbour.NewSet(neighbours); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if r.RouteTimeout < 1 {
		return nil, fmt.Errorf("config: route-timeout must be >= 1 second (got %d)", r.RouteTimeout)
	}
	if r.PeriodicUpdateTime < 1 {
		return nil, fmt.Errorf("config: periodic-update-time must be >= 1 second (got %d)", r.PeriodicUpdateTime)
	}
	if r.GarbageTime < 1 {
		return nil, fmt.Errorf("config: garbage-time must be >= 1 second (got %d)", r.GarbageTime)
	}

	return &Config{
		RouterID:           r.RouterID,
		InputPorts:         r.InputPorts,
		Neighbours:         neighbours,
		RouteTimeout:       time.Duration(r.RouteTimeout) * time.Second,
		PeriodicUpdateTime: time.Duration(r.PeriodicUpdateTime) * time.Second,
		GarbageTime:        time.Duration(r.GarbageTime) * time.Second,
	}, nil
}

func checkRange(name string, v, min, max int) error {
	if v < min || v > max {
		return fmt.Errorf("config: %s value %d out of range [%d, %d]", name, v, min, max)
	}
	return nil
}
