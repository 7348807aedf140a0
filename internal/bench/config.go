package bench

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profile is a named workload preset.
type Profile struct {
	Name         string
	Clients      int
	Duration     time.Duration
	RPS          float64
	ListSize     int
	PayloadBytes int
}

// Profiles are the built-in workloads.
var Profiles = map[string]Profile{
	"fast": {
		Name:         "fast",
		Clients:      50,
		Duration:     10 * time.Second,
		RPS:          2,
		ListSize:     20,
		PayloadBytes: 24,
	},
	"standard": {
		Name:         "standard",
		Clients:      200,
		Duration:     30 * time.Second,
		RPS:          5,
		ListSize:     50,
		PayloadBytes: 24,
	},
	"stress": {
		Name:         "stress",
		Clients:      500,
		Duration:     60 * time.Second,
		RPS:          10,
		ListSize:     100,
		PayloadBytes: 24,
	},
}

// ProfileNames returns the profile names in order.
func ProfileNames() []string {
	names := make([]string, 0, len(Profiles))
	for name := range Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config is one benchmark run.
type Config struct {
	Profile      string
	Clients      int
	Duration     time.Duration
	RPS          float64 // events per second per client
	ListSize     int
	PayloadBytes int

	// EventTimeout bounds the wait for one echo. Zero derives it from RPS.
	EventTimeout time.Duration
}

// FromProfile returns the config for a named profile.
func FromProfile(name string) (Config, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "standard"
	}
	p, ok := Profiles[name]
	if !ok {
		return Config{}, fmt.Errorf("unknown profile %q (want one of %s)", name, strings.Join(ProfileNames(), ", "))
	}
	return Config{
		Profile:      p.Name,
		Clients:      p.Clients,
		Duration:     p.Duration,
		RPS:          p.RPS,
		ListSize:     p.ListSize,
		PayloadBytes: p.PayloadBytes,
	}, nil
}

// Validate checks the workload.
func (c Config) Validate() error {
	switch {
	case c.Clients <= 0:
		return errors.New("clients must be > 0")
	case c.Duration <= 0:
		return errors.New("duration must be > 0")
	case c.RPS <= 0:
		return errors.New("rps must be > 0")
	case c.ListSize < 0:
		return errors.New("list must be >= 0")
	case c.PayloadBytes <= 0:
		return errors.New("payload bytes must be > 0")
	}
	return nil
}

func (c Config) eventTimeout() time.Duration {
	if c.EventTimeout > 0 {
		return c.EventTimeout
	}
	period := time.Duration(float64(time.Second) / c.RPS)
	return max(period*10, 2*time.Second)
}
