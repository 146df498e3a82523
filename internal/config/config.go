// Package config loads match configuration from YAML, layering a user file
// over embedded defaults.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/level"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/observability"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Gameplay types.
const (
	GameplayTimed   = "timed"
	GameplayIllness = "illness"
)

// Config holds every tunable of a match.
type Config struct {
	Session SessionConfig                 `yaml:"session"`
	Cells   map[string]cells.Coefficients `yaml:"cells"`
	Hazards HazardsConfig                 `yaml:"hazards"`
	AI      AIConfig                      `yaml:"ai"`
	Net     NetConfig                     `yaml:"net"`
	Sim     SimConfig                     `yaml:"sim"`
	Level   level.Config                  `yaml:"level"`
	Logging logging.Config                `yaml:"logging"`
	Output  OutputConfig                  `yaml:"output"`

	Observability observability.Config `yaml:"observability"`

	Derived DerivedConfig `yaml:"-"`
}

// SessionConfig is the SessionDetails a match starts from. Setting is the
// time limit in minutes for timed matches and the winning infection
// percentage for illness matches.
type SessionConfig struct {
	Gameplay    string  `yaml:"gameplay"`
	Setting     float64 `yaml:"setting"`
	Bots        int     `yaml:"bots"`
	Multiplayer bool    `yaml:"multiplayer"`
	Host        bool    `yaml:"host"`
	PlayerName  string  `yaml:"player_name"`
	MaxPlayers  int     `yaml:"max_players"`
}

type HazardsConfig struct {
	ImmuneTimeout      time.Duration `yaml:"immune_timeout"`
	ImmuneWarning      time.Duration `yaml:"immune_warning"`
	ImmuneInitialBatch int           `yaml:"immune_initial_batch"`
	WhiteBloodMax      int           `yaml:"white_blood_max"`
	MedicationTimeout  time.Duration `yaml:"medication_timeout"`
	MedicationWarning  time.Duration `yaml:"medication_warning"`
}

type AIConfig struct {
	SightRadius          float64 `yaml:"sight_radius"`
	EvadeRadius          float64 `yaml:"evade_radius"`
	EvadeHealthRatio     float64 `yaml:"evade_health_ratio"`
	BaseIQ               float64 `yaml:"base_iq"`
	CombineBelow         int     `yaml:"combine_below"`
	SplitAbove           int     `yaml:"split_above"`
	HybridizeAbove       int     `yaml:"hybridize_above"`
	KamikazeOffenseRatio float64 `yaml:"kamikaze_offense_ratio"`
	DivideReserve        float64 `yaml:"divide_reserve"`
}

type NetConfig struct {
	Addr                    string        `yaml:"addr"`
	UCellSnapshotInterval   time.Duration `yaml:"ucell_snapshot_interval"`
	ClusterSnapshotInterval time.Duration `yaml:"cluster_snapshot_interval"`
	SnapshotPhaseOffset     time.Duration `yaml:"snapshot_phase_offset"`
	SendQueue               int           `yaml:"send_queue"`
	PingInterval            time.Duration `yaml:"ping_interval"`
}

type SimConfig struct {
	TickRate        int           `yaml:"tick_rate"`
	MaxCatchUp      int           `yaml:"max_catch_up"`
	CommandCapacity int           `yaml:"command_capacity"`
	PerActorLimit   int           `yaml:"per_actor_limit"`
	ContactRadius   float64       `yaml:"contact_radius"`
	SpawnGrace      time.Duration `yaml:"spawn_grace"`
	SpeedScale      float64       `yaml:"speed_scale"`
	// LingerAfterOver stops the host this long after game over; zero keeps
	// serving until interrupted.
	LingerAfterOver time.Duration `yaml:"linger_after_over"`
}

type OutputConfig struct {
	Dir               string        `yaml:"dir"`
	TelemetryInterval time.Duration `yaml:"telemetry_interval"`
}

// DerivedConfig holds values computed after loading.
type DerivedConfig struct {
	Table        cells.Table
	TickInterval time.Duration
	TickDT       float64
}

// Load reads path over the embedded defaults. An empty path uses the
// defaults alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := cfg.Overlay(data); err != nil {
			return nil, err
		}
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the embedded configuration.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Overlay decodes YAML over the current values. A cell row present in data
// replaces the whole row.
func (c *Config) Overlay(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// Normalize clamps values into usable ranges and recomputes derived values.
// Callers that edit a loaded Config must call it again.
func (c *Config) Normalize() error {
	return c.finish()
}

func (c *Config) finish() error {
	switch c.Session.Gameplay {
	case GameplayTimed, GameplayIllness:
	default:
		return fmt.Errorf("config: unknown gameplay %q", c.Session.Gameplay)
	}
	c.Session.Bots = max(c.Session.Bots, 0)
	c.Session.MaxPlayers = max(c.Session.MaxPlayers, 1)
	humans := 1
	if c.Session.Multiplayer {
		humans = c.Session.MaxPlayers
	}
	if c.Session.Bots+humans > registry.CategorySize {
		return fmt.Errorf("config: %d bots and %d players exceed %d viruses", c.Session.Bots, humans, registry.CategorySize)
	}
	if c.Session.Setting <= 0 {
		return fmt.Errorf("config: session.setting must be positive")
	}

	table, err := tableFrom(c.Cells)
	if err != nil {
		return err
	}

	c.Hazards.ImmuneInitialBatch = max(c.Hazards.ImmuneInitialBatch, 1)
	c.Hazards.WhiteBloodMax = max(c.Hazards.WhiteBloodMax, 0)
	c.Hazards.ImmuneWarning = min(max(c.Hazards.ImmuneWarning, 0), c.Hazards.ImmuneTimeout)
	c.Hazards.MedicationWarning = min(max(c.Hazards.MedicationWarning, 0), c.Hazards.MedicationTimeout)

	c.Sim.TickRate = max(c.Sim.TickRate, 1)
	c.Sim.MaxCatchUp = max(c.Sim.MaxCatchUp, 1)
	c.Sim.CommandCapacity = max(c.Sim.CommandCapacity, 16)
	c.Sim.PerActorLimit = max(c.Sim.PerActorLimit, 1)
	if c.Sim.SpeedScale <= 0 {
		c.Sim.SpeedScale = 1
	}
	c.Sim.LingerAfterOver = max(c.Sim.LingerAfterOver, 0)

	tick := time.Second / time.Duration(c.Sim.TickRate)
	c.Net.UCellSnapshotInterval = max(c.Net.UCellSnapshotInterval, tick)
	c.Net.ClusterSnapshotInterval = max(c.Net.ClusterSnapshotInterval, tick)
	c.Net.SnapshotPhaseOffset = max(c.Net.SnapshotPhaseOffset, 0)
	c.Net.SendQueue = max(c.Net.SendQueue, 8)
	c.Net.PingInterval = max(c.Net.PingInterval, time.Second)

	c.Level.UCells = min(max(c.Level.UCells, 0), 256)
	c.Level.WhiteBloodPorts = max(c.Level.WhiteBloodPorts, 1)

	if c.Output.TelemetryInterval <= 0 {
		c.Output.TelemetryInterval = 5 * time.Second
	}

	c.Derived = DerivedConfig{
		Table:        table,
		TickInterval: tick,
		TickDT:       tick.Seconds(),
	}
	return nil
}

func tableFrom(rows map[string]cells.Coefficients) (cells.Table, error) {
	var table cells.Table
	seen := make(map[cells.Type]bool, len(rows))
	for name, row := range rows {
		t, ok := cells.ParseType(name)
		if !ok {
			return table, fmt.Errorf("config: unknown cell type %q", name)
		}
		table[t] = row
		seen[t] = true
	}
	for i := 0; i < cells.NumTypes; i++ {
		if !seen[cells.Type(i)] {
			return table, fmt.Errorf("config: missing cell row %q", cells.Type(i))
		}
	}
	if err := table.Validate(); err != nil {
		return table, fmt.Errorf("config: %w", err)
	}
	return table, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
