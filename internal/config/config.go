// Package config loads the simulation settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/ironcore/internal/core/ai"
	"github.com/zeusync/ironcore/internal/core/audio"
	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/registry"
	"github.com/zeusync/ironcore/internal/core/systems/combat"
	"github.com/zeusync/ironcore/internal/core/systems/production"
	"github.com/zeusync/ironcore/internal/core/systems/projectile"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Log        LogConfig            `yaml:"log"`
	Gameplay   GameplayConfig       `yaml:"gameplay"`
	Arrow      projectile.ArcConfig `yaml:"arrow"`
	Siege      SiegeConfig          `yaml:"siege"`
	Audio      AudioConfig          `yaml:"audio"`
	AI         AIConfig             `yaml:"ai"`
	Navigation NavigationConfig     `yaml:"navigation"`
	// Troops replaces the stock roster when non-empty.
	Troops []registry.TroopClass `yaml:"troops"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type GameplayConfig struct {
	MaxTroopsPerPlayer int `yaml:"max_troops_per_player"`
	LocalPlayerID      int `yaml:"local_player_id"`
	// TickRate is the number of simulation steps per second.
	TickRate float64 `yaml:"tick_rate"`
}

type SiegeConfig struct {
	CatapultLoad   float64 `yaml:"catapult_load"`
	BallistaLoad   float64 `yaml:"ballista_load"`
	FiringDuration float64 `yaml:"firing_duration"`
}

type AudioConfig struct {
	Enabled      bool    `yaml:"enabled"`
	MaxChannels  int     `yaml:"max_channels"`
	MasterVolume float64 `yaml:"master_volume"`
	SoundVolume  float64 `yaml:"sound_volume"`
	MusicVolume  float64 `yaml:"music_volume"`
	VoiceVolume  float64 `yaml:"voice_volume"`
}

type AIConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Interval       float64 `yaml:"interval"`
	Threaded       bool    `yaml:"threaded"`
	Formation      string  `yaml:"formation"`
	FilterCooldown float64 `yaml:"filter_cooldown"`
}

type NavigationConfig struct {
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	OffsetX     float64 `yaml:"offset_x"`
	OffsetZ     float64 `yaml:"offset_z"`
	GridPadding float64 `yaml:"grid_padding"`
	// Threaded resolves paths on a worker goroutine.
	Threaded bool `yaml:"threaded"`
}

// Default returns the stock settings.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Gameplay: GameplayConfig{
			MaxTroopsPerPlayer: production.DefaultMaxTroopsPerPlayer,
			LocalPlayerID:      1,
			TickRate:           30,
		},
		Arrow: projectile.DefaultArcConfig(),
		Siege: SiegeConfig{
			CatapultLoad:   components.DefaultCatapultLoad,
			BallistaLoad:   components.DefaultBallistaLoad,
			FiringDuration: components.DefaultSiegeFiring,
		},
		Audio: AudioConfig{
			Enabled:      true,
			MaxChannels:  audio.DefaultMaxChannels,
			MasterVolume: audio.DefaultVolume,
			SoundVolume:  audio.DefaultVolume,
			MusicVolume:  audio.DefaultVolume,
			VoiceVolume:  audio.DefaultVolume,
		},
		AI: AIConfig{
			Enabled:        true,
			Interval:       ai.DefaultInterval,
			Threaded:       true,
			Formation:      "roman",
			FilterCooldown: ai.DefaultFilterCooldown,
		},
		Navigation: NavigationConfig{
			Width:       100,
			Height:      100,
			OffsetX:     -50,
			OffsetZ:     -50,
			GridPadding: 0.1,
			Threaded:    true,
		},
	}
}

// Load reads and validates the YAML file at path. Keys missing from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads YAML from r on top of Default and validates the result.
// Unknown keys are rejected.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		invalid("log.level: %v", err)
	}
	if c.Gameplay.MaxTroopsPerPlayer <= 0 {
		invalid("gameplay.max_troops_per_player must be positive, got %d", c.Gameplay.MaxTroopsPerPlayer)
	}
	if c.Gameplay.LocalPlayerID <= 0 {
		invalid("gameplay.local_player_id must be positive, got %d", c.Gameplay.LocalPlayerID)
	}
	if c.Gameplay.TickRate <= 0 {
		invalid("gameplay.tick_rate must be positive, got %g", c.Gameplay.TickRate)
	}
	if c.Arrow.Min < 0 || c.Arrow.Max < c.Arrow.Min {
		invalid("arrow arc bounds [%g, %g] are not ordered", c.Arrow.Min, c.Arrow.Max)
	}
	if c.Arrow.Speed <= 0 {
		invalid("arrow.speed must be positive, got %g", c.Arrow.Speed)
	}
	if c.Siege.CatapultLoad < 0 || c.Siege.BallistaLoad < 0 || c.Siege.FiringDuration < 0 {
		invalid("siege durations must not be negative")
	}
	if c.Audio.MaxChannels < audio.MinChannels {
		invalid("audio.max_channels must be at least %d, got %d", audio.MinChannels, c.Audio.MaxChannels)
	}
	for name, v := range map[string]float64{
		"master_volume": c.Audio.MasterVolume,
		"sound_volume":  c.Audio.SoundVolume,
		"music_volume":  c.Audio.MusicVolume,
		"voice_volume":  c.Audio.VoiceVolume,
	} {
		if v < 0 || v > 1 {
			invalid("audio.%s must be within [0, 1], got %g", name, v)
		}
	}
	if c.AI.Interval <= 0 {
		invalid("ai.interval must be positive, got %g", c.AI.Interval)
	}
	if _, ok := parseFormation(c.AI.Formation); !ok {
		invalid("ai.formation: unknown formation %q", c.AI.Formation)
	}
	if c.Navigation.Width <= 0 || c.Navigation.Height <= 0 {
		invalid("navigation grid %dx%d must be positive", c.Navigation.Width, c.Navigation.Height)
	}
	if c.Navigation.GridPadding < 0 {
		invalid("navigation.grid_padding must not be negative, got %g", c.Navigation.GridPadding)
	}
	seen := make(map[components.SpawnType]bool, len(c.Troops))
	for i, tc := range c.Troops {
		if seen[tc.SpawnType] {
			invalid("troops[%d]: duplicate spawn type %s", i, tc.SpawnType)
		}
		seen[tc.SpawnType] = true
		if tc.IndividualsPerUnit < 0 || tc.BuildTime < 0 || tc.Health < 0 {
			invalid("troops[%d] (%s): negative stats", i, tc.SpawnType)
		}
	}
	return errors.Join(errs...)
}

// LogLevel returns the parsed log level, falling back to info.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.LevelInfo
	}
	return level
}

// Formation returns the AI formation, falling back to Roman.
func (c *Config) Formation() gameplay.FormationType {
	f, _ := parseFormation(c.AI.Formation)
	return f
}

// Catalog builds the troop catalog: the configured roster or the stock one.
func (c *Config) Catalog() *registry.TroopCatalog {
	if len(c.Troops) == 0 {
		return registry.DefaultTroopCatalog()
	}
	return registry.NewTroopCatalog(c.Troops...)
}

// CatapultConfig and BallistaConfig adapt the siege section.
func (c *Config) CatapultConfig() combat.SiegeConfig {
	return combat.SiegeConfig{LoadDuration: c.Siege.CatapultLoad, FiringDuration: c.Siege.FiringDuration}
}

func (c *Config) BallistaConfig() combat.SiegeConfig {
	return combat.SiegeConfig{LoadDuration: c.Siege.BallistaLoad, FiringDuration: c.Siege.FiringDuration}
}

func parseFormation(name string) (gameplay.FormationType, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "roman":
		return gameplay.FormationRoman, true
	case "barbarian":
		return gameplay.FormationBarbarian, true
	default:
		return gameplay.FormationRoman, false
	}
}
