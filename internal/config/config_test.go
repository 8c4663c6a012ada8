package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/registry"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50, cfg.Gameplay.MaxTroopsPerPlayer)
	assert.Equal(t, 32, cfg.Audio.MaxChannels)
	assert.Equal(t, 2.0, cfg.Siege.CatapultLoad)
	assert.Equal(t, 1.0, cfg.Siege.BallistaLoad)
	assert.Equal(t, log.LevelInfo, cfg.LogLevel())
	assert.Equal(t, gameplay.FormationRoman, cfg.Formation())
}

func TestDecodeOverridesDefaults(t *testing.T) {
	src := `
log:
  level: debug
gameplay:
  max_troops_per_player: 80
ai:
  formation: barbarian
  threaded: false
arrow:
  speed: 20
troops:
  - spawn_type: archer
    individuals_per_unit: 10
    health: 60
  - spawn_type: knight
    individuals_per_unit: 8
    health: 150
`
	cfg, err := Decode(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, log.LevelDebug, cfg.LogLevel())
	assert.Equal(t, 80, cfg.Gameplay.MaxTroopsPerPlayer)
	assert.Equal(t, 1, cfg.Gameplay.LocalPlayerID, "untouched keys keep defaults")
	assert.Equal(t, gameplay.FormationBarbarian, cfg.Formation())
	assert.False(t, cfg.AI.Threaded)
	assert.Equal(t, 20.0, cfg.Arrow.Speed)
	assert.Equal(t, 0.15, cfg.Arrow.Multiplier)

	catalog := cfg.Catalog()
	assert.Equal(t, 10, catalog.IndividualsPerUnit(components.SpawnArcher))
	assert.Equal(t, 8, catalog.IndividualsPerUnit(components.SpawnKnight))
}

func TestDecodeEmptyInput(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("gameplay:\n  max_troops: 3\n"))
	assert.Error(t, err)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.Gameplay.MaxTroopsPerPlayer = 0
	cfg.Audio.MusicVolume = 1.5
	cfg.AI.Formation = "phalanx"
	cfg.Troops = []registry.TroopClass{{SpawnType: components.SpawnArcher}, {SpawnType: components.SpawnArcher}}

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	for _, want := range []string{"log.level", "max_troops_per_player", "music_volume", "phalanx", "duplicate spawn type"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ironsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("siege:\n  catapult_load: 3\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3.0, cfg.CatapultConfig().LoadDuration)
	assert.Equal(t, 0.5, cfg.BallistaConfig().FiringDuration)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
