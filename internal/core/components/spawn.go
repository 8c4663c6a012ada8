package components

import (
	"fmt"
	"strings"
)

// SpawnType tags what an entity was spawned as.
type SpawnType uint8

const (
	SpawnArcher SpawnType = iota
	SpawnKnight
	SpawnSpearman
	SpawnMountedKnight
	SpawnHorseArcher
	SpawnHealer
	SpawnCatapult
	SpawnBallista
	SpawnElephant
	SpawnBuilder
	SpawnBarracks
	SpawnHome
	SpawnDefenseTower
)

var spawnNames = [...]string{
	SpawnArcher:        "archer",
	SpawnKnight:        "swordsman",
	SpawnSpearman:      "spearman",
	SpawnMountedKnight: "horse_swordsman",
	SpawnHorseArcher:   "horse_archer",
	SpawnHealer:        "healer",
	SpawnCatapult:      "catapult",
	SpawnBallista:      "ballista",
	SpawnElephant:      "elephant",
	SpawnBuilder:       "builder",
	SpawnBarracks:      "barracks",
	SpawnHome:          "home",
	SpawnDefenseTower:  "defense_tower",
}

func (s SpawnType) String() string {
	if int(s) < len(spawnNames) {
		return spawnNames[s]
	}
	return "unknown"
}

// ParseSpawnType accepts the canonical names, case-insensitively.
func ParseSpawnType(name string) (SpawnType, bool) {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if lowered == "knight" {
		return SpawnKnight, true
	}
	for i, n := range spawnNames {
		if n == lowered {
			return SpawnType(i), true
		}
	}
	return SpawnArcher, false
}

// SpawnTypes lists every spawn type in declaration order.
func SpawnTypes() []SpawnType {
	out := make([]SpawnType, len(spawnNames))
	for i := range spawnNames {
		out[i] = SpawnType(i)
	}
	return out
}

// IsBuilding reports whether s spawns a structure.
func (s SpawnType) IsBuilding() bool {
	return s == SpawnBarracks || s == SpawnHome || s == SpawnDefenseTower
}

// IsTroop reports whether s spawns a unit that counts against troop limits.
func (s SpawnType) IsTroop() bool {
	return !s.IsBuilding()
}

// IsSiege reports whether s runs the load/fire cycle.
func (s SpawnType) IsSiege() bool {
	return s == SpawnCatapult || s == SpawnBallista
}

func (s SpawnType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SpawnType) UnmarshalText(text []byte) error {
	parsed, ok := ParseSpawnType(string(text))
	if !ok {
		return fmt.Errorf("unknown spawn type %q", string(text))
	}
	*s = parsed
	return nil
}
