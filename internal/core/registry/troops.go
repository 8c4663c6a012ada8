package registry

import (
	"maps"
	"slices"
	"sync"

	"github.com/zeusync/ironcore/internal/core/components"
)

// TroopClass is the catalog entry for one spawn type.
type TroopClass struct {
	SpawnType          components.SpawnType `yaml:"spawn_type"`
	IndividualsPerUnit int                  `yaml:"individuals_per_unit"`
	MaxUnitsPerRow     int                  `yaml:"max_units_per_row"`
	BuildTime          float64              `yaml:"build_time"`

	Health      int     `yaml:"health"`
	Speed       float64 `yaml:"speed"`
	VisionRange float64 `yaml:"vision_range"`

	RangedRange    float64 `yaml:"ranged_range"`
	RangedDamage   int     `yaml:"ranged_damage"`
	RangedCooldown float64 `yaml:"ranged_cooldown"`
	MeleeRange     float64 `yaml:"melee_range"`
	MeleeDamage    int     `yaml:"melee_damage"`
	MeleeCooldown  float64 `yaml:"melee_cooldown"`
	CanRanged      bool    `yaml:"can_ranged"`
	CanMelee       bool    `yaml:"can_melee"`
}

// TroopCatalog maps spawn types to their base stats and squad sizes.
type TroopCatalog struct {
	mu      sync.RWMutex
	classes map[components.SpawnType]TroopClass
}

func NewTroopCatalog(classes ...TroopClass) *TroopCatalog {
	c := &TroopCatalog{classes: make(map[components.SpawnType]TroopClass, len(classes))}
	for _, tc := range classes {
		c.classes[tc.SpawnType] = tc
	}
	return c
}

// DefaultTroopCatalog returns the stock unit roster.
func DefaultTroopCatalog() *TroopCatalog {
	return NewTroopCatalog(DefaultTroopClasses()...)
}

func DefaultTroopClasses() []TroopClass {
	return []TroopClass{
		{
			SpawnType: components.SpawnArcher, IndividualsPerUnit: 20, MaxUnitsPerRow: 5, BuildTime: 5,
			Health: 80, Speed: 3, VisionRange: 16,
			RangedRange: 6, RangedDamage: 12, RangedCooldown: 1.2,
			MeleeRange: 1.5, MeleeDamage: 5, MeleeCooldown: 0.8, CanRanged: true, CanMelee: true,
		},
		{
			SpawnType: components.SpawnKnight, IndividualsPerUnit: 15, MaxUnitsPerRow: 5, BuildTime: 7,
			Health: 140, Speed: 2.2, VisionRange: 14,
			RangedRange: 1.5, RangedDamage: 6, RangedCooldown: 1.8,
			MeleeRange: 1.6, MeleeDamage: 18, MeleeCooldown: 0.6, CanMelee: true,
		},
		{
			SpawnType: components.SpawnSpearman, IndividualsPerUnit: 24, MaxUnitsPerRow: 6, BuildTime: 6,
			Health: 120, Speed: 2.5, VisionRange: 15,
			RangedRange: 2.5, RangedDamage: 8, RangedCooldown: 1.5,
			MeleeRange: 2.5, MeleeDamage: 18, MeleeCooldown: 0.8, CanMelee: true,
		},
		{
			SpawnType: components.SpawnMountedKnight, IndividualsPerUnit: 9, MaxUnitsPerRow: 3, BuildTime: 10,
			Health: 200, Speed: 8, VisionRange: 16,
			RangedRange: 1.5, RangedDamage: 5, RangedCooldown: 2,
			MeleeRange: 2, MeleeDamage: 25, MeleeCooldown: 0.8, CanMelee: true,
		},
		{
			SpawnType: components.SpawnHorseArcher, IndividualsPerUnit: 9, MaxUnitsPerRow: 3, BuildTime: 9,
			Health: 150, Speed: 7, VisionRange: 16,
			RangedRange: 6, RangedDamage: 10, RangedCooldown: 1.4,
			MeleeRange: 1.5, MeleeDamage: 8, MeleeCooldown: 1, CanRanged: true, CanMelee: true,
		},
		{
			SpawnType: components.SpawnHealer, IndividualsPerUnit: 10, MaxUnitsPerRow: 5, BuildTime: 6,
			Health: 70, Speed: 2.5, VisionRange: 14,
			MeleeRange: 1.5, MeleeDamage: 3, MeleeCooldown: 1.2, CanMelee: true,
		},
		{
			SpawnType: components.SpawnCatapult, IndividualsPerUnit: 1, MaxUnitsPerRow: 1, BuildTime: 14,
			Health: 250, Speed: 1.2, VisionRange: 20,
			RangedRange: 18, RangedDamage: 60, RangedCooldown: 4,
			MeleeRange: 1.5, MeleeDamage: 0, MeleeCooldown: 1, CanRanged: true,
		},
		{
			SpawnType: components.SpawnBallista, IndividualsPerUnit: 1, MaxUnitsPerRow: 1, BuildTime: 12,
			Health: 200, Speed: 1.4, VisionRange: 20,
			RangedRange: 14, RangedDamage: 40, RangedCooldown: 2.5,
			MeleeRange: 1.5, MeleeDamage: 0, MeleeCooldown: 1, CanRanged: true,
		},
		{
			SpawnType: components.SpawnElephant, IndividualsPerUnit: 1, MaxUnitsPerRow: 1, BuildTime: 16,
			Health: 500, Speed: 3, VisionRange: 16,
			MeleeRange: 2.5, MeleeDamage: 30, MeleeCooldown: 1.2, CanMelee: true,
		},
		{
			SpawnType: components.SpawnBuilder, IndividualsPerUnit: 6, MaxUnitsPerRow: 3, BuildTime: 5,
			Health: 60, Speed: 2.5, VisionRange: 12,
			MeleeRange: 1.5, MeleeDamage: 2, MeleeCooldown: 1.5, CanMelee: true,
		},
		{
			SpawnType: components.SpawnBarracks, IndividualsPerUnit: 0, Health: 2000, VisionRange: 14,
		},
		{
			SpawnType: components.SpawnHome, IndividualsPerUnit: 0, Health: 800, VisionRange: 10,
		},
	}
}

// Class returns the catalog entry for spawn.
func (c *TroopCatalog) Class(spawn components.SpawnType) (TroopClass, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tc, ok := c.classes[spawn]
	return tc, ok
}

// IndividualsPerUnit returns the squad size of spawn. Buildings count as
// zero and unknown troop types as one.
func (c *TroopCatalog) IndividualsPerUnit(spawn components.SpawnType) int {
	if spawn.IsBuilding() {
		return 0
	}
	if tc, ok := c.Class(spawn); ok && tc.IndividualsPerUnit > 0 {
		return tc.IndividualsPerUnit
	}
	return 1
}

func (c *TroopCatalog) MaxUnitsPerRow(spawn components.SpawnType) int {
	if tc, ok := c.Class(spawn); ok && tc.MaxUnitsPerRow > 0 {
		return tc.MaxUnitsPerRow
	}
	return 10
}

// Register adds or replaces a catalog entry.
func (c *TroopCatalog) Register(tc TroopClass) {
	c.mu.Lock()
	c.classes[tc.SpawnType] = tc
	c.mu.Unlock()
}

// Classes returns every entry ordered by spawn type.
func (c *TroopCatalog) Classes() []TroopClass {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := slices.Sorted(maps.Keys(c.classes))
	out := make([]TroopClass, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.classes[k])
	}
	return out
}
