package components

import "github.com/zeusync/ironcore/internal/core/ecs"

type CombatMode uint8

const (
	ModeRanged CombatMode = iota
	ModeMelee
	ModeAuto
)

func (m CombatMode) String() string {
	switch m {
	case ModeRanged:
		return "ranged"
	case ModeMelee:
		return "melee"
	default:
		return "auto"
	}
}

type Attack struct {
	Range         float64
	Damage        int
	Cooldown      float64
	TimeSinceLast float64

	MeleeRange    float64
	MeleeDamage   int
	MeleeCooldown float64

	PreferredMode CombatMode
	CurrentMode   CombatMode

	CanMelee  bool
	CanRanged bool

	MaxHeightDiff     float64
	InMeleeLock       bool
	MeleeLockTargetID ecs.EntityID
}

// NewAttack mirrors the default melee profile with the given ranged numbers.
func NewAttack(rng float64, damage int, cooldown float64) Attack {
	return Attack{
		Range:         rng,
		Damage:        damage,
		Cooldown:      cooldown,
		MeleeRange:    DefaultMeleeRange,
		MeleeDamage:   damage,
		MeleeCooldown: cooldown,
		PreferredMode: ModeAuto,
		CurrentMode:   ModeRanged,
		CanMelee:      true,
		MaxHeightDiff: DefaultHeightDiff,
	}
}

func (a *Attack) InMeleeRange(dist, heightDiff float64) bool {
	return dist <= a.MeleeRange && heightDiff <= a.MaxHeightDiff
}

func (a *Attack) InRangedRange(dist float64) bool {
	return dist <= a.Range && dist > a.MeleeRange
}

func (a *Attack) CurrentDamage() int {
	if a.CurrentMode == ModeMelee {
		return a.MeleeDamage
	}
	return a.Damage
}

func (a *Attack) CurrentCooldown() float64 {
	if a.CurrentMode == ModeMelee {
		return a.MeleeCooldown
	}
	return a.Cooldown
}

func (a *Attack) CurrentRange() float64 {
	if a.CurrentMode == ModeMelee {
		return a.MeleeRange
	}
	return a.Range
}

// ReleaseMeleeLock drops any melee lock.
func (a *Attack) ReleaseMeleeLock() {
	a.InMeleeLock = false
	a.MeleeLockTargetID = ecs.NoEntity
}

type LoadingState uint8

const (
	LoadingIdle LoadingState = iota
	LoadingLoading
	LoadingReadyToFire
	LoadingFiring
)

func (s LoadingState) String() string {
	switch s {
	case LoadingIdle:
		return "idle"
	case LoadingLoading:
		return "loading"
	case LoadingReadyToFire:
		return "ready_to_fire"
	case LoadingFiring:
		return "firing"
	default:
		return "unknown"
	}
}

const (
	DefaultCatapultLoad = 2.0
	DefaultBallistaLoad = 1.0
	DefaultSiegeFiring  = 0.5
)

// CatapultLoading drives the siege load/fire cycle shared by catapults and
// ballistae. The locked position is the target's location when loading began.
type CatapultLoading struct {
	State           LoadingState
	LoadingTime     float64
	LoadingDuration float64
	FiringTime      float64
	FiringDuration  float64
	TargetID        ecs.EntityID
	TargetLocked    bool
	LockedX         float64
	LockedY         float64
	LockedZ         float64
}

func NewCatapultLoading(loadDuration, firingDuration float64) CatapultLoading {
	return CatapultLoading{LoadingDuration: loadDuration, FiringDuration: firingDuration}
}

// Reset returns the cycle to Idle and forgets the lock.
func (c *CatapultLoading) Reset() {
	c.State = LoadingIdle
	c.LoadingTime = 0
	c.FiringTime = 0
	c.TargetLocked = false
	c.TargetID = ecs.NoEntity
}

type ChargeState uint8

const (
	ChargeIdle ChargeState = iota
	ChargeCharging
	ChargeRecovering
)

func (s ChargeState) String() string {
	switch s {
	case ChargeIdle:
		return "idle"
	case ChargeCharging:
		return "charging"
	case ChargeRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}

type Elephant struct {
	Panicked           bool
	PanicDuration      float64
	PanicRedirectTimer float64

	ChargeState    ChargeState
	ChargeDuration float64
	ChargeCooldown float64

	TrampleRadius      float64
	TrampleDamage      int
	TrampleAccumulator float64
}

func NewElephant() Elephant {
	return Elephant{TrampleRadius: 2, TrampleDamage: 10}
}
