// Package components holds the plain data attached to entities. Components
// carry no behavior beyond small derived getters; systems own the logic.
package components

import "github.com/zeusync/ironcore/internal/core/ecs"

const (
	DefaultHealth      = 100
	DefaultVisionRange = 12.0

	DefaultAttackRange   = 2.0
	DefaultAttackDamage  = 10
	DefaultMeleeRange    = 1.5
	DefaultHeightDiff    = 2.0
	DefaultBuildTime     = 4.0
	DefaultMaxUnits      = 5
	DefaultCaptureTime   = 15.0
	DefaultStandUpTime   = 2.0
	DefaultGuardRadius   = 10.0
	DefaultPopulationAdd = 5

	// NeutralOwner marks structures that nobody holds.
	NeutralOwner = -1
)

type Vec3 struct {
	X, Y, Z float64
}

type Transform struct {
	Position Vec3
	// Rotation is in degrees; Y is the heading.
	Rotation      Vec3
	Scale         Vec3
	DesiredYaw    float64
	HasDesiredYaw bool
}

// NewTransform places an entity at (x, y, z) with unit scale.
func NewTransform(x, y, z float64) Transform {
	return Transform{Position: Vec3{X: x, Y: y, Z: z}, Scale: Vec3{X: 1, Y: 1, Z: 1}}
}

type Renderable struct {
	MeshPath    string
	TexturePath string
	RendererID  string
	Visible     bool
	Color       [3]float64
}

func NewRenderable(mesh, texture string) Renderable {
	return Renderable{MeshPath: mesh, TexturePath: texture, Visible: true, Color: [3]float64{1, 1, 1}}
}

type Unit struct {
	Health      int
	MaxHealth   int
	Speed       float64
	SpawnType   SpawnType
	OwnerID     int
	VisionRange float64
	NationID    int
}

// NewUnit returns a unit with full default health.
func NewUnit(spawn SpawnType, owner int) Unit {
	return Unit{
		Health:      DefaultHealth,
		MaxHealth:   DefaultHealth,
		Speed:       1,
		SpawnType:   spawn,
		OwnerID:     owner,
		VisionRange: DefaultVisionRange,
	}
}

func (u *Unit) Alive() bool {
	return u.Health > 0
}

// HealthRatio returns health over max health, or 0 for a zero max.
func (u *Unit) HealthRatio() float64 {
	if u.MaxHealth <= 0 {
		return 0
	}
	return float64(u.Health) / float64(u.MaxHealth)
}

// Waypoint is a ground-plane (x, z) position.
type Waypoint struct {
	X, Z float64
}

type Movement struct {
	HasTarget        bool
	TargetX, TargetZ float64
	GoalX, GoalZ     float64
	VX, VZ           float64
	Path             []Waypoint
	PathPending      bool
	PendingRequestID uint64
	RepathCooldown   float64
}

// ClearPath drops any queued waypoints and pending path request.
func (m *Movement) ClearPath() {
	m.Path = m.Path[:0]
	m.PathPending = false
	m.PendingRequestID = 0
}

// Stop clears the target and velocity.
func (m *Movement) Stop() {
	m.HasTarget = false
	m.VX, m.VZ = 0, 0
	m.ClearPath()
}

type AttackTarget struct {
	TargetID    ecs.EntityID
	ShouldChase bool
}

type Patrol struct {
	Waypoints       []Waypoint
	CurrentWaypoint int
	Patrolling      bool
}

type GuardMode struct {
	Active              bool
	GuardedEntityID     ecs.EntityID
	GuardX, GuardZ      float64
	GuardRadius         float64
	ReturningToPosition bool
	HasGuardTarget      bool
}

func NewGuardMode(x, z float64) GuardMode {
	return GuardMode{Active: true, GuardX: x, GuardZ: z, GuardRadius: DefaultGuardRadius}
}

type HoldMode struct {
	Active          bool
	ExitCooldown    float64
	StandUpDuration float64
}

func NewHoldMode() HoldMode {
	return HoldMode{Active: true, StandUpDuration: DefaultStandUpTime}
}

type HitReaction uint8

const (
	HitNone HitReaction = iota
	HitFlinch
	HitFall
)

// HitFeedback is read by renderers to play a hit reaction.
type HitFeedback struct {
	Reaction     HitReaction
	Elapsed      float64
	Duration     float64
	SourceX      float64
	SourceZ      float64
	Intensity    float64
	LastDamage   int
	ReactionSeen bool
}

type Healer struct {
	HealingRange      float64
	HealingAmount     int
	HealingCooldown   float64
	TimeSinceLastHeal float64
}

func NewHealer() Healer {
	return Healer{HealingRange: 8, HealingAmount: 5, HealingCooldown: 2}
}

type Home struct {
	PopulationContribution int
	AssignedBarracks       ecs.EntityID
	UpdateTimer            float64
}

func NewHome() Home {
	return Home{PopulationContribution: DefaultPopulationAdd}
}

// IdleBehavior carries the ambient idle hint renderers animate from.
type IdleBehavior struct {
	IdleTime float64
	Hint     string
}

type Capture struct {
	CapturingPlayerID int
	CaptureProgress   float64
	RequiredTime      float64
	IsBeingCaptured   bool
}

func NewCapture() Capture {
	return Capture{CapturingPlayerID: NeutralOwner, RequiredTime: DefaultCaptureTime}
}

// Building marks structures.
type Building struct{}

// PendingRemoval marks entities the cleanup pass destroys at the end of the step.
type PendingRemoval struct{}

// AIControlled marks units commanded by an AI faction.
type AIControlled struct{}
