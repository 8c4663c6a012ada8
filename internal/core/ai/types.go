// Package ai drives computer-controlled factions. Each evaluation reads an
// immutable snapshot of the faction's world view, updates the faction's
// context, runs its behaviors and yields commands that are applied on a later
// step.
package ai

import (
	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
)

type State uint8

const (
	StateIdle State = iota
	StateGathering
	StateAttacking
	StateDefending
	StateRetreating
	StateExpanding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGathering:
		return "gathering"
	case StateAttacking:
		return "attacking"
	case StateDefending:
		return "defending"
	case StateRetreating:
		return "retreating"
	case StateExpanding:
		return "expanding"
	default:
		return "unknown"
	}
}

// Priority orders behaviors; higher runs first.
type Priority uint8

const (
	PriorityVeryLow Priority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

type CommandType uint8

const (
	CommandMoveUnits CommandType = iota
	CommandAttackTarget
	CommandStartProduction
)

func (t CommandType) String() string {
	switch t {
	case CommandMoveUnits:
		return "move_units"
	case CommandAttackTarget:
		return "attack_target"
	case CommandStartProduction:
		return "start_production"
	default:
		return "unknown"
	}
}

type ProductionSnapshot struct {
	HasComponent  bool
	InProgress    bool
	BuildTime     float64
	TimeRemaining float64
	ProducedCount int
	MaxUnits      int
	ProductType   components.SpawnType
	RallySet      bool
	RallyX        float64
	RallyZ        float64
	QueueSize     int
}

// EntitySnapshot is a friendly unit or building as the AI sees it.
type EntitySnapshot struct {
	ID         ecs.EntityID
	SpawnType  components.SpawnType
	OwnerID    int
	Health     int
	MaxHealth  int
	IsBuilding bool
	X, Z       float64

	HasMovement bool
	HasTarget   bool
	Production  ProductionSnapshot
}

// ContactSnapshot is a visible hostile.
type ContactSnapshot struct {
	ID         ecs.EntityID
	SpawnType  components.SpawnType
	IsBuilding bool
	X, Z       float64
	Health     int
	MaxHealth  int
}

type Snapshot struct {
	PlayerID       int
	Friendlies     []EntitySnapshot
	VisibleEnemies []ContactSnapshot
	GameTime       float64
}

// Assignment records which behavior currently owns a unit.
type Assignment struct {
	Owner Priority
	Since float64
	Task  string
}

// Context is the persistent per-faction state carried between evaluations.
type Context struct {
	PlayerID      int
	State         State
	StateTimer    float64
	DecisionTimer float64
	// Clock accumulates evaluated time and stamps unit assignments.
	Clock float64

	MilitaryUnits   []ecs.EntityID
	Buildings       []ecs.EntityID
	PrimaryBarracks ecs.EntityID
	RallyX, RallyZ  float64
	BaseX, BaseZ    float64

	TotalUnits            int
	IdleUnits             int
	CombatUnits           int
	MeleeCount            int
	RangedCount           int
	DamagedUnits          int
	AverageHealth         float64
	BarracksUnderThreat   bool
	NearbyThreatCount     int
	ClosestThreatDistance float64
	VisibleEnemyCount     int
	EnemyBuildingsCount   int
	AverageEnemyDistance  float64
	MaxTroopsPerPlayer    int

	Assigned map[ecs.EntityID]Assignment
}

// NewContext returns an idle context for playerID.
func NewContext(playerID, maxTroops int) Context {
	return Context{
		PlayerID:           playerID,
		State:              StateIdle,
		AverageHealth:      1,
		MaxTroopsPerPlayer: maxTroops,
		Assigned:           make(map[ecs.EntityID]Assignment),
	}
}

// Clone returns a copy that shares no mutable state with c.
func (c Context) Clone() Context {
	out := c
	out.MilitaryUnits = append([]ecs.EntityID(nil), c.MilitaryUnits...)
	out.Buildings = append([]ecs.EntityID(nil), c.Buildings...)
	out.Assigned = make(map[ecs.EntityID]Assignment, len(c.Assigned))
	for id, a := range c.Assigned {
		out.Assigned[id] = a
	}
	return out
}

type Target struct {
	X, Z float64
}

type Command struct {
	Type    CommandType
	Units   []ecs.EntityID
	Targets []Target

	TargetID    ecs.EntityID
	ShouldChase bool

	BuildingID  ecs.EntityID
	ProductType components.SpawnType
}

// Result is the output of one evaluation.
type Result struct {
	PlayerID int
	Context  Context
	Commands []Command
}

type Job struct {
	Snapshot Snapshot
	Context  Context
	Delta    float64
}
