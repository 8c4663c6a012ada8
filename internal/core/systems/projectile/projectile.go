// Package projectile flies arrows, ballista bolts and catapult stones along
// ballistic arcs and applies their damage on impact.
package projectile

import (
	"math"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
)

type Kind uint8

const (
	KindArrow Kind = iota
	KindBolt
	KindStone
)

func (k Kind) String() string {
	switch k {
	case KindArrow:
		return "arrow"
	case KindBolt:
		return "bolt"
	case KindStone:
		return "stone"
	default:
		return "unknown"
	}
}

const (
	// ImpactProgress is the flight progress at which damage is resolved.
	ImpactProgress = 0.98
	// EscapeRadius is how far a target may move from the locked impact point
	// and still be hit.
	EscapeRadius = 1.5

	stoneArcFactor = 0.35
	stoneArcMin    = 1.0
	stoneArcMax    = 4.0

	boltArcFactor = 0.4
	boltArcMinMul = 0.5
	boltArcMaxMul = 0.6
)

// ArcConfig shapes arrow trajectories. Bolts derive a flatter arc from it.
type ArcConfig struct {
	Multiplier float64 `yaml:"arc_height_multiplier"`
	Min        float64 `yaml:"arc_height_min"`
	Max        float64 `yaml:"arc_height_max"`
	Speed      float64 `yaml:"speed"`
}

func DefaultArcConfig() ArcConfig {
	return ArcConfig{Multiplier: 0.15, Min: 0.2, Max: 1.2, Speed: 14}
}

// Spawn describes a projectile to launch. Impact is the locked target
// position used for the escape check; when zero it defaults to End. A zero
// TargetID or Damage makes the projectile purely visual.
type Spawn struct {
	Start, End components.Vec3
	Impact     components.Vec3
	Color      [3]float64
	Speed      float64
	Scale      float64
	Damage     int
	AttackerID ecs.EntityID
	TargetID   ecs.EntityID
}

// Projectile is one in-flight shot. Renderers read it through the getters.
type Projectile struct {
	kind      Kind
	start     components.Vec3
	end       components.Vec3
	impact    components.Vec3
	color     [3]float64
	speed     float64
	scale     float64
	arcHeight float64
	invDist   float64
	t         float64

	damage     int
	attackerID ecs.EntityID
	targetID   ecs.EntityID

	active   bool
	resolved bool
}

func newProjectile(kind Kind, sp Spawn, arcHeight float64) *Projectile {
	dist := distance(sp.Start, sp.End)
	invDist := 1.0
	if dist > 0.001 {
		invDist = 1 / dist
	}
	impact := sp.Impact
	if impact == (components.Vec3{}) {
		impact = sp.End
	}
	scale := sp.Scale
	if scale <= 0 {
		scale = 1
	}
	return &Projectile{
		kind:       kind,
		start:      sp.Start,
		end:        sp.End,
		impact:     impact,
		color:      sp.Color,
		speed:      sp.Speed,
		scale:      scale,
		arcHeight:  arcHeight,
		invDist:    invDist,
		damage:     sp.Damage,
		attackerID: sp.AttackerID,
		targetID:   sp.TargetID,
		active:     true,
	}
}

func (p *Projectile) Kind() Kind                    { return p.kind }
func (p *Projectile) Start() components.Vec3        { return p.start }
func (p *Projectile) End() components.Vec3          { return p.end }
func (p *Projectile) Color() [3]float64             { return p.color }
func (p *Projectile) Scale() float64                { return p.scale }
func (p *Projectile) ArcHeight() float64            { return p.arcHeight }
func (p *Projectile) Progress() float64             { return p.t }
func (p *Projectile) Damage() int                   { return p.damage }
func (p *Projectile) TargetID() ecs.EntityID        { return p.targetID }
func (p *Projectile) AttackerID() ecs.EntityID      { return p.attackerID }
func (p *Projectile) Active() bool                  { return p.active }
func (p *Projectile) LockedImpact() components.Vec3 { return p.impact }

// Position is the point on the arc at the current progress.
func (p *Projectile) Position() components.Vec3 {
	t := p.t
	return components.Vec3{
		X: p.start.X + (p.end.X-p.start.X)*t,
		Y: p.start.Y + (p.end.Y-p.start.Y)*t + p.arcHeight*4*t*(1-t),
		Z: p.start.Z + (p.end.Z-p.start.Z)*t,
	}
}

func (p *Projectile) carriesDamage() bool {
	return p.targetID != ecs.NoEntity && p.damage > 0
}

func (p *Projectile) advance(dt float64) {
	if !p.active {
		return
	}
	p.t += p.speed * dt * p.invDist
	if p.t >= 1 {
		p.t = 1
		if !p.carriesDamage() {
			p.active = false
		}
	}
}

func distance(a, b components.Vec3) float64 {
	dx, dy, dz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
