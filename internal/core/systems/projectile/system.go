package projectile

import (
	"slices"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/systems"
)

// System owns every projectile in flight. Spawning and updating happen on the
// world goroutine.
type System struct {
	systems.Base

	rules       *gameplay.Rules
	arc         ArcConfig
	projectiles []*Projectile
}

func New(rules *gameplay.Rules, arc ArcConfig, logger log.Log) *System {
	return &System{
		Base:  systems.NewBase(systems.NameProjectile, logger),
		rules: rules,
		arc:   arc,
	}
}

// ArrowSpeed is the configured arrow flight speed.
func (s *System) ArrowSpeed() float64 { return s.arc.Speed }

func (s *System) SpawnArrow(sp Spawn) *Projectile {
	dist := distance(sp.Start, sp.End)
	arc := clamp(s.arc.Multiplier*dist, s.arc.Min, s.arc.Max)
	return s.add(newProjectile(KindArrow, sp, arc))
}

func (s *System) SpawnBolt(sp Spawn) *Projectile {
	dist := distance(sp.Start, sp.End)
	arc := clamp(boltArcFactor*s.arc.Multiplier*dist, boltArcMinMul*s.arc.Min, boltArcMaxMul*s.arc.Max)
	return s.add(newProjectile(KindBolt, sp, arc))
}

func (s *System) SpawnStone(sp Spawn) *Projectile {
	dist := distance(sp.Start, sp.End)
	arc := clamp(stoneArcFactor*dist, stoneArcMin, stoneArcMax)
	return s.add(newProjectile(KindStone, sp, arc))
}

func (s *System) add(p *Projectile) *Projectile {
	s.projectiles = append(s.projectiles, p)
	return p
}

// Projectiles returns the projectiles in flight. The slice is only valid
// until the next Update.
func (s *System) Projectiles() []*Projectile { return s.projectiles }

func (s *System) Len() int { return len(s.projectiles) }

// Clear drops every projectile, for world resets.
func (s *System) Clear() { s.projectiles = s.projectiles[:0] }

func (s *System) Update(w *ecs.World, dt float64) {
	for _, p := range s.projectiles {
		p.advance(dt)
		if p.active && !p.resolved && p.carriesDamage() && p.t >= ImpactProgress {
			s.resolveImpact(w, p)
		}
	}
	s.projectiles = slices.DeleteFunc(s.projectiles, func(p *Projectile) bool {
		return !p.active
	})
}

// resolveImpact runs once per damaging projectile. A target that died, is
// queued for removal or ran out of the escape radius takes no damage.
func (s *System) resolveImpact(w *ecs.World, p *Projectile) {
	p.resolved = true
	p.active = false
	if w == nil {
		return
	}
	target := w.Entity(p.targetID)
	if !gameplay.Alive(target) {
		return
	}
	if t := ecs.Get[components.Transform](target); t != nil {
		if distance(t.Position, p.impact) > EscapeRadius {
			s.Logger().Debug("target escaped",
				log.Uint64("target", uint64(p.targetID)),
				log.String("kind", p.kind.String()))
			return
		}
	}
	s.rules.DealDamage(w, target, p.damage, p.attackerID)
}
