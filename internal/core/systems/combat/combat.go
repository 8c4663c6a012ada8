// Package combat resolves attacks. The generic System handles every unit
// except siege engines, which have dedicated systems, and defense towers. Elephants get an extra
// system for panic, charge and trample.
package combat

import (
	"math"
	"math/rand/v2"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/navigation"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/registry"
	"github.com/zeusync/ironcore/internal/core/systems"
	"github.com/zeusync/ironcore/internal/core/systems/projectile"
)

// Spawner launches projectiles. The projectile system implements it.
type Spawner interface {
	SpawnArrow(sp projectile.Spawn) *projectile.Projectile
	SpawnBolt(sp projectile.Spawn) *projectile.Projectile
	SpawnStone(sp projectile.Spawn) *projectile.Projectile
}

// Options configures the combat systems. Every field is optional.
type Options struct {
	Commands   *gameplay.Commands
	Finder     *navigation.Pathfinder
	Spawner    Spawner
	Catalog    *registry.TroopCatalog
	ArrowSpeed float64
	Rand       *rand.Rand
}

type Option func(*Options)

func WithCommands(c *gameplay.Commands) Option { return func(o *Options) { o.Commands = c } }

func WithFinder(f *navigation.Pathfinder) Option { return func(o *Options) { o.Finder = f } }

// WithSpawner routes ranged attacks through projectiles. Without one, ranged
// damage lands immediately.
func WithSpawner(s Spawner) Option { return func(o *Options) { o.Spawner = s } }

// WithCatalog supplies base stats for hold and high-ground health bonuses
// and squad sizes for arrow volleys.
func WithCatalog(c *registry.TroopCatalog) Option { return func(o *Options) { o.Catalog = c } }

func WithArrowSpeed(v float64) Option { return func(o *Options) { o.ArrowSpeed = v } }

// WithRand replaces the random source used for volleys and elephant panic.
func WithRand(r *rand.Rand) Option { return func(o *Options) { o.Rand = r } }

func buildOptions(opts []Option) Options {
	o := Options{ArrowSpeed: projectile.DefaultArcConfig().Speed}
	for _, fn := range opts {
		fn(&o)
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(0x5eed, 0x1c0e))
	}
	return o
}

// System is the generic attack resolver.
type System struct {
	systems.Base

	rules     *gameplay.Rules
	opts      Options
	cooldowns map[ecs.EntityID]float64
}

func New(rules *gameplay.Rules, logger log.Log, opts ...Option) *System {
	return &System{
		Base:      systems.NewBase(systems.NameCombat, logger),
		rules:     rules,
		opts:      buildOptions(opts),
		cooldowns: make(map[ecs.EntityID]float64),
	}
}

func (s *System) Update(w *ecs.World, dt float64) {
	gameplay.AdvanceHitFeedback(w, dt)
	s.autoEngage(w, dt)
	for e := range ecs.With2[components.Unit, components.Transform](w).Seq() {
		s.processAttacker(w, e, dt)
	}
}

// handledElsewhere reports units resolved by the siege and tower systems.
// Elephants chase and strike here; the elephant system only adds panic,
// charge and trample on top.
func handledElsewhere(u *components.Unit) bool {
	return u.SpawnType.IsSiege() || u.SpawnType == components.SpawnDefenseTower
}

func (s *System) processAttacker(w *ecs.World, e *ecs.Entity, dt float64) {
	unit := ecs.Get[components.Unit](e)
	atk := ecs.Get[components.Attack](e)
	if atk == nil || !gameplay.Alive(e) || handledElsewhere(unit) {
		return
	}
	t := ecs.Get[components.Transform](e)

	s.processMeleeLock(w, e, atk, dt)
	syncMeleeLockTarget(e, atk)

	s.updateCombatMode(w, e, atk)
	rng := atk.CurrentRange()
	damage := atk.CurrentDamage()
	cooldown := atk.CurrentCooldown()
	rng, damage = s.applyHoldBonuses(e, unit, rng, damage)

	atk.TimeSinceLast += dt
	if atk.TimeSinceLast < cooldown {
		return
	}

	at := ecs.Get[components.AttackTarget](e)
	var best *ecs.Entity
	if at != nil && at.TargetID != ecs.NoEntity {
		var done bool
		best, done = s.resolveOrder(w, e, at, atk, rng)
		if done {
			return
		}
	}

	if best == nil && at == nil {
		best = s.firstEnemyInRange(w, e, unit.OwnerID, rng)
	}

	if best == nil {
		s.returnToGuard(w, e, t)
		return
	}

	cur := ecs.GetOrAdd(e, components.AttackTarget{TargetID: best.ID()})
	if cur.TargetID != best.ID() {
		cur.TargetID = best.ID()
		cur.ShouldChase = false
	}

	ranged := isRangedMode(atk)
	if ranged {
		stopMovement(e, t)
	}
	bt := ecs.Get[components.Transform](best)
	gameplay.FaceTarget(t, bt)

	if atk.CurrentMode == components.ModeMelee {
		if gameplay.InHoldMode(e) {
			ecs.Remove[components.AttackTarget](e)
			atk.ReleaseMeleeLock()
			return
		}
		s.initiateMelee(e, best, atk)
	}

	if tu := ecs.Get[components.Unit](best); tu != nil {
		damage = int(float64(damage) * tacticalMultiplier(e, best, unit, tu))
		damage = s.highGroundDefense(e, best, tu, damage)
	}

	if ranged && s.opts.Spawner != nil {
		s.spawnVolley(e, best, unit, damage)
	} else {
		s.rules.DealDamage(w, best, damage, e.ID())
	}
	atk.TimeSinceLast = 0

	if g := ecs.Get[components.GuardMode](e); g != nil && g.Active {
		g.ReturningToPosition = false
	}
}

// resolveOrder validates an explicit attack order. It returns the target
// when it can be hit this step, and done when the attacker has nothing more
// to do this step.
func (s *System) resolveOrder(w *ecs.World, e *ecs.Entity, at *components.AttackTarget, atk *components.Attack, rng float64) (*ecs.Entity, bool) {
	unit := ecs.Get[components.Unit](e)
	t := ecs.Get[components.Transform](e)
	target := w.Entity(at.TargetID)
	tu := ecs.Get[components.Unit](target)
	if !gameplay.Alive(target) || !s.rules.IsHostile(unit.OwnerID, tu.OwnerID) {
		ecs.Remove[components.AttackTarget](e)
		return nil, false
	}

	if gameplay.InRange(e, target, rng) {
		if isRangedMode(atk) {
			stopMovement(e, t)
		}
		gameplay.FaceTarget(t, ecs.Get[components.Transform](target))
		return target, false
	}

	if !at.ShouldChase {
		ecs.Remove[components.AttackTarget](e)
		return nil, false
	}
	if gameplay.InHoldMode(e) {
		ecs.Remove[components.AttackTarget](e)
		return nil, true
	}
	tt := ecs.Get[components.Transform](target)
	if tt == nil {
		return nil, false
	}
	if g := ecs.Get[components.GuardMode](e); g != nil && g.Active {
		gx, gz := guardPoint(w, g)
		dx, dz := tt.Position.X-gx, tt.Position.Z-gz
		if dx*dx+dz*dz > g.GuardRadius*g.GuardRadius {
			ecs.Remove[components.AttackTarget](e)
			return nil, true
		}
	}

	s.chase(w, e, t, tt, gameplay.IsBuilding(target), isRangedMode(atk), rng)
	return nil, false
}

// chase moves the attacker toward a position from which it can hit the
// target. Ranged units stop at their optimal range.
func (s *System) chase(w *ecs.World, e *ecs.Entity, t, tt *components.Transform, building, ranged bool, rng float64) {
	desiredX, desiredZ := tt.Position.X, tt.Position.Z
	hold := false

	dx, dz := tt.Position.X-t.Position.X, tt.Position.Z-t.Position.Z
	distSq := dx*dx + dz*dz
	if distSq > 1e-6 && (building || ranged) {
		dist := math.Sqrt(distSq)
		dirX, dirZ := dx/dist, dz/dist
		var want, slack float64
		if building {
			want = max(tt.Scale.X, tt.Scale.Z)*0.5 + max(rng-0.2, 0.2)
			slack = 0.15
		} else {
			want = rng * optimalRangeFactor
			slack = optimalRangeBuffer
		}
		if dist > want+slack {
			desiredX, desiredZ = tt.Position.X-dirX*want, tt.Position.Z-dirZ*want
		} else {
			hold = true
		}
	}

	mv := ecs.GetOrAdd(e, components.Movement{})
	if hold {
		mv.Stop()
		mv.TargetX, mv.TargetZ = t.Position.X, t.Position.Z
		mv.GoalX, mv.GoalZ = t.Position.X, t.Position.Z
		return
	}

	plannedX, plannedZ := mv.TargetX, mv.TargetZ
	if n := len(mv.Path); n > 0 {
		plannedX, plannedZ = mv.Path[n-1].X, mv.Path[n-1].Z
	}
	px, pz := plannedX-desiredX, plannedZ-desiredZ
	need := !mv.PathPending
	if mv.HasTarget && px*px+pz*pz <= newCommandThreshold*newCommandThreshold {
		need = false
	}
	if need {
		s.moveTo(w, e, desiredX, desiredZ, gameplay.MoveOptions{AllowDirectFallback: true})
	}
}

func (s *System) moveTo(w *ecs.World, e *ecs.Entity, x, z float64, opts gameplay.MoveOptions) {
	if s.opts.Commands != nil {
		s.opts.Commands.MoveUnit(w, e.ID(), x, z, opts)
		return
	}
	if opts.ClearAttackIntent {
		ecs.Remove[components.AttackTarget](e)
	}
	mv := ecs.GetOrAdd(e, components.Movement{})
	mv.ClearPath()
	mv.TargetX, mv.TargetZ = x, z
	mv.GoalX, mv.GoalZ = x, z
	mv.HasTarget = true
}

func (s *System) firstEnemyInRange(w *ecs.World, e *ecs.Entity, owner int, rng float64) *ecs.Entity {
	found, _ := ecs.With2[components.Unit, components.Transform](w).Find(func(c *ecs.Entity) bool {
		if c == e || gameplay.IsBuilding(c) || !gameplay.Alive(c) {
			return false
		}
		if !s.rules.IsHostile(owner, ecs.Get[components.Unit](c).OwnerID) {
			return false
		}
		return gameplay.InRange(e, c, rng)
	})
	return found
}

// returnToGuard sends an idle guard back to its post once it has strayed.
func (s *System) returnToGuard(w *ecs.World, e *ecs.Entity, t *components.Transform) {
	g := ecs.Get[components.GuardMode](e)
	if g == nil || !g.Active || g.ReturningToPosition {
		return
	}
	gx, gz := guardPoint(w, g)
	dx, dz := gx-t.Position.X, gz-t.Position.Z
	if dx*dx+dz*dz <= guardReturnThreshold*guardReturnThreshold {
		return
	}
	g.ReturningToPosition = true
	s.moveTo(w, e, gx, gz, gameplay.MoveOptions{AllowDirectFallback: true, ClearAttackIntent: true})
}

// guardPoint follows the guarded entity when there is one.
func guardPoint(w *ecs.World, g *components.GuardMode) (float64, float64) {
	if g.GuardedEntityID != ecs.NoEntity {
		if gt := ecs.Get[components.Transform](w.Entity(g.GuardedEntityID)); gt != nil {
			return gt.Position.X, gt.Position.Z
		}
	}
	return g.GuardX, g.GuardZ
}

func isRangedMode(atk *components.Attack) bool {
	return atk != nil && atk.CanRanged && atk.CurrentMode == components.ModeRanged
}

func stopMovement(e *ecs.Entity, t *components.Transform) {
	mv := ecs.Get[components.Movement](e)
	if mv == nil || !mv.HasTarget {
		return
	}
	mv.Stop()
	if t != nil {
		mv.TargetX, mv.TargetZ = t.Position.X, t.Position.Z
		mv.GoalX, mv.GoalZ = t.Position.X, t.Position.Z
	}
}

// spawnVolley fires a squad's worth of arrows. Only the first one carries
// the damage; the rest are spread around it for show.
func (s *System) spawnVolley(attacker, target *ecs.Entity, unit *components.Unit, damage int) {
	at := ecs.Get[components.Transform](attacker)
	tt := ecs.Get[components.Transform](target)
	if at == nil || tt == nil {
		return
	}

	dx, dy, dz := tt.Position.X-at.Position.X, tt.Position.Y-at.Position.Y, tt.Position.Z-at.Position.Z
	l := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if l < minDistance {
		l = 1
	}
	dirX, dirZ := dx/l, dz/l
	start := components.Vec3{
		X: at.Position.X + dirX*arrowStartOffset,
		Y: at.Position.Y + arrowStartHeight,
		Z: at.Position.Z + dirZ*arrowStartOffset,
	}

	var color [3]float64
	if r := ecs.Get[components.Renderable](attacker); r != nil {
		color = r.Color
	}

	s.opts.Spawner.SpawnArrow(projectile.Spawn{
		Start:      start,
		End:        tt.Position,
		Impact:     tt.Position,
		Color:      color,
		Speed:      s.opts.ArrowSpeed,
		Damage:     damage,
		AttackerID: attacker.ID(),
		TargetID:   target.ID(),
	})

	extra := s.volleySize(unit) - 1
	for range extra {
		lateral := (s.opts.Rand.Float64()*2 - 1) * arrowSpread
		vertical := (s.opts.Rand.Float64()*2 - 1) * arrowSpread * 0.5
		depth := (s.opts.Rand.Float64()*2 - 1) * arrowSpread * 1.5
		offX, offZ := -dirZ*lateral, dirX*lateral
		s.opts.Spawner.SpawnArrow(projectile.Spawn{
			Start: components.Vec3{X: start.X + offX, Y: start.Y + vertical, Z: start.Z + offZ},
			End: components.Vec3{
				X: tt.Position.X + offX + dirX*depth,
				Y: tt.Position.Y + vertical,
				Z: tt.Position.Z + offZ + dirZ*depth,
			},
			Color: color,
			Speed: s.opts.ArrowSpeed,
		})
	}
}

// volleySize draws between half and all of two thirds of the squad.
func (s *System) volleySize(unit *components.Unit) int {
	if s.opts.Catalog == nil {
		return 1
	}
	most := max(2, s.opts.Catalog.IndividualsPerUnit(unit.SpawnType)*2/3)
	least := most / 2
	return least + s.opts.Rand.IntN(most-least+1)
}
