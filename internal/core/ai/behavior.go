package ai

import (
	"math"
	"slices"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
)

// Behavior is one strategy a faction may pursue during an evaluation.
type Behavior interface {
	Name() string
	Priority() Priority
	// CanRunConcurrently reports whether the behavior may run after an
	// exclusive behavior already executed this evaluation.
	CanRunConcurrently() bool
	ShouldExecute(snap *Snapshot, ctx *Context) bool
	Execute(snap *Snapshot, ctx *Context, dt float64) []Command
}

// SortBehaviors orders bs by descending priority, keeping registration order
// among equals.
func SortBehaviors(bs []Behavior) {
	slices.SortStableFunc(bs, func(a, b Behavior) int {
		return int(b.Priority()) - int(a.Priority())
	})
}

// RunBehaviors evaluates bs in order. Once an exclusive behavior executed only
// concurrent ones may still run.
func RunBehaviors(bs []Behavior, snap *Snapshot, ctx *Context, dt float64) []Command {
	var out []Command
	exclusiveDone := false
	for _, b := range bs {
		if exclusiveDone && !b.CanRunConcurrently() {
			continue
		}
		if !b.ShouldExecute(snap, ctx) {
			continue
		}
		out = append(out, b.Execute(snap, ctx, dt)...)
		if !b.CanRunConcurrently() {
			exclusiveDone = true
		}
	}
	return out
}

// DefaultBehaviors returns a fresh set of the built-in behaviors, sorted.
func DefaultBehaviors(formation gameplay.FormationType) []Behavior {
	bs := []Behavior{
		&DefendBehavior{Formation: formation},
		&ProductionBehavior{},
		&AttackBehavior{Formation: formation},
		&GatherBehavior{Formation: formation},
	}
	SortBehaviors(bs)
	return bs
}

// moveCommand builds a MoveUnits command for the claimed subset of ids.
func moveCommand(ids, claimed []ecs.EntityID, slots []components.Waypoint) (Command, bool) {
	if len(claimed) == 0 {
		return Command{}, false
	}
	cmd := Command{Type: CommandMoveUnits}
	for i, id := range ids {
		if i < len(slots) && slices.Contains(claimed, id) {
			cmd.Units = append(cmd.Units, id)
			cmd.Targets = append(cmd.Targets, Target{X: slots[i].X, Z: slots[i].Z})
		}
	}
	return cmd, len(cmd.Units) > 0
}

func sortByDistance(units []*EntitySnapshot, x, z float64) {
	slices.SortStableFunc(units, func(a, b *EntitySnapshot) int {
		da, db := distSq(a.X, a.Z, x, z), distSq(b.X, b.Z, x, z)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})
}

func barracksPosition(snap *Snapshot, id ecs.EntityID) (float64, float64, bool) {
	for _, ent := range snap.Friendlies {
		if ent.ID == id {
			return ent.X, ent.Z, true
		}
	}
	return 0, 0, false
}

// DefendBehavior pulls units back to the primary barracks and fights threats
// near it.
type DefendBehavior struct {
	Formation gameplay.FormationType
	timer     float64
}

func (*DefendBehavior) Name() string             { return "defend" }
func (*DefendBehavior) Priority() Priority       { return PriorityCritical }
func (*DefendBehavior) CanRunConcurrently() bool { return false }

func (b *DefendBehavior) ShouldExecute(_ *Snapshot, ctx *Context) bool {
	if ctx.PrimaryBarracks == ecs.NoEntity {
		return false
	}
	return ctx.BarracksUnderThreat ||
		(ctx.State == StateDefending && ctx.IdleUnits > 0) ||
		(ctx.AverageHealth < 0.6 && ctx.TotalUnits > 0)
}

func (b *DefendBehavior) Execute(snap *Snapshot, ctx *Context, dt float64) []Command {
	b.timer += dt
	interval := 1.5
	if ctx.BarracksUnderThreat {
		interval = 0.5
	}
	if b.timer < interval {
		return nil
	}
	b.timer = 0

	bx, bz, ok := barracksPosition(snap, ctx.PrimaryBarracks)
	if !ok {
		return nil
	}

	var ready []*EntitySnapshot
	for i := range snap.Friendlies {
		ent := &snap.Friendlies[i]
		if ent.IsBuilding || engaged(ent, snap.VisibleEnemies) {
			continue
		}
		ready = append(ready, ent)
	}
	if len(ready) == 0 {
		return nil
	}
	sortByDistance(ready, bx, bz)
	if !ctx.BarracksUnderThreat && len(ready) > 6 {
		ready = ready[:6]
	}
	ids := snapshotIDs(ready)

	if ctx.BarracksUnderThreat {
		var threats []*ContactSnapshot
		for i := range snap.VisibleEnemies {
			en := &snap.VisibleEnemies[i]
			if distSq(en.X, en.Z, bx, bz) <= DefendRadius*DefendRadius {
				threats = append(threats, en)
			}
		}
		if len(threats) > 0 {
			if target := focusTarget(threats, bx, bz, ctx, ecs.NoEntity); target != ecs.NoEntity {
				if claimed := claim(ids, b.Priority(), "defending", ctx, 3); len(claimed) > 0 {
					return []Command{{Type: CommandAttackTarget, Units: claimed, TargetID: target, ShouldChase: true}}
				}
			}
		}
	}

	var loose []*EntitySnapshot
	for _, u := range ready {
		if _, taken := ctx.Assigned[u.ID]; !taken {
			loose = append(loose, u)
		}
	}
	if len(loose) == 0 {
		return nil
	}
	slots := gameplay.FormationPositions(b.Formation, len(loose), bx, bz, 3)
	var moveIDs []ecs.EntityID
	var moveSlots []components.Waypoint
	for i, u := range loose {
		if distSq(u.X, u.Z, slots[i].X, slots[i].Z) < 1 {
			continue
		}
		moveIDs = append(moveIDs, u.ID)
		moveSlots = append(moveSlots, slots[i])
	}
	claimed := claim(moveIDs, PriorityLow, "positioning", ctx, 1.5)
	if cmd, ok := moveCommand(moveIDs, claimed, moveSlots); ok {
		return []Command{cmd}
	}
	return nil
}

// ProductionBehavior keeps idle barracks training, balancing ranged and
// melee troops.
type ProductionBehavior struct {
	timer float64
}

func (*ProductionBehavior) Name() string             { return "production" }
func (*ProductionBehavior) Priority() Priority       { return PriorityHigh }
func (*ProductionBehavior) CanRunConcurrently() bool { return true }

func (b *ProductionBehavior) ShouldExecute(_ *Snapshot, ctx *Context) bool {
	return ctx.MaxTroopsPerPlayer <= 0 || ctx.TotalUnits < ctx.MaxTroopsPerPlayer
}

func (b *ProductionBehavior) Execute(snap *Snapshot, ctx *Context, dt float64) []Command {
	b.timer += dt
	if b.timer < 1.5 {
		return nil
	}
	b.timer = 0

	var ranged bool
	if ctx.BarracksUnderThreat || ctx.State == StateDefending {
		ranged = ctx.MeleeCount > ctx.RangedCount
	} else {
		ratio := 0.0
		if ctx.TotalUnits > 0 {
			ratio = float64(ctx.RangedCount) / float64(ctx.TotalUnits)
		}
		ranged = ratio < 0.6
	}
	product := components.SpawnKnight
	if ranged {
		product = components.SpawnArcher
	}

	var out []Command
	for _, ent := range snap.Friendlies {
		if !ent.IsBuilding || ent.SpawnType != components.SpawnBarracks {
			continue
		}
		p := ent.Production
		if !p.HasComponent || p.InProgress || p.ProducedCount >= p.MaxUnits {
			continue
		}
		out = append(out, Command{Type: CommandStartProduction, BuildingID: ent.ID, ProductType: product})
	}
	return out
}

// AttackBehavior advances on enemy structures and focuses fire on nearby
// enemies when the odds allow.
type AttackBehavior struct {
	Formation  gameplay.FormationType
	timer      float64
	lockTime   float64
	lastTarget ecs.EntityID
}

func (*AttackBehavior) Name() string             { return "attack" }
func (*AttackBehavior) Priority() Priority       { return PriorityNormal }
func (*AttackBehavior) CanRunConcurrently() bool { return false }

func (b *AttackBehavior) ShouldExecute(snap *Snapshot, ctx *Context) bool {
	if ctx.State == StateRetreating || len(snap.VisibleEnemies) == 0 {
		return false
	}
	ready := 0
	for i := range snap.Friendlies {
		ent := &snap.Friendlies[i]
		if !ent.IsBuilding && !engaged(ent, snap.VisibleEnemies) {
			ready++
		}
	}
	switch {
	case ready == 0:
		return false
	case ctx.State == StateAttacking:
		return true
	case ctx.State == StateDefending:
		return ctx.BarracksUnderThreat && ready >= 2
	default:
		return true
	}
}

func (b *AttackBehavior) Execute(snap *Snapshot, ctx *Context, dt float64) []Command {
	b.timer += dt
	b.lockTime += dt
	if b.timer < 1.5 || len(snap.VisibleEnemies) == 0 {
		return nil
	}
	b.timer = 0

	var ready []*EntitySnapshot
	var cx, cz float64
	for i := range snap.Friendlies {
		ent := &snap.Friendlies[i]
		if ent.IsBuilding || engaged(ent, snap.VisibleEnemies) {
			continue
		}
		ready = append(ready, ent)
		cx += ent.X
		cz += ent.Z
	}
	if len(ready) == 0 {
		return nil
	}
	cx /= float64(len(ready))
	cz /= float64(len(ready))

	engageRange := 20.0
	if ctx.DamagedUnits > 0 {
		engageRange = 35
	}
	var nearby []*ContactSnapshot
	for i := range snap.VisibleEnemies {
		en := &snap.VisibleEnemies[i]
		if distSq(en.X, en.Z, cx, cz) <= engageRange*engageRange {
			nearby = append(nearby, en)
		}
	}

	if len(nearby) == 0 {
		cmds := b.advance(snap, ctx, ready, cx, cz)
		b.lastTarget, b.lockTime = ecs.NoEntity, 0
		return cmds
	}

	minRatio := 0.9
	if ctx.State == StateAttacking {
		minRatio = 0.7
	}
	assessment := assessEngagement(ready, nearby, minRatio)
	if !assessment.ShouldEngage && !ctx.BarracksUnderThreat && ctx.DamagedUnits == 0 {
		b.lastTarget, b.lockTime = ecs.NoEntity, 0
		return nil
	}

	valid := slices.ContainsFunc(nearby, func(en *ContactSnapshot) bool { return en.ID == b.lastTarget })
	if !valid || b.lockTime > 8 {
		b.lastTarget, b.lockTime = ecs.NoEntity, 0
	}
	target := focusTarget(nearby, cx, cz, ctx, b.lastTarget)
	if target == ecs.NoEntity {
		return nil
	}
	if target != b.lastTarget {
		b.lastTarget, b.lockTime = target, 0
	}

	claimed := claim(snapshotIDs(ready), b.Priority(), "attacking", ctx, 2.5)
	if len(claimed) == 0 {
		return nil
	}
	chase := (ctx.State == StateAttacking || ctx.BarracksUnderThreat) && assessment.ForceRatio >= 0.8
	return []Command{{Type: CommandAttackTarget, Units: claimed, TargetID: target, ShouldChase: chase}}
}

// advance marches the ready group toward the closest enemy barracks, or the
// closest enemy when no structure is visible.
func (b *AttackBehavior) advance(snap *Snapshot, ctx *Context, ready []*EntitySnapshot, cx, cz float64) []Command {
	if ctx.State != StateAttacking && (ctx.State != StateGathering || ctx.TotalUnits < 3) {
		return nil
	}

	var target *ContactSnapshot
	best := math.Inf(1)
	for i := range snap.VisibleEnemies {
		en := &snap.VisibleEnemies[i]
		if d := distSq(en.X, en.Z, cx, cz); en.IsBuilding && d < best {
			target, best = en, d
		}
	}
	structure := target != nil
	if !structure {
		for i := range snap.VisibleEnemies {
			en := &snap.VisibleEnemies[i]
			if d := distSq(en.X, en.Z, cx, cz); d < best {
				target, best = en, d
			}
		}
	}
	if target == nil {
		return nil
	}

	ax, az := target.X, target.Z
	if structure {
		dx, dz := cx-target.X, cz-target.Z
		if d := math.Hypot(dx, dz); d > 0.1 {
			ax += dx / d * 3
			az += dz / d * 3
		} else {
			ax += 3
		}
	}

	needed := b.lastTarget != target.ID
	if !needed {
		for _, u := range ready {
			if distSq(u.X, u.Z, ax, az) > 15*15 {
				needed = true
				break
			}
		}
	}
	if !needed {
		return nil
	}

	ids := snapshotIDs(ready)
	slots := gameplay.FormationPositions(b.Formation, len(ids), ax, az, 1.8)
	claimed := claim(ids, PriorityNormal, "advancing", ctx, 2)
	if cmd, ok := moveCommand(ids, claimed, slots); ok {
		return []Command{cmd}
	}
	return nil
}

// GatherBehavior collects unengaged units at the rally point.
type GatherBehavior struct {
	Formation gameplay.FormationType
	timer     float64
}

func (*GatherBehavior) Name() string             { return "gather" }
func (*GatherBehavior) Priority() Priority       { return PriorityLow }
func (*GatherBehavior) CanRunConcurrently() bool { return false }

func (b *GatherBehavior) ShouldExecute(snap *Snapshot, ctx *Context) bool {
	if ctx.PrimaryBarracks == ecs.NoEntity {
		return false
	}
	switch ctx.State {
	case StateGathering, StateIdle:
		return true
	case StateDefending:
		for _, ent := range snap.Friendlies {
			if !ent.IsBuilding && distSq(ent.X, ent.Z, ctx.RallyX, ctx.RallyZ) > 10*10 {
				return true
			}
		}
	}
	return false
}

func (b *GatherBehavior) Execute(snap *Snapshot, ctx *Context, dt float64) []Command {
	b.timer += dt
	if b.timer < 1 {
		return nil
	}
	b.timer = 0
	if ctx.PrimaryBarracks == ecs.NoEntity {
		return nil
	}

	var ids []ecs.EntityID
	for i := range snap.Friendlies {
		ent := &snap.Friendlies[i]
		if ent.IsBuilding || engaged(ent, snap.VisibleEnemies) {
			continue
		}
		if distSq(ent.X, ent.Z, ctx.RallyX, ctx.RallyZ) > 2*2 {
			ids = append(ids, ent.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	slots := gameplay.FormationPositions(b.Formation, len(ids), ctx.RallyX, ctx.RallyZ, 1.4)
	claimed := claim(ids, b.Priority(), "gathering", ctx, 2)
	if cmd, ok := moveCommand(ids, claimed, slots); ok {
		return []Command{cmd}
	}
	return nil
}

func snapshotIDs(units []*EntitySnapshot) []ecs.EntityID {
	ids := make([]ecs.EntityID, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	return ids
}
