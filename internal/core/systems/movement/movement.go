// Package movement steers units toward their movement targets, following
// waypoint paths produced by the navigation service.
package movement

import (
	"math"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/navigation"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/systems"
	"github.com/zeusync/ironcore/internal/core/systems/physics"
)

const (
	ArriveRadius = 0.25

	damping         = 6.0
	accelFactor     = 4.0
	minSpeed        = 0.1
	moveTurnRate    = 720.0
	facingTurnRate  = 180.0
	facingTolerance = 0.5
	repathCooldown  = 0.4
	maxWaypointSkip = 4
)

// System integrates Movement into Transform once per step.
type System struct {
	systems.Base

	commands  *gameplay.Commands
	buildings *navigation.BuildingRegistry
	finder    *navigation.Pathfinder
}

// New creates the movement system. Any collaborator may be nil: without
// commands no path results are collected, and without the registry and
// finder every point counts as walkable.
func New(commands *gameplay.Commands, buildings *navigation.BuildingRegistry, finder *navigation.Pathfinder, logger log.Log) *System {
	return &System{
		Base:      systems.NewBase(systems.NameMovement, logger),
		commands:  commands,
		buildings: buildings,
		finder:    finder,
	}
}

func (s *System) Update(w *ecs.World, dt float64) {
	s.commands.ProcessPathResults(w)
	for e := range ecs.With3[components.Movement, components.Transform, components.Unit](w).Seq() {
		s.moveUnit(w, e, dt)
	}
}

func (s *System) moveUnit(w *ecs.World, e *ecs.Entity, dt float64) {
	t := ecs.Get[components.Transform](e)
	mv := ecs.Get[components.Movement](e)
	unit := ecs.Get[components.Unit](e)
	if !unit.Alive() || ecs.Has[components.PendingRemoval](e) {
		return
	}

	if hold := ecs.Get[components.HoldMode](e); hold != nil {
		if hold.ExitCooldown > 0 {
			hold.ExitCooldown = math.Max(0, hold.ExitCooldown-dt)
		}
		if hold.Active {
			mv.Stop()
			if !gameplay.IsBuilding(e) {
				turnToDesired(t, dt)
			}
			return
		}
		if hold.ExitCooldown > 0 {
			mv.VX, mv.VZ = 0, 0
			return
		}
	}

	if atk := ecs.Get[components.Attack](e); atk != nil && atk.InMeleeLock {
		mv.Stop()
		return
	}

	goalAllowed := s.pointAllowed(mv.GoalX, mv.GoalZ, e.ID())
	if mv.HasTarget && !goalAllowed {
		mv.Stop()
		return
	}
	if mv.RepathCooldown > 0 {
		mv.RepathCooldown = math.Max(0, mv.RepathCooldown-dt)
	}

	maxSpeed := math.Max(minSpeed, unit.Speed)
	accel := maxSpeed * accelFactor

	if !mv.HasTarget {
		decay(mv, damping*dt)
	} else {
		if !s.ensureWalkableSegment(w, e, t, mv, goalAllowed) {
			return
		}
		s.steer(t, mv, maxSpeed, accel, dt)
	}

	t.Position.X += mv.VX * dt
	t.Position.Z += mv.VZ * dt

	if gameplay.IsBuilding(e) {
		return
	}
	if mv.VX*mv.VX+mv.VZ*mv.VZ > 1e-5 {
		t.Rotation.Y, _ = physics.TurnTowards(t.Rotation.Y, physics.Yaw(mv.VX, mv.VZ), moveTurnRate, dt)
	} else {
		turnToDesired(t, dt)
	}
}

// steer handles arrival and accelerates toward the current segment target.
func (s *System) steer(t *components.Transform, mv *components.Movement, maxSpeed, accel, dt float64) {
	dx, dz := mv.TargetX-t.Position.X, mv.TargetZ-t.Position.Z
	dist2 := dx*dx + dz*dz

	for skips := maxWaypointSkip; mv.HasTarget && dist2 <= ArriveRadius*ArriveRadius && skips > 0; skips-- {
		if len(mv.Path) > 0 {
			mv.Path = mv.Path[1:]
			if len(mv.Path) > 0 {
				mv.TargetX, mv.TargetZ = mv.Path[0].X, mv.Path[0].Z
				dx, dz = mv.TargetX-t.Position.X, mv.TargetZ-t.Position.Z
				dist2 = dx*dx + dz*dz
				continue
			}
		}
		t.Position.X, t.Position.Z = mv.TargetX, mv.TargetZ
		mv.HasTarget = false
		mv.VX, mv.VZ = 0, 0
	}

	if !mv.HasTarget {
		decay(mv, damping*dt)
		return
	}

	dist := math.Sqrt(dist2)
	nx, nz := dx/math.Max(1e-4, dist), dz/math.Max(1e-4, dist)
	desired := maxSpeed
	if slow := ArriveRadius * 4; dist < slow {
		desired = maxSpeed * dist / slow
	}
	mv.VX += (nx*desired - mv.VX) * accel * dt
	mv.VZ += (nz*desired - mv.VZ) * accel * dt
	decay(mv, 0.5*damping*dt)
}

// ensureWalkableSegment skips blocked waypoints and, failing that, asks for a
// fresh path. It reports whether the unit may keep moving this step.
func (s *System) ensureWalkableSegment(w *ecs.World, e *ecs.Entity, t *components.Transform, mv *components.Movement, goalAllowed bool) bool {
	if s.buildings == nil && s.finder == nil {
		return true
	}
	if len(mv.Path) > 0 {
		mv.TargetX, mv.TargetZ = mv.Path[0].X, mv.Path[0].Z
	}
	if s.segmentWalkable(t.Position.X, t.Position.Z, mv.TargetX, mv.TargetZ, e.ID()) {
		return true
	}

	for skips := maxWaypointSkip; len(mv.Path) > 0 && skips > 0; skips-- {
		mv.Path = mv.Path[1:]
		if len(mv.Path) > 0 {
			mv.TargetX, mv.TargetZ = mv.Path[0].X, mv.Path[0].Z
		}
		if s.segmentWalkable(t.Position.X, t.Position.Z, mv.TargetX, mv.TargetZ, e.ID()) {
			return true
		}
	}

	requested := false
	if s.commands != nil && !mv.PathPending && mv.RepathCooldown <= 0 && goalAllowed &&
		physics.DistanceSq2(t.Position.X, t.Position.Z, mv.GoalX, mv.GoalZ) > 0.01 {
		goalX, goalZ := mv.GoalX, mv.GoalZ
		mv.HasTarget = false
		mv.Path = mv.Path[:0]
		s.commands.MoveUnit(w, e.ID(), goalX, goalZ, gameplay.MoveOptions{})
		mv.RepathCooldown = repathCooldown
		requested = mv.PathPending
		s.Logger().Debug("segment blocked, repathing", log.Uint64("entity", uint64(e.ID())))
	}
	if !requested {
		mv.PathPending = false
		mv.PendingRequestID = 0
	}
	mv.Path = mv.Path[:0]
	mv.HasTarget = false
	mv.VX, mv.VZ = 0, 0
	return false
}

func (s *System) pointAllowed(x, z float64, ignore ecs.EntityID) bool {
	if s.buildings != nil && s.buildings.IsPointInBuilding(x, z, ignore) {
		return false
	}
	if s.finder != nil {
		pt := s.finder.WorldToGrid(x, z)
		if !s.finder.IsWalkable(pt.X, pt.Y) {
			return false
		}
	}
	return true
}

// segmentWalkable samples the segment twice per world unit. A unit already
// standing inside a blocked zone may walk out of it.
func (s *System) segmentWalkable(fx, fz, tx, tz float64, ignore ecs.EntityID) bool {
	startOK := s.pointAllowed(fx, fz, ignore)
	endOK := s.pointAllowed(tx, tz, ignore)
	d2 := physics.DistanceSq2(fx, fz, tx, tz)
	if d2 < 1e-6 {
		return endOK
	}
	steps := max(1, int(math.Ceil(math.Sqrt(d2)))*2)
	sx, sz := (tx-fx)/float64(steps), (tz-fz)/float64(steps)
	exited := startOK
	for i := 1; i <= steps; i++ {
		ok := s.pointAllowed(fx+sx*float64(i), fz+sz*float64(i), ignore)
		if !exited {
			exited = ok
			continue
		}
		if !ok {
			return false
		}
	}
	return endOK && exited
}

func decay(mv *components.Movement, k float64) {
	f := math.Max(0, 1-k)
	mv.VX *= f
	mv.VZ *= f
}

func turnToDesired(t *components.Transform, dt float64) {
	if !t.HasDesiredYaw {
		return
	}
	var diff float64
	t.Rotation.Y, diff = physics.TurnTowards(t.Rotation.Y, t.DesiredYaw, facingTurnRate, dt)
	if math.Abs(diff) < facingTolerance {
		t.HasDesiredYaw = false
	}
}
