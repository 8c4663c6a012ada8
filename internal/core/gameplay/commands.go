package gameplay

import (
	"math"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/navigation"
)

const (
	// DirectPathThreshold is the grid Manhattan distance below which a move
	// skips path search and walks straight.
	DirectPathThreshold = 8

	waypointSkipThresholdSq = 0.16
	sameTargetThresholdSq   = 0.01
)

type MoveOptions struct {
	AllowDirectFallback bool
	ClearAttackIntent   bool
	GroupMove           bool
}

// DefaultMoveOptions is a plain player move order.
func DefaultMoveOptions() MoveOptions {
	return MoveOptions{AllowDirectFallback: true, ClearAttackIntent: true}
}

type pathRequest struct {
	leader  ecs.EntityID
	target  components.Waypoint
	options MoveOptions
	members []ecs.EntityID
	targets []components.Waypoint
}

// Commands turns orders into Movement and AttackTarget state. Long moves are
// resolved through the path service; results are applied by
// ProcessPathResults, which the movement system calls every step. Commands is
// driven from the world goroutine only.
type Commands struct {
	paths    *navigation.PathService
	pending  map[uint64]*pathRequest
	byEntity map[ecs.EntityID]uint64
}

// NewCommands creates a command service. With a nil path service every move
// is a direct move.
func NewCommands(paths *navigation.PathService) *Commands {
	return &Commands{
		paths:    paths,
		pending:  make(map[uint64]*pathRequest),
		byEntity: make(map[ecs.EntityID]uint64),
	}
}

// PendingRequests returns the number of unresolved path requests.
func (c *Commands) PendingRequests() int {
	if c == nil {
		return 0
	}
	return len(c.pending)
}

func (c *Commands) finder() *navigation.Pathfinder {
	if c == nil || c.paths == nil {
		return nil
	}
	return c.paths.Finder()
}

// MoveUnit orders a single unit to (x, z). A nil Commands moves directly.
func (c *Commands) MoveUnit(w *ecs.World, id ecs.EntityID, x, z float64, opts MoveOptions) {
	c.MoveUnits(w, []ecs.EntityID{id}, []components.Waypoint{{X: x, Z: z}}, opts)
}

// MoveUnits orders ids[i] to targets[i]. Mismatched slices are ignored.
func (c *Commands) MoveUnits(w *ecs.World, ids []ecs.EntityID, targets []components.Waypoint, opts MoveOptions) {
	if len(ids) != len(targets) {
		return
	}
	if opts.GroupMove && len(ids) > 1 && c != nil {
		c.moveGroup(w, ids, targets, opts)
		return
	}
	for i, id := range ids {
		c.moveOne(w, id, targets[i], opts)
	}
}

func (c *Commands) moveOne(w *ecs.World, id ecs.EntityID, target components.Waypoint, opts MoveOptions) {
	e := w.Entity(id)
	t := ecs.Get[components.Transform](e)
	if t == nil {
		return
	}
	mv := ecs.GetOrAdd(e, components.Movement{})
	if opts.ClearAttackIntent {
		ecs.Remove[components.AttackTarget](e)
	}

	if mv.PathPending && c != nil {
		if req, ok := c.pending[mv.PendingRequestID]; ok && near(req.target, target) {
			req.options = opts
			mv.GoalX, mv.GoalZ = target.X, target.Z
			return
		}
	}
	mv.GoalX, mv.GoalZ = target.X, target.Z

	if !mv.PathPending {
		if mv.HasTarget && len(mv.Path) == 0 && near(components.Waypoint{X: mv.TargetX, Z: mv.TargetZ}, target) {
			return
		}
		if n := len(mv.Path); n > 0 && near(mv.Path[n-1], target) {
			return
		}
	}

	pf := c.finder()
	if pf == nil {
		c.setDirect(id, mv, target)
		return
	}
	start := pf.WorldToGrid(t.Position.X, t.Position.Z)
	end := pf.WorldToGrid(target.X, target.Z)
	if start == end || (opts.AllowDirectFallback && manhattan(start, end) <= DirectPathThreshold) {
		c.setDirect(id, mv, target)
		return
	}

	c.forget(id)
	mv.Path = mv.Path[:0]
	mv.HasTarget = false
	reqID := c.paths.NextRequestID()
	mv.PathPending = true
	mv.PendingRequestID = reqID
	c.pending[reqID] = &pathRequest{leader: id, target: target, options: opts}
	c.byEntity[id] = reqID
	c.paths.Submit(reqID, start, end)
}

func (c *Commands) setDirect(id ecs.EntityID, mv *components.Movement, target components.Waypoint) {
	mv.TargetX, mv.TargetZ = target.X, target.Z
	mv.HasTarget = true
	mv.ClearPath()
	c.forget(id)
}

func (c *Commands) moveGroup(w *ecs.World, ids []ecs.EntityID, targets []components.Waypoint, opts MoveOptions) {
	type member struct {
		id     ecs.EntityID
		t      *components.Transform
		mv     *components.Movement
		target components.Waypoint
	}
	var members []member
	for i, id := range ids {
		e := w.Entity(id)
		t := ecs.Get[components.Transform](e)
		if t == nil {
			continue
		}
		if opts.ClearAttackIntent {
			ecs.Remove[components.AttackTarget](e)
		}
		members = append(members, member{id: id, t: t, mv: ecs.GetOrAdd(e, components.Movement{}), target: targets[i]})
	}
	switch len(members) {
	case 0:
		return
	case 1:
		opts.GroupMove = false
		c.moveOne(w, members[0].id, members[0].target, opts)
		return
	}

	var avgX, avgZ float64
	for _, m := range members {
		avgX += m.target.X
		avgZ += m.target.Z
	}
	avgX /= float64(len(members))
	avgZ /= float64(len(members))

	leader := 0
	best := math.Inf(1)
	for i, m := range members {
		dx, dz := m.target.X-avgX, m.target.Z-avgZ
		if d := dx*dx + dz*dz; d < best {
			best, leader = d, i
		}
	}

	for _, m := range members {
		c.forget(m.id)
		m.mv.GoalX, m.mv.GoalZ = m.target.X, m.target.Z
		m.mv.TargetX, m.mv.TargetZ = m.t.Position.X, m.t.Position.Z
		m.mv.HasTarget = false
		m.mv.VX, m.mv.VZ = 0, 0
		m.mv.ClearPath()
	}

	direct := func() {
		for _, m := range members {
			m.mv.TargetX, m.mv.TargetZ = m.target.X, m.target.Z
			m.mv.HasTarget = true
		}
	}
	pf := c.finder()
	if pf == nil {
		direct()
		return
	}
	lead := members[leader]
	start := pf.WorldToGrid(lead.t.Position.X, lead.t.Position.Z)
	end := pf.WorldToGrid(lead.target.X, lead.target.Z)
	if start == end || (opts.AllowDirectFallback && manhattan(start, end) <= DirectPathThreshold) {
		direct()
		return
	}

	reqID := c.paths.NextRequestID()
	req := &pathRequest{leader: lead.id, target: lead.target, options: opts}
	for _, m := range members {
		m.mv.PathPending = true
		m.mv.PendingRequestID = reqID
		req.members = append(req.members, m.id)
		req.targets = append(req.targets, m.target)
		c.byEntity[m.id] = reqID
	}
	c.pending[reqID] = req
	c.paths.Submit(reqID, start, end)
}

// ProcessPathResults applies finished path searches. Without a running
// worker the queued searches are resolved inline first.
func (c *Commands) ProcessPathResults(w *ecs.World) {
	if c == nil || c.paths == nil {
		return
	}
	if !c.paths.Running() {
		c.paths.ProcessPending()
	}
	pf := c.paths.Finder()

	for _, res := range c.paths.Completed() {
		req, ok := c.pending[res.ID]
		if !ok {
			continue
		}
		delete(c.pending, res.ID)
		for _, id := range append([]ecs.EntityID{req.leader}, req.members...) {
			if c.byEntity[id] == res.ID {
				delete(c.byEntity, id)
			}
		}

		done := make(map[ecs.EntityID]struct{}, len(req.members)+1)
		apply := func(id ecs.EntityID, target components.Waypoint) {
			if _, seen := done[id]; seen {
				return
			}
			done[id] = struct{}{}
			c.applyPath(w, id, res, pf, req, target)
		}
		apply(req.leader, req.target)
		for i, id := range req.members {
			target := req.target
			if i < len(req.targets) {
				target = req.targets[i]
			}
			apply(id, target)
		}
	}
}

func (c *Commands) applyPath(w *ecs.World, id ecs.EntityID, res navigation.PathResult, pf *navigation.Pathfinder, req *pathRequest, target components.Waypoint) {
	e := w.Entity(id)
	mv := ecs.Get[components.Movement](e)
	t := ecs.Get[components.Transform](e)
	if mv == nil || t == nil {
		return
	}
	if !mv.PathPending || mv.PendingRequestID != res.ID {
		mv.PathPending = false
		mv.PendingRequestID = 0
		return
	}
	mv.PathPending = false
	mv.PendingRequestID = 0
	mv.Path = mv.Path[:0]
	mv.GoalX, mv.GoalZ = target.X, target.Z
	mv.VX, mv.VZ = 0, 0

	offX, offZ := target.X-req.target.X, target.Z-req.target.Z
	if len(res.Path) > 1 {
		for _, pt := range res.Path[1:] {
			x, z := pf.GridToWorld(pt)
			mv.Path = append(mv.Path, components.Waypoint{X: x + offX, Z: z + offZ})
		}
		for len(mv.Path) > 0 {
			dx, dz := mv.Path[0].X-t.Position.X, mv.Path[0].Z-t.Position.Z
			if dx*dx+dz*dz > waypointSkipThresholdSq {
				break
			}
			mv.Path = mv.Path[1:]
		}
		if len(mv.Path) > 0 {
			mv.TargetX, mv.TargetZ = mv.Path[0].X, mv.Path[0].Z
			mv.HasTarget = true
			return
		}
	}
	if req.options.AllowDirectFallback {
		mv.TargetX, mv.TargetZ = target.X, target.Z
		mv.HasTarget = true
		return
	}
	mv.HasTarget = false
}

// forget drops id's pending request along with every group member bound to it.
func (c *Commands) forget(id ecs.EntityID) {
	if c == nil {
		return
	}
	reqID, ok := c.byEntity[id]
	if !ok {
		return
	}
	delete(c.byEntity, id)
	req, ok := c.pending[reqID]
	if !ok {
		return
	}
	delete(c.pending, reqID)
	for _, m := range req.members {
		if c.byEntity[m] == reqID {
			delete(c.byEntity, m)
		}
	}
}

// AttackTarget orders ids to attack targetID. Chasing units are sent to a
// point just inside their weapon range.
func (c *Commands) AttackTarget(w *ecs.World, ids []ecs.EntityID, targetID ecs.EntityID, chase bool) {
	if targetID == ecs.NoEntity {
		return
	}
	target := w.Entity(targetID)
	for _, id := range ids {
		e := w.Entity(id)
		if e == nil {
			continue
		}
		at := ecs.GetOrAdd(e, components.AttackTarget{})
		at.TargetID = targetID
		at.ShouldChase = chase
		if !chase {
			continue
		}

		tt := ecs.Get[components.Transform](target)
		et := ecs.Get[components.Transform](e)
		if tt == nil || et == nil {
			continue
		}
		rng := 2.0
		if atk := ecs.Get[components.Attack](e); atk != nil {
			rng = max(0.1, atk.Range)
		}
		dest := ApproachPoint(et, tt, rng, IsBuilding(target))

		opts := MoveOptions{AllowDirectFallback: true}
		c.moveOne(w, id, dest, opts)
		mv := ecs.GetOrAdd(e, components.Movement{})
		mv.TargetX, mv.TargetZ = dest.X, dest.Z
		mv.GoalX, mv.GoalZ = dest.X, dest.Z
		mv.HasTarget = true
		mv.Path = mv.Path[:0]
	}
}

// ApproachPoint returns where an attacker at a should stand to hit a target
// at t with weapon range rng. Buildings add their footprint radius.
func ApproachPoint(a, t *components.Transform, rng float64, building bool) components.Waypoint {
	dest := components.Waypoint{X: t.Position.X, Z: t.Position.Z}
	dx, dz := t.Position.X-a.Position.X, t.Position.Z-a.Position.Z
	dist := math.Sqrt(dx*dx + dz*dz)
	if dist <= 0.001 {
		return dest
	}
	want := max(rng-0.2, 0.2)
	if building {
		want += max(t.Scale.X, t.Scale.Z) * 0.5
	}
	if dist > want+0.15 {
		dest.X -= dx / dist * want
		dest.Z -= dz / dist * want
	}
	return dest
}

// StopUnits clears movement and attack orders for ids.
func (c *Commands) StopUnits(w *ecs.World, ids []ecs.EntityID) {
	for _, id := range ids {
		e := w.Entity(id)
		if e == nil {
			continue
		}
		if c != nil {
			c.forget(id)
		}
		ecs.Remove[components.AttackTarget](e)
		if mv := ecs.Get[components.Movement](e); mv != nil {
			mv.Stop()
			if t := ecs.Get[components.Transform](e); t != nil {
				mv.GoalX, mv.GoalZ = t.Position.X, t.Position.Z
			}
		}
	}
}

func near(a, b components.Waypoint) bool {
	dx, dz := a.X-b.X, a.Z-b.Z
	return dx*dx+dz*dz <= sameTargetThresholdSq
}

func manhattan(a, b navigation.Point) int {
	dx, dz := a.X-b.X, a.Y-b.Y
	if dx < 0 {
		dx = -dx
	}
	if dz < 0 {
		dz = -dz
	}
	return dx + dz
}
