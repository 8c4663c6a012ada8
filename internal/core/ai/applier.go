package ai

import (
	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/systems/production"
)

// Applier turns evaluated commands into world mutations for one faction.
// Units and buildings the faction does not own are filtered out.
type Applier struct {
	commands   *gameplay.Commands
	production *production.Service
	logger     log.Log
}

func NewApplier(commands *gameplay.Commands, prod *production.Service, logger log.Log) *Applier {
	return &Applier{commands: commands, production: prod, logger: log.OrNop(logger)}
}

// Apply executes cmds on behalf of owner.
func (a *Applier) Apply(w *ecs.World, owner int, cmds []Command) {
	for _, cmd := range cmds {
		switch cmd.Type {
		case CommandMoveUnits:
			a.move(w, owner, cmd)
		case CommandAttackTarget:
			if cmd.TargetID == ecs.NoEntity {
				continue
			}
			if ids := owned(w, owner, cmd.Units); len(ids) > 0 {
				a.commands.AttackTarget(w, ids, cmd.TargetID, cmd.ShouldChase)
			}
		case CommandStartProduction:
			a.startProduction(w, owner, cmd)
		}
	}
}

func (a *Applier) move(w *ecs.World, owner int, cmd Command) {
	if len(cmd.Units) == 0 || len(cmd.Targets) == 0 {
		return
	}
	ids := make([]ecs.EntityID, 0, len(cmd.Units))
	targets := make([]components.Waypoint, 0, len(cmd.Units))
	for i, id := range cmd.Units {
		if !ownedBy(w.Entity(id), owner) {
			continue
		}
		// short target lists repeat their last entry
		t := cmd.Targets[min(i, len(cmd.Targets)-1)]
		ids = append(ids, id)
		targets = append(targets, components.Waypoint{X: t.X, Z: t.Z})
	}
	if len(ids) == 0 {
		return
	}
	a.commands.MoveUnits(w, ids, targets, gameplay.MoveOptions{
		AllowDirectFallback: true,
		GroupMove:           len(ids) > 1,
	})
}

func (a *Applier) startProduction(w *ecs.World, owner int, cmd Command) {
	if a.production == nil {
		return
	}
	res := a.production.StartProductionForFirstSelected(w, []ecs.EntityID{cmd.BuildingID}, owner, cmd.ProductType)
	if res != production.Success {
		a.logger.Debug("ai production refused",
			log.Int("owner", owner),
			log.Uint64("barracks", uint64(cmd.BuildingID)),
			log.String("result", res.String()))
	}
}

func owned(w *ecs.World, owner int, ids []ecs.EntityID) []ecs.EntityID {
	out := make([]ecs.EntityID, 0, len(ids))
	for _, id := range ids {
		if ownedBy(w.Entity(id), owner) {
			out = append(out, id)
		}
	}
	return out
}

func ownedBy(e *ecs.Entity, owner int) bool {
	u := ecs.Get[components.Unit](e)
	return u != nil && u.OwnerID == owner
}
