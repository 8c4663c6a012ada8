// Package cleanup destroys entities other systems marked for removal. It runs
// last so every system sees a removed entity for the rest of its frame.
package cleanup

import (
	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/systems"
)

type System struct {
	systems.Base
}

func New(logger log.Log) *System {
	return &System{Base: systems.NewBase(systems.NameCleanup, logger)}
}

func (s *System) Update(w *ecs.World, _ float64) {
	doomed := ecs.With[components.PendingRemoval](w).Collect()
	for _, e := range doomed {
		w.DestroyEntity(e.ID())
	}
	if len(doomed) > 0 {
		s.Logger().Debug("entities removed", log.Int("count", len(doomed)))
	}
}
