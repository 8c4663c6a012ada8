package combat

import (
	"math"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/systems"
	"github.com/zeusync/ironcore/internal/core/systems/projectile"
)

const (
	siegeMoveThreshold = 0.01

	stoneSpeed       = 8.0
	stoneScale       = 1.5
	stoneLaunchLift  = 1.5
	boltSpeed        = 10.0
	boltLaunchLift   = 1.0
	defaultStoneTint = 0.45
)

// SiegeConfig tunes one siege engine type.
type SiegeConfig struct {
	LoadDuration   float64
	FiringDuration float64
}

// SiegeSystem runs the Idle, Loading, ReadyToFire, Firing cycle for one siege
// spawn type. Shots fly at the position locked when loading began.
type SiegeSystem struct {
	systems.Base

	spawn   components.SpawnType
	cfg     SiegeConfig
	spawner Spawner
}

// NewCatapult fires stones. A non-positive load duration uses the default.
func NewCatapult(cfg SiegeConfig, spawner Spawner, logger log.Log) *SiegeSystem {
	if cfg.LoadDuration <= 0 {
		cfg.LoadDuration = components.DefaultCatapultLoad
	}
	return newSiege(systems.NameCatapult, components.SpawnCatapult, cfg, spawner, logger)
}

// NewBallista fires bolts.
func NewBallista(cfg SiegeConfig, spawner Spawner, logger log.Log) *SiegeSystem {
	if cfg.LoadDuration <= 0 {
		cfg.LoadDuration = components.DefaultBallistaLoad
	}
	return newSiege(systems.NameBallista, components.SpawnBallista, cfg, spawner, logger)
}

func newSiege(name string, spawn components.SpawnType, cfg SiegeConfig, spawner Spawner, logger log.Log) *SiegeSystem {
	if cfg.FiringDuration <= 0 {
		cfg.FiringDuration = components.DefaultSiegeFiring
	}
	return &SiegeSystem{
		Base:    systems.NewBase(name, logger),
		spawn:   spawn,
		cfg:     cfg,
		spawner: spawner,
	}
}

func (s *SiegeSystem) Update(w *ecs.World, dt float64) {
	for e := range ecs.With[components.Unit](w).Seq() {
		if ecs.Get[components.Unit](e).SpawnType != s.spawn || !gameplay.Alive(e) {
			continue
		}
		s.step(w, e, dt)
	}
}

func (s *SiegeSystem) step(w *ecs.World, e *ecs.Entity, dt float64) {
	loading := ecs.GetOrAdd(e, components.NewCatapultLoading(s.cfg.LoadDuration, s.cfg.FiringDuration))

	if mv := ecs.Get[components.Movement](e); mv != nil && loading.State != components.LoadingIdle {
		if math.Abs(mv.VX) > siegeMoveThreshold || math.Abs(mv.VZ) > siegeMoveThreshold {
			loading.Reset()
		}
	}

	switch loading.State {
	case components.LoadingIdle:
		s.tryStartLoading(w, e, loading)
	case components.LoadingLoading:
		loading.LoadingTime += dt
		if loading.LoadingTime >= loading.LoadingDuration {
			loading.State = components.LoadingReadyToFire
		}
	case components.LoadingReadyToFire:
		s.fire(e, loading)
	case components.LoadingFiring:
		loading.FiringTime += dt
		if loading.FiringTime >= loading.FiringDuration {
			loading.Reset()
			if atk := ecs.Get[components.Attack](e); atk != nil {
				atk.TimeSinceLast = 0
			}
		}
	}
}

func (s *SiegeSystem) tryStartLoading(w *ecs.World, e *ecs.Entity, loading *components.CatapultLoading) {
	at := ecs.Get[components.AttackTarget](e)
	if at == nil || at.TargetID == ecs.NoEntity {
		return
	}
	target := w.Entity(at.TargetID)
	if !gameplay.Alive(target) {
		return
	}
	t := ecs.Get[components.Transform](e)
	tt := ecs.Get[components.Transform](target)
	atk := ecs.Get[components.Attack](e)
	if t == nil || tt == nil || atk == nil {
		return
	}
	if gameplay.PlanarDistSq(t, tt) > atk.Range*atk.Range {
		return
	}

	loading.State = components.LoadingLoading
	loading.LoadingTime = 0
	loading.TargetID = target.ID()
	loading.LockedX, loading.LockedY, loading.LockedZ = tt.Position.X, tt.Position.Y, tt.Position.Z
	loading.TargetLocked = true
	gameplay.FaceTarget(t, tt)
}

func (s *SiegeSystem) fire(e *ecs.Entity, loading *components.CatapultLoading) {
	t := ecs.Get[components.Transform](e)
	atk := ecs.Get[components.Attack](e)
	if s.spawner == nil || t == nil || atk == nil {
		loading.Reset()
		return
	}

	locked := components.Vec3{X: loading.LockedX, Y: loading.LockedY, Z: loading.LockedZ}
	sp := projectile.Spawn{
		Start:      t.Position,
		End:        locked,
		Impact:     locked,
		Damage:     atk.Damage,
		AttackerID: e.ID(),
		TargetID:   loading.TargetID,
		Color:      [3]float64{defaultStoneTint, defaultStoneTint, defaultStoneTint},
	}
	if r := ecs.Get[components.Renderable](e); r != nil {
		sp.Color = r.Color
	}

	if s.spawn == components.SpawnCatapult {
		sp.Start.Y += stoneLaunchLift
		sp.Speed = stoneSpeed
		sp.Scale = stoneScale
		s.spawner.SpawnStone(sp)
	} else {
		sp.Start.Y += boltLaunchLift
		sp.Speed = boltSpeed
		s.spawner.SpawnBolt(sp)
	}
	s.Logger().Debug("siege fired",
		log.Uint64("entity", uint64(e.ID())),
		log.Uint64("target", uint64(loading.TargetID)))

	loading.State = components.LoadingFiring
	loading.FiringTime = 0
}
