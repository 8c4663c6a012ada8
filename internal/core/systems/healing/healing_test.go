package healing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/systems/projectile"
)

type beams struct{ n int }

func (b *beams) SpawnArrow(sp projectile.Spawn) *projectile.Projectile {
	b.n++
	return nil
}

func unit(w *ecs.World, owner int, x, z float64, health int) *ecs.Entity {
	e := w.CreateEntity()
	ecs.Add(e, components.NewTransform(x, 0, z))
	u := components.NewUnit(components.SpawnKnight, owner)
	u.Health = health
	ecs.Add(e, u)
	return e
}

func TestHealing(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	b := &beams{}
	sys := New(b, log.NewNop())

	healer := unit(w, 1, 0, 0, 100)
	ecs.Add(healer, components.NewHealer())

	hurt := unit(w, 1, 3, 0, 50)
	nearlyFull := unit(w, 1, 0, 3, 98)
	enemy := unit(w, 2, 1, 0, 50)
	distant := unit(w, 1, 20, 0, 50)
	dead := unit(w, 1, 1, 1, 0)

	sys.Update(w, 1)
	assert.Equal(t, 50, ecs.Get[components.Unit](hurt).Health, "cooldown not elapsed")

	sys.Update(w, 1)
	assert.Equal(t, 55, ecs.Get[components.Unit](hurt).Health)
	assert.Equal(t, 100, ecs.Get[components.Unit](nearlyFull).Health, "clamped to max")
	assert.Equal(t, 50, ecs.Get[components.Unit](enemy).Health)
	assert.Equal(t, 50, ecs.Get[components.Unit](distant).Health)
	assert.Equal(t, 0, ecs.Get[components.Unit](dead).Health)
	assert.Equal(t, 2, b.n)
	assert.Zero(t, ecs.Get[components.Healer](healer).TimeSinceLastHeal)

	sys.Update(w, 1)
	assert.Equal(t, 55, ecs.Get[components.Unit](hurt).Health)
}

func TestHealingKeepsCooldownReadyWhenNobodyHurt(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	sys := New(nil, log.NewNop())

	healer := unit(w, 1, 0, 0, 100)
	ecs.Add(healer, components.NewHealer())
	friend := unit(w, 1, 1, 0, 100)

	sys.Update(w, 3)
	h := ecs.Get[components.Healer](healer)
	assert.Equal(t, 3.0, h.TimeSinceLastHeal)

	ecs.Get[components.Unit](friend).Health = 90
	sys.Update(w, 0.1)
	assert.Equal(t, 95, ecs.Get[components.Unit](friend).Health)
	assert.Zero(t, h.TimeSinceLastHeal)
}
