// Package systems names the simulation systems and fixes the order the engine
// registers them in. Each system lives in its own subpackage.
package systems

import (
	"github.com/zeusync/ironcore/internal/core/observability/log"
)

// System names as reported by ecs.System.Name.
const (
	NameAI         = "ai"
	NameProduction = "production"
	NameHome       = "home"
	NameMovement   = "movement"
	NamePatrol     = "patrol"
	NameGuard      = "guard"
	NameCombat     = "combat"
	NameCatapult   = "catapult"
	NameBallista   = "ballista"
	NameTower      = "tower"
	NameElephant   = "elephant"
	NameHealing    = "healing"
	NameProjectile = "projectile"
	NameCapture    = "capture"
	NameAmbient    = "ambient"
	NameCleanup    = "cleanup"
)

// Order is the canonical update order. Competing writes to the same
// component resolve in favour of the later system.
var Order = []string{
	NameAI,
	NameProduction,
	NameHome,
	NameMovement,
	NamePatrol,
	NameGuard,
	NameCombat,
	NameCatapult,
	NameBallista,
	NameTower,
	NameElephant,
	NameHealing,
	NameProjectile,
	NameCapture,
	NameAmbient,
	NameCleanup,
}

// Base carries what every system needs: its name and a logger tagged with it.
type Base struct {
	name   string
	logger log.Log
}

func NewBase(name string, logger log.Log) Base {
	return Base{name: name, logger: log.OrNop(logger).With(log.String("system", name))}
}

func (b Base) Name() string { return b.name }

// Logger returns the system's tagged logger.
func (b Base) Logger() log.Log { return b.logger }

// Rank returns name's position in Order, or -1 for unknown systems.
func Rank(name string) int {
	for i, n := range Order {
		if n == name {
			return i
		}
	}
	return -1
}
