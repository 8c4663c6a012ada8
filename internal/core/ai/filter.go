package ai

import (
	"github.com/zeusync/ironcore/internal/core/ecs"
)

const (
	// DefaultFilterCooldown is how long an issued order suppresses the same
	// order for the same unit.
	DefaultFilterCooldown = 2.0
	similarMoveDistance   = 3.0
)

type issued struct {
	unit     ecs.EntityID
	kind     CommandType
	target   ecs.EntityID
	x, z     float64
	issuedAt float64
}

func (h issued) similar(kind CommandType, unit, target ecs.EntityID, x, z, now, cooldown float64) bool {
	if h.unit != unit || h.kind != kind || now-h.issuedAt > cooldown {
		return false
	}
	switch kind {
	case CommandAttackTarget:
		return h.target == target
	case CommandMoveUnits:
		return distSq(h.x, h.z, x, z) < similarMoveDistance*similarMoveDistance
	}
	return true
}

// CommandFilter drops orders that repeat a recent order for the same unit, so
// evaluations that reach the same conclusion do not keep resetting paths.
// Production commands always pass.
type CommandFilter struct {
	cooldown float64
	history  []issued
}

func NewCommandFilter(cooldown float64) *CommandFilter {
	if cooldown <= 0 {
		cooldown = DefaultFilterCooldown
	}
	return &CommandFilter{cooldown: cooldown}
}

// Filter returns the commands worth applying at time now and records them.
// A unit command in which any unit repeats a recent order is dropped whole.
func (f *CommandFilter) Filter(cmds []Command, now float64) []Command {
	f.expire(now)

	out := make([]Command, 0, len(cmds))
	for _, cmd := range cmds {
		if cmd.Type == CommandStartProduction {
			out = append(out, cmd)
			continue
		}
		if len(cmd.Units) == 0 || f.repeats(cmd, now) {
			continue
		}
		out = append(out, cmd)
		f.record(cmd, now)
	}
	return out
}

func (f *CommandFilter) repeats(cmd Command, now float64) bool {
	for i, unit := range cmd.Units {
		var x, z float64
		if cmd.Type == CommandMoveUnits && i < len(cmd.Targets) {
			x, z = cmd.Targets[i].X, cmd.Targets[i].Z
		}
		for _, h := range f.history {
			if h.similar(cmd.Type, unit, cmd.TargetID, x, z, now, f.cooldown) {
				return true
			}
		}
	}
	return false
}

func (f *CommandFilter) record(cmd Command, now float64) {
	for i, unit := range cmd.Units {
		h := issued{unit: unit, kind: cmd.Type, issuedAt: now}
		switch cmd.Type {
		case CommandAttackTarget:
			h.target = cmd.TargetID
		case CommandMoveUnits:
			if i < len(cmd.Targets) {
				h.x, h.z = cmd.Targets[i].X, cmd.Targets[i].Z
			}
		}
		f.history = append(f.history, h)
	}
}

func (f *CommandFilter) expire(now float64) {
	kept := f.history[:0]
	for _, h := range f.history {
		if now-h.issuedAt <= f.cooldown {
			kept = append(kept, h)
		}
	}
	f.history = kept
}

func (f *CommandFilter) Reset() {
	f.history = nil
}
