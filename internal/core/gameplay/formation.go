package gameplay

import (
	"math"
	"math/rand/v2"

	"github.com/zeusync/ironcore/internal/core/components"
)

type FormationType uint8

const (
	FormationRoman FormationType = iota
	FormationBarbarian
)

// Formation lays out count slots around a center point.
type Formation interface {
	Positions(count int, centerX, centerZ, baseSpacing float64) []components.Waypoint
}

// FormationPositions dispatches to the built-in layout for kind. Unknown
// kinds fall back to the Roman block.
func FormationPositions(kind FormationType, count int, centerX, centerZ, baseSpacing float64) []components.Waypoint {
	switch kind {
	case FormationBarbarian:
		return BarbarianFormation{}.Positions(count, centerX, centerZ, baseSpacing)
	default:
		return RomanFormation{}.Positions(count, centerX, centerZ, baseSpacing)
	}
}

func crowdSpacing(count int, spacing float64) float64 {
	switch {
	case count > 100:
		return spacing * 2
	case count > 50:
		return spacing * 1.5
	default:
		return spacing
	}
}

// RomanFormation is a tight rectangular block, wider than deep.
type RomanFormation struct{}

func (RomanFormation) Positions(count int, centerX, centerZ, baseSpacing float64) []components.Waypoint {
	if count <= 0 {
		return nil
	}
	spacing := crowdSpacing(count, baseSpacing*1.2)
	rows := max(1, int(math.Sqrt(float64(count)*0.7)))
	cols := (count + rows - 1) / rows

	out := make([]components.Waypoint, 0, count)
	for i := range count {
		row, col := i/cols, i%cols
		out = append(out, components.Waypoint{
			X: centerX + (float64(col)-float64(cols-1)*0.5)*spacing,
			Z: centerZ + (float64(row)-float64(rows-1)*0.5)*spacing*0.9,
		})
	}
	return out
}

// BarbarianFormation is a loose square with a fixed-seed jitter so the same
// group always lands in the same spots.
type BarbarianFormation struct{}

func (BarbarianFormation) Positions(count int, centerX, centerZ, baseSpacing float64) []components.Waypoint {
	if count <= 0 {
		return nil
	}
	spacing := crowdSpacing(count, baseSpacing*1.8)
	side := int(math.Ceil(math.Sqrt(float64(count))))
	rng := rand.New(rand.NewPCG(42, 42))
	jitter := func() float64 { return (rng.Float64()*0.6 - 0.3) * spacing }

	out := make([]components.Waypoint, 0, count)
	for i := range count {
		gx, gy := i%side, i/side
		out = append(out, components.Waypoint{
			X: centerX + (float64(gx)-float64(side-1)*0.5)*spacing + jitter(),
			Z: centerZ + (float64(gy)-float64(side-1)*0.5)*spacing + jitter(),
		})
	}
	return out
}
