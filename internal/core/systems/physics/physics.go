// Package physics holds the ground-plane math shared by the movement and
// combat systems. Angles are in degrees; yaw 0 faces +Z.
package physics

import "math"

// Distance2 is the Euclidean distance between (x1, z1) and (x2, z2).
func Distance2(x1, z1, x2, z2 float64) float64 { return math.Hypot(x2-x1, z2-z1) }

// DistanceSq2 is the squared distance between (x1, z1) and (x2, z2).
func DistanceSq2(x1, z1, x2, z2 float64) float64 {
	dx, dz := x2-x1, z2-z1
	return dx*dx + dz*dz
}

// Yaw returns the heading of the direction (dx, dz).
func Yaw(dx, dz float64) float64 {
	return math.Atan2(dx, dz) * 180 / math.Pi
}

// AngleDiff returns the signed shortest rotation from current to target, in
// [-180, 180).
func AngleDiff(current, target float64) float64 {
	d := math.Mod(target-current+540, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}

// TurnTowards rotates current towards target by at most rate*dt and returns
// the new heading along with the remaining difference before the step.
func TurnTowards(current, target, rate, dt float64) (yaw, diff float64) {
	diff = AngleDiff(current, target)
	step := Clamp(diff, -rate*dt, rate*dt)
	return current + step, diff
}

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Length2 is the magnitude of (x, z).
func Length2(x, z float64) float64 { return math.Hypot(x, z) }
