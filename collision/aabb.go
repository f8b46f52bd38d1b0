package collision

import (
	"math"

	"github.com/ByteArena/rigid2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Lower mgl64.Vec2
	Upper mgl64.Vec2
}

func (bb AABB) Center() mgl64.Vec2 {
	return bb.Lower.Add(bb.Upper).Mul(0.5)
}

// Extents returns the half-widths.
func (bb AABB) Extents() mgl64.Vec2 {
	return bb.Upper.Sub(bb.Lower).Mul(0.5)
}

func (bb AABB) Perimeter() float64 {
	return 2 * ((bb.Upper[0] - bb.Lower[0]) + (bb.Upper[1] - bb.Lower[1]))
}

// Combine returns the box enclosing bb and other.
func (bb AABB) Combine(other AABB) AABB {
	return AABB{
		Lower: geom.Min(bb.Lower, other.Lower),
		Upper: geom.Max(bb.Upper, other.Upper),
	}
}

// Contains reports whether other lies fully inside bb.
func (bb AABB) Contains(other AABB) bool {
	return bb.Lower[0] <= other.Lower[0] &&
		bb.Lower[1] <= other.Lower[1] &&
		other.Upper[0] <= bb.Upper[0] &&
		other.Upper[1] <= bb.Upper[1]
}

func (bb AABB) IsValid() bool {
	d := bb.Upper.Sub(bb.Lower)
	return d[0] >= 0 && d[1] >= 0 && geom.IsValidVec(bb.Lower) && geom.IsValidVec(bb.Upper)
}

// Overlaps reports whether the two boxes intersect. Touching boxes overlap.
func (bb AABB) Overlaps(other AABB) bool {
	d1 := other.Lower.Sub(bb.Upper)
	d2 := bb.Lower.Sub(other.Upper)
	if d1[0] > 0 || d1[1] > 0 {
		return false
	}
	if d2[0] > 0 || d2[1] > 0 {
		return false
	}
	return true
}

// RayCast intersects the ray with the box (slab test). Rays starting inside
// the box do not report a hit.
func (bb AABB) RayCast(input RayCastInput) (RayCastOutput, bool) {
	tmin := -geom.MaxFloat
	tmax := geom.MaxFloat

	p := input.P1
	d := input.P2.Sub(input.P1)
	absD := geom.Abs(d)

	var normal mgl64.Vec2
	for i := 0; i < 2; i++ {
		if absD[i] < geom.Epsilon {
			// parallel
			if p[i] < bb.Lower[i] || bb.Upper[i] < p[i] {
				return RayCastOutput{}, false
			}
			continue
		}

		invD := 1 / d[i]
		t1 := (bb.Lower[i] - p[i]) * invD
		t2 := (bb.Upper[i] - p[i]) * invD

		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1.0
		}

		if t1 > tmin {
			normal = mgl64.Vec2{}
			normal[i] = s
			tmin = t1
		}
		tmax = math.Min(tmax, t2)

		if tmin > tmax {
			return RayCastOutput{}, false
		}
	}

	if tmin < 0 || input.MaxFraction < tmin {
		return RayCastOutput{}, false
	}
	return RayCastOutput{Normal: normal, Fraction: tmin}, true
}
