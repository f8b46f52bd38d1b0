package collision

import (
	"github.com/ByteArena/rigid2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// EdgeShape is a line segment. Edges can be linked into chains: the
// optional ghost vertices V0 and V3 give the neighbouring segments so
// collisions along a chain stay smooth.
type EdgeShape struct {
	V1, V2 mgl64.Vec2

	V0, V3       mgl64.Vec2
	HasV0, HasV3 bool
}

// NewEdge returns a free-standing segment from v1 to v2.
func NewEdge(v1, v2 mgl64.Vec2) *EdgeShape {
	return &EdgeShape{V1: v1, V2: v2}
}

func (e *EdgeShape) Type() ShapeType { return ShapeEdge }
func (e *EdgeShape) Radius() float64 { return PolygonRadius }
func (e *EdgeShape) ChildCount() int { return 1 }

func (e *EdgeShape) Clone() Shape {
	clone := *e
	return &clone
}

// TestPoint is always false; edges have no interior.
func (e *EdgeShape) TestPoint(geom.Transform, mgl64.Vec2) bool {
	return false
}

// RayCast intersects p1 + t·d with v1 + s·(v2-v1).
func (e *EdgeShape) RayCast(input RayCastInput, xf geom.Transform, _ int) (RayCastOutput, bool) {
	p1 := xf.ApplyT(input.P1)
	p2 := xf.ApplyT(input.P2)
	d := p2.Sub(p1)

	v1, v2 := e.V1, e.V2
	r := v2.Sub(v1)
	normal, _ := geom.Normalize(mgl64.Vec2{r[1], -r[0]})

	numerator := normal.Dot(v1.Sub(p1))
	denominator := normal.Dot(d)
	if denominator == 0 {
		return RayCastOutput{}, false
	}

	t := numerator / denominator
	if t < 0 || input.MaxFraction < t {
		return RayCastOutput{}, false
	}

	q := p1.Add(d.Mul(t))
	rr := r.Dot(r)
	if rr == 0 {
		return RayCastOutput{}, false
	}
	s := q.Sub(v1).Dot(r) / rr
	if s < 0 || 1 < s {
		return RayCastOutput{}, false
	}

	n := xf.Q.Apply(normal)
	if numerator > 0 {
		n = n.Mul(-1)
	}
	return RayCastOutput{Normal: n, Fraction: t}, true
}

func (e *EdgeShape) ComputeAABB(xf geom.Transform, _ int) AABB {
	v1 := xf.Apply(e.V1)
	v2 := xf.Apply(e.V2)
	r := mgl64.Vec2{PolygonRadius, PolygonRadius}
	return AABB{
		Lower: geom.Min(v1, v2).Sub(r),
		Upper: geom.Max(v1, v2).Add(r),
	}
}

// ComputeMass returns zero mass; edges only make sense on static bodies.
func (e *EdgeShape) ComputeMass(float64) MassData {
	return MassData{Center: e.V1.Add(e.V2).Mul(0.5)}
}
