package collision

import (
	"math"

	"github.com/ByteArena/rigid2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// CircleShape is a solid circle with a local center.
type CircleShape struct {
	Pos mgl64.Vec2
	R   float64
}

// NewCircle returns a circle of radius r centered on the local point pos.
func NewCircle(pos mgl64.Vec2, r float64) *CircleShape {
	return &CircleShape{Pos: pos, R: r}
}

func (c *CircleShape) Type() ShapeType { return ShapeCircle }
func (c *CircleShape) Radius() float64 { return c.R }
func (c *CircleShape) ChildCount() int { return 1 }

func (c *CircleShape) Clone() Shape {
	clone := *c
	return &clone
}

func (c *CircleShape) TestPoint(xf geom.Transform, p mgl64.Vec2) bool {
	center := xf.Apply(c.Pos)
	return geom.DistSq(p, center) <= c.R*c.R
}

// RayCast solves |s + t·r| = radius for the smallest t, following van den
// Bergen, "Collision Detection in Interactive 3D Environments", 3.1.2.
func (c *CircleShape) RayCast(input RayCastInput, xf geom.Transform, _ int) (RayCastOutput, bool) {
	position := xf.Apply(c.Pos)
	s := input.P1.Sub(position)
	b := s.Dot(s) - c.R*c.R

	r := input.P2.Sub(input.P1)
	cr := s.Dot(r)
	rr := r.Dot(r)
	sigma := cr*cr - rr*b

	if sigma < 0 || rr < geom.Epsilon {
		return RayCastOutput{}, false
	}

	a := -(cr + math.Sqrt(sigma))
	if 0 <= a && a <= input.MaxFraction*rr {
		a /= rr
		n, _ := geom.Normalize(s.Add(r.Mul(a)))
		return RayCastOutput{Normal: n, Fraction: a}, true
	}
	return RayCastOutput{}, false
}

func (c *CircleShape) ComputeAABB(xf geom.Transform, _ int) AABB {
	p := xf.Apply(c.Pos)
	return AABB{
		Lower: mgl64.Vec2{p[0] - c.R, p[1] - c.R},
		Upper: mgl64.Vec2{p[0] + c.R, p[1] + c.R},
	}
}

func (c *CircleShape) ComputeMass(density float64) MassData {
	mass := density * math.Pi * c.R * c.R
	return MassData{
		Mass:   mass,
		Center: c.Pos,
		// about the local origin
		I: mass * (0.5*c.R*c.R + c.Pos.Dot(c.Pos)),
	}
}
