package rigid2d

import (
	"math"

	"github.com/ByteArena/rigid2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Sweep describes the motion of a body's center of mass over one step, for
// TOI computation. C0 and A0 are the pose at Alpha0; C and A at the end of
// the step.
type Sweep struct {
	LocalCenter mgl64.Vec2
	C0, C       mgl64.Vec2
	A0, A       float64

	// Alpha0 is the fraction of the current step already consumed, in
	// [0, 1].
	Alpha0 float64
}

// TransformAt interpolates the body origin transform at beta, where 0
// means the start of the step and 1 its end.
func (s *Sweep) TransformAt(beta float64) geom.Transform {
	c := s.C0.Mul(1 - beta).Add(s.C.Mul(beta))
	q := geom.NewRot((1-beta)*s.A0 + beta*s.A)
	return geom.Transform{P: c.Sub(q.Apply(s.LocalCenter)), Q: q}
}

// Advance moves the start of the sweep forward to alpha, leaving the end
// untouched.
func (s *Sweep) Advance(alpha float64) {
	beta := (alpha - s.Alpha0) / (1 - s.Alpha0)
	s.C0 = s.C0.Add(s.C.Sub(s.C0).Mul(beta))
	s.A0 += beta * (s.A - s.A0)
	s.Alpha0 = alpha
}

// Normalize wraps A0 into [0, 2π) and shifts A by the same amount.
func (s *Sweep) Normalize() {
	const twoPi = 2 * math.Pi
	d := twoPi * math.Floor(s.A0/twoPi)
	s.A0 -= d
	s.A -= d
}
