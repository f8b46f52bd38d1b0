package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Rot is a rotation stored as its sine and cosine.
type Rot struct {
	S, C float64
}

// IdentityRot is the zero-angle rotation.
var IdentityRot = Rot{S: 0, C: 1}

// NewRot returns the rotation for angle radians.
func NewRot(angle float64) Rot {
	return Rot{S: math.Sin(angle), C: math.Cos(angle)}
}

// Angle returns the rotation angle in radians, in (-pi, pi].
func (q Rot) Angle() float64 {
	return math.Atan2(q.S, q.C)
}

func (q Rot) XAxis() mgl64.Vec2 { return mgl64.Vec2{q.C, q.S} }
func (q Rot) YAxis() mgl64.Vec2 { return mgl64.Vec2{-q.S, q.C} }

// Mat2 returns q as a column-major rotation matrix.
func (q Rot) Mat2() mgl64.Mat2 {
	return mgl64.Mat2{q.C, q.S, -q.S, q.C}
}

// Mul composes two rotations: q * r.
func (q Rot) Mul(r Rot) Rot {
	return Rot{
		S: q.S*r.C + q.C*r.S,
		C: q.C*r.C - q.S*r.S,
	}
}

// MulT composes the inverse of q with r: qᵀ * r.
func (q Rot) MulT(r Rot) Rot {
	return Rot{
		S: q.C*r.S - q.S*r.C,
		C: q.C*r.C + q.S*r.S,
	}
}

// Apply rotates v.
func (q Rot) Apply(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{q.C*v[0] - q.S*v[1], q.S*v[0] + q.C*v[1]}
}

// ApplyT rotates v by the inverse of q.
func (q Rot) ApplyT(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{q.C*v[0] + q.S*v[1], -q.S*v[0] + q.C*v[1]}
}

// Transform is a translation plus a rotation. It describes the position and
// orientation of a rigid frame.
type Transform struct {
	P mgl64.Vec2
	Q Rot
}

// IdentityTransform has no translation and no rotation.
var IdentityTransform = Transform{Q: IdentityRot}

// NewTransform builds a transform from a position and an angle in radians.
func NewTransform(p mgl64.Vec2, angle float64) Transform {
	return Transform{P: p, Q: NewRot(angle)}
}

// Apply maps a local point to the parent frame.
func (t Transform) Apply(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{
		(t.Q.C*v[0] - t.Q.S*v[1]) + t.P[0],
		(t.Q.S*v[0] + t.Q.C*v[1]) + t.P[1],
	}
}

// ApplyT maps a parent-frame point into the local frame.
func (t Transform) ApplyT(v mgl64.Vec2) mgl64.Vec2 {
	px := v[0] - t.P[0]
	py := v[1] - t.P[1]
	return mgl64.Vec2{t.Q.C*px + t.Q.S*py, -t.Q.S*px + t.Q.C*py}
}

// Mul composes transforms: a * b.
func (a Transform) Mul(b Transform) Transform {
	return Transform{
		P: a.Q.Apply(b.P).Add(a.P),
		Q: a.Q.Mul(b.Q),
	}
}

// MulT composes the inverse of a with b: a⁻¹ * b.
func (a Transform) MulT(b Transform) Transform {
	return Transform{
		P: a.Q.ApplyT(b.P.Sub(a.P)),
		Q: a.Q.MulT(b.Q),
	}
}
