// Package geom holds the small amount of 2D math the simulator needs on top
// of mgl64: rotations stored as sine/cosine pairs, rigid transforms and the
// scalar cross products used by the solvers.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the machine epsilon for float64.
const Epsilon = 2.220446049250313e-16

// MaxFloat is used as an "infinite" distance or fraction.
const MaxFloat = math.MaxFloat64

// IsValid reports whether x is neither NaN nor infinite.
func IsValid(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// IsValidVec reports whether both coordinates of v are finite.
func IsValidVec(v mgl64.Vec2) bool {
	return IsValid(v[0]) && IsValid(v[1])
}

// Cross returns the 2D cross product of a and b, which is a scalar.
func Cross(a, b mgl64.Vec2) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

// CrossVS returns the cross product of a vector and a scalar.
func CrossVS(a mgl64.Vec2, s float64) mgl64.Vec2 {
	return mgl64.Vec2{s * a[1], -s * a[0]}
}

// CrossSV returns the cross product of a scalar and a vector.
func CrossSV(s float64, a mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-s * a[1], s * a[0]}
}

// Skew returns the vector such that Dot(Skew(v), w) == Cross(v, w).
func Skew(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-v[1], v[0]}
}

// LenSq returns the squared length of v.
func LenSq(v mgl64.Vec2) float64 {
	return v[0]*v[0] + v[1]*v[1]
}

// DistSq returns the squared distance between a and b.
func DistSq(a, b mgl64.Vec2) float64 {
	return LenSq(a.Sub(b))
}

// Normalize returns v scaled to unit length together with its original
// length. Vectors shorter than Epsilon are returned unchanged with length 0.
func Normalize(v mgl64.Vec2) (mgl64.Vec2, float64) {
	length := v.Len()
	if length < Epsilon {
		return v, 0
	}
	inv := 1 / length
	return mgl64.Vec2{v[0] * inv, v[1] * inv}, length
}

func Abs(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{math.Abs(v[0]), math.Abs(v[1])}
}

func Min(a, b mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{math.Min(a[0], b[0]), math.Min(a[1], b[1])}
}

func Max(a, b mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{math.Max(a[0], b[0]), math.Max(a[1], b[1])}
}

// Clamp limits a to [low, high].
func Clamp(a, low, high float64) float64 {
	return math.Max(low, math.Min(a, high))
}

// Solve22 solves K·x = b. A singular K yields the zero vector.
func Solve22(k mgl64.Mat2, b mgl64.Vec2) mgl64.Vec2 {
	det := k.Det()
	if det == 0 {
		return mgl64.Vec2{}
	}
	inv := 1 / det
	// column-major: k[0]=a11 k[1]=a21 k[2]=a12 k[3]=a22
	return mgl64.Vec2{
		inv * (k[3]*b[0] - k[2]*b[1]),
		inv * (k[0]*b[1] - k[1]*b[0]),
	}
}
