// Package collision provides the geometry the dynamics core builds on:
// shapes, bounding boxes, contact manifolds, GJK distance, time of impact and
// the dynamic AABB tree used as broad-phase.
package collision

import (
	"errors"
	"math"

	"github.com/ByteArena/rigid2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// MaxManifoldPoints is the maximum number of contact points between two
	// convex shapes.
	MaxManifoldPoints = 2

	// MaxPolygonVertices is the maximum number of vertices on a convex polygon.
	MaxPolygonVertices = 8

	// LinearSlop is the collision and constraint tolerance, in meters.
	LinearSlop = 0.005

	// AngularSlop is the angular collision tolerance, in radians.
	AngularSlop = 2.0 / 180.0 * math.Pi

	// PolygonRadius is the skin radius of polygons and edges. Keeping shapes
	// slightly apart lets the solver work with a stable manifold.
	PolygonRadius = 2.0 * LinearSlop

	// AABBExtension fattens tree proxies so small movements do not trigger
	// a tree update.
	AABBExtension = 0.1

	// AABBMultiplier scales the displacement used to predict a proxy's
	// future position.
	AABBMultiplier = 2.0
)

var (
	ErrDegeneratePolygon = errors.New("collision: degenerate polygon")
	ErrTooManyVertices   = errors.New("collision: too many polygon vertices")
	ErrChainTooShort     = errors.New("collision: chain needs at least two vertices")
)

// ShapeType identifies the concrete shape behind a Shape.
type ShapeType uint8

const (
	ShapeCircle ShapeType = iota
	ShapeEdge
	ShapePolygon
	ShapeChain
	shapeTypeCount
)

func (t ShapeType) String() string {
	switch t {
	case ShapeCircle:
		return "circle"
	case ShapeEdge:
		return "edge"
	case ShapePolygon:
		return "polygon"
	case ShapeChain:
		return "chain"
	}
	return "unknown"
}

// ShapeTypeCount is the number of shape types, used to size dispatch tables.
const ShapeTypeCount = int(shapeTypeCount)

// MassData holds the mass properties computed for a shape.
type MassData struct {
	// Mass of the shape, usually in kilograms.
	Mass float64

	// Center is the centroid relative to the shape's origin.
	Center mgl64.Vec2

	// I is the rotational inertia about the shape's origin.
	I float64
}

// RayCastInput describes a ray from P1 to P1 + MaxFraction*(P2-P1).
type RayCastInput struct {
	P1, P2      mgl64.Vec2
	MaxFraction float64
}

// RayCastOutput reports a hit at P1 + Fraction*(P2-P1).
type RayCastOutput struct {
	Normal   mgl64.Vec2
	Fraction float64
}

// A Shape is the collision geometry of a fixture. Shapes may hold several
// child primitives, in which case each child gets its own broad-phase proxy.
type Shape interface {
	Type() ShapeType

	// Radius is the skin radius. Polygons and edges use PolygonRadius.
	Radius() float64

	// ChildCount is the number of child primitives.
	ChildCount() int

	// TestPoint reports whether world point p lies inside the shape placed
	// at xf. Only meaningful for convex shapes.
	TestPoint(xf geom.Transform, p mgl64.Vec2) bool

	// RayCast casts a ray against one child.
	RayCast(input RayCastInput, xf geom.Transform, childIndex int) (RayCastOutput, bool)

	// ComputeAABB returns the bounds of one child placed at xf.
	ComputeAABB(xf geom.Transform, childIndex int) AABB

	// ComputeMass computes mass properties for the given area density. The
	// inertia is about the shape's origin.
	ComputeMass(density float64) MassData

	// Clone returns a deep copy, so a definition can be reused.
	Clone() Shape
}
