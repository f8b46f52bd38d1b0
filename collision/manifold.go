package collision

import (
	"github.com/ByteArena/rigid2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// FeatureType says whether a contact feature is a vertex or a face.
type FeatureType uint8

const (
	FeatureVertex FeatureType = iota
	FeatureFace
)

// ContactID identifies the pair of features that produced a manifold point.
// It is what lets impulses be matched up from one step to the next.
type ContactID struct {
	IndexA uint8
	IndexB uint8
	TypeA  FeatureType
	TypeB  FeatureType
}

// Key packs the id into a single comparable value.
func (id ContactID) Key() uint32 {
	return uint32(id.IndexA) |
		uint32(id.IndexB)<<8 |
		uint32(id.TypeA)<<16 |
		uint32(id.TypeB)<<24
}

// Swap exchanges the A and B features.
func (id ContactID) Swap() ContactID {
	return ContactID{IndexA: id.IndexB, IndexB: id.IndexA, TypeA: id.TypeB, TypeB: id.TypeA}
}

// ManifoldPoint is one contact point. LocalPoint depends on the manifold
// type:
//   - ManifoldCircles: the local center of circle B
//   - ManifoldFaceA: the local center of circle B or the clip point of polygon B
//   - ManifoldFaceB: the clip point of polygon A
//
// The impulses are cached for warm starting and are not reliable contact
// forces, especially for fast collisions.
type ManifoldPoint struct {
	LocalPoint     mgl64.Vec2
	NormalImpulse  float64
	TangentImpulse float64
	ID             ContactID
}

// ManifoldType selects how a Manifold is interpreted.
type ManifoldType uint8

const (
	ManifoldCircles ManifoldType = iota
	ManifoldFaceA
	ManifoldFaceB
)

// Manifold describes the contact between two convex shapes in local
// coordinates, so position correction can account for movement.
//
// LocalPoint is the local center of circle A (circles), or the center of the
// reference face (faceA, faceB). LocalNormal is unused for circles and is
// the reference face normal otherwise.
type Manifold struct {
	Points      [MaxManifoldPoints]ManifoldPoint
	LocalNormal mgl64.Vec2
	LocalPoint  mgl64.Vec2
	Type        ManifoldType
	PointCount  int
}

// WorldManifold is a Manifold evaluated at the current body transforms.
type WorldManifold struct {
	// Normal points from A to B.
	Normal mgl64.Vec2
	// Points are the midpoints between the two surfaces.
	Points [MaxManifoldPoints]mgl64.Vec2
	// Separations are negative when the shapes overlap.
	Separations [MaxManifoldPoints]float64
}

// Initialize evaluates m for the given transforms and skin radii.
func (wm *WorldManifold) Initialize(m *Manifold, xfA geom.Transform, radiusA float64, xfB geom.Transform, radiusB float64) {
	if m.PointCount == 0 {
		return
	}

	switch m.Type {
	case ManifoldCircles:
		wm.Normal = mgl64.Vec2{1, 0}
		pointA := xfA.Apply(m.LocalPoint)
		pointB := xfB.Apply(m.Points[0].LocalPoint)
		if geom.DistSq(pointA, pointB) > geom.Epsilon*geom.Epsilon {
			wm.Normal, _ = geom.Normalize(pointB.Sub(pointA))
		}
		cA := pointA.Add(wm.Normal.Mul(radiusA))
		cB := pointB.Sub(wm.Normal.Mul(radiusB))
		wm.Points[0] = cA.Add(cB).Mul(0.5)
		wm.Separations[0] = cB.Sub(cA).Dot(wm.Normal)

	case ManifoldFaceA:
		wm.Normal = xfA.Q.Apply(m.LocalNormal)
		planePoint := xfA.Apply(m.LocalPoint)
		for i := 0; i < m.PointCount; i++ {
			clipPoint := xfB.Apply(m.Points[i].LocalPoint)
			cA := clipPoint.Add(wm.Normal.Mul(radiusA - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cB := clipPoint.Sub(wm.Normal.Mul(radiusB))
			wm.Points[i] = cA.Add(cB).Mul(0.5)
			wm.Separations[i] = cB.Sub(cA).Dot(wm.Normal)
		}

	case ManifoldFaceB:
		wm.Normal = xfB.Q.Apply(m.LocalNormal)
		planePoint := xfB.Apply(m.LocalPoint)
		for i := 0; i < m.PointCount; i++ {
			clipPoint := xfA.Apply(m.Points[i].LocalPoint)
			cB := clipPoint.Add(wm.Normal.Mul(radiusB - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cA := clipPoint.Sub(wm.Normal.Mul(radiusA))
			wm.Points[i] = cA.Add(cB).Mul(0.5)
			wm.Separations[i] = cA.Sub(cB).Dot(wm.Normal)
		}
		// normal from A to B
		wm.Normal = wm.Normal.Mul(-1)
	}
}

// PointState describes how a manifold point changed across an update.
type PointState uint8

const (
	PointNull PointState = iota
	PointAdd
	PointPersist
	PointRemove
)

// GetPointStates compares two manifolds by contact id. state1 describes the
// points of m1 (persist or remove) and state2 those of m2 (add or persist).
func GetPointStates(m1, m2 *Manifold) (state1, state2 [MaxManifoldPoints]PointState) {
	for i := 0; i < m1.PointCount; i++ {
		key := m1.Points[i].ID.Key()
		state1[i] = PointRemove
		for j := 0; j < m2.PointCount; j++ {
			if m2.Points[j].ID.Key() == key {
				state1[i] = PointPersist
				break
			}
		}
	}
	for i := 0; i < m2.PointCount; i++ {
		key := m2.Points[i].ID.Key()
		state2[i] = PointAdd
		for j := 0; j < m1.PointCount; j++ {
			if m1.Points[j].ID.Key() == key {
				state2[i] = PointPersist
				break
			}
		}
	}
	return state1, state2
}

type clipVertex struct {
	v  mgl64.Vec2
	id ContactID
}

// clipSegmentToLine is Sutherland-Hodgman clipping of a segment against the
// half-plane dot(normal, v) <= offset.
func clipSegmentToLine(out *[2]clipVertex, in [2]clipVertex, normal mgl64.Vec2, offset float64, vertexIndexA int) int {
	n := 0

	distance0 := normal.Dot(in[0].v) - offset
	distance1 := normal.Dot(in[1].v) - offset

	if distance0 <= 0 {
		out[n] = in[0]
		n++
	}
	if distance1 <= 0 {
		out[n] = in[1]
		n++
	}

	if distance0*distance1 < 0 {
		interp := distance0 / (distance0 - distance1)
		out[n] = clipVertex{
			v: in[0].v.Add(in[1].v.Sub(in[0].v).Mul(interp)),
			// vertex A is hitting edge B
			id: ContactID{
				IndexA: uint8(vertexIndexA),
				IndexB: in[0].id.IndexB,
				TypeA:  FeatureVertex,
				TypeB:  FeatureFace,
			},
		}
		n++
	}
	return n
}

// TestOverlap reports whether two shape children overlap, using GJK.
func TestOverlap(shapeA Shape, indexA int, shapeB Shape, indexB int, xfA, xfB geom.Transform) bool {
	input := DistanceInput{
		ProxyA:     MakeProxy(shapeA, indexA),
		ProxyB:     MakeProxy(shapeB, indexB),
		TransformA: xfA,
		TransformB: xfB,
		UseRadii:   true,
	}
	var cache SimplexCache
	output := Distance(&cache, &input)
	return output.Distance < 10*geom.Epsilon
}
