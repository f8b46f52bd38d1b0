package collision

import (
	"github.com/ByteArena/rigid2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// CollideCircles computes the manifold between two circles.
func CollideCircles(m *Manifold, a *CircleShape, xfA geom.Transform, b *CircleShape, xfB geom.Transform) {
	m.PointCount = 0

	pA := xfA.Apply(a.Pos)
	pB := xfB.Apply(b.Pos)
	radius := a.R + b.R
	if geom.DistSq(pA, pB) > radius*radius {
		return
	}

	m.Type = ManifoldCircles
	m.LocalPoint = a.Pos
	m.LocalNormal = mgl64.Vec2{}
	m.PointCount = 1
	m.Points[0].LocalPoint = b.Pos
	m.Points[0].ID = ContactID{}
}

// CollidePolygonAndCircle computes the manifold between a polygon and a
// circle.
func CollidePolygonAndCircle(m *Manifold, polyA *PolygonShape, xfA geom.Transform, circleB *CircleShape, xfB geom.Transform) {
	m.PointCount = 0

	// circle center in the polygon's frame
	cLocal := xfA.ApplyT(xfB.Apply(circleB.Pos))

	normalIndex := 0
	separation := -geom.MaxFloat
	radius := PolygonRadius + circleB.R
	for i := 0; i < polyA.Count; i++ {
		s := polyA.Normals[i].Dot(cLocal.Sub(polyA.Vertices[i]))
		if s > radius {
			return
		}
		if s > separation {
			separation = s
			normalIndex = i
		}
	}

	// vertices of the incident face
	i1 := normalIndex
	i2 := i1 + 1
	if i2 == polyA.Count {
		i2 = 0
	}
	v1 := polyA.Vertices[i1]
	v2 := polyA.Vertices[i2]

	m.Type = ManifoldFaceA
	m.Points[0].LocalPoint = circleB.Pos
	m.Points[0].ID = ContactID{}

	// center inside the polygon
	if separation < geom.Epsilon {
		m.PointCount = 1
		m.LocalNormal = polyA.Normals[normalIndex]
		m.LocalPoint = v1.Add(v2).Mul(0.5)
		return
	}

	// barycentric coordinates along the face
	u1 := cLocal.Sub(v1).Dot(v2.Sub(v1))
	u2 := cLocal.Sub(v2).Dot(v1.Sub(v2))
	switch {
	case u1 <= 0:
		if geom.DistSq(cLocal, v1) > radius*radius {
			return
		}
		m.LocalNormal, _ = geom.Normalize(cLocal.Sub(v1))
		m.LocalPoint = v1
	case u2 <= 0:
		if geom.DistSq(cLocal, v2) > radius*radius {
			return
		}
		m.LocalNormal, _ = geom.Normalize(cLocal.Sub(v2))
		m.LocalPoint = v2
	default:
		faceCenter := v1.Add(v2).Mul(0.5)
		if cLocal.Sub(faceCenter).Dot(polyA.Normals[i1]) > radius {
			return
		}
		m.LocalNormal = polyA.Normals[i1]
		m.LocalPoint = faceCenter
	}
	m.PointCount = 1
}
