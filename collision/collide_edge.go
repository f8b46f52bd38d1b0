package collision

import (
	"math"

	"github.com/ByteArena/rigid2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// CollideEdgeAndCircle computes the manifold between an edge and a circle,
// taking the edge's ghost vertices into account so a circle rolling along a
// chain does not catch on interior vertices.
func CollideEdgeAndCircle(m *Manifold, edgeA *EdgeShape, xfA geom.Transform, circleB *CircleShape, xfB geom.Transform) {
	m.PointCount = 0

	// circle in the edge's frame
	q := xfA.ApplyT(xfB.Apply(circleB.Pos))

	a, b := edgeA.V1, edgeA.V2
	e := b.Sub(a)

	// barycentric coordinates
	u := e.Dot(b.Sub(q))
	v := e.Dot(q.Sub(a))

	radius := PolygonRadius + circleB.R
	id := ContactID{IndexB: 0, TypeB: FeatureVertex}

	vertexContact := func(p mgl64.Vec2, index uint8) {
		id.IndexA = index
		id.TypeA = FeatureVertex
		m.PointCount = 1
		m.Type = ManifoldCircles
		m.LocalNormal = mgl64.Vec2{}
		m.LocalPoint = p
		m.Points[0].ID = id
		m.Points[0].LocalPoint = circleB.Pos
	}

	// region A
	if v <= 0 {
		if geom.DistSq(q, a) > radius*radius {
			return
		}
		// the previous edge owns region AB before A
		if edgeA.HasV0 {
			e1 := a.Sub(edgeA.V0)
			if e1.Dot(a.Sub(q)) > 0 {
				return
			}
		}
		vertexContact(a, 0)
		return
	}

	// region B
	if u <= 0 {
		if geom.DistSq(q, b) > radius*radius {
			return
		}
		if edgeA.HasV3 {
			e2 := edgeA.V3.Sub(b)
			if e2.Dot(q.Sub(b)) > 0 {
				return
			}
		}
		vertexContact(b, 1)
		return
	}

	// region AB
	den := e.Dot(e)
	p := a.Mul(u).Add(b.Mul(v)).Mul(1 / den)
	if geom.DistSq(q, p) > radius*radius {
		return
	}

	n := mgl64.Vec2{-e[1], e[0]}
	if n.Dot(q.Sub(a)) < 0 {
		n = n.Mul(-1)
	}
	n, _ = geom.Normalize(n)

	id.IndexA = 0
	id.TypeA = FeatureFace
	m.PointCount = 1
	m.Type = ManifoldFaceA
	m.LocalNormal = n
	m.LocalPoint = a
	m.Points[0].ID = id
	m.Points[0].LocalPoint = circleB.Pos
}

type epAxisType uint8

const (
	epAxisUnknown epAxisType = iota
	epAxisEdgeA
	epAxisEdgeB
)

type epAxis struct {
	kind       epAxisType
	index      int
	separation float64
}

// tempPolygon is polygon B expressed in the edge's frame.
type tempPolygon struct {
	vertices [MaxPolygonVertices]mgl64.Vec2
	normals  [MaxPolygonVertices]mgl64.Vec2
	count    int
}

type referenceFace struct {
	i1, i2      int
	v1, v2      mgl64.Vec2
	normal      mgl64.Vec2
	sideNormal1 mgl64.Vec2
	sideOffset1 float64
	sideNormal2 mgl64.Vec2
	sideOffset2 float64
}

// epCollider collides an edge with a polygon, honouring edge adjacency.
type epCollider struct {
	polygonB tempPolygon

	xf                        geom.Transform
	centroidB                 mgl64.Vec2
	v0, v1, v2, v3            mgl64.Vec2
	normal0, normal1, normal2 mgl64.Vec2
	normal                    mgl64.Vec2
	lowerLimit, upperLimit    mgl64.Vec2
	radius                    float64
	front                     bool
}

// CollideEdgeAndPolygon computes the manifold between an edge and a polygon.
func CollideEdgeAndPolygon(m *Manifold, edgeA *EdgeShape, xfA geom.Transform, polyB *PolygonShape, xfB geom.Transform) {
	var c epCollider
	c.collide(m, edgeA, xfA, polyB, xfB)
}

// classify decides whether the polygon is in front of or behind the edge and
// which range of normals is admissible given the neighbouring edges.
func (c *epCollider) classify(hasV0, hasV3 bool) {
	offset1 := c.normal1.Dot(c.centroidB.Sub(c.v1))
	var offset0, offset2 float64
	var convex1, convex2 bool

	edge1 := c.v2.Sub(c.v1)
	if hasV0 {
		edge0, _ := geom.Normalize(c.v1.Sub(c.v0))
		c.normal0 = mgl64.Vec2{edge0[1], -edge0[0]}
		convex1 = geom.Cross(edge0, edge1) >= 0
		offset0 = c.normal0.Dot(c.centroidB.Sub(c.v0))
	}
	if hasV3 {
		edge2, _ := geom.Normalize(c.v3.Sub(c.v2))
		c.normal2 = mgl64.Vec2{edge2[1], -edge2[0]}
		convex2 = geom.Cross(edge1, edge2) > 0
		offset2 = c.normal2.Dot(c.centroidB.Sub(c.v2))
	}

	n0, n1, n2 := c.normal0, c.normal1, c.normal2
	neg := func(v mgl64.Vec2) mgl64.Vec2 { return v.Mul(-1) }

	// set picks the front or back configuration once front is known.
	set := func(frontLower, frontUpper, backLower, backUpper mgl64.Vec2) {
		if c.front {
			c.normal = n1
			c.lowerLimit, c.upperLimit = frontLower, frontUpper
		} else {
			c.normal = neg(n1)
			c.lowerLimit, c.upperLimit = backLower, backUpper
		}
	}

	switch {
	case hasV0 && hasV3:
		switch {
		case convex1 && convex2:
			c.front = offset0 >= 0 || offset1 >= 0 || offset2 >= 0
			set(n0, n2, neg(n1), neg(n1))
		case convex1:
			c.front = offset0 >= 0 || (offset1 >= 0 && offset2 >= 0)
			set(n0, n1, neg(n2), neg(n1))
		case convex2:
			c.front = offset2 >= 0 || (offset0 >= 0 && offset1 >= 0)
			set(n1, n2, neg(n1), neg(n0))
		default:
			c.front = offset0 >= 0 && offset1 >= 0 && offset2 >= 0
			set(n1, n1, neg(n2), neg(n0))
		}
	case hasV0:
		if convex1 {
			c.front = offset0 >= 0 || offset1 >= 0
			set(n0, neg(n1), n1, neg(n1))
		} else {
			c.front = offset0 >= 0 && offset1 >= 0
			set(n1, neg(n1), n1, neg(n0))
		}
	case hasV3:
		if convex2 {
			c.front = offset1 >= 0 || offset2 >= 0
			set(neg(n1), n2, neg(n1), n1)
		} else {
			c.front = offset1 >= 0 && offset2 >= 0
			set(neg(n1), n1, neg(n2), n1)
		}
	default:
		c.front = offset1 >= 0
		set(neg(n1), neg(n1), n1, n1)
	}
}

func (c *epCollider) collide(m *Manifold, edgeA *EdgeShape, xfA geom.Transform, polyB *PolygonShape, xfB geom.Transform) {
	c.xf = xfA.MulT(xfB)
	c.centroidB = c.xf.Apply(polyB.Centroid)

	c.v0, c.v1, c.v2, c.v3 = edgeA.V0, edgeA.V1, edgeA.V2, edgeA.V3

	edge1, _ := geom.Normalize(c.v2.Sub(c.v1))
	c.normal1 = mgl64.Vec2{edge1[1], -edge1[0]}
	c.classify(edgeA.HasV0, edgeA.HasV3)

	c.polygonB.count = polyB.Count
	for i := 0; i < polyB.Count; i++ {
		c.polygonB.vertices[i] = c.xf.Apply(polyB.Vertices[i])
		c.polygonB.normals[i] = c.xf.Q.Apply(polyB.Normals[i])
	}
	c.radius = 2 * PolygonRadius

	m.PointCount = 0

	edgeAxis := c.computeEdgeSeparation()
	// no admissible normal: this edge should not collide
	if edgeAxis.kind == epAxisUnknown {
		return
	}
	if edgeAxis.separation > c.radius {
		return
	}

	polygonAxis := c.computePolygonSeparation()
	if polygonAxis.kind != epAxisUnknown && polygonAxis.separation > c.radius {
		return
	}

	// hysteresis to reduce jitter
	const relativeTol = 0.98
	const absoluteTol = 0.001

	primary := edgeAxis
	if polygonAxis.kind != epAxisUnknown && polygonAxis.separation > relativeTol*edgeAxis.separation+absoluteTol {
		primary = polygonAxis
	}

	var ie [2]clipVertex
	var rf referenceFace
	if primary.kind == epAxisEdgeA {
		m.Type = ManifoldFaceA

		// polygon normal most anti-parallel to the edge normal
		bestIndex := 0
		bestValue := c.normal.Dot(c.polygonB.normals[0])
		for i := 1; i < c.polygonB.count; i++ {
			if value := c.normal.Dot(c.polygonB.normals[i]); value < bestValue {
				bestValue = value
				bestIndex = i
			}
		}

		i1 := bestIndex
		i2 := i1 + 1
		if i2 == c.polygonB.count {
			i2 = 0
		}
		ie[0] = clipVertex{v: c.polygonB.vertices[i1], id: ContactID{IndexB: uint8(i1), TypeA: FeatureFace, TypeB: FeatureVertex}}
		ie[1] = clipVertex{v: c.polygonB.vertices[i2], id: ContactID{IndexB: uint8(i2), TypeA: FeatureFace, TypeB: FeatureVertex}}

		if c.front {
			rf.i1, rf.i2 = 0, 1
			rf.v1, rf.v2 = c.v1, c.v2
			rf.normal = c.normal1
		} else {
			rf.i1, rf.i2 = 1, 0
			rf.v1, rf.v2 = c.v2, c.v1
			rf.normal = c.normal1.Mul(-1)
		}
	} else {
		m.Type = ManifoldFaceB

		ie[0] = clipVertex{v: c.v1, id: ContactID{IndexB: uint8(primary.index), TypeA: FeatureVertex, TypeB: FeatureFace}}
		ie[1] = clipVertex{v: c.v2, id: ContactID{IndexB: uint8(primary.index), TypeA: FeatureVertex, TypeB: FeatureFace}}

		rf.i1 = primary.index
		rf.i2 = rf.i1 + 1
		if rf.i2 == c.polygonB.count {
			rf.i2 = 0
		}
		rf.v1 = c.polygonB.vertices[rf.i1]
		rf.v2 = c.polygonB.vertices[rf.i2]
		rf.normal = c.polygonB.normals[rf.i1]
	}

	rf.sideNormal1 = mgl64.Vec2{rf.normal[1], -rf.normal[0]}
	rf.sideNormal2 = rf.sideNormal1.Mul(-1)
	rf.sideOffset1 = rf.sideNormal1.Dot(rf.v1)
	rf.sideOffset2 = rf.sideNormal2.Dot(rf.v2)

	var clip1, clip2 [2]clipVertex
	if clipSegmentToLine(&clip1, ie, rf.sideNormal1, rf.sideOffset1, rf.i1) < MaxManifoldPoints {
		return
	}
	if clipSegmentToLine(&clip2, clip1, rf.sideNormal2, rf.sideOffset2, rf.i2) < MaxManifoldPoints {
		return
	}

	if primary.kind == epAxisEdgeA {
		m.LocalNormal = rf.normal
		m.LocalPoint = rf.v1
	} else {
		m.LocalNormal = polyB.Normals[rf.i1]
		m.LocalPoint = polyB.Vertices[rf.i1]
	}

	pointCount := 0
	for i := 0; i < MaxManifoldPoints; i++ {
		if rf.normal.Dot(clip2[i].v.Sub(rf.v1)) > c.radius {
			continue
		}
		cp := &m.Points[pointCount]
		if primary.kind == epAxisEdgeA {
			cp.LocalPoint = c.xf.ApplyT(clip2[i].v)
			cp.ID = clip2[i].id
		} else {
			cp.LocalPoint = clip2[i].v
			cp.ID = clip2[i].id.Swap()
		}
		pointCount++
	}
	m.PointCount = pointCount
}

func (c *epCollider) computeEdgeSeparation() epAxis {
	axis := epAxis{kind: epAxisEdgeA, index: 1, separation: geom.MaxFloat}
	if c.front {
		axis.index = 0
	}
	for i := 0; i < c.polygonB.count; i++ {
		if s := c.normal.Dot(c.polygonB.vertices[i].Sub(c.v1)); s < axis.separation {
			axis.separation = s
		}
	}
	return axis
}

func (c *epCollider) computePolygonSeparation() epAxis {
	axis := epAxis{kind: epAxisUnknown, index: -1, separation: -geom.MaxFloat}
	perp := mgl64.Vec2{-c.normal[1], c.normal[0]}

	for i := 0; i < c.polygonB.count; i++ {
		n := c.polygonB.normals[i].Mul(-1)

		s1 := n.Dot(c.polygonB.vertices[i].Sub(c.v1))
		s2 := n.Dot(c.polygonB.vertices[i].Sub(c.v2))
		s := math.Min(s1, s2)

		if s > c.radius {
			// separated
			return epAxis{kind: epAxisEdgeB, index: i, separation: s}
		}

		// adjacency
		if n.Dot(perp) >= 0 {
			if n.Sub(c.upperLimit).Dot(c.normal) < -AngularSlop {
				continue
			}
		} else if n.Sub(c.lowerLimit).Dot(c.normal) < -AngularSlop {
			continue
		}

		if s > axis.separation {
			axis = epAxis{kind: epAxisEdgeB, index: i, separation: s}
		}
	}
	return axis
}
