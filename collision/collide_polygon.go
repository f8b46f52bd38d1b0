package collision

import (
	"github.com/ByteArena/rigid2d/geom"
)

// findMaxSeparation finds the edge normal of poly1 with the largest
// separation from poly2.
func findMaxSeparation(poly1 *PolygonShape, xf1 geom.Transform, poly2 *PolygonShape, xf2 geom.Transform) (int, float64) {
	xf := xf2.MulT(xf1)

	bestIndex := 0
	maxSeparation := -geom.MaxFloat
	for i := 0; i < poly1.Count; i++ {
		// poly1 normal in frame 2
		n := xf.Q.Apply(poly1.Normals[i])
		v1 := xf.Apply(poly1.Vertices[i])

		si := geom.MaxFloat
		for j := 0; j < poly2.Count; j++ {
			if sij := n.Dot(poly2.Vertices[j].Sub(v1)); sij < si {
				si = sij
			}
		}
		if si > maxSeparation {
			maxSeparation = si
			bestIndex = i
		}
	}
	return bestIndex, maxSeparation
}

func findIncidentEdge(poly1 *PolygonShape, xf1 geom.Transform, edge1 int, poly2 *PolygonShape, xf2 geom.Transform) [2]clipVertex {
	// reference normal in poly2's frame
	normal1 := xf2.Q.ApplyT(xf1.Q.Apply(poly1.Normals[edge1]))

	index := 0
	minDot := geom.MaxFloat
	for i := 0; i < poly2.Count; i++ {
		if dot := normal1.Dot(poly2.Normals[i]); dot < minDot {
			minDot = dot
			index = i
		}
	}

	i1 := index
	i2 := i1 + 1
	if i2 == poly2.Count {
		i2 = 0
	}
	return [2]clipVertex{
		{
			v:  xf2.Apply(poly2.Vertices[i1]),
			id: ContactID{IndexA: uint8(edge1), IndexB: uint8(i1), TypeA: FeatureFace, TypeB: FeatureVertex},
		},
		{
			v:  xf2.Apply(poly2.Vertices[i2]),
			id: ContactID{IndexA: uint8(edge1), IndexB: uint8(i2), TypeA: FeatureFace, TypeB: FeatureVertex},
		},
	}
}

// CollidePolygons computes the manifold between two polygons with the
// separating axis test followed by clipping:
//  1. find the edge normal of max separation on A and on B
//  2. pick the reference edge, preferring A within a small tolerance
//  3. find the incident edge on the other polygon
//  4. clip it against the side planes of the reference edge
//
// The normal points from A to B.
func CollidePolygons(m *Manifold, polyA *PolygonShape, xfA geom.Transform, polyB *PolygonShape, xfB geom.Transform) {
	m.PointCount = 0
	totalRadius := 2 * PolygonRadius

	edgeA, separationA := findMaxSeparation(polyA, xfA, polyB, xfB)
	if separationA > totalRadius {
		return
	}
	edgeB, separationB := findMaxSeparation(polyB, xfB, polyA, xfA)
	if separationB > totalRadius {
		return
	}

	poly1, poly2 := polyA, polyB
	xf1, xf2 := xfA, xfB
	edge1 := edgeA
	flip := false
	m.Type = ManifoldFaceA

	const tol = 0.1 * LinearSlop
	if separationB > separationA+tol {
		poly1, poly2 = polyB, polyA
		xf1, xf2 = xfB, xfA
		edge1 = edgeB
		flip = true
		m.Type = ManifoldFaceB
	}

	incidentEdge := findIncidentEdge(poly1, xf1, edge1, poly2, xf2)

	iv1 := edge1
	iv2 := edge1 + 1
	if iv2 == poly1.Count {
		iv2 = 0
	}
	v11 := poly1.Vertices[iv1]
	v12 := poly1.Vertices[iv2]

	localTangent, _ := geom.Normalize(v12.Sub(v11))
	localNormal := geom.CrossVS(localTangent, 1)
	planePoint := v11.Add(v12).Mul(0.5)

	tangent := xf1.Q.Apply(localTangent)
	normal := geom.CrossVS(tangent, 1)

	v11 = xf1.Apply(v11)
	v12 = xf1.Apply(v12)

	frontOffset := normal.Dot(v11)

	// side offsets, extended by the skin thickness
	sideOffset1 := -tangent.Dot(v11) + totalRadius
	sideOffset2 := tangent.Dot(v12) + totalRadius

	var clip1, clip2 [2]clipVertex
	if clipSegmentToLine(&clip1, incidentEdge, tangent.Mul(-1), sideOffset1, iv1) < 2 {
		return
	}
	if clipSegmentToLine(&clip2, clip1, tangent, sideOffset2, iv2) < 2 {
		return
	}

	m.LocalNormal = localNormal
	m.LocalPoint = planePoint

	pointCount := 0
	for i := 0; i < MaxManifoldPoints; i++ {
		separation := normal.Dot(clip2[i].v) - frontOffset
		if separation > totalRadius {
			continue
		}
		cp := &m.Points[pointCount]
		cp.LocalPoint = xf2.ApplyT(clip2[i].v)
		cp.ID = clip2[i].id
		if flip {
			cp.ID = cp.ID.Swap()
		}
		pointCount++
	}
	m.PointCount = pointCount
}
