package collision

import (
	"testing"

	"github.com/ByteArena/rigid2d/geom"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(x, y float64) geom.Transform {
	return geom.NewTransform(mgl64.Vec2{x, y}, 0)
}

func TestCollideCircles(t *testing.T) {
	a := NewCircle(mgl64.Vec2{}, 1)
	b := NewCircle(mgl64.Vec2{}, 1)

	var m Manifold
	CollideCircles(&m, a, at(0, 0), b, at(1.5, 0))
	require.Equal(t, 1, m.PointCount)
	assert.Equal(t, ManifoldCircles, m.Type)

	var wm WorldManifold
	wm.Initialize(&m, at(0, 0), a.R, at(1.5, 0), b.R)
	assert.InDelta(t, 1, wm.Normal[0], tol)
	assert.InDelta(t, -0.5, wm.Separations[0], tol)

	CollideCircles(&m, a, at(0, 0), b, at(3, 0))
	assert.Equal(t, 0, m.PointCount)
}

func TestCollidePolygons(t *testing.T) {
	a := NewBox(1, 1)
	b := NewBox(1, 1)

	var m Manifold
	CollidePolygons(&m, a, at(0, 0), b, at(1.9, 0))
	require.Equal(t, 2, m.PointCount)

	var wm WorldManifold
	wm.Initialize(&m, at(0, 0), a.Radius(), at(1.9, 0), b.Radius())
	assert.InDelta(t, 1, wm.Normal[0], 1e-6)
	assert.InDelta(t, 0, wm.Normal[1], 1e-6)
	for i := 0; i < m.PointCount; i++ {
		assert.Less(t, wm.Separations[i], 0.0)
	}

	CollidePolygons(&m, a, at(0, 0), b, at(3, 0))
	assert.Equal(t, 0, m.PointCount)
}

func TestCollidePolygonAndCircle(t *testing.T) {
	box := NewBox(1, 1)
	c := NewCircle(mgl64.Vec2{}, 0.5)

	var m Manifold
	CollidePolygonAndCircle(&m, box, at(0, 0), c, at(0, 1.4))
	require.Equal(t, 1, m.PointCount)
	assert.Equal(t, ManifoldFaceA, m.Type)
	assert.InDelta(t, 1, m.LocalNormal[1], tol)

	CollidePolygonAndCircle(&m, box, at(0, 0), c, at(0, 2))
	assert.Equal(t, 0, m.PointCount)
}

func TestCollideEdgeShapes(t *testing.T) {
	edge := NewEdge(mgl64.Vec2{-2, 0}, mgl64.Vec2{2, 0})

	var m Manifold
	CollideEdgeAndCircle(&m, edge, at(0, 0), NewCircle(mgl64.Vec2{}, 0.5), at(0, 0.4))
	assert.Equal(t, 1, m.PointCount)

	CollideEdgeAndCircle(&m, edge, at(0, 0), NewCircle(mgl64.Vec2{}, 0.5), at(0, 1))
	assert.Equal(t, 0, m.PointCount)

	CollideEdgeAndPolygon(&m, edge, at(0, 0), NewBox(0.5, 0.5), at(0, 0.45))
	require.Equal(t, 2, m.PointCount)

	var wm WorldManifold
	wm.Initialize(&m, at(0, 0), PolygonRadius, at(0, 0.45), PolygonRadius)
	assert.InDelta(t, 1, wm.Normal[1], 1e-6)
}

func TestPointStates(t *testing.T) {
	box := NewBox(1, 1)
	var m1, m2 Manifold
	CollidePolygons(&m1, box, at(0, 0), box, at(1.9, 0))
	CollidePolygons(&m2, box, at(0, 0), box, at(1.85, 0))

	s1, s2 := GetPointStates(&m1, &m2)
	for i := 0; i < m1.PointCount; i++ {
		assert.Equal(t, PointPersist, s1[i])
	}
	for i := 0; i < m2.PointCount; i++ {
		assert.Equal(t, PointPersist, s2[i])
	}

	var empty Manifold
	s1, _ = GetPointStates(&m1, &empty)
	assert.Equal(t, PointRemove, s1[0])
}

func TestOverlapGJK(t *testing.T) {
	box := NewBox(1, 1)
	assert.True(t, TestOverlap(box, 0, box, 0, at(0, 0), at(1.5, 0)))
	assert.False(t, TestOverlap(box, 0, box, 0, at(0, 0), at(2.5, 0)))
}
