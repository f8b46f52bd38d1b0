package collision

import (
	"fmt"

	"github.com/ByteArena/rigid2d/geom"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/jinzhu/copier"
)

// ChainShape is a free-form sequence of segments with two-sided collision.
// Each segment is a child, so a chain fixture owns one broad-phase proxy per
// segment. Self-intersecting chains do not collide properly.
type ChainShape struct {
	Vertices []mgl64.Vec2

	PrevVertex, NextVertex       mgl64.Vec2
	HasPrevVertex, HasNextVertex bool
}

// NewChain returns an open chain through vertices.
func NewChain(vertices []mgl64.Vec2) (*ChainShape, error) {
	if len(vertices) < 2 {
		return nil, ErrChainTooShort
	}
	if err := checkSpacing(vertices); err != nil {
		return nil, err
	}
	c := &ChainShape{Vertices: append([]mgl64.Vec2(nil), vertices...)}
	return c, nil
}

// NewLoop returns a closed chain through vertices. The first vertex is
// repeated at the end and the ghost vertices wrap around.
func NewLoop(vertices []mgl64.Vec2) (*ChainShape, error) {
	if len(vertices) < 3 {
		return nil, ErrChainTooShort
	}
	if err := checkSpacing(vertices); err != nil {
		return nil, err
	}
	vs := make([]mgl64.Vec2, len(vertices)+1)
	copy(vs, vertices)
	vs[len(vertices)] = vs[0]
	return &ChainShape{
		Vertices:      vs,
		PrevVertex:    vs[len(vs)-2],
		NextVertex:    vs[1],
		HasPrevVertex: true,
		HasNextVertex: true,
	}, nil
}

func checkSpacing(vertices []mgl64.Vec2) error {
	for i := 1; i < len(vertices); i++ {
		if geom.DistSq(vertices[i-1], vertices[i]) <= LinearSlop*LinearSlop {
			return fmt.Errorf("collision: chain vertices %d and %d are too close", i-1, i)
		}
	}
	return nil
}

// SetPrevVertex sets the ghost vertex before the first one, for smooth
// collision when chains are joined.
func (c *ChainShape) SetPrevVertex(v mgl64.Vec2) {
	c.PrevVertex = v
	c.HasPrevVertex = true
}

func (c *ChainShape) SetNextVertex(v mgl64.Vec2) {
	c.NextVertex = v
	c.HasNextVertex = true
}

func (c *ChainShape) Type() ShapeType { return ShapeChain }
func (c *ChainShape) Radius() float64 { return PolygonRadius }

// ChildCount is the number of segments.
func (c *ChainShape) ChildCount() int { return len(c.Vertices) - 1 }

func (c *ChainShape) Clone() Shape {
	clone := &ChainShape{}
	if err := copier.CopyWithOption(clone, c, copier.Option{DeepCopy: true}); err != nil {
		panic(fmt.Sprintf("collision: clone chain: %v", err))
	}
	return clone
}

// ChildEdge returns segment index as an edge, with ghost vertices taken
// from the neighbouring segments.
func (c *ChainShape) ChildEdge(index int) EdgeShape {
	n := len(c.Vertices)
	e := EdgeShape{
		V1: c.Vertices[index],
		V2: c.Vertices[index+1],
	}
	if index > 0 {
		e.V0 = c.Vertices[index-1]
		e.HasV0 = true
	} else {
		e.V0 = c.PrevVertex
		e.HasV0 = c.HasPrevVertex
	}
	if index < n-2 {
		e.V3 = c.Vertices[index+2]
		e.HasV3 = true
	} else {
		e.V3 = c.NextVertex
		e.HasV3 = c.HasNextVertex
	}
	return e
}

func (c *ChainShape) TestPoint(geom.Transform, mgl64.Vec2) bool {
	return false
}

func (c *ChainShape) RayCast(input RayCastInput, xf geom.Transform, childIndex int) (RayCastOutput, bool) {
	e := EdgeShape{V1: c.Vertices[childIndex], V2: c.Vertices[childIndex+1]}
	return e.RayCast(input, xf, 0)
}

func (c *ChainShape) ComputeAABB(xf geom.Transform, childIndex int) AABB {
	v1 := xf.Apply(c.Vertices[childIndex])
	v2 := xf.Apply(c.Vertices[childIndex+1])
	return AABB{Lower: geom.Min(v1, v2), Upper: geom.Max(v1, v2)}
}

func (c *ChainShape) ComputeMass(float64) MassData {
	return MassData{}
}
