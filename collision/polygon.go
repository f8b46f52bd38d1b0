package collision

import (
	"fmt"

	"github.com/ByteArena/rigid2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// PolygonShape is a convex polygon. The interior is to the left of each
// edge. Vertices are stored counter-clockwise.
type PolygonShape struct {
	Centroid mgl64.Vec2
	Vertices [MaxPolygonVertices]mgl64.Vec2
	Normals  [MaxPolygonVertices]mgl64.Vec2
	Count    int
}

// NewBox returns an axis-aligned box with the given half-widths, centered
// on the local origin.
func NewBox(hx, hy float64) *PolygonShape {
	p := &PolygonShape{}
	p.SetAsBox(hx, hy)
	return p
}

// NewPolygon returns the convex hull of vertices.
func NewPolygon(vertices []mgl64.Vec2) (*PolygonShape, error) {
	p := &PolygonShape{}
	if err := p.Set(vertices); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PolygonShape) Type() ShapeType { return ShapePolygon }
func (p *PolygonShape) Radius() float64 { return PolygonRadius }
func (p *PolygonShape) ChildCount() int { return 1 }

func (p *PolygonShape) Clone() Shape {
	clone := *p
	return &clone
}

// SetAsBox makes p an axis-aligned box with half-widths hx and hy.
func (p *PolygonShape) SetAsBox(hx, hy float64) {
	p.Count = 4
	p.Vertices[0] = mgl64.Vec2{-hx, -hy}
	p.Vertices[1] = mgl64.Vec2{hx, -hy}
	p.Vertices[2] = mgl64.Vec2{hx, hy}
	p.Vertices[3] = mgl64.Vec2{-hx, hy}
	p.Normals[0] = mgl64.Vec2{0, -1}
	p.Normals[1] = mgl64.Vec2{1, 0}
	p.Normals[2] = mgl64.Vec2{0, 1}
	p.Normals[3] = mgl64.Vec2{-1, 0}
	p.Centroid = mgl64.Vec2{}
}

// SetAsOrientedBox makes p a box with half-widths hx and hy, centered on
// center and rotated by angle.
func (p *PolygonShape) SetAsOrientedBox(hx, hy float64, center mgl64.Vec2, angle float64) {
	p.SetAsBox(hx, hy)
	p.Centroid = center

	xf := geom.NewTransform(center, angle)
	for i := 0; i < p.Count; i++ {
		p.Vertices[i] = xf.Apply(p.Vertices[i])
		p.Normals[i] = xf.Q.Apply(p.Normals[i])
	}
}

// Set replaces p with the convex hull of vertices, found by gift wrapping.
// Points closer than half the linear slop are welded together.
func (p *PolygonShape) Set(vertices []mgl64.Vec2) error {
	if len(vertices) > MaxPolygonVertices {
		return fmt.Errorf("%w: %d > %d", ErrTooManyVertices, len(vertices), MaxPolygonVertices)
	}

	weld := (0.5 * LinearSlop) * (0.5 * LinearSlop)
	ps := make([]mgl64.Vec2, 0, MaxPolygonVertices)
	for _, v := range vertices {
		unique := true
		for _, q := range ps {
			if geom.DistSq(v, q) < weld {
				unique = false
				break
			}
		}
		if unique {
			ps = append(ps, v)
		}
	}
	n := len(ps)
	if n < 3 {
		return ErrDegeneratePolygon
	}

	// rightmost point, lowest on ties
	i0 := 0
	x0 := ps[0][0]
	for i := 1; i < n; i++ {
		x := ps[i][0]
		if x > x0 || (x == x0 && ps[i][1] < ps[i0][1]) {
			i0 = i
			x0 = x
		}
	}

	var hull [MaxPolygonVertices]int
	m := 0
	ih := i0
	for {
		if m >= MaxPolygonVertices {
			return ErrDegeneratePolygon
		}
		hull[m] = ih

		ie := 0
		for j := 1; j < n; j++ {
			if ie == ih {
				ie = j
				continue
			}
			r := ps[ie].Sub(ps[hull[m]])
			v := ps[j].Sub(ps[hull[m]])
			c := geom.Cross(r, v)
			if c < 0 {
				ie = j
			}
			// collinear: keep the farthest point
			if c == 0 && geom.LenSq(v) > geom.LenSq(r) {
				ie = j
			}
		}

		m++
		ih = ie
		if ie == i0 {
			break
		}
	}
	if m < 3 {
		return ErrDegeneratePolygon
	}

	p.Count = m
	for i := 0; i < m; i++ {
		p.Vertices[i] = ps[hull[i]]
	}
	for i := 0; i < m; i++ {
		i2 := i + 1
		if i2 == m {
			i2 = 0
		}
		edge := p.Vertices[i2].Sub(p.Vertices[i])
		if geom.LenSq(edge) <= geom.Epsilon*geom.Epsilon {
			return ErrDegeneratePolygon
		}
		p.Normals[i], _ = geom.Normalize(geom.CrossVS(edge, 1))
	}

	c, ok := centroid(p.Vertices[:m])
	if !ok {
		return ErrDegeneratePolygon
	}
	p.Centroid = c
	return nil
}

func centroid(vs []mgl64.Vec2) (mgl64.Vec2, bool) {
	var c mgl64.Vec2
	area := 0.0

	// Reference point inside the polygon. Its location only affects rounding.
	var ref mgl64.Vec2
	for _, v := range vs {
		ref = ref.Add(v)
	}
	ref = ref.Mul(1 / float64(len(vs)))

	const inv3 = 1.0 / 3.0
	for i := range vs {
		p2 := vs[i]
		p3 := vs[(i+1)%len(vs)]
		triangleArea := 0.5 * geom.Cross(p2.Sub(ref), p3.Sub(ref))
		area += triangleArea
		c = c.Add(ref.Add(p2).Add(p3).Mul(triangleArea * inv3))
	}
	if area <= geom.Epsilon {
		return mgl64.Vec2{}, false
	}
	return c.Mul(1 / area), true
}

func (p *PolygonShape) TestPoint(xf geom.Transform, point mgl64.Vec2) bool {
	local := xf.ApplyT(point)
	for i := 0; i < p.Count; i++ {
		if p.Normals[i].Dot(local.Sub(p.Vertices[i])) > 0 {
			return false
		}
	}
	return true
}

func (p *PolygonShape) RayCast(input RayCastInput, xf geom.Transform, _ int) (RayCastOutput, bool) {
	p1 := xf.ApplyT(input.P1)
	p2 := xf.ApplyT(input.P2)
	d := p2.Sub(p1)

	lower, upper := 0.0, input.MaxFraction
	index := -1

	for i := 0; i < p.Count; i++ {
		// p = p1 + a*d, dot(normal, p - v) = 0
		numerator := p.Normals[i].Dot(p.Vertices[i].Sub(p1))
		denominator := p.Normals[i].Dot(d)

		if denominator == 0 {
			if numerator < 0 {
				return RayCastOutput{}, false
			}
		} else if denominator < 0 && numerator < lower*denominator {
			// the segment enters this half-space
			lower = numerator / denominator
			index = i
		} else if denominator > 0 && numerator < upper*denominator {
			// the segment exits this half-space
			upper = numerator / denominator
		}

		if upper < lower {
			return RayCastOutput{}, false
		}
	}

	if index >= 0 {
		return RayCastOutput{Normal: xf.Q.Apply(p.Normals[index]), Fraction: lower}, true
	}
	return RayCastOutput{}, false
}

func (p *PolygonShape) ComputeAABB(xf geom.Transform, _ int) AABB {
	lower := xf.Apply(p.Vertices[0])
	upper := lower
	for i := 1; i < p.Count; i++ {
		v := xf.Apply(p.Vertices[i])
		lower = geom.Min(lower, v)
		upper = geom.Max(upper, v)
	}
	r := mgl64.Vec2{PolygonRadius, PolygonRadius}
	return AABB{Lower: lower.Sub(r), Upper: upper.Add(r)}
}

// ComputeMass integrates over the triangle fan around the vertex average.
// Each triangle is mapped to (u,v) coordinates with Jacobian cross(e1, e2).
func (p *PolygonShape) ComputeMass(density float64) MassData {
	var center mgl64.Vec2
	area := 0.0
	inertia := 0.0

	var s mgl64.Vec2
	for i := 0; i < p.Count; i++ {
		s = s.Add(p.Vertices[i])
	}
	s = s.Mul(1 / float64(p.Count))

	const inv3 = 1.0 / 3.0
	for i := 0; i < p.Count; i++ {
		e1 := p.Vertices[i].Sub(s)
		e2 := p.Vertices[(i+1)%p.Count].Sub(s)

		d := geom.Cross(e1, e2)
		triangleArea := 0.5 * d
		area += triangleArea

		center = center.Add(e1.Add(e2).Mul(triangleArea * inv3))

		intx2 := e1[0]*e1[0] + e2[0]*e1[0] + e2[0]*e2[0]
		inty2 := e1[1]*e1[1] + e2[1]*e1[1] + e2[1]*e2[1]
		inertia += (0.25 * inv3 * d) * (intx2 + inty2)
	}

	md := MassData{Mass: density * area}
	center = center.Mul(1 / area)
	md.Center = center.Add(s)

	// inertia about s, shifted to the center of mass, then to the origin
	md.I = density*inertia + md.Mass*(md.Center.Dot(md.Center)-center.Dot(center))
	return md
}

// Validate reports whether the polygon is convex.
func (p *PolygonShape) Validate() bool {
	for i := 0; i < p.Count; i++ {
		i2 := i + 1
		if i2 == p.Count {
			i2 = 0
		}
		v0 := p.Vertices[i]
		e := p.Vertices[i2].Sub(v0)
		for j := 0; j < p.Count; j++ {
			if j == i || j == i2 {
				continue
			}
			if geom.Cross(e, p.Vertices[j].Sub(v0)) < 0 {
				return false
			}
		}
	}
	return true
}
