package collision

import (
	"github.com/ByteArena/rigid2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Proxy is the convex vertex set GJK works on. It wraps one child of any
// shape.
type Proxy struct {
	Vertices []mgl64.Vec2
	Radius   float64
}

// MakeProxy builds the proxy for child index of shape.
func MakeProxy(shape Shape, index int) Proxy {
	switch s := shape.(type) {
	case *CircleShape:
		return Proxy{Vertices: []mgl64.Vec2{s.Pos}, Radius: s.R}
	case *PolygonShape:
		return Proxy{Vertices: s.Vertices[:s.Count], Radius: PolygonRadius}
	case *EdgeShape:
		return Proxy{Vertices: []mgl64.Vec2{s.V1, s.V2}, Radius: PolygonRadius}
	case *ChainShape:
		return Proxy{Vertices: []mgl64.Vec2{s.Vertices[index], s.Vertices[index+1]}, Radius: PolygonRadius}
	}
	panic("collision: unsupported shape " + shape.Type().String())
}

// Support returns the index of the vertex furthest along d.
func (p *Proxy) Support(d mgl64.Vec2) int {
	best := 0
	bestValue := p.Vertices[0].Dot(d)
	for i := 1; i < len(p.Vertices); i++ {
		if value := p.Vertices[i].Dot(d); value > bestValue {
			best = i
			bestValue = value
		}
	}
	return best
}

// SimplexCache warm starts Distance. Zero it before the first call.
type SimplexCache struct {
	Metric float64 // length or area
	Count  int
	IndexA [3]int
	IndexB [3]int
}

// DistanceInput configures Distance. With UseRadii the skin radii are
// taken into account.
type DistanceInput struct {
	ProxyA     Proxy
	ProxyB     Proxy
	TransformA geom.Transform
	TransformB geom.Transform
	UseRadii   bool
}

// DistanceOutput holds the closest points of the two shapes.
type DistanceOutput struct {
	PointA     mgl64.Vec2
	PointB     mgl64.Vec2
	Distance   float64
	Iterations int
}

type simplexVertex struct {
	wA     mgl64.Vec2 // support point in proxy A
	wB     mgl64.Vec2 // support point in proxy B
	w      mgl64.Vec2 // wB - wA
	a      float64    // barycentric coordinate for the closest point
	indexA int
	indexB int
}

type simplex struct {
	v     [3]simplexVertex
	count int
}

func (s *simplex) readCache(cache *SimplexCache, proxyA *Proxy, xfA geom.Transform, proxyB *Proxy, xfB geom.Transform) {
	s.count = cache.Count
	for i := 0; i < s.count; i++ {
		v := &s.v[i]
		v.indexA = cache.IndexA[i]
		v.indexB = cache.IndexB[i]
		v.wA = xfA.Apply(proxyA.Vertices[v.indexA])
		v.wB = xfB.Apply(proxyB.Vertices[v.indexB])
		v.w = v.wB.Sub(v.wA)
		v.a = 0
	}

	// flush the simplex if the metric changed a lot
	if s.count > 1 {
		metric1 := cache.Metric
		metric2 := s.metric()
		if metric2 < 0.5*metric1 || 2*metric1 < metric2 || metric2 < geom.Epsilon {
			s.count = 0
		}
	}

	if s.count == 0 {
		v := &s.v[0]
		v.indexA, v.indexB = 0, 0
		v.wA = xfA.Apply(proxyA.Vertices[0])
		v.wB = xfB.Apply(proxyB.Vertices[0])
		v.w = v.wB.Sub(v.wA)
		v.a = 1
		s.count = 1
	}
}

func (s *simplex) writeCache(cache *SimplexCache) {
	cache.Metric = s.metric()
	cache.Count = s.count
	for i := 0; i < s.count; i++ {
		cache.IndexA[i] = s.v[i].indexA
		cache.IndexB[i] = s.v[i].indexB
	}
}

func (s *simplex) searchDirection() mgl64.Vec2 {
	switch s.count {
	case 1:
		return s.v[0].w.Mul(-1)
	case 2:
		e12 := s.v[1].w.Sub(s.v[0].w)
		if geom.Cross(e12, s.v[0].w.Mul(-1)) > 0 {
			// origin is left of e12
			return geom.CrossSV(1, e12)
		}
		return geom.CrossVS(e12, 1)
	}
	return mgl64.Vec2{}
}

func (s *simplex) witnessPoints() (pA, pB mgl64.Vec2) {
	switch s.count {
	case 1:
		return s.v[0].wA, s.v[0].wB
	case 2:
		pA = s.v[0].wA.Mul(s.v[0].a).Add(s.v[1].wA.Mul(s.v[1].a))
		pB = s.v[0].wB.Mul(s.v[0].a).Add(s.v[1].wB.Mul(s.v[1].a))
		return pA, pB
	case 3:
		pA = s.v[0].wA.Mul(s.v[0].a).Add(s.v[1].wA.Mul(s.v[1].a)).Add(s.v[2].wA.Mul(s.v[2].a))
		return pA, pA
	}
	return mgl64.Vec2{}, mgl64.Vec2{}
}

func (s *simplex) metric() float64 {
	switch s.count {
	case 2:
		return s.v[0].w.Sub(s.v[1].w).Len()
	case 3:
		return geom.Cross(s.v[1].w.Sub(s.v[0].w), s.v[2].w.Sub(s.v[0].w))
	}
	return 0
}

// solve2 finds the closest point on a segment with barycentric coordinates.
func (s *simplex) solve2() {
	w1, w2 := s.v[0].w, s.v[1].w
	e12 := w2.Sub(w1)

	// w1 region
	d12n2 := -w1.Dot(e12)
	if d12n2 <= 0 {
		s.v[0].a = 1
		s.count = 1
		return
	}

	// w2 region
	d12n1 := w2.Dot(e12)
	if d12n1 <= 0 {
		s.v[1].a = 1
		s.count = 1
		s.v[0] = s.v[1]
		return
	}

	inv := 1 / (d12n1 + d12n2)
	s.v[0].a = d12n1 * inv
	s.v[1].a = d12n2 * inv
	s.count = 2
}

// solve3 handles the triangle case. The possible regions are a vertex, one
// of the three edges, or the interior.
func (s *simplex) solve3() {
	w1, w2, w3 := s.v[0].w, s.v[1].w, s.v[2].w

	e12 := w2.Sub(w1)
	d12n1 := w2.Dot(e12)
	d12n2 := -w1.Dot(e12)

	e13 := w3.Sub(w1)
	d13n1 := w3.Dot(e13)
	d13n2 := -w1.Dot(e13)

	e23 := w3.Sub(w2)
	d23n1 := w3.Dot(e23)
	d23n2 := -w2.Dot(e23)

	n123 := geom.Cross(e12, e13)
	d123n1 := n123 * geom.Cross(w2, w3)
	d123n2 := n123 * geom.Cross(w3, w1)
	d123n3 := n123 * geom.Cross(w1, w2)

	switch {
	case d12n2 <= 0 && d13n2 <= 0:
		// w1 region
		s.v[0].a = 1
		s.count = 1

	case d12n1 > 0 && d12n2 > 0 && d123n3 <= 0:
		// e12
		inv := 1 / (d12n1 + d12n2)
		s.v[0].a = d12n1 * inv
		s.v[1].a = d12n2 * inv
		s.count = 2

	case d13n1 > 0 && d13n2 > 0 && d123n2 <= 0:
		// e13
		inv := 1 / (d13n1 + d13n2)
		s.v[0].a = d13n1 * inv
		s.v[2].a = d13n2 * inv
		s.count = 2
		s.v[1] = s.v[2]

	case d12n1 <= 0 && d23n2 <= 0:
		// w2 region
		s.v[1].a = 1
		s.count = 1
		s.v[0] = s.v[1]

	case d13n1 <= 0 && d23n1 <= 0:
		// w3 region
		s.v[2].a = 1
		s.count = 1
		s.v[0] = s.v[2]

	case d23n1 > 0 && d23n2 > 0 && d123n1 <= 0:
		// e23
		inv := 1 / (d23n1 + d23n2)
		s.v[1].a = d23n1 * inv
		s.v[2].a = d23n2 * inv
		s.count = 2
		s.v[0] = s.v[2]

	default:
		inv := 1 / (d123n1 + d123n2 + d123n3)
		s.v[0].a = d123n1 * inv
		s.v[1].a = d123n2 * inv
		s.v[2].a = d123n3 * inv
		s.count = 3
	}
}

const gjkMaxIterations = 20

// Distance computes the closest points between two convex proxies with GJK,
// using Voronoi regions and barycentric coordinates (Ericson). The cache is
// read on entry and updated on return.
func Distance(cache *SimplexCache, input *DistanceInput) DistanceOutput {
	proxyA := &input.ProxyA
	proxyB := &input.ProxyB
	xfA := input.TransformA
	xfB := input.TransformB

	var s simplex
	s.readCache(cache, proxyA, xfA, proxyB, xfB)

	// last simplex vertices, to detect cycling
	var saveA, saveB [3]int

	iter := 0
	for iter < gjkMaxIterations {
		saveCount := s.count
		for i := 0; i < saveCount; i++ {
			saveA[i] = s.v[i].indexA
			saveB[i] = s.v[i].indexB
		}

		switch s.count {
		case 2:
			s.solve2()
		case 3:
			s.solve3()
		}

		// the origin is inside the triangle
		if s.count == 3 {
			break
		}

		d := s.searchDirection()
		// The origin is probably on a segment or inside a triangle, so the
		// shapes overlap. It is hard to tell overlap from near-contact here.
		if geom.LenSq(d) < geom.Epsilon*geom.Epsilon {
			break
		}

		v := &s.v[s.count]
		v.indexA = proxyA.Support(xfA.Q.ApplyT(d.Mul(-1)))
		v.wA = xfA.Apply(proxyA.Vertices[v.indexA])
		v.indexB = proxyB.Support(xfB.Q.ApplyT(d))
		v.wB = xfB.Apply(proxyB.Vertices[v.indexB])
		v.w = v.wB.Sub(v.wA)

		// one iteration per support point call
		iter++

		duplicate := false
		for i := 0; i < saveCount; i++ {
			if v.indexA == saveA[i] && v.indexB == saveB[i] {
				duplicate = true
				break
			}
		}
		if duplicate {
			break
		}
		s.count++
	}

	var out DistanceOutput
	out.PointA, out.PointB = s.witnessPoints()
	out.Distance = out.PointA.Sub(out.PointB).Len()
	out.Iterations = iter

	s.writeCache(cache)

	if input.UseRadii {
		rA, rB := proxyA.Radius, proxyB.Radius
		if out.Distance > rA+rB && out.Distance > geom.Epsilon {
			// move the witness points to the surfaces
			out.Distance -= rA + rB
			normal, _ := geom.Normalize(out.PointB.Sub(out.PointA))
			out.PointA = out.PointA.Add(normal.Mul(rA))
			out.PointB = out.PointB.Sub(normal.Mul(rB))
		} else {
			// overlapping once radii count: use the midpoint
			p := out.PointA.Add(out.PointB).Mul(0.5)
			out.PointA, out.PointB = p, p
			out.Distance = 0
		}
	}
	return out
}
