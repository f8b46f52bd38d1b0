package collision

import (
	"math"

	"github.com/ByteArena/rigid2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Motion gives the transform of a shape at a fraction of the time step.
// Large accumulated angles make the root finder less reliable, so callers
// should keep angles normalized.
type Motion interface {
	TransformAt(beta float64) geom.Transform
}

// TOIInput configures TimeOfImpact. The sweep interval is [0, TMax].
// Zero tolerances and iteration counts fall back to package defaults.
type TOIInput struct {
	ProxyA  Proxy
	ProxyB  Proxy
	MotionA Motion
	MotionB Motion
	TMax    float64

	LinearSlop        float64
	MaxIterations     int
	MaxRootIterations int
}

// TOIState is the outcome of a TimeOfImpact query.
type TOIState uint8

const (
	TOIUnknown TOIState = iota
	TOIFailed
	TOIOverlapped
	TOITouching
	TOISeparated
)

func (s TOIState) String() string {
	switch s {
	case TOIFailed:
		return "failed"
	case TOIOverlapped:
		return "overlapped"
	case TOITouching:
		return "touching"
	case TOISeparated:
		return "separated"
	}
	return "unknown"
}

// TOIOutput holds the state and the time of impact.
type TOIOutput struct {
	State      TOIState
	T          float64
	Iterations int
}

type separationType uint8

const (
	separationPoints separationType = iota
	separationFaceA
	separationFaceB
)

type separationFunction struct {
	proxyA, proxyB   *Proxy
	motionA, motionB Motion
	kind             separationType
	localPoint       mgl64.Vec2
	axis             mgl64.Vec2
}

func (f *separationFunction) initialize(cache *SimplexCache, proxyA *Proxy, motionA Motion, proxyB *Proxy, motionB Motion, t1 float64) {
	f.proxyA, f.proxyB = proxyA, proxyB
	f.motionA, f.motionB = motionA, motionB

	xfA := motionA.TransformAt(t1)
	xfB := motionB.TransformAt(t1)

	switch {
	case cache.Count == 1:
		f.kind = separationPoints
		pointA := xfA.Apply(proxyA.Vertices[cache.IndexA[0]])
		pointB := xfB.Apply(proxyB.Vertices[cache.IndexB[0]])
		f.axis, _ = geom.Normalize(pointB.Sub(pointA))

	case cache.IndexA[0] == cache.IndexA[1]:
		// two points on B and one on A
		f.kind = separationFaceB
		b1 := proxyB.Vertices[cache.IndexB[0]]
		b2 := proxyB.Vertices[cache.IndexB[1]]
		f.axis, _ = geom.Normalize(geom.CrossVS(b2.Sub(b1), 1))
		normal := xfB.Q.Apply(f.axis)

		f.localPoint = b1.Add(b2).Mul(0.5)
		pointB := xfB.Apply(f.localPoint)
		pointA := xfA.Apply(proxyA.Vertices[cache.IndexA[0]])
		if pointA.Sub(pointB).Dot(normal) < 0 {
			f.axis = f.axis.Mul(-1)
		}

	default:
		// two points on A and one or two on B
		f.kind = separationFaceA
		a1 := proxyA.Vertices[cache.IndexA[0]]
		a2 := proxyA.Vertices[cache.IndexA[1]]
		f.axis, _ = geom.Normalize(geom.CrossVS(a2.Sub(a1), 1))
		normal := xfA.Q.Apply(f.axis)

		f.localPoint = a1.Add(a2).Mul(0.5)
		pointA := xfA.Apply(f.localPoint)
		pointB := xfB.Apply(proxyB.Vertices[cache.IndexB[0]])
		if pointB.Sub(pointA).Dot(normal) < 0 {
			f.axis = f.axis.Mul(-1)
		}
	}
}

// findMinSeparation returns the deepest points at time t and their
// separation along the axis.
func (f *separationFunction) findMinSeparation(t float64) (indexA, indexB int, separation float64) {
	xfA := f.motionA.TransformAt(t)
	xfB := f.motionB.TransformAt(t)

	switch f.kind {
	case separationPoints:
		indexA = f.proxyA.Support(xfA.Q.ApplyT(f.axis))
		indexB = f.proxyB.Support(xfB.Q.ApplyT(f.axis.Mul(-1)))
		pointA := xfA.Apply(f.proxyA.Vertices[indexA])
		pointB := xfB.Apply(f.proxyB.Vertices[indexB])
		return indexA, indexB, pointB.Sub(pointA).Dot(f.axis)

	case separationFaceA:
		normal := xfA.Q.Apply(f.axis)
		pointA := xfA.Apply(f.localPoint)
		indexB = f.proxyB.Support(xfB.Q.ApplyT(normal.Mul(-1)))
		pointB := xfB.Apply(f.proxyB.Vertices[indexB])
		return -1, indexB, pointB.Sub(pointA).Dot(normal)

	default:
		normal := xfB.Q.Apply(f.axis)
		pointB := xfB.Apply(f.localPoint)
		indexA = f.proxyA.Support(xfA.Q.ApplyT(normal.Mul(-1)))
		pointA := xfA.Apply(f.proxyA.Vertices[indexA])
		return indexA, -1, pointA.Sub(pointB).Dot(normal)
	}
}

func (f *separationFunction) evaluate(indexA, indexB int, t float64) float64 {
	xfA := f.motionA.TransformAt(t)
	xfB := f.motionB.TransformAt(t)

	switch f.kind {
	case separationPoints:
		pointA := xfA.Apply(f.proxyA.Vertices[indexA])
		pointB := xfB.Apply(f.proxyB.Vertices[indexB])
		return pointB.Sub(pointA).Dot(f.axis)

	case separationFaceA:
		normal := xfA.Q.Apply(f.axis)
		pointA := xfA.Apply(f.localPoint)
		pointB := xfB.Apply(f.proxyB.Vertices[indexB])
		return pointB.Sub(pointA).Dot(normal)

	default:
		normal := xfB.Q.Apply(f.axis)
		pointB := xfB.Apply(f.localPoint)
		pointA := xfA.Apply(f.proxyA.Vertices[indexA])
		return pointA.Sub(pointB).Dot(normal)
	}
}

// TimeOfImpact computes an upper bound on the time before two shapes
// penetrate, as a fraction in [0, TMax]. It uses conservative advancement
// along local separating axes, which may miss some intermediate
// non-tunneling collisions. Use Distance to find the contact point and
// normal at the returned time.
func TimeOfImpact(input *TOIInput) TOIOutput {
	out := TOIOutput{State: TOIUnknown, T: input.TMax}

	slop := input.LinearSlop
	if slop <= 0 {
		slop = LinearSlop
	}
	maxIterations := input.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 20
	}
	maxRootIterations := input.MaxRootIterations
	if maxRootIterations <= 0 {
		maxRootIterations = 50
	}

	proxyA := &input.ProxyA
	proxyB := &input.ProxyB
	tMax := input.TMax

	totalRadius := proxyA.Radius + proxyB.Radius
	target := math.Max(slop, totalRadius-3*slop)
	tolerance := 0.25 * slop

	t1 := 0.0
	iter := 0

	var cache SimplexCache
	distanceInput := DistanceInput{ProxyA: input.ProxyA, ProxyB: input.ProxyB}

	// Each outer iteration finds a new separating axis. The loop ends when an
	// axis repeats and no more progress is made.
	for {
		distanceInput.TransformA = input.MotionA.TransformAt(t1)
		distanceInput.TransformB = input.MotionB.TransformAt(t1)
		distanceOutput := Distance(&cache, &distanceInput)

		// overlapping shapes: give up on continuous collision
		if distanceOutput.Distance <= 0 {
			out.State = TOIOverlapped
			out.T = 0
			break
		}
		if distanceOutput.Distance < target+tolerance {
			out.State = TOITouching
			out.T = t1
			break
		}

		var fcn separationFunction
		fcn.initialize(&cache, proxyA, input.MotionA, proxyB, input.MotionB, t1)

		// Resolve the deepest point repeatedly. Bounded by the vertex count.
		done := false
		t2 := tMax
		for pushBackIter := 0; pushBackIter < MaxPolygonVertices; pushBackIter++ {
			indexA, indexB, s2 := fcn.findMinSeparation(t2)

			// separated at the end of the interval
			if s2 > target+tolerance {
				out.State = TOISeparated
				out.T = tMax
				done = true
				break
			}

			// separation reached tolerance: advance the sweeps
			if s2 > target-tolerance {
				t1 = t2
				break
			}

			s1 := fcn.evaluate(indexA, indexB, t1)

			// initial overlap, possible when the root finder ran out of
			// iterations
			if s1 < target-tolerance {
				out.State = TOIFailed
				out.T = t1
				done = true
				break
			}

			if s1 <= target+tolerance {
				// t1 holds the time of impact, possibly 0
				out.State = TOITouching
				out.T = t1
				done = true
				break
			}

			// 1D root of f(t) - target = 0, mixing secant and bisection
			a1, a2 := t1, t2
			for rootIter := 0; rootIter < maxRootIterations; rootIter++ {
				var t float64
				if rootIter&1 != 0 {
					t = a1 + (target-s1)*(a2-a1)/(s2-s1)
				} else {
					t = 0.5 * (a1 + a2)
				}

				s := fcn.evaluate(indexA, indexB, t)
				if math.Abs(s-target) < tolerance {
					t2 = t
					break
				}

				// keep the root bracketed
				if s > target {
					a1, s1 = t, s
				} else {
					a2, s2 = t, s
				}
			}
		}

		iter++
		if done {
			break
		}
		if iter == maxIterations {
			// root finder stuck
			out.State = TOIFailed
			out.T = t1
			break
		}
	}

	out.Iterations = iter
	return out
}
