package rigid2d

import (
	"math"

	"github.com/ByteArena/rigid2d/collision"
	"github.com/ByteArena/rigid2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

type velocityConstraintPoint struct {
	rA, rB         mgl64.Vec2
	normalImpulse  float64
	tangentImpulse float64
	normalMass     float64
	tangentMass    float64
	velocityBias   float64
}

type contactVelocityConstraint struct {
	points       [collision.MaxManifoldPoints]velocityConstraintPoint
	normal       mgl64.Vec2
	normalMass   mgl64.Mat2
	k            mgl64.Mat2
	indexA       int
	indexB       int
	invMassA     float64
	invMassB     float64
	invIA, invIB float64
	friction     float64
	restitution  float64
	tangentSpeed float64
	pointCount   int
	contact      *Contact
}

type contactPositionConstraint struct {
	localPoints  [collision.MaxManifoldPoints]mgl64.Vec2
	localNormal  mgl64.Vec2
	localPoint   mgl64.Vec2
	indexA       int
	indexB       int
	invMassA     float64
	invMassB     float64
	localCenterA mgl64.Vec2
	localCenterB mgl64.Vec2
	invIA, invIB float64
	typ          collision.ManifoldType
	radiusA      float64
	radiusB      float64
	pointCount   int
}

// contactSolver holds the contact constraints of one island.
type contactSolver struct {
	data     *solverData
	velocity []contactVelocityConstraint
	position []contactPositionConstraint
}

// newContactSolver initializes the position independent parts of the
// constraints. Every contact must be touching.
func newContactSolver(data *solverData, contacts []*Contact, cm *contactManager) *contactSolver {
	s := &contactSolver{
		data:     data,
		velocity: make([]contactVelocityConstraint, len(contacts)),
		position: make([]contactPositionConstraint, len(contacts)),
	}

	for i, c := range contacts {
		bA := cm.body(c.bodyA)
		bB := cm.body(c.bodyB)
		m := &c.manifold

		vc := &s.velocity[i]
		vc.friction = c.friction
		vc.restitution = c.restitution
		vc.tangentSpeed = c.tangentSpeed
		vc.indexA = bA.islandIndex
		vc.indexB = bB.islandIndex
		vc.invMassA = bA.invMass
		vc.invMassB = bB.invMass
		vc.invIA = bA.invI
		vc.invIB = bB.invI
		vc.contact = c
		vc.pointCount = m.PointCount

		pc := &s.position[i]
		pc.indexA = bA.islandIndex
		pc.indexB = bB.islandIndex
		pc.invMassA = bA.invMass
		pc.invMassB = bB.invMass
		pc.localCenterA = bA.sweep.LocalCenter
		pc.localCenterB = bB.sweep.LocalCenter
		pc.invIA = bA.invI
		pc.invIB = bB.invI
		pc.localNormal = m.LocalNormal
		pc.localPoint = m.LocalPoint
		pc.pointCount = m.PointCount
		pc.radiusA = cm.fixture(c.fixtureA).shape.Radius()
		pc.radiusB = cm.fixture(c.fixtureB).shape.Radius()
		pc.typ = m.Type

		for j := 0; j < m.PointCount; j++ {
			cp := &m.Points[j]
			vcp := &vc.points[j]
			if data.step.warmStarting {
				vcp.normalImpulse = data.step.dtRatio * cp.NormalImpulse
				vcp.tangentImpulse = data.step.dtRatio * cp.TangentImpulse
			}
			pc.localPoints[j] = cp.LocalPoint
		}
	}
	return s
}

func transformAt(p position, localCenter mgl64.Vec2) geom.Transform {
	q := geom.NewRot(p.a)
	return geom.Transform{P: p.c.Sub(q.Apply(localCenter)), Q: q}
}

// initializeVelocityConstraints computes the position dependent parts:
// anchors, effective masses and restitution bias.
func (s *contactSolver) initializeVelocityConstraints() {
	positions, velocities := s.data.positions, s.data.velocities
	settings := s.data.settings

	for i := range s.velocity {
		vc := &s.velocity[i]
		pc := &s.position[i]
		m := &vc.contact.manifold

		mA, mB := vc.invMassA, vc.invMassB
		iA, iB := vc.invIA, vc.invIB

		cA, cB := positions[vc.indexA].c, positions[vc.indexB].c
		vA, wA := velocities[vc.indexA].v, velocities[vc.indexA].w
		vB, wB := velocities[vc.indexB].v, velocities[vc.indexB].w

		xfA := transformAt(positions[vc.indexA], pc.localCenterA)
		xfB := transformAt(positions[vc.indexB], pc.localCenterB)

		var wm collision.WorldManifold
		wm.Initialize(m, xfA, pc.radiusA, xfB, pc.radiusB)

		vc.normal = wm.Normal
		tangent := geom.CrossVS(vc.normal, 1)

		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]
			vcp.rA = wm.Points[j].Sub(cA)
			vcp.rB = wm.Points[j].Sub(cB)

			rnA := geom.Cross(vcp.rA, vc.normal)
			rnB := geom.Cross(vcp.rB, vc.normal)
			if k := mA + mB + iA*rnA*rnA + iB*rnB*rnB; k > 0 {
				vcp.normalMass = 1 / k
			} else {
				vcp.normalMass = 0
			}

			rtA := geom.Cross(vcp.rA, tangent)
			rtB := geom.Cross(vcp.rB, tangent)
			if k := mA + mB + iA*rtA*rtA + iB*rtB*rtB; k > 0 {
				vcp.tangentMass = 1 / k
			} else {
				vcp.tangentMass = 0
			}

			// restitution bias
			vcp.velocityBias = 0
			vRel := vc.normal.Dot(relativeVelocity(vA, wA, vcp.rA, vB, wB, vcp.rB))
			if vRel < -settings.VelocityThreshold {
				vcp.velocityBias = -vc.restitution * vRel
			}
		}

		// prepare the block solver
		if vc.pointCount == 2 {
			vcp1, vcp2 := &vc.points[0], &vc.points[1]

			rn1A := geom.Cross(vcp1.rA, vc.normal)
			rn1B := geom.Cross(vcp1.rB, vc.normal)
			rn2A := geom.Cross(vcp2.rA, vc.normal)
			rn2B := geom.Cross(vcp2.rB, vc.normal)

			k11 := mA + mB + iA*rn1A*rn1A + iB*rn1B*rn1B
			k22 := mA + mB + iA*rn2A*rn2A + iB*rn2B*rn2B
			k12 := mA + mB + iA*rn1A*rn2A + iB*rn1B*rn2B

			if k11*k11 < settings.MaxConditionNumber*(k11*k22-k12*k12) {
				vc.k = mgl64.Mat2{k11, k12, k12, k22}
				vc.normalMass = vc.k.Inv()
			} else {
				// redundant constraints, keep one
				vc.pointCount = 1
			}
		}
	}
}

func relativeVelocity(vA mgl64.Vec2, wA float64, rA mgl64.Vec2, vB mgl64.Vec2, wB float64, rB mgl64.Vec2) mgl64.Vec2 {
	return vB.Add(geom.CrossSV(wB, rB)).Sub(vA).Sub(geom.CrossSV(wA, rA))
}

func (s *contactSolver) warmStart() {
	velocities := s.data.velocities
	for i := range s.velocity {
		vc := &s.velocity[i]

		vA, wA := velocities[vc.indexA].v, velocities[vc.indexA].w
		vB, wB := velocities[vc.indexB].v, velocities[vc.indexB].w

		tangent := geom.CrossVS(vc.normal, 1)
		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]
			p := vc.normal.Mul(vcp.normalImpulse).Add(tangent.Mul(vcp.tangentImpulse))
			wA -= vc.invIA * geom.Cross(vcp.rA, p)
			vA = vA.Sub(p.Mul(vc.invMassA))
			wB += vc.invIB * geom.Cross(vcp.rB, p)
			vB = vB.Add(p.Mul(vc.invMassB))
		}

		velocities[vc.indexA] = velocity{vA, wA}
		velocities[vc.indexB] = velocity{vB, wB}
	}
}

func (s *contactSolver) solveVelocityConstraints() {
	velocities := s.data.velocities
	for i := range s.velocity {
		vc := &s.velocity[i]

		mA, mB := vc.invMassA, vc.invMassB
		iA, iB := vc.invIA, vc.invIB

		vA, wA := velocities[vc.indexA].v, velocities[vc.indexA].w
		vB, wB := velocities[vc.indexB].v, velocities[vc.indexB].w

		normal := vc.normal
		tangent := geom.CrossVS(normal, 1)

		// friction first: non-penetration matters more
		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]
			dv := relativeVelocity(vA, wA, vcp.rA, vB, wB, vcp.rB)

			vt := dv.Dot(tangent) - vc.tangentSpeed
			lambda := vcp.tangentMass * -vt

			maxFriction := vc.friction * vcp.normalImpulse
			newImpulse := geom.Clamp(vcp.tangentImpulse+lambda, -maxFriction, maxFriction)
			lambda = newImpulse - vcp.tangentImpulse
			vcp.tangentImpulse = newImpulse

			p := tangent.Mul(lambda)
			vA = vA.Sub(p.Mul(mA))
			wA -= iA * geom.Cross(vcp.rA, p)
			vB = vB.Add(p.Mul(mB))
			wB += iB * geom.Cross(vcp.rB, p)
		}

		if vc.pointCount == 1 {
			vcp := &vc.points[0]
			dv := relativeVelocity(vA, wA, vcp.rA, vB, wB, vcp.rB)

			vn := dv.Dot(normal)
			lambda := -vcp.normalMass * (vn - vcp.velocityBias)

			newImpulse := math.Max(vcp.normalImpulse+lambda, 0)
			lambda = newImpulse - vcp.normalImpulse
			vcp.normalImpulse = newImpulse

			p := normal.Mul(lambda)
			vA = vA.Sub(p.Mul(mA))
			wA -= iA * geom.Cross(vcp.rA, p)
			vB = vB.Add(p.Mul(mB))
			wB += iB * geom.Cross(vcp.rB, p)
		} else {
			// Two-point mixed LCP solved by total enumeration:
			//   vn = A*x + b, vn >= 0, x >= 0, vn_i*x_i = 0
			// with x the accumulated impulse. Substituting x = a + d gives
			// b' = b - A*a so the accumulated impulse stays clamped.
			cp1, cp2 := &vc.points[0], &vc.points[1]
			a := mgl64.Vec2{cp1.normalImpulse, cp2.normalImpulse}

			vn1 := relativeVelocity(vA, wA, cp1.rA, vB, wB, cp1.rB).Dot(normal)
			vn2 := relativeVelocity(vA, wA, cp2.rA, vB, wB, cp2.rB).Dot(normal)

			b := mgl64.Vec2{vn1 - cp1.velocityBias, vn2 - cp2.velocityBias}
			b = b.Sub(vc.k.Mul2x1(a))

			applyNormal := func(x mgl64.Vec2) {
				d := x.Sub(a)
				p1 := normal.Mul(d[0])
				p2 := normal.Mul(d[1])
				vA = vA.Sub(p1.Add(p2).Mul(mA))
				wA -= iA * (geom.Cross(cp1.rA, p1) + geom.Cross(cp2.rA, p2))
				vB = vB.Add(p1.Add(p2).Mul(mB))
				wB += iB * (geom.Cross(cp1.rB, p1) + geom.Cross(cp2.rB, p2))
				cp1.normalImpulse = x[0]
				cp2.normalImpulse = x[1]
			}

			switch {
			// both points active: vn = 0
			case solveBoth(vc, b):
				applyNormal(vc.normalMass.Mul2x1(b).Mul(-1))

			// point 1 active, point 2 separating
			case -cp1.normalMass*b[0] >= 0 && vc.k[1]*(-cp1.normalMass*b[0])+b[1] >= 0:
				applyNormal(mgl64.Vec2{-cp1.normalMass * b[0], 0})

			// point 2 active, point 1 separating
			case -cp2.normalMass*b[1] >= 0 && vc.k[2]*(-cp2.normalMass*b[1])+b[0] >= 0:
				applyNormal(mgl64.Vec2{0, -cp2.normalMass * b[1]})

			// both separating
			case b[0] >= 0 && b[1] >= 0:
				applyNormal(mgl64.Vec2{})

				// no solution; give up for this iteration
			}
		}

		velocities[vc.indexA] = velocity{vA, wA}
		velocities[vc.indexB] = velocity{vB, wB}
	}
}

func solveBoth(vc *contactVelocityConstraint, b mgl64.Vec2) bool {
	x := vc.normalMass.Mul2x1(b).Mul(-1)
	return x[0] >= 0 && x[1] >= 0
}

// storeImpulses copies the accumulated impulses back to the manifolds for
// warm starting the next step.
func (s *contactSolver) storeImpulses() {
	for i := range s.velocity {
		vc := &s.velocity[i]
		m := &vc.contact.manifold
		for j := 0; j < vc.pointCount; j++ {
			m.Points[j].NormalImpulse = vc.points[j].normalImpulse
			m.Points[j].TangentImpulse = vc.points[j].tangentImpulse
		}
	}
}

// impulse reports the impulses of constraint i to a post-solve listener.
func (s *contactSolver) impulse(i int) ContactImpulse {
	vc := &s.velocity[i]
	ci := ContactImpulse{Count: vc.pointCount}
	for j := 0; j < vc.pointCount; j++ {
		ci.NormalImpulses[j] = vc.points[j].normalImpulse
		ci.TangentImpulses[j] = vc.points[j].tangentImpulse
	}
	return ci
}

// positionSolverManifold evaluates one manifold point at the current
// solver positions.
func positionSolverManifold(pc *contactPositionConstraint, xfA, xfB geom.Transform, index int) (normal, point mgl64.Vec2, separation float64) {
	switch pc.typ {
	case collision.ManifoldCircles:
		pointA := xfA.Apply(pc.localPoint)
		pointB := xfB.Apply(pc.localPoints[0])
		normal, _ = geom.Normalize(pointB.Sub(pointA))
		point = pointA.Add(pointB).Mul(0.5)
		separation = pointB.Sub(pointA).Dot(normal) - pc.radiusA - pc.radiusB

	case collision.ManifoldFaceA:
		normal = xfA.Q.Apply(pc.localNormal)
		planePoint := xfA.Apply(pc.localPoint)
		point = xfB.Apply(pc.localPoints[index])
		separation = point.Sub(planePoint).Dot(normal) - pc.radiusA - pc.radiusB

	case collision.ManifoldFaceB:
		normal = xfB.Q.Apply(pc.localNormal)
		planePoint := xfB.Apply(pc.localPoint)
		point = xfA.Apply(pc.localPoints[index])
		separation = point.Sub(planePoint).Dot(normal) - pc.radiusA - pc.radiusB

		// normal points from A to B
		normal = normal.Mul(-1)
	}
	return normal, point, separation
}

// solvePositionConstraints runs one NGS pass and reports whether the
// largest overlap is within tolerance.
func (s *contactSolver) solvePositionConstraints() bool {
	return s.solvePositions(s.data.settings.Baumgarte, -1, -1) >= -3*s.data.settings.LinearSlop
}

// solveTOIPositionConstraints moves only the two TOI bodies; every other
// island member acts as static.
func (s *contactSolver) solveTOIPositionConstraints(toiIndexA, toiIndexB int) bool {
	return s.solvePositions(s.data.settings.TOIBaumgarte, toiIndexA, toiIndexB) >= -1.5*s.data.settings.LinearSlop
}

// solvePositions returns the minimum separation seen. With toi indices
// of -1 every body moves.
func (s *contactSolver) solvePositions(baumgarte float64, toiIndexA, toiIndexB int) float64 {
	positions := s.data.positions
	settings := s.data.settings
	movable := func(index int) bool {
		return toiIndexA < 0 || index == toiIndexA || index == toiIndexB
	}

	minSeparation := 0.0
	for i := range s.position {
		pc := &s.position[i]

		var mA, iA, mB, iB float64
		if movable(pc.indexA) {
			mA, iA = pc.invMassA, pc.invIA
		}
		if movable(pc.indexB) {
			mB, iB = pc.invMassB, pc.invIB
		}

		pA, pB := positions[pc.indexA], positions[pc.indexB]

		for j := 0; j < pc.pointCount; j++ {
			xfA := transformAt(pA, pc.localCenterA)
			xfB := transformAt(pB, pc.localCenterB)

			normal, point, separation := positionSolverManifold(pc, xfA, xfB, j)
			rA := point.Sub(pA.c)
			rB := point.Sub(pB.c)

			minSeparation = math.Min(minSeparation, separation)

			// allow slop and prevent large corrections
			c := geom.Clamp(baumgarte*(separation+settings.LinearSlop), -settings.MaxLinearCorrection, 0)

			rnA := geom.Cross(rA, normal)
			rnB := geom.Cross(rB, normal)
			k := mA + mB + iA*rnA*rnA + iB*rnB*rnB

			impulse := 0.0
			if k > 0 {
				impulse = -c / k
			}

			p := normal.Mul(impulse)
			pA.c = pA.c.Sub(p.Mul(mA))
			pA.a -= iA * geom.Cross(rA, p)
			pB.c = pB.c.Add(p.Mul(mB))
			pB.a += iB * geom.Cross(rB, p)
		}

		positions[pc.indexA] = pA
		positions[pc.indexB] = pB
	}
	return minSeparation
}
