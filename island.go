package rigid2d

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// island is the per-step scratch set of bodies, contacts and joints solved
// together. The world reuses one island for every traversal of a step.
type island struct {
	cm       *contactManager
	listener ContactListener
	settings *Settings

	bodies   []*Body
	contacts []*Contact
	joints   []Joint

	positions  []position
	velocities []velocity
}

func newIsland(cm *contactManager, settings *Settings, bodyCapacity, contactCapacity, jointCapacity int) *island {
	return &island{
		cm:         cm,
		listener:   cm.listener,
		settings:   settings,
		bodies:     make([]*Body, 0, bodyCapacity),
		contacts:   make([]*Contact, 0, contactCapacity),
		joints:     make([]Joint, 0, jointCapacity),
		positions:  make([]position, 0, bodyCapacity),
		velocities: make([]velocity, 0, bodyCapacity),
	}
}

func (is *island) clear() {
	is.bodies = is.bodies[:0]
	is.contacts = is.contacts[:0]
	is.joints = is.joints[:0]
}

func (is *island) addBody(b *Body) {
	b.islandIndex = len(is.bodies)
	is.bodies = append(is.bodies, b)
}

func (is *island) addContact(c *Contact) { is.contacts = append(is.contacts, c) }
func (is *island) addJoint(j Joint)      { is.joints = append(is.joints, j) }

// load copies body state into the solver arrays.
func (is *island) load() {
	is.positions = is.positions[:0]
	is.velocities = is.velocities[:0]
	for _, b := range is.bodies {
		is.positions = append(is.positions, position{b.sweep.C, b.sweep.A})
		is.velocities = append(is.velocities, velocity{b.linearVelocity, b.angularVelocity})
	}
}

// integratePositions advances positions by h, clamping large translations
// and rotations.
func (is *island) integratePositions(h float64) {
	maxTranslation := is.settings.MaxTranslation
	maxRotation := is.settings.MaxRotation
	for i := range is.positions {
		c, a := is.positions[i].c, is.positions[i].a
		v, w := is.velocities[i].v, is.velocities[i].w

		translation := v.Mul(h)
		if translation.Dot(translation) > maxTranslation*maxTranslation {
			v = v.Mul(maxTranslation / translation.Len())
		}

		rotation := h * w
		if rotation*rotation > maxRotation*maxRotation {
			w *= maxRotation / math.Abs(rotation)
		}

		is.positions[i] = position{c.Add(v.Mul(h)), a + h*w}
		is.velocities[i] = velocity{v, w}
	}
}

func (is *island) solveJointPositions(data *solverData) bool {
	ok := true
	for _, j := range is.joints {
		ok = j.solvePositionConstraints(data) && ok
	}
	return ok
}

// solve runs one full step over the island: velocity integration, the
// velocity solver, position integration, position correction and sleep.
func (is *island) solve(profile *Profile, step timeStep, gravity mgl64.Vec2, allowSleep bool) {
	h := step.dt

	is.load()
	for i, b := range is.bodies {
		// the step starts from the current pose
		b.sweep.C0 = b.sweep.C
		b.sweep.A0 = b.sweep.A

		if b.typ != DynamicBody {
			continue
		}
		v, w := is.velocities[i].v, is.velocities[i].w

		v = v.Add(gravity.Mul(b.gravityScale).Add(b.force.Mul(b.invMass)).Mul(h))
		w += h * b.invI * b.torque

		// Pade approximation of the damping ODE, stable for large h
		v = v.Mul(1 / (1 + h*b.linearDamping))
		w *= 1 / (1 + h*b.angularDamping)

		is.velocities[i] = velocity{v, w}
	}

	start := time.Now()
	data := &solverData{
		step:       step,
		positions:  is.positions,
		velocities: is.velocities,
		settings:   is.settings,
	}

	cs := newContactSolver(data, is.contacts, is.cm)
	cs.initializeVelocityConstraints()
	if step.warmStarting {
		cs.warmStart()
	}
	for _, j := range is.joints {
		j.initVelocityConstraints(data, is.cm.body(j.BodyA()), is.cm.body(j.BodyB()))
	}
	profile.SolveInit += time.Since(start)

	start = time.Now()
	for i := 0; i < step.velocityIterations; i++ {
		for _, j := range is.joints {
			j.solveVelocityConstraints(data)
		}
		cs.solveVelocityConstraints()
	}
	cs.storeImpulses()
	profile.SolveVelocity += time.Since(start)

	is.integratePositions(h)

	start = time.Now()
	positionSolved := false
	for i := 0; i < step.positionIterations; i++ {
		contactsOkay := cs.solvePositionConstraints()
		jointsOkay := is.solveJointPositions(data)
		if contactsOkay && jointsOkay {
			// exit early if the position errors are small
			positionSolved = true
			break
		}
	}

	for i, b := range is.bodies {
		b.sweep.C = is.positions[i].c
		b.sweep.A = is.positions[i].a
		b.linearVelocity = is.velocities[i].v
		b.angularVelocity = is.velocities[i].w
		b.synchronizeTransform()
	}
	profile.SolvePosition += time.Since(start)

	is.report(cs)

	if !allowSleep {
		return
	}

	minSleepTime := math.MaxFloat64
	linTolSq := is.settings.LinearSleepTolerance * is.settings.LinearSleepTolerance
	angTolSq := is.settings.AngularSleepTolerance * is.settings.AngularSleepTolerance

	for _, b := range is.bodies {
		if b.typ == StaticBody {
			continue
		}
		if !b.flags.Has(BodyAutoSleep) ||
			b.angularVelocity*b.angularVelocity > angTolSq ||
			b.linearVelocity.Dot(b.linearVelocity) > linTolSq {
			b.sleepTime = 0
			minSleepTime = 0
		} else {
			b.sleepTime += h
			minSleepTime = math.Min(minSleepTime, b.sleepTime)
		}
	}

	if minSleepTime >= is.settings.TimeToSleep && positionSolved {
		for _, b := range is.bodies {
			b.SetAwake(false)
		}
	}
}

// solveTOI resolves the overlap of the two TOI bodies at their new pose,
// then integrates the island over the rest of the sub-step. Other bodies
// are treated as static during position correction.
func (is *island) solveTOI(subStep timeStep, toiIndexA, toiIndexB int) {
	is.load()

	data := &solverData{
		step:       subStep,
		positions:  is.positions,
		velocities: is.velocities,
		settings:   is.settings,
	}
	cs := newContactSolver(data, is.contacts, is.cm)

	for i := 0; i < subStep.positionIterations; i++ {
		if cs.solveTOIPositionConstraints(toiIndexA, toiIndexB) {
			break
		}
	}

	// leap of faith to the new safe state
	bA, bB := is.bodies[toiIndexA], is.bodies[toiIndexB]
	bA.sweep.C0, bA.sweep.A0 = is.positions[toiIndexA].c, is.positions[toiIndexA].a
	bB.sweep.C0, bB.sweep.A0 = is.positions[toiIndexB].c, is.positions[toiIndexB].a

	// no warm starting: the TOI manifold points are new
	cs.initializeVelocityConstraints()
	for i := 0; i < subStep.velocityIterations; i++ {
		cs.solveVelocityConstraints()
	}

	// impulses are not stored; they were computed for the sub-step

	is.integratePositions(subStep.dt)
	for i, b := range is.bodies {
		b.sweep.C = is.positions[i].c
		b.sweep.A = is.positions[i].a
		b.linearVelocity = is.velocities[i].v
		b.angularVelocity = is.velocities[i].w
		b.synchronizeTransform()
	}

	is.report(cs)
}

func (is *island) report(cs *contactSolver) {
	if is.listener == nil {
		return
	}
	for i, c := range is.contacts {
		impulse := cs.impulse(i)
		is.listener.PostSolve(c, &impulse)
	}
}
