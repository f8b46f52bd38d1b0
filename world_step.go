package rigid2d

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ByteArena/rigid2d/collision"
	"github.com/ByteArena/rigid2d/geom"
	"github.com/ByteArena/rigid2d/internal/arena"
)

// Step advances the world by dt seconds: collision, island solve and
// continuous collision. Iteration counts trade accuracy for speed; 8 and
// 3 are typical. Step returns ErrLocked when called from a listener.
func (w *World) Step(dt float64, velocityIterations, positionIterations int) error {
	if err := w.checkLocked("Step"); err != nil {
		return err
	}
	if !geom.IsValid(dt) || dt < 0 {
		return fmt.Errorf("time step %v: %w", dt, ErrInvalidDef)
	}

	start := time.Now()
	w.stats = stepStats{}

	// new fixtures need pairs before the narrow phase
	if w.newFixture {
		w.cm.findNewContacts()
		w.newFixture = false
	}

	w.locked = true
	defer func() { w.locked = false }()

	step := timeStep{
		dt:                 dt,
		dtRatio:            w.invDt0 * dt,
		velocityIterations: velocityIterations,
		positionIterations: positionIterations,
		warmStarting:       w.warmStarting,
	}
	if dt > 0 {
		step.invDt = 1 / dt
	}

	t := time.Now()
	w.cm.collide()
	w.profile.Collide = time.Since(t)

	if w.stepComplete && dt > 0 {
		t = time.Now()
		w.solve(step)
		w.profile.Solve = time.Since(t)
	}

	if w.continuousPhysics && dt > 0 {
		t = time.Now()
		w.solveTOI(step)
		w.profile.SolveTOI = time.Since(t)
	}

	if dt > 0 {
		w.invDt0 = step.invDt
	}

	if w.autoClearForces {
		w.ClearForces()
	}

	w.profile.Step = time.Since(start)

	if w.logger.Enabled(context.Background(), slog.LevelDebug) {
		w.logger.Debug("rigid2d: step",
			"dt", dt,
			"bodies", w.bodies.Len(),
			"contacts", w.cm.contacts.Len(),
			"islands", w.stats.islands,
			"toiEvents", w.stats.toiEvents,
			"elapsed", w.profile.Step)
		if w.stats.exhausted > 0 {
			w.logger.Debug("rigid2d: contacts hit the sub-step budget", "contacts", w.stats.exhausted, "maxSubSteps", w.settings.MaxSubSteps)
		}
	}
	return nil
}

// solve finds islands and solves each of them. Islands are found with an
// explicit worklist over the contact and joint graph.
func (w *World) solve(step timeStep) {
	w.profile.SolveInit = 0
	w.profile.SolveVelocity = 0
	w.profile.SolvePosition = 0

	is := newIsland(&w.cm, &w.settings, w.bodies.Len(), w.cm.contacts.Len(), w.joints.Len())

	// clear all the island flags
	for b := range w.Bodies() {
		b.flags.Set(BodyIsland, false)
	}
	for c := range w.Contacts() {
		c.flags.Set(ContactIsland, false)
	}
	for j := range w.Joints() {
		j.base().island = false
	}

	stack := make([]*Body, 0, w.bodies.Len())

	w.bodies.Each(func(_ arena.Handle, seed *Body) bool {
		if seed.flags.Has(BodyIsland) || !seed.IsAwake() || !seed.IsActive() {
			return true
		}
		// static bodies never seed an island
		if seed.typ == StaticBody {
			return true
		}

		is.clear()
		stack = append(stack[:0], seed)
		seed.flags.Set(BodyIsland, true)

		for len(stack) > 0 {
			b := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			is.addBody(b)

			// make sure the body is awake
			b.flags.Set(BodyAwake, true)

			// static bodies are part of the island but don't propagate it
			if b.typ == StaticBody {
				continue
			}

			for cid := b.contactList; !cid.IsNil(); {
				c := w.cm.contact(cid)
				e := c.edge(b.id)
				cid = e.next

				if c.flags.Has(ContactIsland) || !c.IsEnabled() || !c.IsTouching() {
					continue
				}
				// sensors have no response
				if w.cm.fixture(c.fixtureA).isSensor || w.cm.fixture(c.fixtureB).isSensor {
					continue
				}

				is.addContact(c)
				c.flags.Set(ContactIsland, true)

				other := w.cm.body(e.other)
				if other.flags.Has(BodyIsland) {
					continue
				}
				stack = append(stack, other)
				other.flags.Set(BodyIsland, true)
			}

			for jid := b.jointList; !jid.IsNil(); {
				j := w.cm.joint(jid)
				jb := j.base()
				e := jb.edge(b.id)
				jid = e.next

				if jb.island {
					continue
				}
				other := w.cm.body(e.other)
				if !other.IsActive() {
					continue
				}

				is.addJoint(j)
				jb.island = true

				if other.flags.Has(BodyIsland) {
					continue
				}
				stack = append(stack, other)
				other.flags.Set(BodyIsland, true)
			}
		}

		is.solve(&w.profile, step, w.gravity, w.allowSleep)
		w.stats.islands++

		// static bodies may join other islands
		for _, b := range is.bodies {
			if b.typ == StaticBody {
				b.flags.Set(BodyIsland, false)
			}
		}
		return true
	})

	t := time.Now()
	for b := range w.Bodies() {
		// only bodies that were simulated can have moved
		if !b.flags.Has(BodyIsland) || b.typ == StaticBody {
			continue
		}
		w.synchronizeFixtures(b)
	}
	w.cm.findNewContacts()
	w.profile.Broadphase = time.Since(t)
}

// computeTOI returns the TOI fraction of a contact, or false when the
// contact is not a CCD candidate.
func (w *World) computeTOI(c *Contact) (float64, bool) {
	fA, fB := w.cm.fixture(c.fixtureA), w.cm.fixture(c.fixtureB)
	if fA.isSensor || fB.isSensor {
		return 0, false
	}

	bA, bB := w.cm.body(c.bodyA), w.cm.body(c.bodyB)

	activeA := bA.IsAwake() && bA.typ != StaticBody
	activeB := bB.IsAwake() && bB.typ != StaticBody
	if !activeA && !activeB {
		return 0, false
	}

	// two non-bullet dynamic bodies don't get CCD
	collideA := bA.IsBullet() || bA.typ != DynamicBody
	collideB := bB.IsBullet() || bB.typ != DynamicBody
	if !collideA && !collideB {
		return 0, false
	}

	// put both sweeps on the same time interval
	alpha0 := bA.sweep.Alpha0
	if bA.sweep.Alpha0 < bB.sweep.Alpha0 {
		alpha0 = bB.sweep.Alpha0
		bA.sweep.Advance(alpha0)
	} else if bB.sweep.Alpha0 < bA.sweep.Alpha0 {
		alpha0 = bA.sweep.Alpha0
		bB.sweep.Advance(alpha0)
	}

	sweepA, sweepB := bA.sweep, bB.sweep
	sweepA.Normalize()
	sweepB.Normalize()

	out := collision.TimeOfImpact(&collision.TOIInput{
		ProxyA:            collision.MakeProxy(fA.shape, c.indexA),
		ProxyB:            collision.MakeProxy(fB.shape, c.indexB),
		MotionA:           &sweepA,
		MotionB:           &sweepB,
		TMax:              1,
		LinearSlop:        w.settings.LinearSlop,
		MaxIterations:     w.settings.TOIMaxIterations,
		MaxRootIterations: w.settings.TOIMaxRootIterations,
	})

	// beta is relative to the remaining interval
	if out.State == collision.TOITouching {
		return math.Min(alpha0+(1-alpha0)*out.T, 1), true
	}
	return 1, true
}

// solveTOI finds the earliest time of impact among candidate contacts,
// moves the two bodies there, and solves a sub-step for them and their
// static, kinematic or bullet neighbours. It repeats until no impact is
// left in the step.
func (w *World) solveTOI(step timeStep) {
	maxContacts := w.settings.MaxTOIContacts
	is := newIsland(&w.cm, &w.settings, 2*maxContacts, maxContacts, 0)

	if w.stepComplete {
		for b := range w.Bodies() {
			b.flags.Set(BodyIsland, false)
			b.sweep.Alpha0 = 0
		}
		for c := range w.Contacts() {
			c.flags.Set(ContactTOI|ContactIsland, false)
			c.toiCount = 0
			c.toi = 1
		}
	}

	for {
		// find the first TOI event
		var minContact *Contact
		minAlpha := 1.0

		w.cm.contacts.Each(func(_ arena.Handle, c *Contact) bool {
			if !c.IsEnabled() {
				return true
			}
			// prevent excessive sub-stepping
			if c.toiCount > w.settings.MaxSubSteps {
				w.stats.exhausted++
				return true
			}

			alpha := 1.0
			if c.flags.Has(ContactTOI) {
				alpha = c.toi
			} else {
				a, ok := w.computeTOI(c)
				if !ok {
					return true
				}
				alpha = a
				c.toi = alpha
				c.flags.Set(ContactTOI, true)
			}

			if alpha < minAlpha {
				minContact = c
				minAlpha = alpha
			}
			return true
		})

		if minContact == nil || 1-10*geom.Epsilon < minAlpha {
			w.stepComplete = true
			break
		}
		w.stats.toiEvents++

		bA, bB := w.cm.body(minContact.bodyA), w.cm.body(minContact.bodyB)
		fA, fB := w.cm.fixture(minContact.fixtureA), w.cm.fixture(minContact.fixtureB)

		backupA, backupB := bA.sweep, bB.sweep

		bA.advance(minAlpha)
		bB.advance(minAlpha)

		// the TOI contact likely has some new contact points
		minContact.update(fA, fB, bA, bB, w.cm.listener)
		minContact.flags.Set(ContactTOI, false)
		minContact.toiCount++

		// is the contact solid?
		if !minContact.IsEnabled() || !minContact.IsTouching() {
			// restore the sweeps
			minContact.SetEnabled(false)
			bA.sweep, bB.sweep = backupA, backupB
			bA.synchronizeTransform()
			bB.synchronizeTransform()
			continue
		}

		bA.SetAwake(true)
		bB.SetAwake(true)

		is.clear()
		is.addBody(bA)
		is.addBody(bB)
		is.addContact(minContact)

		bA.flags.Set(BodyIsland, true)
		bB.flags.Set(BodyIsland, true)
		minContact.flags.Set(ContactIsland, true)

		// gather contacts with static, kinematic and bullet neighbours
		for _, body := range [2]*Body{bA, bB} {
			if body.typ != DynamicBody {
				continue
			}
			w.addTOINeighbours(is, body, minAlpha, 2*maxContacts, maxContacts)
		}

		subStep := timeStep{
			dt:                 (1 - minAlpha) * step.dt,
			dtRatio:            1,
			positionIterations: w.settings.TOIPositionIterations,
			velocityIterations: step.velocityIterations,
			warmStarting:       false,
		}
		subStep.invDt = 1 / subStep.dt
		is.solveTOI(subStep, bA.islandIndex, bB.islandIndex)

		// reset island flags and synchronize the broad-phase
		for _, body := range is.bodies {
			body.flags.Set(BodyIsland, false)
			if body.typ != DynamicBody {
				continue
			}
			w.synchronizeFixtures(body)

			// invalidate all contact TOIs on this displaced body
			for cid := body.contactList; !cid.IsNil(); {
				c := w.cm.contact(cid)
				c.flags.Set(ContactTOI|ContactIsland, false)
				cid = c.edge(body.id).next
			}
		}

		// contacts created here get their TOI on the next pass
		w.cm.findNewContacts()

		if w.subStepping {
			w.stepComplete = false
			break
		}
	}
}

func (w *World) addTOINeighbours(is *island, body *Body, minAlpha float64, bodyCap, contactCap int) {
	for cid := body.contactList; !cid.IsNil(); {
		if len(is.bodies) == bodyCap || len(is.contacts) == contactCap {
			return
		}

		c := w.cm.contact(cid)
		e := c.edge(body.id)
		cid = e.next

		if c.flags.Has(ContactIsland) {
			continue
		}

		// only add static, kinematic or bullet bodies
		other := w.cm.body(e.other)
		if other.typ == DynamicBody && !body.IsBullet() && !other.IsBullet() {
			continue
		}

		fA, fB := w.cm.fixture(c.fixtureA), w.cm.fixture(c.fixtureB)
		if fA.isSensor || fB.isSensor {
			continue
		}

		// tentatively advance the body to the TOI
		backup := other.sweep
		if !other.flags.Has(BodyIsland) {
			other.advance(minAlpha)
		}

		c.update(fA, fB, w.cm.body(c.bodyA), w.cm.body(c.bodyB), w.cm.listener)

		if !c.IsEnabled() || !c.IsTouching() {
			other.sweep = backup
			other.synchronizeTransform()
			continue
		}

		c.flags.Set(ContactIsland, true)
		is.addContact(c)

		if other.flags.Has(BodyIsland) {
			continue
		}
		other.flags.Set(BodyIsland, true)
		if other.typ != StaticBody {
			other.SetAwake(true)
		}
		is.addBody(other)
	}
}
