package rigid2d

import (
	"fmt"

	"github.com/ByteArena/rigid2d/collision"
	"github.com/ByteArena/rigid2d/geom"
	"github.com/ByteArena/rigid2d/internal/arena"
	"github.com/go-gl/mathgl/mgl64"
)

// CreateFixture attaches a shape to a body. Proxies are created only if
// the body is active, and the body mass is updated if the density is
// positive. Contacts for the new fixture appear on the next step.
func (w *World) CreateFixture(bodyID BodyID, def FixtureDef) (FixtureID, error) {
	if err := w.checkLocked("CreateFixture"); err != nil {
		return FixtureID{}, err
	}
	b, err := w.lookupBody(bodyID)
	if err != nil {
		return FixtureID{}, err
	}
	if err := validateFixtureDef(&def); err != nil {
		return FixtureID{}, err
	}

	f := newFixture(b.id, &def)
	f.id = FixtureID(w.fixtures.Insert(f))
	f.next = b.fixtureList
	b.fixtureList = f.id
	b.fixtureCount++

	if b.IsActive() {
		f.createProxies(w.cm.broadPhase, b)
	}
	if f.density > 0 {
		w.resetMassData(b)
	}

	// let the next step find contacts for the new fixture
	w.newFixture = true
	return f.id, nil
}

func validateFixtureDef(def *FixtureDef) error {
	switch {
	case def.Shape == nil:
		return fmt.Errorf("fixture shape is nil: %w", ErrInvalidDef)
	case !geom.IsValid(def.Density) || def.Density < 0:
		return fmt.Errorf("fixture density %v: %w", def.Density, ErrInvalidDef)
	case !geom.IsValid(def.Friction) || def.Friction < 0:
		return fmt.Errorf("fixture friction %v: %w", def.Friction, ErrInvalidDef)
	case !geom.IsValid(def.Restitution) || def.Restitution < 0:
		return fmt.Errorf("fixture restitution %v: %w", def.Restitution, ErrInvalidDef)
	}
	return nil
}

// DestroyFixture removes a fixture, its contacts and its proxies, then
// recomputes the body mass. It panics if the fixture belongs to another
// body.
func (w *World) DestroyFixture(bodyID BodyID, fixtureID FixtureID) error {
	if err := w.checkLocked("DestroyFixture"); err != nil {
		return err
	}
	b, err := w.lookupBody(bodyID)
	if err != nil {
		return err
	}
	f, err := w.lookupFixture(fixtureID)
	if err != nil {
		return err
	}
	if f.body != b.id {
		panic(fmt.Sprintf("rigid2d: fixture %v is not owned by body %v", fixtureID, bodyID))
	}

	// unlink from the body's fixture chain
	if b.fixtureList == f.id {
		b.fixtureList = f.next
	} else {
		prev := w.cm.fixture(b.fixtureList)
		for prev.next != f.id {
			prev = w.cm.fixture(prev.next)
		}
		prev.next = f.next
	}

	w.cm.destroyFixtureContacts(b, f)
	f.destroyProxies(w.cm.broadPhase)

	w.fixtures.Remove(arena.Handle(f.id))
	b.fixtureCount--

	w.resetMassData(b)
	return nil
}

// SetTransform teleports a body. The sweep is reset to the new pose and
// the proxies are moved without motion prediction.
func (w *World) SetTransform(id BodyID, position mgl64.Vec2, angle float64) error {
	if err := w.checkLocked("SetTransform"); err != nil {
		return err
	}
	b, err := w.lookupBody(id)
	if err != nil {
		return err
	}
	if !geom.IsValidVec(position) || !geom.IsValid(angle) {
		return fmt.Errorf("transform %v, %v: %w", position, angle, ErrInvalidDef)
	}

	b.xf = geom.NewTransform(position, angle)
	b.sweep.C = b.xf.Apply(b.sweep.LocalCenter)
	b.sweep.A = angle
	b.sweep.C0 = b.sweep.C
	b.sweep.A0 = angle

	for f := range w.BodyFixtures(id) {
		f.synchronize(w.cm.broadPhase, b.xf, b.xf)
	}
	return nil
}

// SetType changes the body type. Mass is reset, contacts are destroyed
// and proxies are touched so pairs are re-evaluated. Setting the current
// type does nothing.
func (w *World) SetType(id BodyID, typ BodyType) error {
	if err := w.checkLocked("SetType"); err != nil {
		return err
	}
	b, err := w.lookupBody(id)
	if err != nil {
		return err
	}
	if b.typ == typ {
		return nil
	}

	b.typ = typ
	w.resetMassData(b)

	if typ == StaticBody {
		b.linearVelocity = mgl64.Vec2{}
		b.angularVelocity = 0
		b.commitSweep()
		w.synchronizeFixtures(b)
	}

	b.SetAwake(true)
	b.force = mgl64.Vec2{}
	b.torque = 0

	w.cm.destroyBodyContacts(b)

	for f := range w.BodyFixtures(id) {
		f.touchProxies(w.cm.broadPhase)
	}
	return nil
}

// SetActive adds the body to or removes it from the simulation. Inactive
// bodies keep their fixtures but have no proxies and no contacts;
// reactivated bodies get their contacts back on the next step.
func (w *World) SetActive(id BodyID, flag bool) error {
	if err := w.checkLocked("SetActive"); err != nil {
		return err
	}
	b, err := w.lookupBody(id)
	if err != nil {
		return err
	}
	if flag == b.IsActive() {
		return nil
	}

	b.flags.Set(BodyActive, flag)
	if flag {
		for f := range w.BodyFixtures(id) {
			f.createProxies(w.cm.broadPhase, b)
		}
		return nil
	}

	for f := range w.BodyFixtures(id) {
		f.destroyProxies(w.cm.broadPhase)
	}
	w.cm.destroyBodyContacts(b)
	return nil
}

// SetFixedRotation locks or unlocks rotation. The angular velocity is
// zeroed and the mass recomputed.
func (w *World) SetFixedRotation(id BodyID, flag bool) error {
	if err := w.checkLocked("SetFixedRotation"); err != nil {
		return err
	}
	b, err := w.lookupBody(id)
	if err != nil {
		return err
	}
	if b.IsFixedRotation() == flag {
		return nil
	}

	b.flags.Set(BodyFixedRotation, flag)
	b.angularVelocity = 0
	w.resetMassData(b)
	return nil
}

// SetMassData overrides the mass properties of a dynamic body. md.I is
// about the body origin; the inertia about the new center is derived with
// the parallel axis theorem.
func (w *World) SetMassData(id BodyID, md collision.MassData) error {
	if err := w.checkLocked("SetMassData"); err != nil {
		return err
	}
	b, err := w.lookupBody(id)
	if err != nil {
		return err
	}
	if b.typ != DynamicBody {
		return nil
	}

	b.mass = md.Mass
	if b.mass <= 0 {
		w.logger.Debug("rigid2d: non-positive mass replaced by 1", "body", id, "mass", md.Mass)
		b.mass = 1
	}
	b.invMass = 1 / b.mass

	b.i, b.invI = 0, 0
	if md.I > 0 && !b.IsFixedRotation() {
		i := md.I - b.mass*md.Center.Dot(md.Center)
		if i > 0 {
			b.i = i
			b.invI = 1 / i
		} else {
			w.logger.Debug("rigid2d: non-positive central inertia replaced by 0", "body", id, "inertia", i)
		}
	}

	b.setCenter(md.Center)
	return nil
}

// ResetMassData recomputes the mass properties from the fixtures. It
// normally does not need to be called: fixture creation and destruction
// already do.
func (w *World) ResetMassData(id BodyID) error {
	if err := w.checkLocked("ResetMassData"); err != nil {
		return err
	}
	b, err := w.lookupBody(id)
	if err != nil {
		return err
	}
	w.resetMassData(b)
	return nil
}

func (w *World) resetMassData(b *Body) {
	b.mass, b.invMass = 0, 0
	b.i, b.invI = 0, 0
	b.sweep.LocalCenter = mgl64.Vec2{}

	// static and kinematic bodies have zero mass
	if b.typ != DynamicBody {
		b.sweep.C0 = b.xf.P
		b.sweep.C = b.xf.P
		b.sweep.A0 = b.sweep.A
		return
	}

	var localCenter mgl64.Vec2
	for f := range w.BodyFixtures(b.id) {
		if f.density == 0 {
			continue
		}
		md := f.MassData()
		b.mass += md.Mass
		localCenter = localCenter.Add(md.Center.Mul(md.Mass))
		b.i += md.I
	}

	if b.mass > 0 {
		b.invMass = 1 / b.mass
		localCenter = localCenter.Mul(b.invMass)
	} else {
		w.logger.Debug("rigid2d: dynamic body without density gets unit mass", "body", b.id)
		b.mass = 1
		b.invMass = 1
	}

	if b.i > 0 && !b.IsFixedRotation() {
		// inertia about the center of mass; the subtraction cancels for
		// small shapes far from the body origin
		b.i -= b.mass * localCenter.Dot(localCenter)
		if b.i > 0 {
			b.invI = 1 / b.i
		} else {
			w.logger.Debug("rigid2d: non-positive central inertia replaced by 0", "body", b.id, "inertia", b.i)
			b.i = 0
			b.invI = 0
		}
	} else {
		b.i = 0
		b.invI = 0
	}

	b.setCenter(localCenter)
}

// ShouldCollide reports whether fixtures on the two bodies may collide:
// at least one body must be dynamic and no joint between them may have
// CollideConnected unset.
func (w *World) ShouldCollide(a, b BodyID) bool {
	bA, bB := w.cm.body(a), w.cm.body(b)
	if bA == nil || bB == nil {
		return false
	}
	return w.cm.shouldCollide(bA, bB)
}

// Advance collapses the body sweep to fraction alpha of the step without
// touching the broad-phase.
func (w *World) Advance(id BodyID, alpha float64) {
	if b := w.cm.body(id); b != nil {
		b.advance(alpha)
	}
}

// synchronizeFixtures moves the proxies to cover the swept motion of the
// step.
func (w *World) synchronizeFixtures(b *Body) {
	xf1 := b.sweep.TransformAt(0)
	for fid := b.fixtureList; !fid.IsNil(); {
		f := w.cm.fixture(fid)
		f.synchronize(w.cm.broadPhase, xf1, b.xf)
		fid = f.next
	}
}

// SetFilterData changes the collision filter. Existing contacts are
// re-filtered on the next step.
func (w *World) SetFilterData(id FixtureID, filter Filter) error {
	if err := w.checkLocked("SetFilterData"); err != nil {
		return err
	}
	f, err := w.lookupFixture(id)
	if err != nil {
		return err
	}
	f.filter = filter
	w.refilter(f)
	return nil
}

func (w *World) refilter(f *Fixture) {
	b := w.cm.body(f.body)
	w.cm.flagContacts(b, BodyID{}, f.id)
	f.touchProxies(w.cm.broadPhase)
}

// SetSensor turns a fixture into a sensor or back. Sensors detect
// overlap but never generate collision response.
func (w *World) SetSensor(id FixtureID, flag bool) error {
	if err := w.checkLocked("SetSensor"); err != nil {
		return err
	}
	f, err := w.lookupFixture(id)
	if err != nil {
		return err
	}
	if f.isSensor == flag {
		return nil
	}
	f.isSensor = flag
	w.cm.body(f.body).SetAwake(true)
	w.refilter(f)
	return nil
}

// TestPoint reports whether a world point lies inside the fixture.
func (w *World) TestPoint(id FixtureID, p mgl64.Vec2) bool {
	f := w.cm.fixture(id)
	if f == nil {
		return false
	}
	return f.shape.TestPoint(w.cm.body(f.body).xf, p)
}

// RayCastFixture casts a ray against one child of a fixture.
func (w *World) RayCastFixture(id FixtureID, input collision.RayCastInput, child int) (collision.RayCastOutput, bool) {
	f := w.cm.fixture(id)
	if f == nil {
		return collision.RayCastOutput{}, false
	}
	return f.shape.RayCast(input, w.cm.body(f.body).xf, child)
}

// WorldManifold evaluates a contact manifold at the current body
// transforms.
func (w *World) WorldManifold(c *Contact) collision.WorldManifold {
	var wm collision.WorldManifold
	fA, fB := w.cm.fixture(c.fixtureA), w.cm.fixture(c.fixtureB)
	bA, bB := w.cm.body(c.bodyA), w.cm.body(c.bodyB)
	wm.Initialize(&c.manifold, bA.xf, fA.shape.Radius(), bB.xf, fB.shape.Radius())
	return wm
}

// ResetFriction restores the mixed fixture friction of a contact.
func (w *World) ResetFriction(c *Contact) {
	c.friction = MixFriction(w.cm.fixture(c.fixtureA).friction, w.cm.fixture(c.fixtureB).friction)
}

// ResetRestitution restores the mixed fixture restitution of a contact.
func (w *World) ResetRestitution(c *Contact) {
	c.restitution = MixRestitution(w.cm.fixture(c.fixtureA).restitution, w.cm.fixture(c.fixtureB).restitution)
}
