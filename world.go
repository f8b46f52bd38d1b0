package rigid2d

import (
	"fmt"
	"iter"
	"log/slog"

	"github.com/ByteArena/rigid2d/collision"
	"github.com/ByteArena/rigid2d/geom"
	"github.com/ByteArena/rigid2d/internal/arena"
	"github.com/go-gl/mathgl/mgl64"
)

// World manages bodies, fixtures, contacts and joints, and steps the
// simulation. A World must not be used from several goroutines at once;
// independent worlds may run in parallel, see StepAll.
type World struct {
	settings Settings
	logger   *slog.Logger

	bodies   *arena.Arena[*Body]
	fixtures *arena.Arena[*Fixture]
	joints   *arena.Arena[Joint]

	cm contactManager

	destructionListener DestructionListener

	gravity mgl64.Vec2

	allowSleep        bool
	warmStarting      bool
	continuousPhysics bool
	subStepping       bool
	autoClearForces   bool

	// set when fixtures were added since the last pair update
	newFixture bool
	locked     bool

	// false while sub-stepping is spreading a step over several calls
	stepComplete bool

	// inverse of the previous step length, for warm starting
	invDt0 float64

	profile Profile
	stats   stepStats
}

type stepStats struct {
	islands   int
	toiEvents int
	exhausted int
}

// Option configures a World.
type Option func(*World)

// WithSettings replaces the default solver settings. s should pass
// Settings.Validate.
func WithSettings(s Settings) Option {
	return func(w *World) { w.settings = s }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(w *World) { w.logger = l }
}

// WithContactListener installs a listener for contact events.
func WithContactListener(l ContactListener) Option {
	return func(w *World) { w.cm.listener = l }
}

// WithContactFilter replaces the default filter, which applies Filter
// groups, categories and masks.
func WithContactFilter(f ContactFilter) Option {
	return func(w *World) { w.cm.filter = f }
}

// WithDestructionListener installs a listener for fixtures and joints
// destroyed along with their body.
func WithDestructionListener(l DestructionListener) Option {
	return func(w *World) { w.destructionListener = l }
}

// NewWorld creates an empty world with the given gravity.
func NewWorld(gravity mgl64.Vec2, opts ...Option) *World {
	w := &World{
		settings:          DefaultSettings(),
		logger:            slog.New(slog.DiscardHandler),
		bodies:            arena.New[*Body](),
		fixtures:          arena.New[*Fixture](),
		joints:            arena.New[Joint](),
		gravity:           gravity,
		allowSleep:        true,
		warmStarting:      true,
		continuousPhysics: true,
		autoClearForces:   true,
		stepComplete:      true,
	}
	for _, opt := range opts {
		opt(w)
	}

	w.cm.broadPhase = collision.NewBroadPhase(w.settings.AABBExtension, w.settings.AABBMultiplier)
	w.cm.bodies = w.bodies
	w.cm.fixtures = w.fixtures
	w.cm.contacts = arena.New[*Contact]()
	w.cm.joints = w.joints
	if w.cm.filter == nil {
		w.cm.filter = defaultContactFilter{}
	}
	return w
}

// checkLocked rejects structural mutations during a step.
func (w *World) checkLocked(op string) error {
	if !w.locked {
		return nil
	}
	w.logger.Warn("rigid2d: mutation rejected while the world is stepping", "op", op)
	return ErrLocked
}

func (w *World) SetContactListener(l ContactListener)         { w.cm.listener = l }
func (w *World) SetDestructionListener(l DestructionListener) { w.destructionListener = l }

// SetContactFilter installs a filter; nil restores the default.
func (w *World) SetContactFilter(f ContactFilter) {
	if f == nil {
		f = defaultContactFilter{}
	}
	w.cm.filter = f
}

// Body resolves a handle. It returns nil for stale handles.
func (w *World) Body(id BodyID) *Body { return w.cm.body(id) }

// Fixture resolves a handle. It returns nil for stale handles.
func (w *World) Fixture(id FixtureID) *Fixture { return w.cm.fixture(id) }

// Contact resolves a handle. It returns nil for destroyed contacts.
func (w *World) Contact(id ContactID) *Contact { return w.cm.contact(id) }

// Joint resolves a handle. It returns nil for stale handles.
func (w *World) Joint(id JointID) Joint { return w.cm.joint(id) }

func (w *World) lookupBody(id BodyID) (*Body, error) {
	b := w.cm.body(id)
	if b == nil {
		return nil, fmt.Errorf("body %v: %w", id, ErrStaleHandle)
	}
	return b, nil
}

func (w *World) lookupFixture(id FixtureID) (*Fixture, error) {
	f := w.cm.fixture(id)
	if f == nil {
		return nil, fmt.Errorf("fixture %v: %w", id, ErrStaleHandle)
	}
	return f, nil
}

// Bodies iterates the live bodies.
func (w *World) Bodies() iter.Seq[*Body] {
	return func(yield func(*Body) bool) {
		w.bodies.Each(func(_ arena.Handle, b *Body) bool { return yield(b) })
	}
}

// Contacts iterates the live contacts, touching or not.
func (w *World) Contacts() iter.Seq[*Contact] {
	return func(yield func(*Contact) bool) {
		w.cm.contacts.Each(func(_ arena.Handle, c *Contact) bool { return yield(c) })
	}
}

// Joints iterates the live joints.
func (w *World) Joints() iter.Seq[Joint] {
	return func(yield func(Joint) bool) {
		w.joints.Each(func(_ arena.Handle, j Joint) bool { return yield(j) })
	}
}

// BodyFixtures iterates the fixtures of a body, newest first.
func (w *World) BodyFixtures(id BodyID) iter.Seq[*Fixture] {
	return func(yield func(*Fixture) bool) {
		b := w.cm.body(id)
		if b == nil {
			return
		}
		for fid := b.fixtureList; !fid.IsNil(); {
			f := w.cm.fixture(fid)
			if !yield(f) {
				return
			}
			fid = f.next
		}
	}
}

// BodyContacts iterates the contacts of a body.
func (w *World) BodyContacts(id BodyID) iter.Seq[*Contact] {
	return func(yield func(*Contact) bool) {
		b := w.cm.body(id)
		if b == nil {
			return
		}
		for cid := b.contactList; !cid.IsNil(); {
			c := w.cm.contact(cid)
			next := c.edge(b.id).next
			if !yield(c) {
				return
			}
			cid = next
		}
	}
}

func (w *World) BodyCount() int       { return w.bodies.Len() }
func (w *World) FixtureCount() int    { return w.fixtures.Len() }
func (w *World) ContactCount() int    { return w.cm.contacts.Len() }
func (w *World) JointCount() int      { return w.joints.Len() }
func (w *World) ProxyCount() int      { return w.cm.broadPhase.ProxyCount() }
func (w *World) TreeHeight() int      { return w.cm.broadPhase.TreeHeight() }
func (w *World) TreeBalance() int     { return w.cm.broadPhase.TreeBalance() }
func (w *World) TreeQuality() float64 { return w.cm.broadPhase.TreeQuality() }

func (w *World) Gravity() mgl64.Vec2         { return w.gravity }
func (w *World) SetGravity(g mgl64.Vec2)     { w.gravity = g }
func (w *World) IsLocked() bool              { return w.locked }
func (w *World) Profile() Profile            { return w.profile }
func (w *World) Settings() Settings          { return w.settings }
func (w *World) Logger() *slog.Logger        { return w.logger }
func (w *World) AllowSleeping() bool         { return w.allowSleep }
func (w *World) WarmStarting() bool          { return w.warmStarting }
func (w *World) SetWarmStarting(flag bool)   { w.warmStarting = flag }
func (w *World) ContinuousPhysics() bool     { return w.continuousPhysics }
func (w *World) SetContinuousPhysics(f bool) { w.continuousPhysics = f }
func (w *World) SubStepping() bool           { return w.subStepping }
func (w *World) SetSubStepping(flag bool)    { w.subStepping = flag }
func (w *World) AutoClearForces() bool       { return w.autoClearForces }

// SetAutoClearForces controls whether forces are cleared after each step.
// Turn it off to apply forces once while stepping several sub-steps.
func (w *World) SetAutoClearForces(flag bool) { w.autoClearForces = flag }

// SetAllowSleeping enables or disables sleeping world-wide. Disabling
// wakes every body.
func (w *World) SetAllowSleeping(flag bool) {
	if flag == w.allowSleep {
		return
	}
	w.allowSleep = flag
	if !flag {
		for b := range w.Bodies() {
			b.SetAwake(true)
		}
	}
}

// ClearForces zeroes the accumulated force and torque of every body.
func (w *World) ClearForces() {
	for b := range w.Bodies() {
		b.force = mgl64.Vec2{}
		b.torque = 0
	}
}

// CreateBody adds a body with no fixtures. Dynamic bodies start with unit
// mass until fixtures with density are attached.
func (w *World) CreateBody(def BodyDef) (BodyID, error) {
	if err := w.checkLocked("CreateBody"); err != nil {
		return BodyID{}, err
	}
	if err := validateBodyDef(&def); err != nil {
		return BodyID{}, err
	}

	b := newBody(&def)
	b.id = BodyID(w.bodies.Insert(b))
	return b.id, nil
}

func validateBodyDef(def *BodyDef) error {
	switch {
	case !geom.IsValidVec(def.Position):
		return fmt.Errorf("body position %v: %w", def.Position, ErrInvalidDef)
	case !geom.IsValid(def.Angle):
		return fmt.Errorf("body angle %v: %w", def.Angle, ErrInvalidDef)
	case !geom.IsValidVec(def.LinearVelocity):
		return fmt.Errorf("body linear velocity %v: %w", def.LinearVelocity, ErrInvalidDef)
	case !geom.IsValid(def.AngularVelocity):
		return fmt.Errorf("body angular velocity %v: %w", def.AngularVelocity, ErrInvalidDef)
	case !geom.IsValid(def.LinearDamping) || def.LinearDamping < 0:
		return fmt.Errorf("body linear damping %v: %w", def.LinearDamping, ErrInvalidDef)
	case !geom.IsValid(def.AngularDamping) || def.AngularDamping < 0:
		return fmt.Errorf("body angular damping %v: %w", def.AngularDamping, ErrInvalidDef)
	case !geom.IsValid(def.GravityScale):
		return fmt.Errorf("body gravity scale %v: %w", def.GravityScale, ErrInvalidDef)
	}
	return nil
}

// DestroyBody destroys a body with its fixtures, joints and contacts. The
// destruction listener is told about implicitly destroyed fixtures and
// joints.
func (w *World) DestroyBody(id BodyID) error {
	if err := w.checkLocked("DestroyBody"); err != nil {
		return err
	}
	b, err := w.lookupBody(id)
	if err != nil {
		return err
	}

	for !b.jointList.IsNil() {
		j := w.cm.joint(b.jointList)
		if w.destructionListener != nil {
			w.destructionListener.SayGoodbyeToJoint(j)
		}
		w.destroyJoint(j)
	}

	w.cm.destroyBodyContacts(b)

	for fid := b.fixtureList; !fid.IsNil(); {
		f := w.cm.fixture(fid)
		fid = f.next
		if w.destructionListener != nil {
			w.destructionListener.SayGoodbyeToFixture(f)
		}
		f.destroyProxies(w.cm.broadPhase)
		w.fixtures.Remove(arena.Handle(f.id))
	}
	b.fixtureList = FixtureID{}
	b.fixtureCount = 0

	w.bodies.Remove(arena.Handle(id))
	return nil
}

// CreateJoint connects two bodies. Unless the definition allows it,
// contacts between the bodies are dropped on the next step.
func (w *World) CreateJoint(def JointDefinition) (JointID, error) {
	if err := w.checkLocked("CreateJoint"); err != nil {
		return JointID{}, err
	}
	jd := def.jointDef()
	bA, err := w.lookupBody(jd.BodyA)
	if err != nil {
		return JointID{}, err
	}
	bB, err := w.lookupBody(jd.BodyB)
	if err != nil {
		return JointID{}, err
	}
	if bA == bB {
		return JointID{}, fmt.Errorf("joint connects body %v to itself: %w", jd.BodyA, ErrInvalidDef)
	}

	j := def.newJoint()
	jb := j.base()
	jb.id = JointID(w.joints.Insert(j))

	w.linkJoint(bA, jb, &jb.edgeA)
	w.linkJoint(bB, jb, &jb.edgeB)

	if !jd.CollideConnected {
		w.cm.flagContacts(bB, bA.id, FixtureID{})
	}
	return jb.id, nil
}

func (w *World) linkJoint(b *Body, jb *jointBase, e *jointEdge) {
	if jb.bodyA == b.id {
		e.other = jb.bodyB
	} else {
		e.other = jb.bodyA
	}
	e.prev = JointID{}
	e.next = b.jointList
	if !b.jointList.IsNil() {
		w.cm.joint(b.jointList).base().edge(b.id).prev = jb.id
	}
	b.jointList = jb.id
}

func (w *World) unlinkJoint(b *Body, e *jointEdge) {
	if !e.prev.IsNil() {
		w.cm.joint(e.prev).base().edge(b.id).next = e.next
	} else {
		b.jointList = e.next
	}
	if !e.next.IsNil() {
		w.cm.joint(e.next).base().edge(b.id).prev = e.prev
	}
	e.prev, e.next = JointID{}, JointID{}
}

// DestroyJoint removes a joint and wakes both bodies.
func (w *World) DestroyJoint(id JointID) error {
	if err := w.checkLocked("DestroyJoint"); err != nil {
		return err
	}
	j := w.cm.joint(id)
	if j == nil {
		return fmt.Errorf("joint %v: %w", id, ErrStaleHandle)
	}
	w.destroyJoint(j)
	return nil
}

func (w *World) destroyJoint(j Joint) {
	jb := j.base()
	bA := w.cm.body(jb.bodyA)
	bB := w.cm.body(jb.bodyB)

	bA.SetAwake(true)
	bB.SetAwake(true)

	w.unlinkJoint(bA, &jb.edgeA)
	w.unlinkJoint(bB, &jb.edgeB)
	w.joints.Remove(arena.Handle(jb.id))

	// contacts suppressed by the joint may come back
	if !jb.collideConnected {
		w.cm.flagContacts(bB, bA.id, FixtureID{})
	}
}

// QueryAABB calls fn for every fixture whose fat box overlaps aabb.
func (w *World) QueryAABB(fn QueryFunc, aabb collision.AABB) {
	bp := w.cm.broadPhase
	bp.Query(func(proxyID int) bool {
		key := bp.UserData(proxyID).(proxyKey)
		return fn(w.cm.fixture(key.fixture))
	}, aabb)
}

// RayCast calls fn for every fixture hit by the segment from point1 to
// point2. Hits are reported in no particular order; fn's return value
// clips or ends the ray.
func (w *World) RayCast(fn RayCastFunc, point1, point2 mgl64.Vec2) {
	bp := w.cm.broadPhase
	input := collision.RayCastInput{P1: point1, P2: point2, MaxFraction: 1}
	bp.RayCast(func(in collision.RayCastInput, proxyID int) float64 {
		key := bp.UserData(proxyID).(proxyKey)
		f := w.cm.fixture(key.fixture)
		b := w.cm.body(f.body)
		out, hit := f.shape.RayCast(in, b.xf, key.child)
		if !hit {
			return in.MaxFraction
		}
		point := in.P1.Mul(1 - out.Fraction).Add(in.P2.Mul(out.Fraction))
		return fn(f, point, out.Normal, out.Fraction)
	}, input)
}

// ShiftOrigin moves the world origin to newOrigin. Useful for large
// worlds; every position is translated by -newOrigin.
func (w *World) ShiftOrigin(newOrigin mgl64.Vec2) error {
	if err := w.checkLocked("ShiftOrigin"); err != nil {
		return err
	}
	for b := range w.Bodies() {
		b.xf.P = b.xf.P.Sub(newOrigin)
		b.sweep.C0 = b.sweep.C0.Sub(newOrigin)
		b.sweep.C = b.sweep.C.Sub(newOrigin)
	}
	w.cm.broadPhase.ShiftOrigin(newOrigin)
	return nil
}
