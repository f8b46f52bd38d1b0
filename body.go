package rigid2d

import (
	"github.com/ByteArena/rigid2d/collision"
	"github.com/ByteArena/rigid2d/geom"
	"github.com/ByteArena/rigid2d/internal/arena"
	"github.com/go-gl/mathgl/mgl64"
)

// BodyType selects how a body is simulated.
//
//	static: zero mass, zero velocity, may be manually moved
//	kinematic: zero mass, velocity set by the user, moved by the solver
//	dynamic: positive mass, velocity determined by forces, moved by the solver
type BodyType uint8

const (
	StaticBody BodyType = iota
	KinematicBody
	DynamicBody
)

func (t BodyType) String() string {
	switch t {
	case KinematicBody:
		return "kinematic"
	case DynamicBody:
		return "dynamic"
	}
	return "static"
}

// BodyID is a handle to a body owned by a World.
type BodyID arena.Handle

// IsNil reports whether id is the zero handle.
func (id BodyID) IsNil() bool { return id.Index == 0 }

// BodyDef holds the data needed to construct a rigid body. It can be
// reused; fixtures are added after construction.
type BodyDef struct {
	// Type of the body. A dynamic body with zero mass gets a mass of one.
	Type BodyType

	// Position of the body origin. Avoid creating bodies at the origin
	// since this can lead to many overlapping shapes.
	Position mgl64.Vec2

	// Angle in radians.
	Angle float64

	// LinearVelocity of the body origin in world coordinates.
	LinearVelocity  mgl64.Vec2
	AngularVelocity float64

	// Damping reduces velocity, in units of 1/time. Values above 1 make
	// the effect sensitive to the time step.
	LinearDamping  float64
	AngularDamping float64

	// AllowSleep set to false keeps the body awake at the cost of CPU.
	AllowSleep bool

	// Awake sets the initial sleep state.
	Awake bool

	// FixedRotation prevents rotation. Useful for characters.
	FixedRotation bool

	// Bullet bodies get continuous collision against other dynamic bodies.
	// Use it sparingly: all bodies already get it against static and
	// kinematic bodies.
	Bullet bool

	// Active sets whether the body starts in the simulation.
	Active bool

	UserData any

	// GravityScale scales the gravity applied to this body.
	GravityScale float64
}

// DefaultBodyDef returns a static, awake, active body definition at the
// origin.
func DefaultBodyDef() BodyDef {
	return BodyDef{
		Type:         StaticBody,
		AllowSleep:   true,
		Awake:        true,
		Active:       true,
		GravityScale: 1,
	}
}

// Body is a rigid body. Obtain one with World.Body; operations that touch
// fixtures, contacts or the broad-phase live on World.
type Body struct {
	id          BodyID
	typ         BodyType
	flags       BodyFlags
	islandIndex int

	xf    geom.Transform // body origin transform
	sweep Sweep          // swept motion for CCD

	linearVelocity  mgl64.Vec2
	angularVelocity float64

	force  mgl64.Vec2
	torque float64

	fixtureList  FixtureID
	fixtureCount int
	contactList  ContactID
	jointList    JointID

	mass, invMass float64

	// rotational inertia about the center of mass
	i, invI float64

	linearDamping  float64
	angularDamping float64
	gravityScale   float64

	sleepTime float64

	userData any
}

func newBody(def *BodyDef) *Body {
	b := &Body{
		typ:             def.Type,
		xf:              geom.NewTransform(def.Position, def.Angle),
		linearVelocity:  def.LinearVelocity,
		angularVelocity: def.AngularVelocity,
		linearDamping:   def.LinearDamping,
		angularDamping:  def.AngularDamping,
		gravityScale:    def.GravityScale,
		userData:        def.UserData,
	}
	b.flags.Set(BodyBullet, def.Bullet)
	b.flags.Set(BodyFixedRotation, def.FixedRotation)
	b.flags.Set(BodyAutoSleep, def.AllowSleep)
	b.flags.Set(BodyAwake, def.Awake)
	b.flags.Set(BodyActive, def.Active)

	b.sweep.C0 = def.Position
	b.sweep.C = def.Position
	b.sweep.A0 = def.Angle
	b.sweep.A = def.Angle

	if b.typ == DynamicBody {
		b.mass = 1
		b.invMass = 1
	}
	return b
}

func (b *Body) ID() BodyID                    { return b.id }
func (b *Body) Type() BodyType                { return b.typ }
func (b *Body) Flags() BodyFlags              { return b.flags }
func (b *Body) Transform() geom.Transform     { return b.xf }
func (b *Body) Position() mgl64.Vec2          { return b.xf.P }
func (b *Body) Angle() float64                { return b.sweep.A }
func (b *Body) Sweep() Sweep                  { return b.sweep }
func (b *Body) WorldCenter() mgl64.Vec2       { return b.sweep.C }
func (b *Body) LocalCenter() mgl64.Vec2       { return b.sweep.LocalCenter }
func (b *Body) LinearVelocity() mgl64.Vec2    { return b.linearVelocity }
func (b *Body) AngularVelocity() float64      { return b.angularVelocity }
func (b *Body) Force() mgl64.Vec2             { return b.force }
func (b *Body) Torque() float64               { return b.torque }
func (b *Body) Mass() float64                 { return b.mass }
func (b *Body) InvMass() float64              { return b.invMass }
func (b *Body) LinearDamping() float64        { return b.linearDamping }
func (b *Body) AngularDamping() float64       { return b.angularDamping }
func (b *Body) GravityScale() float64         { return b.gravityScale }
func (b *Body) FixtureList() FixtureID        { return b.fixtureList }
func (b *Body) FixtureCount() int             { return b.fixtureCount }
func (b *Body) ContactList() ContactID        { return b.contactList }
func (b *Body) JointList() JointID            { return b.jointList }
func (b *Body) UserData() any                 { return b.userData }
func (b *Body) SetUserData(data any)          { b.userData = data }
func (b *Body) SetLinearDamping(d float64)    { b.linearDamping = d }
func (b *Body) SetAngularDamping(d float64)   { b.angularDamping = d }
func (b *Body) SetGravityScale(scale float64) { b.gravityScale = scale }
func (b *Body) IsAwake() bool                 { return b.flags.Has(BodyAwake) }
func (b *Body) IsActive() bool                { return b.flags.Has(BodyActive) }
func (b *Body) IsBullet() bool                { return b.flags.Has(BodyBullet) }
func (b *Body) IsFixedRotation() bool         { return b.flags.Has(BodyFixedRotation) }
func (b *Body) IsSleepingAllowed() bool       { return b.flags.Has(BodyAutoSleep) }

// Inertia returns the rotational inertia about the body origin.
func (b *Body) Inertia() float64 {
	return b.i + b.mass*geom.LenSq(b.sweep.LocalCenter)
}

// MassData returns the mass, the local center of mass and the inertia
// about the body origin.
func (b *Body) MassData() collision.MassData {
	return collision.MassData{
		Mass:   b.mass,
		Center: b.sweep.LocalCenter,
		I:      b.Inertia(),
	}
}

// SetLinearVelocity is ignored for static bodies. A non-zero velocity
// wakes the body.
func (b *Body) SetLinearVelocity(v mgl64.Vec2) {
	if b.typ == StaticBody {
		return
	}
	if v.Dot(v) > 0 {
		b.SetAwake(true)
	}
	b.linearVelocity = v
}

// SetAngularVelocity is ignored for static bodies. A non-zero velocity
// wakes the body.
func (b *Body) SetAngularVelocity(w float64) {
	if b.typ == StaticBody {
		return
	}
	if w*w > 0 {
		b.SetAwake(true)
	}
	b.angularVelocity = w
}

// SetBullet enables continuous collision against dynamic bodies.
func (b *Body) SetBullet(flag bool) {
	b.flags.Set(BodyBullet, flag)
}

// SetAwake wakes the body or puts it to sleep. A change of state resets
// the sleep timer; sleeping also clears velocity and accumulated force.
func (b *Body) SetAwake(flag bool) {
	if flag {
		if !b.IsAwake() {
			b.flags.Set(BodyAwake, true)
			b.sleepTime = 0
		}
		return
	}
	b.sleepTime = 0
	b.flags.Set(BodyAwake, false)
	b.linearVelocity = mgl64.Vec2{}
	b.angularVelocity = 0
	b.force = mgl64.Vec2{}
	b.torque = 0
}

// SetSleepingAllowed toggles auto-sleep. Disallowing sleep wakes the body.
func (b *Body) SetSleepingAllowed(flag bool) {
	b.flags.Set(BodyAutoSleep, flag)
	if !flag {
		b.SetAwake(true)
	}
}

// wakeForInput wakes a dynamic body if asked and reports whether input
// may be accumulated.
func (b *Body) wakeForInput(wake bool) bool {
	if b.typ != DynamicBody {
		return false
	}
	if wake && !b.IsAwake() {
		b.SetAwake(true)
	}
	// sleeping bodies drop forces and impulses
	return b.IsAwake()
}

// ApplyForce applies a world force at a world point. Off-center forces
// also produce torque.
func (b *Body) ApplyForce(force, point mgl64.Vec2, wake bool) {
	if !b.wakeForInput(wake) {
		return
	}
	b.force = b.force.Add(force)
	b.torque += geom.Cross(point.Sub(b.sweep.C), force)
}

// ApplyForceToCenter applies a world force at the center of mass.
func (b *Body) ApplyForceToCenter(force mgl64.Vec2, wake bool) {
	if !b.wakeForInput(wake) {
		return
	}
	b.force = b.force.Add(force)
}

// ApplyTorque applies a torque about the z-axis.
func (b *Body) ApplyTorque(torque float64, wake bool) {
	if !b.wakeForInput(wake) {
		return
	}
	b.torque += torque
}

// ApplyLinearImpulse changes velocity immediately by impulse applied at a
// world point.
func (b *Body) ApplyLinearImpulse(impulse, point mgl64.Vec2, wake bool) {
	if !b.wakeForInput(wake) {
		return
	}
	b.linearVelocity = b.linearVelocity.Add(impulse.Mul(b.invMass))
	b.angularVelocity += b.invI * geom.Cross(point.Sub(b.sweep.C), impulse)
}

// ApplyLinearImpulseToCenter applies an impulse at the center of mass.
func (b *Body) ApplyLinearImpulseToCenter(impulse mgl64.Vec2, wake bool) {
	if !b.wakeForInput(wake) {
		return
	}
	b.linearVelocity = b.linearVelocity.Add(impulse.Mul(b.invMass))
}

// ApplyAngularImpulse changes angular velocity immediately.
func (b *Body) ApplyAngularImpulse(impulse float64, wake bool) {
	if !b.wakeForInput(wake) {
		return
	}
	b.angularVelocity += b.invI * impulse
}

// WorldPoint converts a body-local point to world coordinates.
func (b *Body) WorldPoint(localPoint mgl64.Vec2) mgl64.Vec2 {
	return b.xf.Apply(localPoint)
}

// WorldVector rotates a body-local vector into world coordinates.
func (b *Body) WorldVector(localVector mgl64.Vec2) mgl64.Vec2 {
	return b.xf.Q.Apply(localVector)
}

// LocalPoint converts a world point to body-local coordinates.
func (b *Body) LocalPoint(worldPoint mgl64.Vec2) mgl64.Vec2 {
	return b.xf.ApplyT(worldPoint)
}

// LocalVector rotates a world vector into body-local coordinates.
func (b *Body) LocalVector(worldVector mgl64.Vec2) mgl64.Vec2 {
	return b.xf.Q.ApplyT(worldVector)
}

// LinearVelocityFromWorldPoint returns the world velocity of a world point
// attached to this body.
func (b *Body) LinearVelocityFromWorldPoint(worldPoint mgl64.Vec2) mgl64.Vec2 {
	return b.linearVelocity.Add(geom.CrossSV(b.angularVelocity, worldPoint.Sub(b.sweep.C)))
}

// LinearVelocityFromLocalPoint returns the world velocity of a local point.
func (b *Body) LinearVelocityFromLocalPoint(localPoint mgl64.Vec2) mgl64.Vec2 {
	return b.LinearVelocityFromWorldPoint(b.WorldPoint(localPoint))
}

func (b *Body) synchronizeTransform() {
	b.xf.Q = geom.NewRot(b.sweep.A)
	b.xf.P = b.sweep.C.Sub(b.xf.Q.Apply(b.sweep.LocalCenter))
}

// advance collapses the sweep to the pose at alpha. The broad-phase is not
// synchronized.
func (b *Body) advance(alpha float64) {
	b.sweep.Advance(alpha)
	b.sweep.C = b.sweep.C0
	b.sweep.A = b.sweep.A0
	b.synchronizeTransform()
}

// commitSweep makes the start of the sweep equal its end.
func (b *Body) commitSweep() {
	b.sweep.C0 = b.sweep.C
	b.sweep.A0 = b.sweep.A
}

// setCenter moves the center of mass to localCenter and keeps the
// velocity of the old center unchanged.
func (b *Body) setCenter(localCenter mgl64.Vec2) {
	oldCenter := b.sweep.C
	b.sweep.LocalCenter = localCenter
	b.sweep.C = b.xf.Apply(localCenter)
	b.sweep.C0 = b.sweep.C
	b.linearVelocity = b.linearVelocity.Add(geom.CrossSV(b.angularVelocity, b.sweep.C.Sub(oldCenter)))
}
