package rigid2d

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/ByteArena/rigid2d/collision"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	dt60 = 1.0 / 60.0
	tol  = 1e-9
)

func dynamicDef(x, y float64) BodyDef {
	def := DefaultBodyDef()
	def.Type = DynamicBody
	def.Position = mgl64.Vec2{x, y}
	return def
}

// addBody creates a body with one fixture of density 1 per shape.
func addBody(t *testing.T, w *World, def BodyDef, shapes ...collision.Shape) BodyID {
	t.Helper()
	id, err := w.CreateBody(def)
	require.NoError(t, err)
	for _, s := range shapes {
		fd := DefaultFixtureDef(s)
		fd.Density = 1
		_, err := w.CreateFixture(id, fd)
		require.NoError(t, err)
	}
	return id
}

// addGround creates a static slab whose top face is at y = 0.
func addGround(t *testing.T, w *World) BodyID {
	t.Helper()
	def := DefaultBodyDef()
	def.Position = mgl64.Vec2{0, -0.5}
	return addBody(t, w, def, collision.NewBox(20, 0.5))
}

func stepN(t *testing.T, w *World, n int) {
	t.Helper()
	for range n {
		require.NoError(t, w.Step(dt60, 8, 3))
	}
}

type recordingListener struct {
	NopContactListener
	begin, end, preSolve, postSolve int
	onBegin                         func(c *Contact)
}

func (l *recordingListener) BeginContact(c *Contact) {
	l.begin++
	if l.onBegin != nil {
		l.onBegin(c)
	}
}
func (l *recordingListener) EndContact(*Contact)                    { l.end++ }
func (l *recordingListener) PreSolve(*Contact, *collision.Manifold) { l.preSolve++ }
func (l *recordingListener) PostSolve(*Contact, *ContactImpulse)    { l.postSolve++ }

type goodbyeCounter struct {
	fixtures, joints int
}

func (g *goodbyeCounter) SayGoodbyeToFixture(*Fixture) { g.fixtures++ }
func (g *goodbyeCounter) SayGoodbyeToJoint(Joint)      { g.joints++ }

func TestBoxFallsAndRestsOnGround(t *testing.T) {
	w := NewWorld(mgl64.Vec2{0, -10})
	addGround(t, w)
	box := addBody(t, w, dynamicDef(0, 4), collision.NewBox(0.5, 0.5))

	stepN(t, w, 180)

	b := w.Body(box)
	assert.InDelta(t, 0.5, b.Position().Y(), 0.05)
	assert.InDelta(t, 0, b.Position().X(), 0.01)
	assert.InDelta(t, 0, b.Angle(), 0.01)
	assert.Equal(t, 1, w.ContactCount())
}

func TestAllowSleepFalseNeverSleeps(t *testing.T) {
	w := NewWorld(mgl64.Vec2{0, -10})
	addGround(t, w)

	sleepy := addBody(t, w, dynamicDef(-5, 0.5), collision.NewBox(0.5, 0.5))
	def := dynamicDef(5, 0.5)
	def.AllowSleep = false
	insomniac := addBody(t, w, def, collision.NewBox(0.5, 0.5))

	for range 300 {
		require.NoError(t, w.Step(dt60, 8, 3))
		require.True(t, w.Body(insomniac).IsAwake())
	}
	assert.False(t, w.Body(sleepy).IsAwake())
}

func TestSetAllowSleepingWakesBodies(t *testing.T) {
	w := NewWorld(mgl64.Vec2{0, -10})
	addGround(t, w)
	box := addBody(t, w, dynamicDef(0, 0.5), collision.NewBox(0.5, 0.5))

	stepN(t, w, 300)
	require.False(t, w.Body(box).IsAwake())

	w.SetAllowSleeping(false)
	assert.True(t, w.Body(box).IsAwake())
	stepN(t, w, 120)
	assert.True(t, w.Body(box).IsAwake())
}

func TestBulletStopsAtThinWall(t *testing.T) {
	run := func(continuous bool) *Body {
		w := NewWorld(mgl64.Vec2{})
		w.SetContinuousPhysics(continuous)

		wall := DefaultBodyDef()
		wall.Position = mgl64.Vec2{10, 0}
		addBody(t, w, wall, collision.NewBox(0.05, 2))

		def := dynamicDef(0, 0)
		def.Bullet = true
		def.LinearVelocity = mgl64.Vec2{400, 0}
		id := addBody(t, w, def, collision.NewCircle(mgl64.Vec2{}, 0.25))

		stepN(t, w, 2)
		return w.Body(id)
	}

	// the discrete step jumps the body past the wall
	assert.Greater(t, run(false).Position().X(), 10.5)

	// with CCD it stops at the first contact: wall face minus the radii
	b := run(true)
	assert.InDelta(t, 10-0.05-0.25, b.Position().X(), 0.05)
	assert.Less(t, b.LinearVelocity().X(), 400.0)
}

func TestJointWithoutCollideConnectedSuppressesContacts(t *testing.T) {
	build := func(joined bool) *World {
		w := NewWorld(mgl64.Vec2{})
		a := addBody(t, w, dynamicDef(0, 0), collision.NewCircle(mgl64.Vec2{}, 0.5))
		b := addBody(t, w, dynamicDef(0.5, 0), collision.NewCircle(mgl64.Vec2{}, 0.5))
		if joined {
			def := NewDistanceJointDef(w.Body(a), w.Body(b), mgl64.Vec2{0, 0}, mgl64.Vec2{0.5, 0})
			_, err := w.CreateJoint(&def)
			require.NoError(t, err)
		}
		return w
	}

	free := build(false)
	stepN(t, free, 1)
	assert.Equal(t, 1, free.ContactCount())

	joined := build(true)
	for range 10 {
		require.NoError(t, joined.Step(dt60, 8, 3))
		require.Zero(t, joined.ContactCount())
	}
}

func TestCreateJointDropsExistingContact(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})
	a := addBody(t, w, dynamicDef(0, 0), collision.NewCircle(mgl64.Vec2{}, 0.5))
	b := addBody(t, w, dynamicDef(0.5, 0), collision.NewCircle(mgl64.Vec2{}, 0.5))
	stepN(t, w, 1)
	require.Equal(t, 1, w.ContactCount())

	def := NewDistanceJointDef(w.Body(a), w.Body(b), mgl64.Vec2{0, 0}, mgl64.Vec2{0.5, 0})
	_, err := w.CreateJoint(&def)
	require.NoError(t, err)
	assert.False(t, w.ShouldCollide(a, b))

	stepN(t, w, 1)
	assert.Zero(t, w.ContactCount())
}

func TestDestroyFixtureRemovesContactsAndResetsMass(t *testing.T) {
	w := NewWorld(mgl64.Vec2{0, -10})
	addGround(t, w)

	id := addBody(t, w, dynamicDef(0, 0.4), collision.NewBox(0.5, 0.5))
	b := w.Body(id)
	box := b.FixtureList()

	circle := collision.NewCircle(mgl64.Vec2{0, 1}, 0.25)
	fd := DefaultFixtureDef(circle)
	fd.Density = 1
	circleID, err := w.CreateFixture(id, fd)
	require.NoError(t, err)

	stepN(t, w, 1)
	require.NotZero(t, w.ContactCount())

	require.NoError(t, w.DestroyFixture(id, box))
	for c := range w.Contacts() {
		assert.NotEqual(t, box, c.FixtureA())
		assert.NotEqual(t, box, c.FixtureB())
	}
	assert.InDelta(t, math.Pi*0.25*0.25, b.Mass(), tol)
	assert.InDelta(t, 1, b.LocalCenter().Y(), tol)
	assert.Equal(t, 1, b.FixtureCount())

	require.NoError(t, w.DestroyFixture(id, circleID))
	assert.Equal(t, 1.0, b.Mass())
	assert.Equal(t, 1.0, b.InvMass())
	assert.Zero(t, b.FixtureCount())

	_, err = w.lookupFixture(circleID)
	assert.ErrorIs(t, err, ErrStaleHandle)
}

func TestDestroyFixtureOfAnotherBodyPanics(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})
	a := addBody(t, w, dynamicDef(0, 0), collision.NewCircle(mgl64.Vec2{}, 0.5))
	b := addBody(t, w, dynamicDef(3, 0), collision.NewCircle(mgl64.Vec2{}, 0.5))

	assert.Panics(t, func() {
		_ = w.DestroyFixture(a, w.Body(b).FixtureList())
	})
}

func TestSetActiveRemovesAndRecreatesProxies(t *testing.T) {
	w := NewWorld(mgl64.Vec2{0, -10})
	addGround(t, w)
	id := addBody(t, w, dynamicDef(0, 0.45), collision.NewBox(0.5, 0.5))
	f := w.Fixture(w.Body(id).FixtureList())

	stepN(t, w, 1)
	require.Equal(t, 1, w.ContactCount())
	require.Equal(t, 2, w.ProxyCount())

	require.NoError(t, w.SetActive(id, false))
	assert.Zero(t, w.ContactCount())
	assert.Zero(t, f.ProxyCount())
	assert.Equal(t, 1, w.ProxyCount())

	// inactive bodies are not simulated
	pos := w.Body(id).Position()
	stepN(t, w, 10)
	assert.Equal(t, pos, w.Body(id).Position())

	require.NoError(t, w.SetActive(id, true))
	assert.Equal(t, 1, f.ProxyCount())
	assert.Equal(t, 2, w.ProxyCount())
	assert.Zero(t, w.ContactCount(), "contacts come back with the next step")

	stepN(t, w, 1)
	assert.Equal(t, 1, w.ContactCount())
}

func TestDestroyBodyNotifiesListener(t *testing.T) {
	goodbye := &goodbyeCounter{}
	w := NewWorld(mgl64.Vec2{0, -10}, WithDestructionListener(goodbye))
	ground := addGround(t, w)
	id := addBody(t, w, dynamicDef(0, 0.45), collision.NewBox(0.5, 0.5), collision.NewCircle(mgl64.Vec2{0, 1}, 0.2))

	def := NewDistanceJointDef(w.Body(ground), w.Body(id), mgl64.Vec2{0, 5}, mgl64.Vec2{0, 0.45})
	def.CollideConnected = true
	_, err := w.CreateJoint(&def)
	require.NoError(t, err)

	stepN(t, w, 1)
	require.NotZero(t, w.ContactCount())

	require.NoError(t, w.DestroyBody(id))
	assert.Equal(t, 2, goodbye.fixtures)
	assert.Equal(t, 1, goodbye.joints)
	assert.Zero(t, w.ContactCount())
	assert.Zero(t, w.JointCount())
	assert.Equal(t, 1, w.BodyCount())
	assert.Equal(t, 1, w.FixtureCount())
	assert.Nil(t, w.Body(id))

	assert.ErrorIs(t, w.SetType(id, StaticBody), ErrStaleHandle)
	assert.ErrorIs(t, w.DestroyBody(id), ErrStaleHandle)
}

func TestMutationFromListenerIsRejected(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))

	listener := &recordingListener{}
	w := NewWorld(mgl64.Vec2{0, -10}, WithContactListener(listener), WithLogger(logger))
	addGround(t, w)
	addBody(t, w, dynamicDef(0, 0.45), collision.NewBox(0.5, 0.5))

	var createErr, stepErr, massErr error
	listener.onBegin = func(c *Contact) {
		_, createErr = w.CreateBody(DefaultBodyDef())
		stepErr = w.Step(dt60, 8, 3)
		massErr = w.ResetMassData(c.BodyB())
		assert.True(t, w.IsLocked())
	}

	stepN(t, w, 1)
	assert.Equal(t, 1, listener.begin)
	assert.ErrorIs(t, createErr, ErrLocked)
	assert.ErrorIs(t, stepErr, ErrLocked)
	assert.ErrorIs(t, massErr, ErrLocked)
	assert.Equal(t, 2, w.BodyCount())
	assert.False(t, w.IsLocked())
	assert.Contains(t, logs.String(), "op=CreateBody")
	assert.Contains(t, logs.String(), "op=ResetMassData")
}

func TestStepRejectsBadTimeStep(t *testing.T) {
	w := NewWorld(mgl64.Vec2{0, -10})
	assert.ErrorIs(t, w.Step(-1, 8, 3), ErrInvalidDef)
	assert.ErrorIs(t, w.Step(math.NaN(), 8, 3), ErrInvalidDef)
	assert.NoError(t, w.Step(0, 8, 3))
}

func TestInvalidDefinitions(t *testing.T) {
	w := NewWorld(mgl64.Vec2{0, -10})

	def := dynamicDef(math.Inf(1), 0)
	_, err := w.CreateBody(def)
	assert.ErrorIs(t, err, ErrInvalidDef)

	def = dynamicDef(0, 0)
	def.LinearDamping = -1
	_, err = w.CreateBody(def)
	assert.ErrorIs(t, err, ErrInvalidDef)
	assert.Zero(t, w.BodyCount())

	id := addBody(t, w, dynamicDef(0, 0))
	for _, fd := range []FixtureDef{
		{},
		{Shape: collision.NewBox(1, 1), Density: -1},
		{Shape: collision.NewBox(1, 1), Friction: math.NaN()},
		{Shape: collision.NewBox(1, 1), Restitution: -0.5},
	} {
		_, err := w.CreateFixture(id, fd)
		assert.ErrorIs(t, err, ErrInvalidDef)
	}
	assert.Zero(t, w.FixtureCount())

	assert.ErrorIs(t, w.SetTransform(id, mgl64.Vec2{math.NaN(), 0}, 0), ErrInvalidDef)

	_, err = w.CreateJoint(&DistanceJointDef{JointDef: JointDef{BodyA: id, BodyB: id}})
	assert.ErrorIs(t, err, ErrInvalidDef)
}

func TestFilterGroupsAndRefilter(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})

	var fixtures []FixtureID
	for _, x := range []float64{0, 0.5} {
		id := addBody(t, w, dynamicDef(x, 0))
		fd := DefaultFixtureDef(collision.NewCircle(mgl64.Vec2{}, 0.5))
		fd.Filter.GroupIndex = -1
		fid, err := w.CreateFixture(id, fd)
		require.NoError(t, err)
		fixtures = append(fixtures, fid)
	}

	stepN(t, w, 1)
	assert.Zero(t, w.ContactCount())

	require.NoError(t, w.SetFilterData(fixtures[0], DefaultFilter()))
	stepN(t, w, 1)
	assert.Equal(t, 1, w.ContactCount())

	// masks exclude each other again
	require.NoError(t, w.SetFilterData(fixtures[0], Filter{CategoryBits: 0x0002, MaskBits: 0x0004}))
	stepN(t, w, 1)
	assert.Zero(t, w.ContactCount())
}

func TestSensorReportsOverlapWithoutResponse(t *testing.T) {
	listener := &recordingListener{}
	w := NewWorld(mgl64.Vec2{}, WithContactListener(listener))

	sensorBody := addBody(t, w, DefaultBodyDef())
	fd := DefaultFixtureDef(collision.NewBox(1, 1))
	fd.IsSensor = true
	_, err := w.CreateFixture(sensorBody, fd)
	require.NoError(t, err)

	ball := addBody(t, w, dynamicDef(0, 0.5), collision.NewCircle(mgl64.Vec2{}, 0.5))

	stepN(t, w, 5)
	assert.Equal(t, 1, listener.begin)
	assert.Zero(t, listener.preSolve)
	assert.Zero(t, listener.postSolve)
	assert.Equal(t, mgl64.Vec2{}, w.Body(ball).LinearVelocity())
	assert.Equal(t, mgl64.Vec2{0, 0.5}, w.Body(ball).Position())

	for c := range w.Contacts() {
		assert.True(t, c.IsTouching())
		assert.Zero(t, c.Manifold().PointCount)
	}
}

func TestContactListenerLifecycle(t *testing.T) {
	listener := &recordingListener{}
	w := NewWorld(mgl64.Vec2{0, -10}, WithContactListener(listener))
	addGround(t, w)
	id := addBody(t, w, dynamicDef(0, 0.45), collision.NewBox(0.5, 0.5))

	stepN(t, w, 10)
	assert.Equal(t, 1, listener.begin)
	assert.NotZero(t, listener.preSolve)
	assert.NotZero(t, listener.postSolve)

	// teleport away: the contact ends on the next collide
	require.NoError(t, w.SetTransform(id, mgl64.Vec2{0, 5}, 0))
	stepN(t, w, 1)
	assert.Equal(t, 1, listener.end)
}

func TestQueryAABBAndRayCast(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})
	boxes := map[FixtureID]float64{}
	for _, x := range []float64{0, 5, 10} {
		def := DefaultBodyDef()
		def.Position = mgl64.Vec2{x, 0}
		id := addBody(t, w, def, collision.NewBox(0.5, 0.5))
		boxes[w.Body(id).FixtureList()] = x
	}

	var found []float64
	w.QueryAABB(func(f *Fixture) bool {
		found = append(found, boxes[f.ID()])
		return true
	}, collision.AABB{Lower: mgl64.Vec2{4, -1}, Upper: mgl64.Vec2{6, 1}})
	assert.Equal(t, []float64{5}, found)

	// closest hit: clip the ray to each hit
	var closest *Fixture
	var point, normal mgl64.Vec2
	hits := 0
	w.RayCast(func(f *Fixture, p, n mgl64.Vec2, fraction float64) float64 {
		hits++
		closest, point, normal = f, p, n
		return fraction
	}, mgl64.Vec2{-5, 0}, mgl64.Vec2{15, 0})

	require.NotNil(t, closest)
	assert.GreaterOrEqual(t, hits, 1)
	assert.Equal(t, 0.0, boxes[closest.ID()])
	assert.InDelta(t, -0.5, point.X(), 1e-6)
	assert.InDelta(t, -1, normal.X(), 1e-6)

	// returning 0 stops at the first reported hit
	hits = 0
	w.RayCast(func(*Fixture, mgl64.Vec2, mgl64.Vec2, float64) float64 {
		hits++
		return 0
	}, mgl64.Vec2{-5, 0}, mgl64.Vec2{15, 0})
	assert.Equal(t, 1, hits)
}

func TestShiftOrigin(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})
	id := addBody(t, w, dynamicDef(100, 50), collision.NewBox(0.5, 0.5))
	require.NoError(t, w.ShiftOrigin(mgl64.Vec2{100, 0}))

	b := w.Body(id)
	assert.InDelta(t, 0, b.Position().X(), tol)
	assert.InDelta(t, 50, b.WorldCenter().Y(), tol)

	var found int
	w.QueryAABB(func(*Fixture) bool { found++; return true },
		collision.AABB{Lower: mgl64.Vec2{-1, 49}, Upper: mgl64.Vec2{1, 51}})
	assert.Equal(t, 1, found)
}

func TestClearForces(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})
	w.SetAutoClearForces(false)
	id := addBody(t, w, dynamicDef(0, 0), collision.NewBox(0.5, 0.5))
	b := w.Body(id)

	b.ApplyForceToCenter(mgl64.Vec2{10, 0}, true)
	stepN(t, w, 1)
	assert.Equal(t, mgl64.Vec2{10, 0}, b.Force())

	w.ClearForces()
	assert.Equal(t, mgl64.Vec2{}, b.Force())
	assert.Zero(t, b.Torque())
}
