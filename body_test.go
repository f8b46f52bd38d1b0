package rigid2d

import (
	"math"
	"testing"

	"github.com/ByteArena/rigid2d/collision"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroDensityDynamicBodyGetsUnitMass(t *testing.T) {
	w := NewWorld(mgl64.Vec2{0, -10})

	id, err := w.CreateBody(dynamicDef(0, 0))
	require.NoError(t, err)
	_, err = w.CreateFixture(id, DefaultFixtureDef(collision.NewBox(1, 1)))
	require.NoError(t, err)

	require.NoError(t, w.ResetMassData(id))
	b := w.Body(id)
	assert.Equal(t, 1.0, b.Mass())
	assert.Equal(t, 1.0, b.InvMass())
	assert.Zero(t, b.Inertia())
}

func TestMassFromFixtures(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})
	id := addBody(t, w, dynamicDef(0, 0), collision.NewBox(1, 1))
	b := w.Body(id)

	// a 2x2 box of density 1
	assert.InDelta(t, 4, b.Mass(), tol)
	assert.InDelta(t, 0.25, b.InvMass(), tol)
	assert.InDelta(t, 4*(4+4)/12.0, b.Inertia(), tol)

	require.NoError(t, w.SetFixedRotation(id, true))
	assert.Zero(t, b.Inertia())
	assert.InDelta(t, 4, b.Mass(), tol)

	// static bodies have no mass whatever their fixtures
	static := addBody(t, w, DefaultBodyDef(), collision.NewBox(1, 1))
	assert.Zero(t, w.Body(static).Mass())
	assert.Zero(t, w.Body(static).InvMass())
}

func TestSmallFixtureFarFromOriginKeepsInertiaNonNegative(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})
	id := addBody(t, w, dynamicDef(0, 0), collision.NewCircle(mgl64.Vec2{1e6, 0}, 0.01))
	b := w.Body(id)

	assert.InDelta(t, math.Pi*1e-4, b.Mass(), 1e-12)
	assert.GreaterOrEqual(t, b.invI, 0.0)
	assert.False(t, math.IsInf(b.invI, 0) || math.IsNaN(b.invI))
	assert.GreaterOrEqual(t, b.i, 0.0)

	// an off-center impulse never spins the body backwards
	b.ApplyLinearImpulse(mgl64.Vec2{0, 1e-6}, b.WorldCenter().Add(mgl64.Vec2{1, 0}), true)
	assert.GreaterOrEqual(t, b.AngularVelocity(), 0.0)
}

func TestSetMassData(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})
	id := addBody(t, w, dynamicDef(1, 1))
	b := w.Body(id)

	md := collision.MassData{Mass: 2, Center: mgl64.Vec2{1, 0}, I: 5}
	require.NoError(t, w.SetMassData(id, md))
	assert.Equal(t, 2.0, b.Mass())
	assert.InDelta(t, 0.5, b.InvMass(), tol)
	assert.InDelta(t, 5, b.Inertia(), tol)
	assert.Equal(t, mgl64.Vec2{2, 1}, b.WorldCenter())
	assert.Equal(t, md, b.MassData())

	require.NoError(t, w.SetMassData(id, collision.MassData{Mass: -3}))
	assert.Equal(t, 1.0, b.Mass())
}

func TestSetTypeSameTypeIsNoop(t *testing.T) {
	w := NewWorld(mgl64.Vec2{0, -10})
	addGround(t, w)
	id := addBody(t, w, dynamicDef(0, 0.45), collision.NewBox(0.5, 0.5))
	stepN(t, w, 1)

	b := w.Body(id)
	b.SetLinearVelocity(mgl64.Vec2{3, 1})
	b.SetAngularVelocity(2)
	contacts := w.ContactCount()
	require.NotZero(t, contacts)
	mass, center := b.Mass(), b.WorldCenter()

	require.NoError(t, w.SetType(id, DynamicBody))
	assert.Equal(t, mgl64.Vec2{3, 1}, b.LinearVelocity())
	assert.Equal(t, 2.0, b.AngularVelocity())
	assert.Equal(t, contacts, w.ContactCount())
	assert.Equal(t, mass, b.Mass())
	assert.Equal(t, center, b.WorldCenter())
}

func TestSetTypeStaticZeroesVelocity(t *testing.T) {
	w := NewWorld(mgl64.Vec2{0, -10})
	id := addBody(t, w, dynamicDef(2, 3), collision.NewBox(0.5, 0.5))
	stepN(t, w, 10)

	b := w.Body(id)
	b.SetLinearVelocity(mgl64.Vec2{5, -2})
	b.SetAngularVelocity(1)
	pos, angle := b.Position(), b.Angle()

	require.NoError(t, w.SetType(id, StaticBody))
	assert.Equal(t, mgl64.Vec2{}, b.LinearVelocity())
	assert.Zero(t, b.AngularVelocity())
	assert.Equal(t, pos, b.Position())
	assert.Equal(t, angle, b.Angle())
	assert.Zero(t, b.Mass())

	stepN(t, w, 10)
	assert.Equal(t, pos, b.Position())

	// velocity cannot be set on a static body
	b.SetLinearVelocity(mgl64.Vec2{1, 0})
	assert.Equal(t, mgl64.Vec2{}, b.LinearVelocity())
}

func TestSetTypeDestroysContacts(t *testing.T) {
	w := NewWorld(mgl64.Vec2{0, -10})
	addGround(t, w)
	id := addBody(t, w, dynamicDef(0, 0.45), collision.NewBox(0.5, 0.5))
	stepN(t, w, 1)
	require.Equal(t, 1, w.ContactCount())

	// static against static never collides
	require.NoError(t, w.SetType(id, StaticBody))
	assert.Zero(t, w.ContactCount())
	stepN(t, w, 1)
	assert.Zero(t, w.ContactCount())

	// back to dynamic, the pair is found again
	require.NoError(t, w.SetType(id, DynamicBody))
	stepN(t, w, 1)
	assert.Equal(t, 1, w.ContactCount())
}

func TestLinearImpulse(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})
	id := addBody(t, w, dynamicDef(0, 0), collision.NewBox(1, 1))
	b := w.Body(id)

	t.Run("sleeping body wakes then accumulates", func(t *testing.T) {
		b.SetAwake(false)
		require.False(t, b.IsAwake())

		b.ApplyLinearImpulse(mgl64.Vec2{8, 0}, b.WorldCenter(), true)
		assert.True(t, b.IsAwake())
		assert.InDelta(t, 2, b.LinearVelocity().X(), tol)
		assert.InDelta(t, 0, b.AngularVelocity(), tol)
	})

	t.Run("sleeping body without wake drops the impulse", func(t *testing.T) {
		b.SetAwake(false)
		b.ApplyLinearImpulseToCenter(mgl64.Vec2{8, 0}, false)
		assert.False(t, b.IsAwake())
		assert.Equal(t, mgl64.Vec2{}, b.LinearVelocity())
	})

	t.Run("off center impulse spins", func(t *testing.T) {
		b.SetAwake(true)
		b.SetLinearVelocity(mgl64.Vec2{})
		b.ApplyLinearImpulse(mgl64.Vec2{0, 1}, b.WorldPoint(mgl64.Vec2{1, 0}), true)
		assert.InDelta(t, 1/b.Inertia(), b.AngularVelocity(), tol)
	})

	t.Run("static body is unaffected", func(t *testing.T) {
		s := addBody(t, w, DefaultBodyDef(), collision.NewBox(1, 1))
		sb := w.Body(s)
		sb.ApplyLinearImpulse(mgl64.Vec2{8, 0}, sb.WorldCenter(), true)
		sb.ApplyAngularImpulse(3, true)
		assert.Equal(t, mgl64.Vec2{}, sb.LinearVelocity())
		assert.Zero(t, sb.AngularVelocity())
	})

	t.Run("kinematic body keeps its velocity", func(t *testing.T) {
		def := DefaultBodyDef()
		def.Type = KinematicBody
		k := addBody(t, w, def, collision.NewBox(1, 1))
		kb := w.Body(k)
		kb.SetLinearVelocity(mgl64.Vec2{1, 2})
		kb.ApplyLinearImpulseToCenter(mgl64.Vec2{8, 0}, true)
		kb.ApplyForceToCenter(mgl64.Vec2{8, 0}, true)
		assert.Equal(t, mgl64.Vec2{1, 2}, kb.LinearVelocity())
		assert.Equal(t, mgl64.Vec2{}, kb.Force())
	})
}

func TestForceIntegration(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})
	id := addBody(t, w, dynamicDef(0, 0), collision.NewBox(0.5, 0.5))
	b := w.Body(id)
	require.InDelta(t, 1, b.Mass(), tol)

	// v = F/m * t after one step, then forces are cleared
	b.ApplyForceToCenter(mgl64.Vec2{60, 0}, true)
	stepN(t, w, 1)
	assert.InDelta(t, 1, b.LinearVelocity().X(), 1e-6)
	assert.Equal(t, mgl64.Vec2{}, b.Force())
}

func TestGravityIsIndependentOfMass(t *testing.T) {
	w := NewWorld(mgl64.Vec2{0, -10})
	light := w.Body(addBody(t, w, dynamicDef(-10, 0), collision.NewBox(0.5, 0.5)))
	heavy := w.Body(addBody(t, w, dynamicDef(10, 0), collision.NewBox(2, 2)))
	require.InDelta(t, 16, heavy.Mass()/light.Mass(), tol)

	stepN(t, w, 1)
	assert.InDelta(t, -10*dt60, light.LinearVelocity().Y(), 1e-9)
	assert.InDelta(t, -10*dt60, heavy.LinearVelocity().Y(), 1e-9)

	// force still divides by mass
	heavy.ApplyForceToCenter(mgl64.Vec2{0, heavy.Mass()}, true)
	stepN(t, w, 1)
	assert.InDelta(t, -19*dt60, heavy.LinearVelocity().Y(), 1e-9)
}

func TestSetAwakeKeepsSleepTimerWhenAlreadyAwake(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})
	id := addBody(t, w, dynamicDef(0, 0), collision.NewBox(0.5, 0.5))
	b := w.Body(id)

	stepN(t, w, 10)
	elapsed := b.sleepTime
	require.Positive(t, elapsed)

	b.SetAwake(true)
	assert.Equal(t, elapsed, b.sleepTime)

	b.SetAwake(false)
	assert.Zero(t, b.sleepTime)
	b.sleepTime = 0.25
	b.SetAwake(true)
	assert.Zero(t, b.sleepTime)
}

func TestWorldLocalRoundTrip(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})
	points := []mgl64.Vec2{{0, 0}, {1, 0}, {-3.5, 2.25}, {1e3, -1e3}}

	for _, angle := range []float64{0, 0.3, math.Pi / 2, -2.9, 7} {
		def := dynamicDef(4, -2)
		def.Angle = angle
		id := addBody(t, w, def, collision.NewCircle(mgl64.Vec2{0.3, 0.1}, 0.5))
		b := w.Body(id)

		for _, p := range points {
			got := b.WorldPoint(b.LocalPoint(p))
			assert.InDelta(t, p.X(), got.X(), 1e-9)
			assert.InDelta(t, p.Y(), got.Y(), 1e-9)

			v := b.WorldVector(b.LocalVector(p))
			assert.InDelta(t, p.X(), v.X(), 1e-9)
			assert.InDelta(t, p.Y(), v.Y(), 1e-9)
		}
	}
}

func TestSetTransform(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})
	id := addBody(t, w, dynamicDef(0, 0), collision.NewCircle(mgl64.Vec2{1, 0}, 0.5))
	require.NoError(t, w.SetTransform(id, mgl64.Vec2{3, 4}, math.Pi/2))

	b := w.Body(id)
	assert.Equal(t, mgl64.Vec2{3, 4}, b.Position())
	assert.InDelta(t, 3, b.WorldCenter().X(), 1e-12)
	assert.InDelta(t, 5, b.WorldCenter().Y(), 1e-12)

	var found int
	w.QueryAABB(func(*Fixture) bool { found++; return true },
		collision.AABB{Lower: mgl64.Vec2{2.9, 4.9}, Upper: mgl64.Vec2{3.1, 5.1}})
	assert.Equal(t, 1, found)
}

func TestPointVelocity(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})
	id := addBody(t, w, dynamicDef(0, 0), collision.NewBox(1, 1))
	b := w.Body(id)
	b.SetAngularVelocity(2)

	v := b.LinearVelocityFromLocalPoint(mgl64.Vec2{1, 0})
	assert.InDelta(t, 0, v.X(), tol)
	assert.InDelta(t, 2, v.Y(), tol)
	assert.Equal(t, v, b.LinearVelocityFromWorldPoint(b.WorldPoint(mgl64.Vec2{1, 0})))
}
