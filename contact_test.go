package rigid2d

import (
	"math"
	"testing"

	"github.com/ByteArena/rigid2d/collision"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialMixing(t *testing.T) {
	assert.InDelta(t, math.Sqrt(0.2*0.8), MixFriction(0.2, 0.8), tol)
	assert.Zero(t, MixFriction(0, 5))
	assert.Equal(t, 0.7, MixRestitution(0.7, 0.1))
	assert.Equal(t, 0.7, MixRestitution(0.1, 0.7))
}

func TestContactMaterialOverrides(t *testing.T) {
	w := NewWorld(mgl64.Vec2{0, -10})
	ground := addGround(t, w)
	w.Fixture(w.Body(ground).FixtureList()).SetFriction(0.5)

	id, err := w.CreateBody(dynamicDef(0, 0.45))
	require.NoError(t, err)
	fd := DefaultFixtureDef(collision.NewBox(0.5, 0.5))
	fd.Density = 1
	fd.Friction = 0.8
	fd.Restitution = 0.3
	_, err = w.CreateFixture(id, fd)
	require.NoError(t, err)

	stepN(t, w, 1)
	var c *Contact
	for bc := range w.BodyContacts(id) {
		c = bc
		break
	}
	require.NotNil(t, c)
	assert.True(t, c.IsTouching())
	assert.InDelta(t, math.Sqrt(0.5*0.8), c.Friction(), tol)
	assert.Equal(t, 0.3, c.Restitution())

	c.SetFriction(0)
	c.SetRestitution(1)
	c.SetTangentSpeed(2)
	assert.Zero(t, c.Friction())
	assert.Equal(t, 2.0, c.TangentSpeed())

	w.ResetFriction(c)
	w.ResetRestitution(c)
	assert.InDelta(t, math.Sqrt(0.5*0.8), c.Friction(), tol)
	assert.Equal(t, 0.3, c.Restitution())

	wm := w.WorldManifold(c)
	assert.InDelta(t, 1, math.Abs(wm.Normal.Y()), 1e-6)
	assert.Equal(t, 2, c.Manifold().PointCount)
}

func TestPreSolveCanDisableContact(t *testing.T) {
	w := NewWorld(mgl64.Vec2{0, -10}, WithContactListener(disablingListener{}))
	addGround(t, w)
	id := addBody(t, w, dynamicDef(0, 0.5), collision.NewBox(0.5, 0.5))

	stepN(t, w, 60)
	// the box falls through the disabled contact
	assert.Less(t, w.Body(id).Position().Y(), -1.0)
}

type disablingListener struct{ NopContactListener }

func (disablingListener) PreSolve(c *Contact, _ *collision.Manifold) { c.SetEnabled(false) }

func TestSweepAdvance(t *testing.T) {
	s := Sweep{
		C0: mgl64.Vec2{0, 0}, C: mgl64.Vec2{10, 0},
		A0: 0, A: 1,
	}
	xf := s.TransformAt(0.5)
	assert.InDelta(t, 5, xf.P.X(), tol)

	s.Advance(0.5)
	assert.Equal(t, 0.5, s.Alpha0)
	assert.InDelta(t, 5, s.C0.X(), tol)
	assert.InDelta(t, 0.5, s.A0, tol)

	// the end pose does not move
	assert.Equal(t, mgl64.Vec2{10, 0}, s.C)

	s = Sweep{A0: 4*math.Pi + 0.25, A: 4*math.Pi + 0.75}
	s.Normalize()
	assert.InDelta(t, 0.25, s.A0, 1e-12)
	assert.InDelta(t, 0.75, s.A, 1e-12)
}
