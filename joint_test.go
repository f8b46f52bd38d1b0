package rigid2d

import (
	"testing"

	"github.com/ByteArena/rigid2d/collision"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pendulum returns a world with a fixture-less static anchor at (0, 10)
// and a small dynamic bob at bobPos.
func pendulum(t *testing.T, bobPos mgl64.Vec2) (*World, BodyID, BodyID) {
	t.Helper()
	w := NewWorld(mgl64.Vec2{0, -10})

	def := DefaultBodyDef()
	def.Position = mgl64.Vec2{0, 10}
	anchor := addBody(t, w, def)
	bob := addBody(t, w, dynamicDef(bobPos.X(), bobPos.Y()), collision.NewCircle(mgl64.Vec2{}, 0.1))
	return w, anchor, bob
}

func TestDistanceJointKeepsLength(t *testing.T) {
	w, anchor, bob := pendulum(t, mgl64.Vec2{2, 10})
	def := NewDistanceJointDef(w.Body(anchor), w.Body(bob), mgl64.Vec2{0, 10}, mgl64.Vec2{2, 10})
	require.InDelta(t, 2, def.Length, tol)

	id, err := w.CreateJoint(&def)
	require.NoError(t, err)
	assert.Equal(t, 1, w.JointCount())
	assert.Equal(t, DistanceJointType, w.Joint(id).Type())

	b := w.Body(bob)
	for i := range 120 {
		require.NoError(t, w.Step(dt60, 8, 3))
		d := b.Position().Sub(mgl64.Vec2{0, 10}).Len()
		require.InDelta(t, 2, d, 0.02, "step %d", i)
	}
	assert.Less(t, b.Position().Y(), 9.0)
}

func TestDistanceJointReactionSupportsWeight(t *testing.T) {
	w, anchor, bob := pendulum(t, mgl64.Vec2{0, 8})
	def := NewDistanceJointDef(w.Body(anchor), w.Body(bob), mgl64.Vec2{0, 10}, mgl64.Vec2{0, 8})
	id, err := w.CreateJoint(&def)
	require.NoError(t, err)

	stepN(t, w, 20)

	weight := w.Body(bob).Mass() * 10
	force := w.Joint(id).ReactionForce(60)
	assert.InEpsilon(t, weight, force.Len(), 0.05)
	assert.Zero(t, w.Joint(id).ReactionTorque(60))
	assert.InDelta(t, 8, w.Body(bob).Position().Y(), 0.01)
}

func TestSoftDistanceJointStretches(t *testing.T) {
	w, anchor, bob := pendulum(t, mgl64.Vec2{0, 8})
	def := NewDistanceJointDef(w.Body(anchor), w.Body(bob), mgl64.Vec2{0, 10}, mgl64.Vec2{0, 8})
	def.FrequencyHz = 1
	def.DampingRatio = 0.1
	_, err := w.CreateJoint(&def)
	require.NoError(t, err)

	lowest := 8.0
	for range 60 {
		require.NoError(t, w.Step(dt60, 8, 3))
		lowest = min(lowest, w.Body(bob).Position().Y())
	}
	// a spring sags under gravity where the rigid joint would not
	assert.Less(t, lowest, 7.9)
}

func TestRopeJointLimitsDistance(t *testing.T) {
	w, anchor, bob := pendulum(t, mgl64.Vec2{2, 10})
	def := &RopeJointDef{
		JointDef:  JointDef{BodyA: anchor, BodyB: bob},
		MaxLength: 3,
	}
	id, err := w.CreateJoint(def)
	require.NoError(t, err)
	rope := w.Joint(id).(*RopeJoint)
	assert.Equal(t, RopeJointType, rope.Type())

	b := w.Body(bob)
	maxSeen := 0.0
	for range 180 {
		require.NoError(t, w.Step(dt60, 8, 3))
		maxSeen = max(maxSeen, b.Position().Sub(mgl64.Vec2{0, 10}).Len())
	}
	assert.LessOrEqual(t, maxSeen, 3.05)
	assert.Greater(t, maxSeen, 2.9)
}

func TestDestroyJoint(t *testing.T) {
	w, anchor, bob := pendulum(t, mgl64.Vec2{2, 10})
	def := NewDistanceJointDef(w.Body(anchor), w.Body(bob), mgl64.Vec2{0, 10}, mgl64.Vec2{2, 10})
	id, err := w.CreateJoint(&def)
	require.NoError(t, err)
	stepN(t, w, 10)

	require.NoError(t, w.DestroyJoint(id))
	assert.Zero(t, w.JointCount())
	assert.Nil(t, w.Joint(id))
	assert.True(t, w.Body(anchor).JointList().IsNil())
	assert.True(t, w.Body(bob).JointList().IsNil())
	assert.True(t, w.ShouldCollide(anchor, bob))

	// free fall after release
	y := w.Body(bob).Position().Y()
	stepN(t, w, 30)
	assert.Less(t, w.Body(bob).Position().Y(), y-1)
}
