package rigid2d

import (
	"github.com/ByteArena/rigid2d/collision"
	"github.com/go-gl/mathgl/mgl64"
)

// DestructionListener is notified when fixtures and joints are destroyed
// implicitly because their body was destroyed.
type DestructionListener interface {
	SayGoodbyeToFixture(f *Fixture)
	SayGoodbyeToJoint(j Joint)
}

// ContactFilter decides whether two fixtures should collide. The default
// applies Filter groups, categories and masks.
type ContactFilter interface {
	ShouldCollide(fixtureA, fixtureB *Fixture) bool
}

type defaultContactFilter struct{}

func (defaultContactFilter) ShouldCollide(fixtureA, fixtureB *Fixture) bool {
	return fixtureA.filter.shouldCollide(fixtureB.filter)
}

// ContactImpulse reports the impulses applied to each manifold point.
// Impulses are used instead of forces because sub-step forces may approach
// infinity for rigid collisions.
type ContactImpulse struct {
	NormalImpulses  [collision.MaxManifoldPoints]float64
	TangentImpulses [collision.MaxManifoldPoints]float64
	Count           int
}

// ContactListener receives contact events during World.Step. The world is
// locked while it runs: structural mutations return ErrLocked.
type ContactListener interface {
	// BeginContact is called when two fixtures begin to touch.
	BeginContact(c *Contact)

	// EndContact is called when two fixtures cease to touch.
	EndContact(c *Contact)

	// PreSolve is called after a touching contact is updated and before
	// the solver runs. The listener may disable the contact for this step.
	// It is not called for sensors.
	PreSolve(c *Contact, oldManifold *collision.Manifold)

	// PostSolve reports the impulses applied by the solver. TOI sub-step
	// impulses are reported separately from the manifold.
	PostSolve(c *Contact, impulse *ContactImpulse)
}

// NopContactListener implements ContactListener with empty methods. Embed
// it to handle only some events.
type NopContactListener struct{}

func (NopContactListener) BeginContact(*Contact)                  {}
func (NopContactListener) EndContact(*Contact)                    {}
func (NopContactListener) PreSolve(*Contact, *collision.Manifold) {}
func (NopContactListener) PostSolve(*Contact, *ContactImpulse)    {}

// QueryFunc is called for each fixture overlapping a query box. Return
// false to stop.
type QueryFunc func(f *Fixture) bool

// RayCastFunc is called for each fixture hit by a ray. Return -1 to ignore
// the fixture, 0 to stop, a fraction to clip the ray, or 1 to continue
// without clipping.
type RayCastFunc func(f *Fixture, point, normal mgl64.Vec2, fraction float64) float64
