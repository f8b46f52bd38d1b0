package rigid2d

import (
	"math"

	"github.com/ByteArena/rigid2d/collision"
	"github.com/ByteArena/rigid2d/geom"
	"github.com/ByteArena/rigid2d/internal/arena"
)

// ContactID is a handle to a contact owned by a World.
type ContactID arena.Handle

// IsNil reports whether id is the zero handle.
func (id ContactID) IsNil() bool { return id.Index == 0 }

// MixFriction lets either fixture drive friction to zero: anything
// slides on ice.
func MixFriction(friction1, friction2 float64) float64 {
	return math.Sqrt(friction1 * friction2)
}

// MixRestitution lets anything bounce off a bouncy surface.
func MixRestitution(restitution1, restitution2 float64) float64 {
	return math.Max(restitution1, restitution2)
}

type evaluateFunc func(m *collision.Manifold, shapeA collision.Shape, indexA int, xfA geom.Transform, shapeB collision.Shape, indexB int, xfB geom.Transform)

type contactRegister struct {
	evaluate evaluateFunc
	primary  bool
}

// contactRegistry maps a pair of shape types to its manifold function.
// Non-primary entries swap the fixtures on creation.
var contactRegistry = func() (r [collision.ShapeTypeCount][collision.ShapeTypeCount]contactRegister) {
	add := func(fn evaluateFunc, typeA, typeB collision.ShapeType) {
		r[typeA][typeB] = contactRegister{evaluate: fn, primary: true}
		if typeA != typeB {
			r[typeB][typeA] = contactRegister{evaluate: fn}
		}
	}

	add(func(m *collision.Manifold, a collision.Shape, _ int, xfA geom.Transform, b collision.Shape, _ int, xfB geom.Transform) {
		collision.CollideCircles(m, a.(*collision.CircleShape), xfA, b.(*collision.CircleShape), xfB)
	}, collision.ShapeCircle, collision.ShapeCircle)

	add(func(m *collision.Manifold, a collision.Shape, _ int, xfA geom.Transform, b collision.Shape, _ int, xfB geom.Transform) {
		collision.CollidePolygonAndCircle(m, a.(*collision.PolygonShape), xfA, b.(*collision.CircleShape), xfB)
	}, collision.ShapePolygon, collision.ShapeCircle)

	add(func(m *collision.Manifold, a collision.Shape, _ int, xfA geom.Transform, b collision.Shape, _ int, xfB geom.Transform) {
		collision.CollidePolygons(m, a.(*collision.PolygonShape), xfA, b.(*collision.PolygonShape), xfB)
	}, collision.ShapePolygon, collision.ShapePolygon)

	add(func(m *collision.Manifold, a collision.Shape, _ int, xfA geom.Transform, b collision.Shape, _ int, xfB geom.Transform) {
		collision.CollideEdgeAndCircle(m, a.(*collision.EdgeShape), xfA, b.(*collision.CircleShape), xfB)
	}, collision.ShapeEdge, collision.ShapeCircle)

	add(func(m *collision.Manifold, a collision.Shape, _ int, xfA geom.Transform, b collision.Shape, _ int, xfB geom.Transform) {
		collision.CollideEdgeAndPolygon(m, a.(*collision.EdgeShape), xfA, b.(*collision.PolygonShape), xfB)
	}, collision.ShapeEdge, collision.ShapePolygon)

	add(func(m *collision.Manifold, a collision.Shape, indexA int, xfA geom.Transform, b collision.Shape, _ int, xfB geom.Transform) {
		edge := a.(*collision.ChainShape).ChildEdge(indexA)
		collision.CollideEdgeAndCircle(m, &edge, xfA, b.(*collision.CircleShape), xfB)
	}, collision.ShapeChain, collision.ShapeCircle)

	add(func(m *collision.Manifold, a collision.Shape, indexA int, xfA geom.Transform, b collision.Shape, _ int, xfB geom.Transform) {
		edge := a.(*collision.ChainShape).ChildEdge(indexA)
		collision.CollideEdgeAndPolygon(m, &edge, xfA, b.(*collision.PolygonShape), xfB)
	}, collision.ShapeChain, collision.ShapePolygon)

	return r
}()

// contactEdge links a contact into one body's contact list.
type contactEdge struct {
	other      BodyID
	prev, next ContactID
}

// Contact manages the contact between two fixture children. It exists for
// every overlapping pair of broad-phase boxes that passes filtering, so it
// may have no contact points.
type Contact struct {
	id    ContactID
	flags ContactFlags

	nodeA, nodeB contactEdge

	fixtureA, fixtureB FixtureID
	bodyA, bodyB       BodyID
	indexA, indexB     int

	manifold collision.Manifold
	evaluate evaluateFunc

	toiCount int
	toi      float64

	friction     float64
	restitution  float64
	tangentSpeed float64
}

func (c *Contact) ID() ContactID                 { return c.id }
func (c *Contact) Flags() ContactFlags           { return c.flags }
func (c *Contact) FixtureA() FixtureID           { return c.fixtureA }
func (c *Contact) FixtureB() FixtureID           { return c.fixtureB }
func (c *Contact) BodyA() BodyID                 { return c.bodyA }
func (c *Contact) BodyB() BodyID                 { return c.bodyB }
func (c *Contact) ChildIndexA() int              { return c.indexA }
func (c *Contact) ChildIndexB() int              { return c.indexB }
func (c *Contact) Manifold() *collision.Manifold { return &c.manifold }
func (c *Contact) IsTouching() bool              { return c.flags.Has(ContactTouching) }
func (c *Contact) IsEnabled() bool               { return c.flags.Has(ContactEnabled) }
func (c *Contact) Friction() float64             { return c.friction }
func (c *Contact) SetFriction(friction float64)  { c.friction = friction }
func (c *Contact) Restitution() float64          { return c.restitution }
func (c *Contact) SetRestitution(r float64)      { c.restitution = r }
func (c *Contact) TangentSpeed() float64         { return c.tangentSpeed }
func (c *Contact) SetTangentSpeed(speed float64) { c.tangentSpeed = speed }

// SetEnabled disables or re-enables the contact for the current step. It
// is re-enabled on every update, so a PreSolve listener must disable it
// each step.
func (c *Contact) SetEnabled(flag bool) {
	c.flags.Set(ContactEnabled, flag)
}

// FlagForFiltering makes the next collide pass re-run filtering.
func (c *Contact) FlagForFiltering() {
	c.flags.Set(ContactFilterFlag, true)
}

// edge returns the list node of c in body b's contact list.
func (c *Contact) edge(b BodyID) *contactEdge {
	if c.bodyA == b {
		return &c.nodeA
	}
	return &c.nodeB
}

// other returns the body on the opposite side of b.
func (c *Contact) other(b BodyID) BodyID {
	if c.bodyA == b {
		return c.bodyB
	}
	return c.bodyA
}

func newContact(fA *Fixture, indexA int, fB *Fixture, indexB int) *Contact {
	reg := contactRegistry[fA.Type()][fB.Type()]
	if reg.evaluate == nil {
		return nil
	}
	if !reg.primary {
		fA, fB = fB, fA
		indexA, indexB = indexB, indexA
	}
	return &Contact{
		flags:       ContactEnabled,
		fixtureA:    fA.id,
		fixtureB:    fB.id,
		bodyA:       fA.body,
		bodyB:       fB.body,
		indexA:      indexA,
		indexB:      indexB,
		evaluate:    reg.evaluate,
		toi:         1,
		friction:    MixFriction(fA.friction, fB.friction),
		restitution: MixRestitution(fA.restitution, fB.restitution),
	}
}

// update refreshes the manifold and touching state. The fixture boxes are
// not assumed to overlap.
func (c *Contact) update(fA, fB *Fixture, bA, bB *Body, listener ContactListener) {
	oldManifold := c.manifold

	// re-enable
	c.flags.Set(ContactEnabled, true)

	wasTouching := c.IsTouching()
	touching := false

	sensor := fA.isSensor || fB.isSensor
	xfA, xfB := bA.xf, bB.xf

	if sensor {
		touching = collision.TestOverlap(fA.shape, c.indexA, fB.shape, c.indexB, xfA, xfB)

		// sensors don't generate manifolds
		c.manifold.PointCount = 0
	} else {
		c.evaluate(&c.manifold, fA.shape, c.indexA, xfA, fB.shape, c.indexB, xfB)
		touching = c.manifold.PointCount > 0

		// match old ids to new ones and carry impulses over for warm
		// starting
		for i := 0; i < c.manifold.PointCount; i++ {
			mp2 := &c.manifold.Points[i]
			mp2.NormalImpulse = 0
			mp2.TangentImpulse = 0
			key := mp2.ID.Key()
			for j := 0; j < oldManifold.PointCount; j++ {
				mp1 := &oldManifold.Points[j]
				if mp1.ID.Key() == key {
					mp2.NormalImpulse = mp1.NormalImpulse
					mp2.TangentImpulse = mp1.TangentImpulse
					break
				}
			}
		}

		if touching != wasTouching {
			bA.SetAwake(true)
			bB.SetAwake(true)
		}
	}

	c.flags.Set(ContactTouching, touching)

	if listener == nil {
		return
	}
	if !wasTouching && touching {
		listener.BeginContact(c)
	}
	if wasTouching && !touching {
		listener.EndContact(c)
	}
	if !sensor && touching {
		listener.PreSolve(c, &oldManifold)
	}
}
