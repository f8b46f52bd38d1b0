package rigid2d

import (
	"github.com/ByteArena/rigid2d/collision"
	"github.com/ByteArena/rigid2d/geom"
	"github.com/ByteArena/rigid2d/internal/arena"
)

// FixtureID is a handle to a fixture owned by a World.
type FixtureID arena.Handle

// IsNil reports whether id is the zero handle.
func (id FixtureID) IsNil() bool { return id.Index == 0 }

// Filter holds collision filtering data.
type Filter struct {
	// CategoryBits is the collision category. Usually only one bit is set.
	CategoryBits uint16
	// MaskBits lists the categories this fixture accepts collision with.
	MaskBits uint16
	// GroupIndex overrides the bits for fixtures of the same group:
	// positive groups always collide, negative groups never do.
	GroupIndex int16
}

// DefaultFilter collides with everything.
func DefaultFilter() Filter {
	return Filter{CategoryBits: 0x0001, MaskBits: 0xFFFF}
}

// FixtureDef is used to create a fixture. The shape is cloned, so the
// definition can be reused.
type FixtureDef struct {
	Shape       collision.Shape
	UserData    any
	Friction    float64
	Restitution float64
	// Density in kg/m², used for mass properties.
	Density  float64
	IsSensor bool
	Filter   Filter
}

// DefaultFixtureDef returns a definition with friction 0.2 and the
// default filter.
func DefaultFixtureDef(shape collision.Shape) FixtureDef {
	return FixtureDef{
		Shape:    shape,
		Friction: 0.2,
		Filter:   DefaultFilter(),
	}
}

// proxyKey is the broad-phase user data of a fixture child.
type proxyKey struct {
	fixture FixtureID
	child   int
}

type fixtureProxy struct {
	aabb    collision.AABB
	proxyID int
}

// Fixture attaches a shape to a body for collision detection.
type Fixture struct {
	id      FixtureID
	body    BodyID
	next    FixtureID
	shape   collision.Shape
	density float64

	friction    float64
	restitution float64

	// one per shape child while the body is active
	proxies []fixtureProxy

	filter   Filter
	isSensor bool
	userData any
}

func newFixture(body BodyID, def *FixtureDef) *Fixture {
	return &Fixture{
		body:        body,
		shape:       def.Shape.Clone(),
		density:     def.Density,
		friction:    def.Friction,
		restitution: def.Restitution,
		filter:      def.Filter,
		isSensor:    def.IsSensor,
		userData:    def.UserData,
	}
}

func (f *Fixture) ID() FixtureID                { return f.id }
func (f *Fixture) Body() BodyID                 { return f.body }
func (f *Fixture) Next() FixtureID              { return f.next }
func (f *Fixture) Shape() collision.Shape       { return f.shape }
func (f *Fixture) Type() collision.ShapeType    { return f.shape.Type() }
func (f *Fixture) IsSensor() bool               { return f.isSensor }
func (f *Fixture) FilterData() Filter           { return f.filter }
func (f *Fixture) Density() float64             { return f.density }
func (f *Fixture) Friction() float64            { return f.friction }
func (f *Fixture) Restitution() float64         { return f.restitution }
func (f *Fixture) UserData() any                { return f.userData }
func (f *Fixture) SetUserData(data any)         { f.userData = data }
func (f *Fixture) SetFriction(friction float64) { f.friction = friction }
func (f *Fixture) SetRestitution(r float64)     { f.restitution = r }
func (f *Fixture) ProxyCount() int              { return len(f.proxies) }
func (f *Fixture) MassData() collision.MassData { return f.shape.ComputeMass(f.density) }

// SetDensity changes the density. Call World.ResetMassData to update the
// body.
func (f *Fixture) SetDensity(density float64) {
	f.density = density
}

// AABB returns the broad-phase box of a child. It is only meaningful while
// the body is active.
func (f *Fixture) AABB(child int) collision.AABB {
	return f.proxies[child].aabb
}

func (f *Fixture) createProxies(bp *collision.BroadPhase, b *Body) {
	n := f.shape.ChildCount()
	f.proxies = make([]fixtureProxy, n)
	for i := 0; i < n; i++ {
		p := &f.proxies[i]
		p.aabb = f.shape.ComputeAABB(b.xf, i)
		p.proxyID = bp.CreateProxy(p.aabb, proxyKey{fixture: f.id, child: i})
	}
}

func (f *Fixture) destroyProxies(bp *collision.BroadPhase) {
	for _, p := range f.proxies {
		bp.DestroyProxy(p.proxyID)
	}
	f.proxies = nil
}

// synchronize moves every proxy to a box covering both transforms. The
// swept box may miss some rotation.
func (f *Fixture) synchronize(bp *collision.BroadPhase, xf1, xf2 geom.Transform) {
	displacement := xf2.P.Sub(xf1.P)
	for i := range f.proxies {
		p := &f.proxies[i]
		aabb1 := f.shape.ComputeAABB(xf1, i)
		aabb2 := f.shape.ComputeAABB(xf2, i)
		p.aabb = aabb1.Combine(aabb2)
		bp.MoveProxy(p.proxyID, p.aabb, displacement)
	}
}

func (f *Fixture) touchProxies(bp *collision.BroadPhase) {
	for _, p := range f.proxies {
		bp.TouchProxy(p.proxyID)
	}
}

// shouldCollide is the default filter: group first, then category and
// mask.
func (filter Filter) shouldCollide(other Filter) bool {
	if filter.GroupIndex == other.GroupIndex && filter.GroupIndex != 0 {
		return filter.GroupIndex > 0
	}
	return filter.MaskBits&other.CategoryBits != 0 && filter.CategoryBits&other.MaskBits != 0
}
