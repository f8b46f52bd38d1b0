package rigid2d

import (
	"github.com/ByteArena/rigid2d/geom"
	"github.com/ByteArena/rigid2d/internal/arena"
	"github.com/go-gl/mathgl/mgl64"
)

// JointID is a handle to a joint owned by a World.
type JointID arena.Handle

// IsNil reports whether id is the zero handle.
func (id JointID) IsNil() bool { return id.Index == 0 }

// JointType identifies the concrete joint.
type JointType uint8

const (
	UnknownJoint JointType = iota
	DistanceJointType
	RopeJointType
)

func (t JointType) String() string {
	switch t {
	case DistanceJointType:
		return "distance"
	case RopeJointType:
		return "rope"
	default:
		return "unknown"
	}
}

// JointDef holds the fields common to every joint definition.
type JointDef struct {
	BodyA, BodyB BodyID

	// CollideConnected lets the attached bodies collide with each other.
	CollideConnected bool

	UserData any
}

// JointDefinition is implemented by the concrete joint definitions
// accepted by World.CreateJoint.
type JointDefinition interface {
	jointDef() *JointDef
	newJoint() Joint
}

// Joint constrains two bodies. Joints are solved inside islands together
// with contacts.
type Joint interface {
	ID() JointID
	Type() JointType
	BodyA() BodyID
	BodyB() BodyID
	CollideConnected() bool
	UserData() any
	SetUserData(data any)

	// ReactionForce returns the constraint force on body B at its anchor.
	ReactionForce(invDt float64) mgl64.Vec2
	// ReactionTorque returns the constraint torque on body B.
	ReactionTorque(invDt float64) float64

	base() *jointBase
	initVelocityConstraints(data *solverData, bA, bB *Body)
	solveVelocityConstraints(data *solverData)
	solvePositionConstraints(data *solverData) bool
}

// jointEdge links a joint into one body's joint list.
type jointEdge struct {
	other      BodyID
	prev, next JointID
}

type jointBase struct {
	id               JointID
	typ              JointType
	bodyA, bodyB     BodyID
	edgeA, edgeB     jointEdge
	island           bool
	collideConnected bool
	userData         any
}

func newJointBase(typ JointType, def *JointDef) jointBase {
	return jointBase{
		typ:              typ,
		bodyA:            def.BodyA,
		bodyB:            def.BodyB,
		collideConnected: def.CollideConnected,
		userData:         def.UserData,
	}
}

func (j *jointBase) ID() JointID            { return j.id }
func (j *jointBase) Type() JointType        { return j.typ }
func (j *jointBase) BodyA() BodyID          { return j.bodyA }
func (j *jointBase) BodyB() BodyID          { return j.bodyB }
func (j *jointBase) CollideConnected() bool { return j.collideConnected }
func (j *jointBase) UserData() any          { return j.userData }
func (j *jointBase) SetUserData(data any)   { j.userData = data }
func (j *jointBase) base() *jointBase       { return j }

func (j *jointBase) edge(b BodyID) *jointEdge {
	if j.bodyA == b {
		return &j.edgeA
	}
	return &j.edgeB
}

// anchorPair is the solver state of a joint acting along the line between
// two anchor points.
type anchorPair struct {
	localAnchorA, localAnchorB mgl64.Vec2

	indexA, indexB             int
	localCenterA, localCenterB mgl64.Vec2
	invMassA, invMassB         float64
	invIA, invIB               float64

	u, rA, rB mgl64.Vec2
}

// prepare caches body data and computes the anchor arms and the unit axis.
// It returns the current anchor distance; the axis is zero when that
// distance is below the linear slop.
func (p *anchorPair) prepare(data *solverData, bA, bB *Body) float64 {
	p.indexA, p.indexB = bA.islandIndex, bB.islandIndex
	p.localCenterA, p.localCenterB = bA.sweep.LocalCenter, bB.sweep.LocalCenter
	p.invMassA, p.invMassB = bA.invMass, bB.invMass
	p.invIA, p.invIB = bA.invI, bB.invI

	pA, pB := data.positions[p.indexA], data.positions[p.indexB]
	p.rA = geom.NewRot(pA.a).Apply(p.localAnchorA.Sub(p.localCenterA))
	p.rB = geom.NewRot(pB.a).Apply(p.localAnchorB.Sub(p.localCenterB))

	d := pB.c.Add(p.rB).Sub(pA.c).Sub(p.rA)
	length := d.Len()
	if length > data.settings.LinearSlop {
		p.u = d.Mul(1 / length)
	} else {
		p.u = mgl64.Vec2{}
	}
	return length
}

// invMass is the inverse effective mass along the axis.
func (p *anchorPair) invMass() float64 {
	crA := geom.Cross(p.rA, p.u)
	crB := geom.Cross(p.rB, p.u)
	return p.invMassA + p.invIA*crA*crA + p.invMassB + p.invIB*crB*crB
}

// cdot is the relative velocity of the anchors along the axis.
func (p *anchorPair) cdot(data *solverData) float64 {
	vA, vB := data.velocities[p.indexA], data.velocities[p.indexB]
	vpA := vA.v.Add(geom.CrossSV(vA.w, p.rA))
	vpB := vB.v.Add(geom.CrossSV(vB.w, p.rB))
	return p.u.Dot(vpB.Sub(vpA))
}

func (p *anchorPair) applyImpulse(data *solverData, impulse float64) {
	lin := p.u.Mul(impulse)
	vA, vB := &data.velocities[p.indexA], &data.velocities[p.indexB]
	vA.v = vA.v.Sub(lin.Mul(p.invMassA))
	vA.w -= p.invIA * geom.Cross(p.rA, lin)
	vB.v = vB.v.Add(lin.Mul(p.invMassB))
	vB.w += p.invIB * geom.Cross(p.rB, lin)
}

// correctPosition measures the anchor distance at the current solver
// positions and lets fn turn it into a clamped error. The error is pushed
// out along the axis with the given effective mass. It returns the
// distance.
func (p *anchorPair) correctPosition(data *solverData, mass float64, fn func(length float64) float64) float64 {
	pA, pB := &data.positions[p.indexA], &data.positions[p.indexB]

	rA := geom.NewRot(pA.a).Apply(p.localAnchorA.Sub(p.localCenterA))
	rB := geom.NewRot(pB.a).Apply(p.localAnchorB.Sub(p.localCenterB))
	u, length := geom.Normalize(pB.c.Add(rB).Sub(pA.c).Sub(rA))

	lin := u.Mul(-mass * fn(length))
	pA.c = pA.c.Sub(lin.Mul(p.invMassA))
	pA.a -= p.invIA * geom.Cross(rA, lin)
	pB.c = pB.c.Add(lin.Mul(p.invMassB))
	pB.a += p.invIB * geom.Cross(rB, lin)
	return length
}
