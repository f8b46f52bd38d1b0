package rigid2d

import (
	"math"

	"github.com/ByteArena/rigid2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// DistanceJointDef requires two body points to keep a fixed distance. The
// anchors should not coincide.
type DistanceJointDef struct {
	JointDef

	// LocalAnchorA and LocalAnchorB are relative to the body origins.
	LocalAnchorA mgl64.Vec2
	LocalAnchorB mgl64.Vec2

	// Length is the rest length.
	Length float64

	// FrequencyHz is the mass-spring-damper frequency; 0 makes the joint
	// rigid.
	FrequencyHz float64

	// DampingRatio: 0 is no damping, 1 is critical damping.
	DampingRatio float64
}

// NewDistanceJointDef anchors the joint at two world points and uses their
// current distance as the rest length.
func NewDistanceJointDef(bA, bB *Body, anchorA, anchorB mgl64.Vec2) DistanceJointDef {
	return DistanceJointDef{
		JointDef:     JointDef{BodyA: bA.id, BodyB: bB.id},
		LocalAnchorA: bA.LocalPoint(anchorA),
		LocalAnchorB: bB.LocalPoint(anchorB),
		Length:       anchorB.Sub(anchorA).Len(),
	}
}

func (d *DistanceJointDef) jointDef() *JointDef { return &d.JointDef }

func (d *DistanceJointDef) newJoint() Joint {
	return &DistanceJoint{
		jointBase:    newJointBase(DistanceJointType, &d.JointDef),
		anchorPair:   anchorPair{localAnchorA: d.LocalAnchorA, localAnchorB: d.LocalAnchorB},
		length:       d.Length,
		frequencyHz:  d.FrequencyHz,
		dampingRatio: d.DampingRatio,
	}
}

// DistanceJoint keeps two anchors at a rest length, rigidly or as a soft
// spring.
type DistanceJoint struct {
	jointBase
	anchorPair

	length       float64
	frequencyHz  float64
	dampingRatio float64

	bias    float64
	gamma   float64
	impulse float64
	mass    float64
}

func (j *DistanceJoint) LocalAnchorA() mgl64.Vec2       { return j.localAnchorA }
func (j *DistanceJoint) LocalAnchorB() mgl64.Vec2       { return j.localAnchorB }
func (j *DistanceJoint) Length() float64                { return j.length }
func (j *DistanceJoint) SetLength(length float64)       { j.length = length }
func (j *DistanceJoint) Frequency() float64             { return j.frequencyHz }
func (j *DistanceJoint) SetFrequency(hz float64)        { j.frequencyHz = hz }
func (j *DistanceJoint) DampingRatio() float64          { return j.dampingRatio }
func (j *DistanceJoint) SetDampingRatio(r float64)      { j.dampingRatio = r }
func (j *DistanceJoint) ReactionTorque(float64) float64 { return 0 }

func (j *DistanceJoint) ReactionForce(invDt float64) mgl64.Vec2 {
	return j.u.Mul(invDt * j.impulse)
}

func (j *DistanceJoint) initVelocityConstraints(data *solverData, bA, bB *Body) {
	length := j.prepare(data, bA, bB)

	invMass := j.invMass()
	j.mass = 0
	if invMass != 0 {
		j.mass = 1 / invMass
	}

	if j.frequencyHz > 0 {
		c := length - j.length

		omega := 2 * math.Pi * j.frequencyHz
		d := 2 * j.mass * j.dampingRatio * omega // damping coefficient
		k := j.mass * omega * omega              // spring stiffness

		// soft constraint
		h := data.step.dt
		j.gamma = h * (d + h*k)
		if j.gamma != 0 {
			j.gamma = 1 / j.gamma
		}
		j.bias = c * h * k * j.gamma

		invMass += j.gamma
		j.mass = 0
		if invMass != 0 {
			j.mass = 1 / invMass
		}
	} else {
		j.gamma = 0
		j.bias = 0
	}

	if data.step.warmStarting {
		j.impulse *= data.step.dtRatio
		j.applyImpulse(data, j.impulse)
	} else {
		j.impulse = 0
	}
}

func (j *DistanceJoint) solveVelocityConstraints(data *solverData) {
	impulse := -j.mass * (j.cdot(data) + j.bias + j.gamma*j.impulse)
	j.impulse += impulse
	j.applyImpulse(data, impulse)
}

func (j *DistanceJoint) solvePositionConstraints(data *solverData) bool {
	if j.frequencyHz > 0 {
		// soft joints have no position correction
		return true
	}

	maxCorrection := data.settings.MaxLinearCorrection
	var c float64
	j.correctPosition(data, j.mass, func(length float64) float64 {
		c = geom.Clamp(length-j.length, -maxCorrection, maxCorrection)
		return c
	})
	return math.Abs(c) < data.settings.LinearSlop
}
