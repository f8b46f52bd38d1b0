package rigid2d

import (
	"math"

	"github.com/ByteArena/rigid2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// RopeJointDef bounds the distance between two body points. It has no
// effect while the bodies are closer than MaxLength.
type RopeJointDef struct {
	JointDef

	LocalAnchorA mgl64.Vec2
	LocalAnchorB mgl64.Vec2

	// MaxLength is the maximum anchor distance. It must be larger than
	// the linear slop.
	MaxLength float64
}

func (d *RopeJointDef) jointDef() *JointDef { return &d.JointDef }

func (d *RopeJointDef) newJoint() Joint {
	return &RopeJoint{
		jointBase:  newJointBase(RopeJointType, &d.JointDef),
		anchorPair: anchorPair{localAnchorA: d.LocalAnchorA, localAnchorB: d.LocalAnchorB},
		maxLength:  d.MaxLength,
	}
}

// RopeJoint enforces a maximum distance between two anchors.
type RopeJoint struct {
	jointBase
	anchorPair

	maxLength float64
	length    float64
	impulse   float64
	mass      float64
	atLimit   bool
}

func (j *RopeJoint) LocalAnchorA() mgl64.Vec2       { return j.localAnchorA }
func (j *RopeJoint) LocalAnchorB() mgl64.Vec2       { return j.localAnchorB }
func (j *RopeJoint) MaxLength() float64             { return j.maxLength }
func (j *RopeJoint) SetMaxLength(length float64)    { j.maxLength = length }
func (j *RopeJoint) AtLimit() bool                  { return j.atLimit }
func (j *RopeJoint) ReactionTorque(float64) float64 { return 0 }

func (j *RopeJoint) ReactionForce(invDt float64) mgl64.Vec2 {
	return j.u.Mul(invDt * j.impulse)
}

func (j *RopeJoint) initVelocityConstraints(data *solverData, bA, bB *Body) {
	j.length = j.prepare(data, bA, bB)
	j.atLimit = j.length-j.maxLength > 0

	if j.length <= data.settings.LinearSlop {
		j.mass = 0
		j.impulse = 0
		return
	}

	j.mass = 0
	if invMass := j.invMass(); invMass != 0 {
		j.mass = 1 / invMass
	}

	if data.step.warmStarting {
		j.impulse *= data.step.dtRatio
		j.applyImpulse(data, j.impulse)
	} else {
		j.impulse = 0
	}
}

func (j *RopeJoint) solveVelocityConstraints(data *solverData) {
	c := j.length - j.maxLength
	cdot := j.cdot(data)

	// predictive constraint
	if c < 0 {
		cdot += data.step.invDt * c
	}

	impulse := -j.mass * cdot
	old := j.impulse
	j.impulse = math.Min(0, j.impulse+impulse)
	j.applyImpulse(data, j.impulse-old)
}

func (j *RopeJoint) solvePositionConstraints(data *solverData) bool {
	maxCorrection := data.settings.MaxLinearCorrection
	length := j.correctPosition(data, j.mass, func(length float64) float64 {
		return geom.Clamp(length-j.maxLength, 0, maxCorrection)
	})
	return length-j.maxLength < data.settings.LinearSlop
}
