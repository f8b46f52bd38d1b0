package rigid2d

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Profile holds the duration of each phase of the last step.
type Profile struct {
	Step          time.Duration
	Collide       time.Duration
	Solve         time.Duration
	SolveInit     time.Duration
	SolveVelocity time.Duration
	SolvePosition time.Duration
	Broadphase    time.Duration
	SolveTOI      time.Duration
}

type timeStep struct {
	dt                 float64
	invDt              float64 // 0 when dt == 0
	dtRatio            float64 // dt * invDt0
	velocityIterations int
	positionIterations int
	warmStarting       bool
}

type position struct {
	c mgl64.Vec2
	a float64
}

type velocity struct {
	v mgl64.Vec2
	w float64
}

// solverData is shared by the island solver and the joints.
type solverData struct {
	step       timeStep
	positions  []position
	velocities []velocity
	settings   *Settings
}
