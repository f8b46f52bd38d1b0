package rigid2d

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByteArena/rigid2d/collision"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/require"
)

var update = flag.Bool("update", false, "rewrite the golden files in testdata")

// ballisticScene launches bodies that never touch, covering gravity
// scale, damping and the per-step translation and rotation clamps.
func ballisticScene(t *testing.T) (*World, []BodyID) {
	t.Helper()
	w := NewWorld(mgl64.Vec2{0, -10})

	defs := []BodyDef{
		{Position: mgl64.Vec2{0.1, 10}, GravityScale: 1},
		{Position: mgl64.Vec2{-5.2, 0.3}, LinearVelocity: mgl64.Vec2{3, 8}, GravityScale: 1},
		{Position: mgl64.Vec2{5.1, 5.2}, AngularVelocity: 2, AngularDamping: 0.5},
		{Position: mgl64.Vec2{10.3, 0.1}, LinearVelocity: mgl64.Vec2{4, 0}, LinearDamping: 0.8, GravityScale: 0.5},
		// 2.5 m per step, clamped to MaxTranslation
		{Position: mgl64.Vec2{-20.3, 20.1}, LinearVelocity: mgl64.Vec2{150, 0}},
		// 1.67 rad per step, clamped to MaxRotation
		{Position: mgl64.Vec2{0.2, -30.1}, AngularVelocity: 100},
	}

	var tracked []BodyID
	for _, def := range defs {
		def.Type = DynamicBody
		def.Awake = true
		def.Active = true
		tracked = append(tracked, addBody(t, w, def, collision.NewCircle(mgl64.Vec2{}, 0.25)))
	}
	return w, tracked
}

// stackScene builds a ground made of an edge and a chain, a pyramid of
// boxes, a few characters and a bullet fired into the pyramid.
func stackScene(t *testing.T) (*World, []BodyID) {
	t.Helper()
	w := NewWorld(mgl64.Vec2{0, -10})
	var tracked []BodyID

	ground := addBody(t, w, DefaultBodyDef(), collision.NewEdge(mgl64.Vec2{-20, 0}, mgl64.Vec2{20, 0}))
	chain, err := collision.NewChain([]mgl64.Vec2{{5, 7}, {6, 8}, {7, 8}, {8, 7}})
	require.NoError(t, err)
	_, err = w.CreateFixture(ground, DefaultFixtureDef(chain))
	require.NoError(t, err)

	const rows = 6
	for row := range rows {
		for col := range rows - row {
			x := -3 + float64(col)*1.05 + float64(row)*0.525
			y := 0.5 + float64(row)*1.0
			tracked = append(tracked, addBody(t, w, dynamicDef(x, y), collision.NewBox(0.5, 0.5)))
		}
	}

	hexagon := make([]mgl64.Vec2, 6)
	for i := range hexagon {
		a := float64(i) * math.Pi / 3
		hexagon[i] = mgl64.Vec2{0.5 * math.Cos(a), 0.5 * math.Sin(a)}
	}
	hex, err := collision.NewPolygon(hexagon)
	require.NoError(t, err)
	def := dynamicDef(6, 10)
	def.FixedRotation = true
	def.AllowSleep = false
	tracked = append(tracked, addBody(t, w, def, hex))

	def = dynamicDef(7, 12)
	def.AllowSleep = false
	tracked = append(tracked, addBody(t, w, def, collision.NewCircle(mgl64.Vec2{}, 0.25)))

	def = dynamicDef(-15, 1)
	def.Bullet = true
	def.LinearVelocity = mgl64.Vec2{120, 0}
	tracked = append(tracked, addBody(t, w, def, collision.NewCircle(mgl64.Vec2{}, 0.2)))

	return w, tracked
}

// recordScene steps the scene and prints the tracked bodies every
// `every` steps.
func recordScene(t *testing.T, scene func(*testing.T) (*World, []BodyID), steps, every int) string {
	w, tracked := scene(t)
	var out strings.Builder
	for i := range steps {
		require.NoError(t, w.Step(dt60, 8, 3))
		if (i+1)%every != 0 {
			continue
		}
		for n, id := range tracked {
			b := w.Body(id)
			fmt.Fprintf(&out, "%d(%02d): %4.3f %4.3f %4.3f\n", i, n, b.Position().X(), b.Position().Y(), b.Angle())
		}
	}
	return out.String()
}

func diffOutputs(t *testing.T, expected, current string) {
	t.Helper()
	if current == expected {
		return
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(current),
		FromFile: "Expected",
		ToFile:   "Current",
		Context:  0,
	}
	text, _ := difflib.GetUnifiedDiffString(diff)
	t.Fatalf("NOT matching the recorded output:\n%s", text)
}

func TestBallisticSceneMatchesGolden(t *testing.T) {
	path := filepath.Join("testdata", "ballistic.golden")
	current := recordScene(t, ballisticScene, 120, 10)

	if *update {
		require.NoError(t, os.WriteFile(path, []byte(current), 0o644))
	}
	expected, err := os.ReadFile(path)
	require.NoError(t, err)
	diffOutputs(t, string(expected), current)
}

func TestSimulationIsDeterministic(t *testing.T) {
	expected := recordScene(t, stackScene, 240, 1)
	current := recordScene(t, stackScene, 240, 1)
	diffOutputs(t, expected, current)
}

func TestStackSceneStaysFinite(t *testing.T) {
	w, tracked := stackScene(t)
	stepN(t, w, 240)
	for _, id := range tracked {
		p := w.Body(id).Position()
		require.False(t, math.IsNaN(p.X()) || math.IsNaN(p.Y()))
	}
	require.Positive(t, w.ContactCount())
	require.Positive(t, w.Profile().Step)
}
