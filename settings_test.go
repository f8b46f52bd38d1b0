package rigid2d

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultSettingsAreValid(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, 0.005, s.LinearSlop)
	assert.InDelta(t, 2*math.Pi/180, s.AngularSleepTolerance, tol)
	assert.Equal(t, 8, s.MaxSubSteps)
	assert.Equal(t, 32, s.MaxTOIContacts)
	assert.Equal(t, 0.75, s.TOIBaumgarte)
}

func TestLoadSettingsYAML(t *testing.T) {
	path := writeFile(t, "physics.yaml", "linearSlop: 0.01\nmaxSubSteps: 4\ntimeToSleep: 2\n")

	s, err := LoadSettings(path)
	require.NoError(t, err)

	want := DefaultSettings()
	want.LinearSlop = 0.01
	want.MaxSubSteps = 4
	want.TimeToSleep = 2
	assert.Equal(t, want, s)
}

func TestLoadSettingsEmptyYAMLKeepsDefaults(t *testing.T) {
	s, err := LoadSettings(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadSettingsTOML(t *testing.T) {
	path := writeFile(t, "physics.toml", "baumgarte = 0.3\nvelocityThreshold = 0.5\n")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 0.3, s.Baumgarte)
	assert.Equal(t, 0.5, s.VelocityThreshold)
	assert.Equal(t, DefaultSettings().LinearSlop, s.LinearSlop)
}

func TestWriteTOMLRoundTrip(t *testing.T) {
	s := DefaultSettings()
	s.MaxTranslation = 4

	var buf bytes.Buffer
	require.NoError(t, s.WriteTOML(&buf))
	assert.Contains(t, buf.String(), "maxTranslation = 4")

	got, err := LoadSettings(writeFile(t, "out.toml", buf.String()))
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestLoadSettingsErrors(t *testing.T) {
	t.Run("unknown extension", func(t *testing.T) {
		_, err := LoadSettings(writeFile(t, "physics.json", "{}"))
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadSettings(writeFile(t, "bad.yml", "linearSlop: [1, 2\n"))
		assert.Error(t, err)
	})

	t.Run("unknown yaml key", func(t *testing.T) {
		_, err := LoadSettings(writeFile(t, "bad.yaml", "linearSlope: 1\n"))
		assert.Error(t, err)
	})

	t.Run("angular correction keys are not settings", func(t *testing.T) {
		_, err := LoadSettings(writeFile(t, "old.yaml", "angularSlop: 0.03\nmaxAngularCorrection: 0.1\n"))
		assert.Error(t, err)
		_, err = LoadSettings(writeFile(t, "old.toml", "angularSlop = 0.03\n"))
		assert.Error(t, err)
	})

	t.Run("unknown toml key", func(t *testing.T) {
		_, err := LoadSettings(writeFile(t, "bad.toml", "linearSlope = 1\n"))
		assert.Error(t, err)
	})

	t.Run("non-positive value", func(t *testing.T) {
		s, err := LoadSettings(writeFile(t, "zero.yaml", "maxSubSteps: 0\n"))
		assert.ErrorIs(t, err, ErrInvalidDef)
		assert.Contains(t, err.Error(), "maxSubSteps")
		assert.Equal(t, DefaultSettings(), s)
	})
}

func TestWorldUsesSettings(t *testing.T) {
	s := DefaultSettings()
	s.TimeToSleep = 0.1
	w := NewWorld(mgl64.Vec2{}, WithSettings(s))
	assert.Equal(t, s, w.Settings())

	id := addBody(t, w, dynamicDef(0, 0))
	stepN(t, w, 10)
	assert.False(t, w.Body(id).IsAwake(), "a still body sleeps after TimeToSleep")
}
