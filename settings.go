package rigid2d

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Settings holds the tuning constants of the solver. They are based on
// meters-kilograms-seconds units; angles are in radians.
type Settings struct {
	// LinearSlop is the collision and constraint tolerance. Numerically
	// significant but visually insignificant.
	LinearSlop float64 `yaml:"linearSlop" toml:"linearSlop"`

	// AABBExtension fattens broad-phase proxies so small moves don't
	// trigger a tree update.
	AABBExtension float64 `yaml:"aabbExtension" toml:"aabbExtension"`
	// AABBMultiplier scales the displacement used to predict proxy motion.
	AABBMultiplier float64 `yaml:"aabbMultiplier" toml:"aabbMultiplier"`

	// MaxSubSteps caps TOI events per contact per step.
	MaxSubSteps int `yaml:"maxSubSteps" toml:"maxSubSteps"`
	// MaxTOIContacts caps the contacts gathered into a TOI mini-island.
	MaxTOIContacts int `yaml:"maxTOIContacts" toml:"maxTOIContacts"`

	// VelocityThreshold: collisions slower than this are inelastic.
	VelocityThreshold float64 `yaml:"velocityThreshold" toml:"velocityThreshold"`
	// MaxLinearCorrection bounds one position correction to prevent
	// overshoot.
	MaxLinearCorrection float64 `yaml:"maxLinearCorrection" toml:"maxLinearCorrection"`
	// MaxTranslation bounds the translation of a body in one step.
	MaxTranslation float64 `yaml:"maxTranslation" toml:"maxTranslation"`
	// MaxRotation bounds the rotation of a body in one step.
	MaxRotation float64 `yaml:"maxRotation" toml:"maxRotation"`

	// Baumgarte controls how fast overlap is resolved. Values close to 1
	// overshoot.
	Baumgarte    float64 `yaml:"baumgarte" toml:"baumgarte"`
	TOIBaumgarte float64 `yaml:"toiBaumgarte" toml:"toiBaumgarte"`

	// TimeToSleep is how long a body must be still before it sleeps.
	TimeToSleep           float64 `yaml:"timeToSleep" toml:"timeToSleep"`
	LinearSleepTolerance  float64 `yaml:"linearSleepTolerance" toml:"linearSleepTolerance"`
	AngularSleepTolerance float64 `yaml:"angularSleepTolerance" toml:"angularSleepTolerance"`

	TOIPositionIterations int `yaml:"toiPositionIterations" toml:"toiPositionIterations"`
	TOIMaxIterations      int `yaml:"toiMaxIterations" toml:"toiMaxIterations"`
	TOIMaxRootIterations  int `yaml:"toiMaxRootIterations" toml:"toiMaxRootIterations"`

	// MaxConditionNumber guards the two-point block solver against an
	// ill-conditioned effective mass.
	MaxConditionNumber float64 `yaml:"maxConditionNumber" toml:"maxConditionNumber"`
}

// DefaultSettings returns the reference tuning.
func DefaultSettings() Settings {
	return Settings{
		LinearSlop:            0.005,
		AABBExtension:         0.1,
		AABBMultiplier:        2.0,
		MaxSubSteps:           8,
		MaxTOIContacts:        32,
		VelocityThreshold:     1.0,
		MaxLinearCorrection:   0.2,
		MaxTranslation:        2.0,
		MaxRotation:           0.5 * math.Pi,
		Baumgarte:             0.2,
		TOIBaumgarte:          0.75,
		TimeToSleep:           0.5,
		LinearSleepTolerance:  0.01,
		AngularSleepTolerance: 2.0 / 180.0 * math.Pi,
		TOIPositionIterations: 20,
		TOIMaxIterations:      20,
		TOIMaxRootIterations:  50,
		MaxConditionNumber:    1000.0,
	}
}

// LoadSettings reads settings from a YAML (.yaml, .yml) or TOML (.toml)
// file. Fields missing from the file keep their default value.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("rigid2d: read settings: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(&s); errors.Is(err, io.EOF) {
			// empty document
			err = nil
		}
	case ".toml":
		err = toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&s)
	default:
		return DefaultSettings(), fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	if err != nil {
		return DefaultSettings(), fmt.Errorf("rigid2d: decode %s: %w", path, err)
	}

	if err := s.Validate(); err != nil {
		return DefaultSettings(), err
	}
	return s, nil
}

// WriteTOML encodes s as TOML.
func (s Settings) WriteTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(s)
}

// Validate rejects non-positive or non-finite values.
func (s Settings) Validate() error {
	v := reflect.ValueOf(s)
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		name := t.Field(i).Tag.Get("yaml")
		f := v.Field(i)
		switch f.Kind() {
		case reflect.Float64:
			x := f.Float()
			if math.IsNaN(x) || math.IsInf(x, 0) || x <= 0 {
				return fmt.Errorf("rigid2d: setting %s = %v: %w", name, x, ErrInvalidDef)
			}
		case reflect.Int:
			if f.Int() <= 0 {
				return fmt.Errorf("rigid2d: setting %s = %d: %w", name, f.Int(), ErrInvalidDef)
			}
		}
	}
	return nil
}
