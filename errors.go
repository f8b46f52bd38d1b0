package rigid2d

import "errors"

var (
	// ErrLocked is returned by structural mutations issued while the world
	// is stepping, typically from a listener callback.
	ErrLocked = errors.New("rigid2d: world is locked")

	// ErrStaleHandle is returned when a handle refers to a destroyed object.
	ErrStaleHandle = errors.New("rigid2d: stale handle")

	// ErrInvalidDef wraps validation failures of body and fixture
	// definitions.
	ErrInvalidDef = errors.New("rigid2d: invalid definition")

	// ErrUnknownFormat is returned by LoadSettings for unsupported file
	// extensions.
	ErrUnknownFormat = errors.New("rigid2d: unknown settings format")
)
