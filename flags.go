package rigid2d

// BodyFlags is the state bitset of a body.
type BodyFlags uint16

const (
	BodyIsland BodyFlags = 1 << iota
	BodyAwake
	BodyAutoSleep
	BodyBullet
	BodyFixedRotation
	BodyActive
)

func (f BodyFlags) Has(flag BodyFlags) bool { return f&flag != 0 }

func (f *BodyFlags) Set(flag BodyFlags, on bool) {
	if on {
		*f |= flag
	} else {
		*f &^= flag
	}
}

// ContactFlags is the state bitset of a contact.
type ContactFlags uint16

const (
	// ContactIsland is set while crawling the contact graph into islands.
	ContactIsland ContactFlags = 1 << iota
	// ContactTouching is set when the shapes touch.
	ContactTouching
	// ContactEnabled can be cleared by a pre-solve listener.
	ContactEnabled
	// ContactFilterFlag requests re-filtering after a fixture filter change.
	ContactFilterFlag
	// ContactTOI is set when the cached TOI is valid.
	ContactTOI
)

func (f ContactFlags) Has(flag ContactFlags) bool { return f&flag != 0 }

func (f *ContactFlags) Set(flag ContactFlags, on bool) {
	if on {
		*f |= flag
	} else {
		*f &^= flag
	}
}
