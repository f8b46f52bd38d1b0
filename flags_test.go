package rigid2d

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagsAreDistinctBits(t *testing.T) {
	body := []BodyFlags{BodyIsland, BodyAwake, BodyAutoSleep, BodyBullet, BodyFixedRotation, BodyActive}
	var seen BodyFlags
	for _, flag := range body {
		assert.Equal(t, 1, bits.OnesCount16(uint16(flag)))
		assert.False(t, seen.Has(flag))
		seen.Set(flag, true)
	}
	assert.Equal(t, BodyFlags(1<<len(body)-1), seen)

	contact := []ContactFlags{ContactIsland, ContactTouching, ContactEnabled, ContactFilterFlag, ContactTOI}
	var cf ContactFlags
	for _, flag := range contact {
		assert.False(t, cf.Has(flag))
		cf.Set(flag, true)
		assert.True(t, cf.Has(flag))
	}
	assert.Equal(t, ContactFlags(1<<len(contact)-1), cf)

	cf.Set(ContactTouching, false)
	assert.False(t, cf.Has(ContactTouching))
	assert.True(t, cf.Has(ContactEnabled))
}
