package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidArchetype(t *testing.T) {
	for _, archetype := range ValidArchetypes {
		assert.True(t, IsValidArchetype(archetype), archetype)
	}

	assert.False(t, IsValidArchetype(""))
	assert.False(t, IsValidArchetype("VILLAIN"))
	assert.False(t, IsValidArchetype("rebel")) // case sensitive
}
