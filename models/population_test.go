package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome_LenientDecode(t *testing.T) {
	var req SyncRequest
	payload := `{
		"userHash": "abc123",
		"archetype": "REBEL",
		"outcomes": [
			{"armId": "good", "success": true},
			{"armId": "bad", "success": "yes"},
			{"armId": 42, "success": false},
			{"armId": "no_success"},
			"not an object"
		]
	}`
	require.NoError(t, json.Unmarshal([]byte(payload), &req))
	require.Len(t, req.Outcomes, 5)

	// Well-formed entry decodes fully
	assert.Equal(t, "good", req.Outcomes[0].ArmID)
	require.NotNil(t, req.Outcomes[0].Success)
	assert.True(t, *req.Outcomes[0].Success)

	// Non-boolean success leaves Success nil so the entry is skipped
	assert.Equal(t, "bad", req.Outcomes[1].ArmID)
	assert.Nil(t, req.Outcomes[1].Success)

	// Non-string armId leaves ArmID empty so the entry is skipped
	assert.Equal(t, "", req.Outcomes[2].ArmID)

	// Missing success stays nil; non-object entries decode to zero values
	assert.Nil(t, req.Outcomes[3].Success)
	assert.Equal(t, "", req.Outcomes[4].ArmID)
}
