package models

import "encoding/json"

// ArchetypePrior is one Beta distribution per (archetype, arm). Created
// lazily on the first observed outcome with the uniform prior (1.0, 1.0);
// alpha and beta only ever increase.
type ArchetypePrior struct {
	Archetype   string  `dynamodbav:"archetype" json:"archetype"` // ✅ Partition Key
	ArmID       string  `dynamodbav:"armId" json:"armId"`         // ✅ Sort Key
	Alpha       float64 `dynamodbav:"alpha" json:"alpha"`
	Beta        float64 `dynamodbav:"beta" json:"beta"`
	SampleCount int     `dynamodbav:"sampleCount" json:"sampleCount"`
	LastUpdated string  `dynamodbav:"lastUpdated" json:"lastUpdated"`
}

// ContributionEntry marks one sync session for rate limiting. It carries no
// per-arm detail, only that the (hashed) user contributed for an archetype.
type ContributionEntry struct {
	UserHash      string `dynamodbav:"userHash" json:"userHash"`   // ✅ Partition Key
	Archetype     string `dynamodbav:"archetype" json:"archetype"` // ✅ Sort Key
	EntryID       string `dynamodbav:"entryId" json:"entryId"`
	ContributedAt string `dynamodbav:"contributedAt" json:"contributedAt"`
	ExpiresAt     int64  `dynamodbav:"expiresAt" json:"expiresAt"` // epoch seconds, usable as a TTL attribute
}

// Outcome is one observed result for an arm. Success is a pointer so a
// missing or non-boolean value can be told apart from false and skipped as
// malformed.
type Outcome struct {
	ArmID   string `json:"armId"`
	Success *bool  `json:"success"`
}

// UnmarshalJSON decodes one outcome leniently: a wrong-typed armId or
// success leaves the field zero-valued instead of failing the whole batch,
// so malformed entries fall through to the skip path.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var raw struct {
		ArmID   json.RawMessage `json:"armId"`
		Success json.RawMessage `json:"success"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		// Entry is not an object; leave it zero-valued to be skipped
		return nil
	}

	if raw.ArmID != nil {
		var armID string
		if err := json.Unmarshal(raw.ArmID, &armID); err == nil {
			o.ArmID = armID
		}
	}
	if raw.Success != nil {
		var success bool
		if err := json.Unmarshal(raw.Success, &success); err == nil {
			o.Success = &success
		}
	}
	return nil
}

// SyncRequest is the body of POST /api/population/sync.
type SyncRequest struct {
	UserHash  string    `json:"userHash"`
	Archetype string    `json:"archetype"`
	Outcomes  []Outcome `json:"outcomes"`
}

// OutcomeResult reports per-arm processing status ("success" or "error").
type OutcomeResult struct {
	ArmID  string `json:"armId"`
	Status string `json:"status"`
}

// SyncResponse is the 200 body of the sync endpoint.
type SyncResponse struct {
	Success bool            `json:"success"`
	Results []OutcomeResult `json:"results"`
	Message string          `json:"message"`
}

// PriorSnapshot is the client-facing view of one arm's prior.
type PriorSnapshot struct {
	Alpha       float64 `json:"alpha"`
	Beta        float64 `json:"beta"`
	SampleCount int     `json:"sampleCount"`
}

// PriorsResponse is the 200 body of the fetch endpoint. LastUpdated is nil
// when the archetype has no contributions yet.
type PriorsResponse struct {
	Archetype   string                   `json:"archetype"`
	Priors      map[string]PriorSnapshot `json:"priors"`
	LastUpdated *string                  `json:"lastUpdated"`
	ArmCount    int                      `json:"armCount"`
}
