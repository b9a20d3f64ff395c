package models

import "time"

// ✅ User behavior archetypes (closed set, used as the priors partition key)
const (
	ArchetypeRebel          = "REBEL"
	ArchetypePerfectionist  = "PERFECTIONIST"
	ArchetypeProcrastinator = "PROCRASTINATOR"
	ArchetypeOverthinker    = "OVERTHINKER"
	ArchetypePleasureSeeker = "PLEASURE_SEEKER"
	ArchetypePeoplePleaser  = "PEOPLE_PLEASER"
)

// ValidArchetypes is the single source of truth for archetype validation.
// Both the sync and fetch operations validate against this list so the two
// endpoints can never drift apart.
var ValidArchetypes = []string{
	ArchetypeRebel,
	ArchetypePerfectionist,
	ArchetypeProcrastinator,
	ArchetypeOverthinker,
	ArchetypePleasureSeeker,
	ArchetypePeoplePleaser,
}

// IsValidArchetype reports whether a is one of the six known archetypes.
func IsValidArchetype(a string) bool {
	for _, valid := range ValidArchetypes {
		if a == valid {
			return true
		}
	}
	return false
}

// LearningRate is how much a single outcome nudges a prior's alpha (on
// success) or beta (on failure).
const LearningRate = 0.1

// ContributionWindow is the rolling period during which a user may
// contribute at most one sync batch per archetype.
const ContributionWindow = 24 * time.Hour

// PriorsCacheMaxAge is the Cache-Control max-age (in seconds) for fetch
// responses. Priors change slowly, so a few minutes of staleness is fine.
const PriorsCacheMaxAge = 300
