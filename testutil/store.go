// Package testutil provides an in-memory PriorsStore for tests, mirroring
// the DynamoDB store's update semantics without a live table.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pact_server/models"
)

// InMemoryPriorsStore implements services.PriorsStore on plain maps.
// Safe for concurrent use; the sync path prunes from a goroutine.
type InMemoryPriorsStore struct {
	mu            sync.Mutex
	priors        map[string]*models.ArchetypePrior
	contributions map[string]int64

	// FailArms lists arm ids whose updates fail with a storage error.
	FailArms map[string]bool

	// FailQuery makes QueryPriors fail with a storage error.
	FailQuery bool

	// Clock is stubbed by tests that care about timestamps.
	Clock func() time.Time
}

func NewInMemoryPriorsStore() *InMemoryPriorsStore {
	return &InMemoryPriorsStore{
		priors:        make(map[string]*models.ArchetypePrior),
		contributions: make(map[string]int64),
		FailArms:      make(map[string]bool),
		Clock:         time.Now,
	}
}

func priorKey(archetype, armID string) string {
	return archetype + "/" + armID
}

func (s *InMemoryPriorsStore) ApplyOutcome(ctx context.Context, archetype, armID string, alphaDelta, betaDelta float64) (*models.ArchetypePrior, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailArms[armID] {
		return nil, fmt.Errorf("simulated storage failure for arm '%s'", armID)
	}

	k := priorKey(archetype, armID)
	prior, ok := s.priors[k]
	if !ok {
		// Uniform prior on first write
		prior = &models.ArchetypePrior{Archetype: archetype, ArmID: armID, Alpha: 1.0, Beta: 1.0}
		s.priors[k] = prior
	}
	prior.Alpha += alphaDelta
	prior.Beta += betaDelta
	prior.SampleCount++
	prior.LastUpdated = s.Clock().UTC().Format(time.RFC3339)

	snapshot := *prior
	return &snapshot, nil
}

func (s *InMemoryPriorsStore) QueryPriors(ctx context.Context, archetype string) ([]models.ArchetypePrior, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailQuery {
		return nil, fmt.Errorf("simulated storage failure querying '%s'", archetype)
	}

	var out []models.ArchetypePrior
	for _, prior := range s.priors {
		if prior.Archetype == archetype {
			out = append(out, *prior)
		}
	}
	return out, nil
}

func (s *InMemoryPriorsStore) ClaimContribution(ctx context.Context, userHash, archetype string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := userHash + "/" + archetype
	now := s.Clock().UTC()
	if expiresAt, ok := s.contributions[k]; ok && expiresAt > now.Unix() {
		return models.ErrRateLimited
	}
	s.contributions[k] = now.Add(models.ContributionWindow).Unix()
	return nil
}

func (s *InMemoryPriorsStore) PruneExpiredContributions(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Clock().UTC().Unix()
	pruned := 0
	for k, expiresAt := range s.contributions {
		if expiresAt < now {
			delete(s.contributions, k)
			pruned++
		}
	}
	return pruned, nil
}
