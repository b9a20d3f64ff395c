package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"pact_server/models"
)

// PopulationService aggregates client-observed outcomes into shared
// per-archetype Beta priors used to seed Thompson Sampling on devices.
type PopulationService struct {
	Store PriorsStore
}

// SyncOutcomes validates a contribution batch, claims the 24h rate-limit
// window, and applies a fixed-learning-rate Bayesian nudge per outcome.
// Malformed outcomes are skipped; a storage failure on one arm is reported
// in-band and never aborts the rest of the batch.
func (ps *PopulationService) SyncOutcomes(ctx context.Context, req *models.SyncRequest) (*models.SyncResponse, error) {
	if req.UserHash == "" || req.Archetype == "" || req.Outcomes == nil {
		return nil, &models.ValidationError{Message: "Missing required fields: userHash, archetype, outcomes"}
	}
	if !models.IsValidArchetype(req.Archetype) {
		return nil, &models.ValidationError{Message: "Invalid archetype"}
	}

	// Claim the contribution window before touching any prior so a
	// rejected request never leaves partial writes behind. One claim per
	// batch, regardless of how many outcomes it contains.
	if err := ps.Store.ClaimContribution(ctx, req.UserHash, req.Archetype); err != nil {
		return nil, err
	}

	results := make([]models.OutcomeResult, 0, len(req.Outcomes))
	for _, outcome := range req.Outcomes {
		if outcome.ArmID == "" || outcome.Success == nil {
			// Skip invalid outcomes
			continue
		}

		alphaDelta, betaDelta := 0.0, models.LearningRate
		if *outcome.Success {
			alphaDelta, betaDelta = models.LearningRate, 0.0
		}

		if _, err := ps.Store.ApplyOutcome(ctx, req.Archetype, outcome.ArmID, alphaDelta, betaDelta); err != nil {
			log.Printf("Error updating prior for arm '%s': %v", outcome.ArmID, err)
			results = append(results, models.OutcomeResult{ArmID: outcome.ArmID, Status: "error"})
			continue
		}
		results = append(results, models.OutcomeResult{ArmID: outcome.ArmID, Status: "success"})
	}

	// Clean old contribution logs (async, fire-and-forget)
	go ps.pruneLedger()

	return &models.SyncResponse{
		Success: true,
		Results: results,
		Message: fmt.Sprintf("Processed %d outcomes for %s", len(results), req.Archetype),
	}, nil
}

// FetchPriors returns all arm priors for an archetype as a map, along with
// the most recent update timestamp (nil when the archetype has no
// contributions yet). Pure read, safe to cache briefly.
func (ps *PopulationService) FetchPriors(ctx context.Context, archetype string) (*models.PriorsResponse, error) {
	if !models.IsValidArchetype(archetype) {
		return nil, &models.ValidationError{
			Message:         "Invalid or missing archetype parameter",
			ValidArchetypes: models.ValidArchetypes,
		}
	}

	priors, err := ps.Store.QueryPriors(ctx, archetype)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch priors: %w", err)
	}

	response := &models.PriorsResponse{
		Archetype: archetype,
		Priors:    make(map[string]models.PriorSnapshot, len(priors)),
	}

	var latest string
	for _, prior := range priors {
		response.Priors[prior.ArmID] = models.PriorSnapshot{
			Alpha:       prior.Alpha,
			Beta:        prior.Beta,
			SampleCount: prior.SampleCount,
		}
		// RFC3339 timestamps compare correctly as strings
		if prior.LastUpdated > latest {
			latest = prior.LastUpdated
		}
	}
	if latest != "" {
		response.LastUpdated = &latest
	}
	response.ArmCount = len(response.Priors)

	return response, nil
}

// pruneLedger removes expired contribution entries. Failures are logged
// and swallowed; this must never fail a sync request.
func (ps *PopulationService) pruneLedger() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := ps.Store.PruneExpiredContributions(ctx)
	if err != nil {
		log.Printf("Error cleaning contribution logs: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Cleaned %d old contribution log entries", n)
	}
}
