package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"pact_server/models"
	"pact_server/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// PriorsStore is the persistence boundary for population priors and the
// contribution ledger.
type PriorsStore interface {
	// ApplyOutcome atomically nudges the prior for (archetype, armID) by the
	// given deltas, creating the record with the uniform prior (1.0, 1.0) if
	// absent, and returns the new state.
	ApplyOutcome(ctx context.Context, archetype, armID string, alphaDelta, betaDelta float64) (*models.ArchetypePrior, error)

	// QueryPriors returns all priors recorded for an archetype.
	QueryPriors(ctx context.Context, archetype string) ([]models.ArchetypePrior, error)

	// ClaimContribution atomically claims the contribution window for
	// (userHash, archetype). Returns models.ErrRateLimited if an unexpired
	// claim already exists.
	ClaimContribution(ctx context.Context, userHash, archetype string) error

	// PruneExpiredContributions deletes ledger entries whose window has
	// elapsed and returns how many were removed.
	PruneExpiredContributions(ctx context.Context) (int, error)
}

// DynamoPriorsStore implements PriorsStore on two DynamoDB tables:
// priors keyed (archetype, armId) and the contribution ledger keyed
// (userHash, archetype).
type DynamoPriorsStore struct {
	Dynamo            *DynamoService
	PriorsTable       string
	ContributionTable string
}

// ApplyOutcome runs a single atomic update expression so concurrent
// contributors to the same arm never lose increments. if_not_exists seeds
// the uniform prior on first write; ADD starts sampleCount at zero.
func (s *DynamoPriorsStore) ApplyOutcome(ctx context.Context, archetype, armID string, alphaDelta, betaDelta float64) (*models.ArchetypePrior, error) {
	key := map[string]types.AttributeValue{
		"archetype": &types.AttributeValueMemberS{Value: archetype},
		"armId":     &types.AttributeValueMemberS{Value: armID},
	}

	updateExpression := "SET #a = if_not_exists(#a, :base) + :da, #b = if_not_exists(#b, :base) + :db, #lu = :now ADD #sc :one"
	expressionAttributeNames := map[string]string{
		"#a":  "alpha",
		"#b":  "beta",
		"#lu": "lastUpdated",
		"#sc": "sampleCount",
	}
	expressionAttributeValues := map[string]types.AttributeValue{
		":base": &types.AttributeValueMemberN{Value: "1"},
		":da":   &types.AttributeValueMemberN{Value: strconv.FormatFloat(alphaDelta, 'f', -1, 64)},
		":db":   &types.AttributeValueMemberN{Value: strconv.FormatFloat(betaDelta, 'f', -1, 64)},
		":now":  &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		":one":  &types.AttributeValueMemberN{Value: "1"},
	}

	attrs, err := s.Dynamo.UpdateItem(ctx, s.PriorsTable, updateExpression, key, expressionAttributeValues, expressionAttributeNames)
	if err != nil {
		return nil, err
	}

	return &models.ArchetypePrior{
		Archetype:   archetype,
		ArmID:       armID,
		Alpha:       utils.ExtractFloat(attrs, "alpha"),
		Beta:        utils.ExtractFloat(attrs, "beta"),
		SampleCount: utils.ExtractInt(attrs, "sampleCount"),
		LastUpdated: utils.ExtractString(attrs, "lastUpdated"),
	}, nil
}

// QueryPriors fetches all arm priors for one archetype partition.
func (s *DynamoPriorsStore) QueryPriors(ctx context.Context, archetype string) ([]models.ArchetypePrior, error) {
	items, err := s.Dynamo.QueryItems(
		ctx,
		s.PriorsTable,
		"archetype = :archetype",
		map[string]types.AttributeValue{
			":archetype": &types.AttributeValueMemberS{Value: archetype},
		},
		nil,
	)
	if err != nil {
		return nil, err
	}

	var priors []models.ArchetypePrior
	if err := attributevalue.UnmarshalListOfMaps(items, &priors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal priors: %w", err)
	}
	return priors, nil
}

// ClaimContribution performs a conditional put so the rate-limit
// check-and-insert cannot race: the write succeeds only when no entry
// exists or the previous entry's window has elapsed.
func (s *DynamoPriorsStore) ClaimContribution(ctx context.Context, userHash, archetype string) error {
	now := time.Now().UTC()
	entry := models.ContributionEntry{
		UserHash:      userHash,
		Archetype:     archetype,
		EntryID:       uuid.NewString(),
		ContributedAt: now.Format(time.RFC3339),
		ExpiresAt:     now.Add(models.ContributionWindow).Unix(),
	}

	err := s.Dynamo.PutItemWithCondition(
		ctx,
		s.ContributionTable,
		entry,
		"attribute_not_exists(userHash) OR expiresAt < :now",
		map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
		},
		nil,
	)
	if errors.Is(err, ErrConditionFailed) {
		return models.ErrRateLimited
	}
	return err
}

// PruneExpiredContributions scans for elapsed ledger entries and deletes
// them in batches. Best effort; callers treat failures as non-fatal.
func (s *DynamoPriorsStore) PruneExpiredContributions(ctx context.Context) (int, error) {
	now := time.Now().UTC().Unix()
	items, err := s.Dynamo.ScanItems(
		ctx,
		s.ContributionTable,
		"expiresAt < :now",
		map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)},
		},
	)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	writeRequests := make([]types.WriteRequest, 0, len(items))
	for _, item := range items {
		writeRequests = append(writeRequests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{
					"userHash":  item["userHash"],
					"archetype": item["archetype"],
				},
			},
		})
	}

	if err := s.Dynamo.BatchWriteItems(ctx, s.ContributionTable, writeRequests); err != nil {
		return 0, err
	}
	return len(writeRequests), nil
}
