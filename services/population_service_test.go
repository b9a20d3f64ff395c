package services_test

import (
	"context"
	"testing"

	"pact_server/models"
	"pact_server/services"
	"pact_server/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func newService() (*services.PopulationService, *testutil.InMemoryPriorsStore) {
	store := testutil.NewInMemoryPriorsStore()
	return &services.PopulationService{Store: store}, store
}

func TestSyncOutcomes_MissingFields(t *testing.T) {
	svc, _ := newService()

	cases := []struct {
		name string
		req  models.SyncRequest
	}{
		{"missing userHash", models.SyncRequest{Archetype: models.ArchetypeRebel, Outcomes: []models.Outcome{}}},
		{"missing archetype", models.SyncRequest{UserHash: "abc", Outcomes: []models.Outcome{}}},
		{"missing outcomes", models.SyncRequest{UserHash: "abc", Archetype: models.ArchetypeRebel}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SyncOutcomes(context.Background(), &tc.req)
			var validationErr *models.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Contains(t, validationErr.Message, "Missing required fields")
		})
	}
}

func TestSyncOutcomes_InvalidArchetype(t *testing.T) {
	svc, _ := newService()

	_, err := svc.SyncOutcomes(context.Background(), &models.SyncRequest{
		UserHash:  "abc",
		Archetype: "VILLAIN",
		Outcomes:  []models.Outcome{{ArmID: "nudge_v1", Success: boolPtr(true)}},
	})

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "Invalid archetype", validationErr.Message)
}

func TestSyncOutcomes_UpdatesPriors(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	// Fresh arm: a success nudges alpha by the learning rate only
	resp, err := svc.SyncOutcomes(ctx, &models.SyncRequest{
		UserHash:  "user-a",
		Archetype: models.ArchetypeRebel,
		Outcomes:  []models.Outcome{{ArmID: "nudge_v1", Success: boolPtr(true)}},
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, []models.OutcomeResult{{ArmID: "nudge_v1", Status: "success"}}, resp.Results)
	assert.Equal(t, "Processed 1 outcomes for REBEL", resp.Message)

	fetched, err := svc.FetchPriors(ctx, models.ArchetypeRebel)
	require.NoError(t, err)
	require.Contains(t, fetched.Priors, "nudge_v1")
	assert.InDelta(t, 1.1, fetched.Priors["nudge_v1"].Alpha, 1e-9)
	assert.InDelta(t, 1.0, fetched.Priors["nudge_v1"].Beta, 1e-9)
	assert.Equal(t, 1, fetched.Priors["nudge_v1"].SampleCount)

	// A failure from a different user nudges beta, leaving alpha alone
	_, err = svc.SyncOutcomes(ctx, &models.SyncRequest{
		UserHash:  "user-b",
		Archetype: models.ArchetypeRebel,
		Outcomes:  []models.Outcome{{ArmID: "nudge_v1", Success: boolPtr(false)}},
	})
	require.NoError(t, err)

	fetched, err = svc.FetchPriors(ctx, models.ArchetypeRebel)
	require.NoError(t, err)
	assert.InDelta(t, 1.1, fetched.Priors["nudge_v1"].Alpha, 1e-9)
	assert.InDelta(t, 1.1, fetched.Priors["nudge_v1"].Beta, 1e-9)
	assert.Equal(t, 2, fetched.Priors["nudge_v1"].SampleCount)
}

func TestSyncOutcomes_RateLimited(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	req := models.SyncRequest{
		UserHash:  "user-a",
		Archetype: models.ArchetypeOverthinker,
		Outcomes:  []models.Outcome{{ArmID: "nudge_v1", Success: boolPtr(true)}},
	}
	_, err := svc.SyncOutcomes(ctx, &req)
	require.NoError(t, err)

	_, err = svc.SyncOutcomes(ctx, &req)
	require.ErrorIs(t, err, models.ErrRateLimited)

	// The rejected batch must not have applied a second update
	fetched, err := svc.FetchPriors(ctx, models.ArchetypeOverthinker)
	require.NoError(t, err)
	assert.Equal(t, 1, fetched.Priors["nudge_v1"].SampleCount)

	// The same user may still contribute for a different archetype
	req.Archetype = models.ArchetypePleasureSeeker
	_, err = svc.SyncOutcomes(ctx, &req)
	require.NoError(t, err)
}

func TestSyncOutcomes_SkipsMalformedOutcomes(t *testing.T) {
	svc, _ := newService()

	resp, err := svc.SyncOutcomes(context.Background(), &models.SyncRequest{
		UserHash:  "user-a",
		Archetype: models.ArchetypePerfectionist,
		Outcomes: []models.Outcome{
			{ArmID: "", Success: boolPtr(true)},            // missing armId
			{ArmID: "nudge_v2"},                            // missing success
			{ArmID: "nudge_v1", Success: boolPtr(true)},    // well-formed
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "nudge_v1", resp.Results[0].ArmID)
	assert.Equal(t, "Processed 1 outcomes for PERFECTIONIST", resp.Message)
}

func TestSyncOutcomes_PerArmStorageErrorIsIsolated(t *testing.T) {
	svc, store := newService()
	store.FailArms["broken_arm"] = true

	resp, err := svc.SyncOutcomes(context.Background(), &models.SyncRequest{
		UserHash:  "user-a",
		Archetype: models.ArchetypeProcrastinator,
		Outcomes: []models.Outcome{
			{ArmID: "broken_arm", Success: boolPtr(true)},
			{ArmID: "good_arm", Success: boolPtr(false)},
		},
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, []models.OutcomeResult{
		{ArmID: "broken_arm", Status: "error"},
		{ArmID: "good_arm", Status: "success"},
	}, resp.Results)

	fetched, err := svc.FetchPriors(context.Background(), models.ArchetypeProcrastinator)
	require.NoError(t, err)
	assert.NotContains(t, fetched.Priors, "broken_arm")
	assert.InDelta(t, 1.1, fetched.Priors["good_arm"].Beta, 1e-9)
}

func TestSyncOutcomes_SampleCountPerOutcome(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	// Three users, each contributing a batch touching the same arm twice
	for _, user := range []string{"u1", "u2", "u3"} {
		_, err := svc.SyncOutcomes(ctx, &models.SyncRequest{
			UserHash:  user,
			Archetype: models.ArchetypePeoplePleaser,
			Outcomes: []models.Outcome{
				{ArmID: "nudge_v1", Success: boolPtr(true)},
				{ArmID: "nudge_v1", Success: boolPtr(false)},
			},
		})
		require.NoError(t, err)
	}

	fetched, err := svc.FetchPriors(ctx, models.ArchetypePeoplePleaser)
	require.NoError(t, err)
	assert.Equal(t, 6, fetched.Priors["nudge_v1"].SampleCount)
	assert.InDelta(t, 1.3, fetched.Priors["nudge_v1"].Alpha, 1e-9)
	assert.InDelta(t, 1.3, fetched.Priors["nudge_v1"].Beta, 1e-9)
}

func TestFetchPriors_EmptyArchetype(t *testing.T) {
	svc, _ := newService()

	resp, err := svc.FetchPriors(context.Background(), models.ArchetypeRebel)
	require.NoError(t, err)
	assert.Equal(t, models.ArchetypeRebel, resp.Archetype)
	assert.Empty(t, resp.Priors)
	assert.Nil(t, resp.LastUpdated)
	assert.Equal(t, 0, resp.ArmCount)
}

func TestFetchPriors_InvalidArchetype(t *testing.T) {
	svc, _ := newService()

	_, err := svc.FetchPriors(context.Background(), "VILLAIN")
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, models.ValidArchetypes, validationErr.ValidArchetypes)

	_, err = svc.FetchPriors(context.Background(), "")
	require.ErrorAs(t, err, &validationErr)
}

func TestFetchPriors_RoundTrip(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.SyncOutcomes(ctx, &models.SyncRequest{
		UserHash:  "user-a",
		Archetype: models.ArchetypeRebel,
		Outcomes: []models.Outcome{
			{ArmID: "nudge_v1", Success: boolPtr(true)},
			{ArmID: "nudge_v2", Success: boolPtr(false)},
		},
	})
	require.NoError(t, err)

	resp, err := svc.FetchPriors(ctx, models.ArchetypeRebel)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.ArmCount)
	require.NotNil(t, resp.LastUpdated)
	assert.Equal(t, models.PriorSnapshot{Alpha: 1.1, Beta: 1.0, SampleCount: 1}, resp.Priors["nudge_v1"])
	assert.Equal(t, models.PriorSnapshot{Alpha: 1.0, Beta: 1.1, SampleCount: 1}, resp.Priors["nudge_v2"])

	// Contributions to one archetype are invisible to the others
	other, err := svc.FetchPriors(ctx, models.ArchetypeOverthinker)
	require.NoError(t, err)
	assert.Empty(t, other.Priors)
	assert.Nil(t, other.LastUpdated)
}
