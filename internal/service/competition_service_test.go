package service

import (
	"context"
	"testing"
	"time"

	"github.com/AdamBeresnev/meet-control/internal/meet"
	"github.com/AdamBeresnev/meet-control/internal/store"
	"github.com/AdamBeresnev/meet-control/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCompetition(t *testing.T) {
	database := setupTestDB(t)
	service := NewCompetitionService(store.NewCompetitionStore(database))
	ctx := context.Background()

	competition, err := service.CreateCompetition(ctx, CompetitionInput{
		Name:     "  National Cup ",
		Location: "Arena",
		Date:     time.Date(2026, 11, 7, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "National Cup", competition.Name)
	assert.Equal(t, meet.CompetitionUpcoming, competition.Status)
	assert.Nil(t, competition.Description)

	platform, err := service.CreatePlatform(ctx, competition.ID, "Platform A", "women")
	require.NoError(t, err)
	require.NotNil(t, platform.Type)
	assert.Equal(t, "women", *platform.Type)

	overview, err := service.GetCompetition(ctx, competition.ID)
	require.NoError(t, err)
	assert.Equal(t, competition.ID, overview.Competition.ID)
	require.Len(t, overview.Platforms, 1)

	_, err = service.CreatePlatform(ctx, uuid.New(), "Platform B", "")
	assert.ErrorIs(t, err, meet.ErrNotFound)

	var validation *meet.ValidationError
	_, err = service.CreateCompetition(ctx, CompetitionInput{Name: " "})
	assert.ErrorAs(t, err, &validation)
	_, err = service.CreateCompetition(ctx, CompetitionInput{Name: "No date"})
	assert.ErrorAs(t, err, &validation)
}

func TestSetStatus(t *testing.T) {
	testCases := []struct {
		name    string
		path    []meet.CompetitionStatus
		wantErr error
	}{
		{name: "start and finish", path: []meet.CompetitionStatus{meet.CompetitionInProgress, meet.CompetitionFinished}},
		{name: "cancel upcoming", path: []meet.CompetitionStatus{meet.CompetitionCancelled}},
		{name: "same status is a no-op", path: []meet.CompetitionStatus{meet.CompetitionUpcoming}},
		{name: "finish before start", path: []meet.CompetitionStatus{meet.CompetitionFinished}, wantErr: meet.ErrInvalidTransition},
		{name: "restart finished", path: []meet.CompetitionStatus{meet.CompetitionInProgress, meet.CompetitionFinished, meet.CompetitionInProgress}, wantErr: meet.ErrInvalidTransition},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			database := setupTestDB(t)
			service := NewCompetitionService(store.NewCompetitionStore(database))
			ctx := context.Background()

			competition, err := service.CreateCompetition(ctx, CompetitionInput{Name: "Cup", Date: time.Now()})
			require.NoError(t, err)

			for i, status := range tc.path {
				updated, err := service.SetStatus(ctx, competition.ID, status)
				if i == len(tc.path)-1 && tc.wantErr != nil {
					assert.ErrorIs(t, err, tc.wantErr)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, status, updated.Status)
			}
		})
	}
}

func TestCreateAthlete(t *testing.T) {
	database := setupTestDB(t)
	service := NewCompetitionService(store.NewCompetitionStore(database))
	ctx := context.Background()

	athlete, err := service.CreateAthlete(ctx, AthleteInput{
		Name:        "Anna",
		Gender:      meet.Female,
		BodyWeight:  62.4,
		SquatOpener: utils.Ptr(115.0),
	})
	require.NoError(t, err)
	opener, ok := athlete.Opener(meet.Squat)
	assert.True(t, ok)
	assert.Equal(t, 115.0, opener)

	testCases := []struct {
		name  string
		input AthleteInput
		field string
	}{
		{name: "missing name", input: AthleteInput{Gender: meet.Female}, field: "name"},
		{name: "unknown gender", input: AthleteInput{Name: "X", Gender: "other"}, field: "gender"},
		{name: "negative body weight", input: AthleteInput{Name: "X", Gender: meet.Male, BodyWeight: -1}, field: "body_weight"},
		{name: "zero opener", input: AthleteInput{Name: "X", Gender: meet.Male, BenchOpener: utils.Ptr(0.0)}, field: "bench_opener"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.CreateAthlete(ctx, tc.input)
			var validation *meet.ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tc.field, validation.Field)
		})
	}
}
