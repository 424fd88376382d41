package store

import (
	"context"
	"testing"
	"time"

	"github.com/AdamBeresnev/meet-control/internal/db"
	"github.com/AdamBeresnev/meet-control/internal/meet"
	"github.com/AdamBeresnev/meet-control/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	// Every connection to :memory: is a separate database.
	database.SetMaxOpenConns(1)

	require.NoError(t, db.RunMigrations(database.DB, "file://../../migrations"))
	return database
}

func seedCompetition(t *testing.T, s *CompetitionStore) *meet.Competition {
	t.Helper()
	competition := &meet.Competition{
		ID:       uuid.New(),
		Name:     "Regional Open",
		Location: "Gym",
		Date:     time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		Status:   meet.CompetitionInProgress,
	}
	require.NoError(t, s.CreateCompetition(context.Background(), competition))
	return competition
}

func seedAthlete(t *testing.T, s *CompetitionStore, name string) *meet.Athlete {
	t.Helper()
	athlete := &meet.Athlete{
		ID:          uuid.New(),
		Name:        name,
		Gender:      meet.Female,
		BodyWeight:  63.2,
		Club:        "Barbell Club",
		SquatOpener: utils.Ptr(110.0),
	}
	require.NoError(t, s.CreateAthlete(context.Background(), athlete))
	return athlete
}

func newEnrollment(competitionID, athleteID uuid.UUID, platformID *uuid.UUID) *meet.Enrollment {
	return &meet.Enrollment{
		ID:             uuid.New(),
		AthleteID:      athleteID,
		CompetitionID:  competitionID,
		PlatformID:     platformID,
		Status:         meet.StatusWaiting,
		CurrentAttempt: 1,
		CurrentLift:    meet.Squat,
		DeclaredWeight: 110,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestCreateCompetition(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	s := NewCompetitionStore(database)
	competition := seedCompetition(t, s)

	fetched, err := s.GetCompetition(context.Background(), competition.ID)
	require.NoError(t, err)
	assert.Equal(t, competition.ID, fetched.ID)
	assert.Equal(t, competition.Name, fetched.Name)
	assert.Equal(t, competition.Status, fetched.Status)
	assert.WithinDuration(t, competition.Date, fetched.Date, time.Second)

	require.NoError(t, s.UpdateCompetitionStatus(context.Background(), competition.ID, meet.CompetitionFinished))
	fetched, err = s.GetCompetition(context.Background(), competition.ID)
	require.NoError(t, err)
	assert.Equal(t, meet.CompetitionFinished, fetched.Status)

	_, err = s.GetCompetition(context.Background(), uuid.New())
	assert.ErrorIs(t, err, meet.ErrNotFound)
}

func TestPlatforms(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	s := NewCompetitionStore(database)
	competition := seedCompetition(t, s)

	platforms := []meet.Platform{
		{ID: uuid.New(), CompetitionID: competition.ID, Name: "B", Type: utils.StringOrNil("female")},
		{ID: uuid.New(), CompetitionID: competition.ID, Name: "A"},
	}
	for i := range platforms {
		require.NoError(t, s.CreatePlatform(ctx, &platforms[i]))
	}

	fetched, err := s.GetPlatforms(ctx, competition.ID)
	require.NoError(t, err)
	require.Len(t, fetched, 2)
	assert.Equal(t, "A", fetched[0].Name)
	assert.Nil(t, fetched[0].Type)
	assert.Equal(t, "female", *fetched[1].Type)
}

func TestDeletePlatform_ClearsEnrollmentReference(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	competitions := NewCompetitionStore(database)
	enrollments := NewEnrollmentStore(database)
	competition := seedCompetition(t, competitions)
	athlete := seedAthlete(t, competitions, "Ana")

	platform := &meet.Platform{ID: uuid.New(), CompetitionID: competition.ID, Name: "A"}
	require.NoError(t, competitions.CreatePlatform(ctx, platform))

	enrollment := newEnrollment(competition.ID, athlete.ID, &platform.ID)
	require.NoError(t, enrollments.CreateEnrollment(ctx, enrollment))

	require.NoError(t, competitions.DeletePlatform(ctx, competition.ID, platform.ID))

	fetched, err := enrollments.GetEnrollment(ctx, competition.ID, enrollment.ID)
	require.NoError(t, err)
	assert.Nil(t, fetched.PlatformID)

	pool, err := enrollments.GetPlatformEnrollments(ctx, competition.ID, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, enrollment.ID, pool[0].ID)

	assert.ErrorIs(t, competitions.DeletePlatform(ctx, competition.ID, platform.ID), meet.ErrNotFound)
}

func TestDeletePlatform_BlockedWhileLifting(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	competitions := NewCompetitionStore(database)
	enrollments := NewEnrollmentStore(database)
	competition := seedCompetition(t, competitions)
	athlete := seedAthlete(t, competitions, "Ana")

	platform := &meet.Platform{ID: uuid.New(), CompetitionID: competition.ID, Name: "A"}
	require.NoError(t, competitions.CreatePlatform(ctx, platform))

	enrollment := newEnrollment(competition.ID, athlete.ID, &platform.ID)
	require.NoError(t, enrollments.CreateEnrollment(ctx, enrollment))
	enrollment.Status = meet.StatusCurrent
	require.NoError(t, enrollments.UpdateEnrollmentState(ctx, enrollment))

	assert.ErrorIs(t, competitions.DeletePlatform(ctx, competition.ID, platform.ID), meet.ErrPlatformInUse)

	_, err := competitions.GetPlatform(ctx, competition.ID, platform.ID)
	assert.NoError(t, err)
}

func TestUpdateEnrollmentState_OneCurrentPerPlatform(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	competitions := NewCompetitionStore(database)
	enrollments := NewEnrollmentStore(database)
	competition := seedCompetition(t, competitions)

	platform := &meet.Platform{ID: uuid.New(), CompetitionID: competition.ID, Name: "A"}
	require.NoError(t, competitions.CreatePlatform(ctx, platform))

	testCases := []struct {
		name     string
		platform *uuid.UUID
	}{
		{name: "assigned platform", platform: &platform.ID},
		{name: "unassigned pool", platform: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			first := newEnrollment(competition.ID, seedAthlete(t, competitions, "First").ID, tc.platform)
			second := newEnrollment(competition.ID, seedAthlete(t, competitions, "Second").ID, tc.platform)
			require.NoError(t, enrollments.CreateEnrollment(ctx, first))
			require.NoError(t, enrollments.CreateEnrollment(ctx, second))

			first.Status = meet.StatusCurrent
			require.NoError(t, enrollments.UpdateEnrollmentState(ctx, first))

			second.Status = meet.StatusCurrent
			assert.ErrorIs(t, enrollments.UpdateEnrollmentState(ctx, second), meet.ErrAthleteAlreadyActive)

			first.Status = meet.StatusCompleted
			require.NoError(t, enrollments.UpdateEnrollmentState(ctx, first))
		})
	}
}

func TestCompleteAttempt(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	competitions := NewCompetitionStore(database)
	enrollments := NewEnrollmentStore(database)
	competition := seedCompetition(t, competitions)
	athlete := seedAthlete(t, competitions, "Ana")

	enrollment := newEnrollment(competition.ID, athlete.ID, nil)
	require.NoError(t, enrollments.CreateEnrollment(ctx, enrollment))

	enrollment.Status = meet.StatusCompleted
	attempt := &meet.Attempt{
		ID:            uuid.New(),
		AthleteID:     athlete.ID,
		CompetitionID: competition.ID,
		LiftType:      meet.Squat,
		AttemptNumber: 1,
		Weight:        110,
		Result:        meet.ResultValid,
		Timestamp:     time.Now().UTC(),
	}
	require.NoError(t, enrollments.CompleteAttempt(ctx, enrollment, attempt))

	fetched, err := enrollments.GetEnrollment(ctx, competition.ID, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, meet.StatusCompleted, fetched.Status)

	attempts, err := enrollments.GetAttempts(ctx, competition.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, attempt.ID, attempts[0].ID)
	assert.Equal(t, meet.ResultValid, attempts[0].Result)
	assert.Equal(t, 110.0, attempts[0].Weight)

	// Same logical attempt again: nothing is written, state stays as it was.
	enrollment.Status = meet.StatusWaiting
	duplicate := *attempt
	duplicate.ID = uuid.New()
	assert.ErrorIs(t, enrollments.CompleteAttempt(ctx, enrollment, &duplicate), meet.ErrDuplicateAttempt)

	fetched, err = enrollments.GetEnrollment(ctx, competition.ID, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, meet.StatusCompleted, fetched.Status)
	attempts, err = enrollments.GetAttempts(ctx, competition.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}

func TestReplaceResults(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	competitions := NewCompetitionStore(database)
	results := NewResultStore(database)
	competition := seedCompetition(t, competitions)
	winner := seedAthlete(t, competitions, "Winner")
	bombed := seedAthlete(t, competitions, "Bombed")

	rows := []meet.Result{
		{ID: uuid.New(), CompetitionID: competition.ID, AthleteID: bombed.ID, BestBench: utils.Ptr(70.0), UpdatedAt: time.Now().UTC()},
		{ID: uuid.New(), CompetitionID: competition.ID, AthleteID: winner.ID, Total: utils.Ptr(400.0), Position: utils.Ptr(1), UpdatedAt: time.Now().UTC()},
	}
	require.NoError(t, results.ReplaceResults(ctx, competition.ID, rows))
	require.NoError(t, results.ReplaceResults(ctx, competition.ID, rows))

	fetched, err := results.GetResults(ctx, competition.ID)
	require.NoError(t, err)
	require.Len(t, fetched, 2)
	assert.Equal(t, "Winner", fetched[0].AthleteName)
	assert.Equal(t, 1, *fetched[0].Position)
	assert.Equal(t, "Bombed", fetched[1].AthleteName)
	assert.Nil(t, fetched[1].Total)
}
