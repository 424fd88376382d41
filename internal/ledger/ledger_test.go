package ledger

import (
	"testing"
	"time"

	"github.com/AdamBeresnev/meet-control/internal/meet"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	competitionID = uuid.New()
	base          = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
)

func attempt(athleteID uuid.UUID, lift meet.LiftType, number int, weight float64, result meet.AttemptResult, minute int) meet.Attempt {
	return meet.Attempt{
		ID:            uuid.New(),
		AthleteID:     athleteID,
		CompetitionID: competitionID,
		LiftType:      lift,
		AttemptNumber: number,
		Weight:        weight,
		Result:        result,
		Timestamp:     base.Add(time.Duration(minute) * time.Minute),
	}
}

func TestRecord_DuplicateAttempt(t *testing.T) {
	l, err := New()
	require.NoError(t, err)

	athlete := uuid.New()
	first := attempt(athlete, meet.Squat, 1, 100, meet.ResultValid, 0)
	require.NoError(t, l.Record(first))

	again := attempt(athlete, meet.Squat, 1, 105, meet.ResultInvalid, 1)
	assert.ErrorIs(t, l.Record(again), meet.ErrDuplicateAttempt)
	assert.Equal(t, 1, l.Len())
}

func TestNextAttempt(t *testing.T) {
	athlete := uuid.New()
	l, err := New(
		attempt(athlete, meet.Squat, 1, 100, meet.ResultValid, 0),
		attempt(athlete, meet.Squat, 2, 107.5, meet.ResultInvalid, 5),
	)
	require.NoError(t, err)

	lift, number, ok := l.NextAttempt(athlete, 3)
	require.True(t, ok)
	assert.Equal(t, meet.Squat, lift)
	assert.Equal(t, 3, number)

	lift, number, ok = l.NextAttempt(athlete, 2)
	require.True(t, ok)
	assert.Equal(t, meet.Bench, lift)
	assert.Equal(t, 1, number)

	last, ok := l.LastAttempt(athlete, meet.Squat)
	require.True(t, ok)
	assert.Equal(t, 107.5, last.Weight)
	_, ok = l.LastAttempt(athlete, meet.Bench)
	assert.False(t, ok)

	lift, number, ok = l.NextAttempt(uuid.New(), 3)
	require.True(t, ok)
	assert.Equal(t, meet.Squat, lift)
	assert.Equal(t, 1, number)

	_, _, ok = l.NextAttempt(athlete, 0)
	assert.False(t, ok)
}

func TestRecord_AttemptSequence(t *testing.T) {
	athlete := uuid.New()

	testCases := []struct {
		name     string
		existing []meet.Attempt
		next     meet.Attempt
		wantErr  error
	}{
		{
			name:    "first attempt must be 1",
			next:    attempt(athlete, meet.Squat, 2, 100, meet.ResultValid, 0),
			wantErr: meet.ErrInvalidAttemptSequence,
		},
		{
			name:     "skipping a number",
			existing: []meet.Attempt{attempt(athlete, meet.Squat, 1, 100, meet.ResultValid, 0)},
			next:     attempt(athlete, meet.Squat, 3, 110, meet.ResultValid, 1),
			wantErr:  meet.ErrInvalidAttemptSequence,
		},
		{
			name:     "next number on same lift",
			existing: []meet.Attempt{attempt(athlete, meet.Squat, 1, 100, meet.ResultValid, 0)},
			next:     attempt(athlete, meet.Squat, 2, 110, meet.ResultValid, 1),
		},
		{
			name:     "lifts are sequenced independently",
			existing: []meet.Attempt{attempt(athlete, meet.Squat, 1, 100, meet.ResultValid, 0)},
			next:     attempt(athlete, meet.Bench, 1, 60, meet.ResultValid, 1),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := New(tc.existing...)
			require.NoError(t, err)

			assert.ErrorIs(t, l.Check(tc.next), tc.wantErr)
			err = l.Record(tc.next)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, len(tc.existing), l.Len())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, len(tc.existing)+1, l.Len())
			}
		})
	}
}

func TestNew_LoadsOutOfOrderRecords(t *testing.T) {
	athlete := uuid.New()
	l, err := New(
		attempt(athlete, meet.Squat, 2, 110, meet.ResultValid, 1),
		attempt(athlete, meet.Squat, 1, 100, meet.ResultValid, 0),
	)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())
}

func TestBestLiftAndTotal(t *testing.T) {
	athlete := uuid.New()
	bombed := uuid.New()

	l, err := New(
		attempt(athlete, meet.Squat, 1, 180, meet.ResultValid, 0),
		attempt(athlete, meet.Squat, 2, 190, meet.ResultInvalid, 5),
		attempt(athlete, meet.Squat, 3, 187.5, meet.ResultValid, 10),
		attempt(athlete, meet.Bench, 1, 120, meet.ResultValid, 20),
		attempt(athlete, meet.Deadlift, 1, 220, meet.ResultValid, 40),
		attempt(bombed, meet.Squat, 1, 200, meet.ResultInvalid, 1),
		attempt(bombed, meet.Bench, 1, 130, meet.ResultValid, 21),
		attempt(bombed, meet.Deadlift, 1, 250, meet.ResultValid, 41),
	)
	require.NoError(t, err)

	best, ok := l.BestLift(athlete, meet.Squat)
	require.True(t, ok)
	assert.Equal(t, 187.5, best, "invalid heavier attempt must not count")

	total, ok := l.TotalForAthlete(athlete)
	require.True(t, ok)
	assert.Equal(t, 527.5, total)

	_, ok = l.BestLift(bombed, meet.Squat)
	assert.False(t, ok)
	_, ok = l.TotalForAthlete(bombed)
	assert.False(t, ok, "no valid squat means no total")

	_, ok = l.BestLift(uuid.New(), meet.Bench)
	assert.False(t, ok)
}

func TestStandings(t *testing.T) {
	heavy := Entrant{AthleteID: uuid.New(), Name: "Heavy", BodyWeight: 92.4}
	light := Entrant{AthleteID: uuid.New(), Name: "Light", BodyWeight: 81.0}
	leader := Entrant{AthleteID: uuid.New(), Name: "Leader", BodyWeight: 100}
	bombed := Entrant{AthleteID: uuid.New(), Name: "Bombed", BodyWeight: 70}

	var records []meet.Attempt
	full := func(e Entrant, s, b, d float64, minute int) {
		records = append(records,
			attempt(e.AthleteID, meet.Squat, 1, s, meet.ResultValid, minute),
			attempt(e.AthleteID, meet.Bench, 1, b, meet.ResultValid, minute+1),
			attempt(e.AthleteID, meet.Deadlift, 1, d, meet.ResultValid, minute+2),
		)
	}
	full(heavy, 200, 130, 250, 0)
	full(light, 190, 140, 250, 3)
	full(leader, 250, 160, 300, 6)
	records = append(records, attempt(bombed.AthleteID, meet.Squat, 1, 150, meet.ResultInvalid, 9))

	l, err := New(records...)
	require.NoError(t, err)

	standings := l.Standings([]Entrant{bombed, heavy, light, leader})
	require.Len(t, standings, 4)

	assert.Equal(t, "Leader", standings[0].Name)
	assert.Equal(t, 1, standings[0].Position)
	assert.Equal(t, 710.0, standings[0].Total)

	assert.Equal(t, "Light", standings[1].Name, "equal totals go to the lighter athlete")
	assert.Equal(t, 2, standings[1].Position)
	assert.Equal(t, "Heavy", standings[2].Name)
	assert.Equal(t, 3, standings[2].Position)

	assert.Equal(t, "Bombed", standings[3].Name)
	assert.False(t, standings[3].HasTotal)
	assert.Equal(t, 0, standings[3].Position)
}
