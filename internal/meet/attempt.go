package meet

import (
	"time"

	"github.com/google/uuid"
)

type AttemptResult string

const (
	ResultValid   AttemptResult = "valid"
	ResultInvalid AttemptResult = "invalid"
	ResultPending AttemptResult = "pending"
)

// Decided reports whether r is a judge outcome that may complete an attempt.
func (r AttemptResult) Decided() bool {
	return r == ResultValid || r == ResultInvalid
}

// Attempt is an immutable ledger fact, written once when the attempt is decided.
type Attempt struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	AthleteID     uuid.UUID     `db:"athlete_id" json:"athlete_id"`
	CompetitionID uuid.UUID     `db:"competition_id" json:"competition_id"`
	LiftType      LiftType      `db:"lift_type" json:"lift_type"`
	AttemptNumber int           `db:"attempt_number" json:"attempt_number"`
	Weight        float64       `db:"weight" json:"weight"`
	Result        AttemptResult `db:"result" json:"result"`
	Timestamp     time.Time     `db:"timestamp" json:"timestamp"`
}

// Result is one row of the competition standings.
type Result struct {
	ID            uuid.UUID `db:"id" json:"id"`
	CompetitionID uuid.UUID `db:"competition_id" json:"competition_id"`
	AthleteID     uuid.UUID `db:"athlete_id" json:"athlete_id"`
	AthleteName   string    `db:"athlete_name" json:"athlete_name"`
	BestSquat     *float64  `db:"best_squat" json:"best_squat,omitempty"`
	BestBench     *float64  `db:"best_bench" json:"best_bench,omitempty"`
	BestDeadlift  *float64  `db:"best_deadlift" json:"best_deadlift,omitempty"`
	Total         *float64  `db:"total" json:"total,omitempty"`
	Position      *int      `db:"position" json:"position,omitempty"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
