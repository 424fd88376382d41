package meet

import (
	"time"

	"github.com/google/uuid"
)

type EnrollmentStatus string

const (
	StatusWaiting   EnrollmentStatus = "waiting"
	StatusCurrent   EnrollmentStatus = "current"
	StatusCompleted EnrollmentStatus = "completed"
)

type LiftType string

const (
	Squat    LiftType = "squat"
	Bench    LiftType = "bench"
	Deadlift LiftType = "deadlift"
)

// Lifts lists the lifts in competition order.
var Lifts = []LiftType{Squat, Bench, Deadlift}

func (l LiftType) Valid() bool {
	return l == Squat || l == Bench || l == Deadlift
}

// Next returns the lift contested after l.
func (l LiftType) Next() (LiftType, bool) {
	for i, lift := range Lifts {
		if lift == l && i+1 < len(Lifts) {
			return Lifts[i+1], true
		}
	}
	return "", false
}

// Enrollment is one athlete registered to one competition. Status,
// CurrentAttempt and CurrentLift are owned by the sequencing controller.
type Enrollment struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	AthleteID      uuid.UUID        `db:"athlete_id" json:"athlete_id"`
	CompetitionID  uuid.UUID        `db:"competition_id" json:"competition_id"`
	PlatformID     *uuid.UUID       `db:"platform_id" json:"platform_id,omitempty"`
	LotNumber      *int             `db:"lot_number" json:"lot_number,omitempty"`
	Status         EnrollmentStatus `db:"current_status" json:"status"`
	CurrentAttempt int              `db:"current_attempt" json:"current_attempt"`
	CurrentLift    LiftType         `db:"current_lift" json:"current_lift"`
	DeclaredWeight float64          `db:"declared_weight" json:"declared_weight"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}

// PlatformKey returns the platform the enrollment lifts on, uuid.Nil for the
// unassigned pool.
func (e *Enrollment) PlatformKey() uuid.UUID {
	if e.PlatformID == nil {
		return uuid.Nil
	}
	return *e.PlatformID
}

// LiftsBefore reports whether e should lift before other under the
// ascending-weight rule: declared weight, then lot number (missing lots
// last), then registration time, then id.
func (e *Enrollment) LiftsBefore(other *Enrollment) bool {
	if e.DeclaredWeight != other.DeclaredWeight {
		return e.DeclaredWeight < other.DeclaredWeight
	}
	switch {
	case e.LotNumber != nil && other.LotNumber == nil:
		return true
	case e.LotNumber == nil && other.LotNumber != nil:
		return false
	case e.LotNumber != nil && *e.LotNumber != *other.LotNumber:
		return *e.LotNumber < *other.LotNumber
	}
	if !e.CreatedAt.Equal(other.CreatedAt) {
		return e.CreatedAt.Before(other.CreatedAt)
	}
	return e.ID.String() < other.ID.String()
}
