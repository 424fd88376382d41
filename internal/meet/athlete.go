package meet

import (
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

type Athlete struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Gender         Gender    `db:"gender" json:"gender"`
	BodyWeight     float64   `db:"body_weight" json:"body_weight"`
	Club           string    `db:"club" json:"club"`
	SquatOpener    *float64  `db:"squat_opener" json:"squat_opener,omitempty"`
	BenchOpener    *float64  `db:"bench_opener" json:"bench_opener,omitempty"`
	DeadliftOpener *float64  `db:"deadlift_opener" json:"deadlift_opener,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Opener returns the declared first attempt for the given lift, if any.
func (a *Athlete) Opener(lift LiftType) (float64, bool) {
	var v *float64
	switch lift {
	case Squat:
		v = a.SquatOpener
	case Bench:
		v = a.BenchOpener
	case Deadlift:
		v = a.DeadliftOpener
	}
	if v == nil || *v <= 0 {
		return 0, false
	}
	return *v, true
}
