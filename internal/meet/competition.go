package meet

import (
	"time"

	"github.com/google/uuid"
)

type CompetitionStatus string

const (
	CompetitionUpcoming   CompetitionStatus = "upcoming"
	CompetitionInProgress CompetitionStatus = "in_progress"
	CompetitionFinished   CompetitionStatus = "finished"
	CompetitionCancelled  CompetitionStatus = "cancelled"
)

func (s CompetitionStatus) Valid() bool {
	switch s {
	case CompetitionUpcoming, CompetitionInProgress, CompetitionFinished, CompetitionCancelled:
		return true
	}
	return false
}

type Competition struct {
	ID          uuid.UUID         `db:"id" json:"id"`
	Name        string            `db:"name" json:"name"`
	Location    string            `db:"location" json:"location"`
	Date        time.Time         `db:"date" json:"date"`
	Description *string           `db:"description" json:"description,omitempty"`
	Status      CompetitionStatus `db:"status" json:"status"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
}

// Platform is a lifting station of one competition. Type is a free-form
// grouping such as a gender flight.
type Platform struct {
	ID            uuid.UUID `db:"id" json:"id"`
	CompetitionID uuid.UUID `db:"competition_id" json:"competition_id"`
	Name          string    `db:"name" json:"name"`
	Type          *string   `db:"type" json:"type,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
