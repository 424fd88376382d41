package store

import (
	"context"

	"github.com/AdamBeresnev/meet-control/internal/meet"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ResultStore struct {
	db *sqlx.DB
}

func NewResultStore(db *sqlx.DB) *ResultStore {
	return &ResultStore{db: db}
}

const insertResultQuery = `
	INSERT INTO competition_results (id, competition_id, athlete_id, best_squat, best_bench, best_deadlift, total, position, updated_at)
	VALUES (:id, :competition_id, :athlete_id, :best_squat, :best_bench, :best_deadlift, :total, :position, :updated_at)
`

// ReplaceResults swaps the stored standings of a competition for results.
func (s *ResultStore) ReplaceResults(ctx context.Context, competitionID uuid.UUID, results []meet.Result) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM competition_results WHERE competition_id = ?", competitionID); err != nil {
		return err
	}
	if len(results) > 0 {
		if _, err := tx.NamedExecContext(ctx, insertResultQuery, results); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetResults returns the stored standings, ranked athletes first.
func (s *ResultStore) GetResults(ctx context.Context, competitionID uuid.UUID) ([]meet.Result, error) {
	var results []meet.Result
	err := s.db.SelectContext(ctx, &results, `
		SELECT r.id, r.competition_id, r.athlete_id, a.name AS athlete_name,
			r.best_squat, r.best_bench, r.best_deadlift, r.total, r.position, r.updated_at
		FROM competition_results r
		JOIN athletes a ON a.id = r.athlete_id
		WHERE r.competition_id = ?
		ORDER BY r.position IS NULL, r.position ASC, a.name ASC`, competitionID)
	return results, err
}
