package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AdamBeresnev/meet-control/internal/meet"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

type CompetitionStore struct {
	db *sqlx.DB
}

func NewCompetitionStore(db *sqlx.DB) *CompetitionStore {
	return &CompetitionStore{db: db}
}

const (
	createCompetitionQuery = `
		INSERT INTO competitions (id, name, location, date, description, status)
		VALUES (:id, :name, :location, :date, :description, :status)
	`
	createPlatformQuery = `
		INSERT INTO platforms (id, competition_id, name, type)
		VALUES (:id, :competition_id, :name, :type)
	`
	createAthleteQuery = `
		INSERT INTO athletes (id, name, gender, body_weight, club, squat_opener, bench_opener, deadlift_opener)
		VALUES (:id, :name, :gender, :body_weight, :club, :squat_opener, :bench_opener, :deadlift_opener)
	`
)

func (s *CompetitionStore) CreateCompetition(ctx context.Context, competition *meet.Competition) error {
	_, err := s.db.NamedExecContext(ctx, createCompetitionQuery, competition)
	return err
}

func (s *CompetitionStore) GetCompetition(ctx context.Context, id uuid.UUID) (*meet.Competition, error) {
	var competition meet.Competition
	err := s.db.GetContext(ctx, &competition, "SELECT * FROM competitions WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err)
	}
	return &competition, nil
}

func (s *CompetitionStore) GetCompetitionsByStatus(ctx context.Context, status meet.CompetitionStatus) ([]meet.Competition, error) {
	var competitions []meet.Competition
	err := s.db.SelectContext(ctx, &competitions, "SELECT * FROM competitions WHERE status = ? ORDER BY date ASC", status)
	return competitions, err
}

func (s *CompetitionStore) UpdateCompetitionStatus(ctx context.Context, id uuid.UUID, status meet.CompetitionStatus) error {
	res, err := s.db.ExecContext(ctx, "UPDATE competitions SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (s *CompetitionStore) CreatePlatform(ctx context.Context, platform *meet.Platform) error {
	_, err := s.db.NamedExecContext(ctx, createPlatformQuery, platform)
	return err
}

func (s *CompetitionStore) GetPlatform(ctx context.Context, competitionID, platformID uuid.UUID) (*meet.Platform, error) {
	var platform meet.Platform
	err := s.db.GetContext(ctx, &platform, "SELECT * FROM platforms WHERE id = ? AND competition_id = ?", platformID, competitionID)
	if err != nil {
		return nil, notFound(err)
	}
	return &platform, nil
}

func (s *CompetitionStore) GetPlatforms(ctx context.Context, competitionID uuid.UUID) ([]meet.Platform, error) {
	var platforms []meet.Platform
	err := s.db.SelectContext(ctx, &platforms, "SELECT * FROM platforms WHERE competition_id = ? ORDER BY name ASC", competitionID)
	return platforms, err
}

// DeletePlatform removes the platform; enrollments on it fall back to the
// unassigned pool through ON DELETE SET NULL. Deletion is refused while one
// of them is on the bar.
func (s *CompetitionStore) DeletePlatform(ctx context.Context, competitionID, platformID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var active int
	err = tx.GetContext(ctx, &active, `SELECT COUNT(*) FROM competition_athletes
		WHERE competition_id = ? AND platform_id = ? AND current_status = ?`,
		competitionID, platformID, meet.StatusCurrent)
	if err != nil {
		return err
	}
	if active > 0 {
		return meet.ErrPlatformInUse
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM platforms WHERE id = ? AND competition_id = ?", platformID, competitionID)
	if err != nil {
		return err
	}
	if err := expectRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *CompetitionStore) CreateAthlete(ctx context.Context, athlete *meet.Athlete) error {
	_, err := s.db.NamedExecContext(ctx, createAthleteQuery, athlete)
	return err
}

func (s *CompetitionStore) GetAthlete(ctx context.Context, id uuid.UUID) (*meet.Athlete, error) {
	var athlete meet.Athlete
	err := s.db.GetContext(ctx, &athlete, "SELECT * FROM athletes WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err)
	}
	return &athlete, nil
}

// GetCompetitionAthletes returns every athlete enrolled in the competition.
func (s *CompetitionStore) GetCompetitionAthletes(ctx context.Context, competitionID uuid.UUID) ([]meet.Athlete, error) {
	var athletes []meet.Athlete
	err := s.db.SelectContext(ctx, &athletes, `SELECT a.* FROM athletes a
		JOIN competition_athletes ca ON ca.athlete_id = a.id
		WHERE ca.competition_id = ?
		ORDER BY a.name ASC`, competitionID)
	return athletes, err
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", meet.ErrNotFound, err)
	}
	return err
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return meet.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
