package store

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/meet-control/internal/meet"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// EnrollmentStore persists enrollments and the attempt ledger. Completing an
// attempt touches both tables, so they share one store.
type EnrollmentStore struct {
	db *sqlx.DB
}

func NewEnrollmentStore(db *sqlx.DB) *EnrollmentStore {
	return &EnrollmentStore{db: db}
}

const (
	createEnrollmentQuery = `
		INSERT INTO competition_athletes (id, athlete_id, competition_id, platform_id, lot_number, current_status, current_attempt, current_lift, declared_weight, created_at)
		VALUES (:id, :athlete_id, :competition_id, :platform_id, :lot_number, :current_status, :current_attempt, :current_lift, :declared_weight, :created_at)
	`
	updateEnrollmentStateQuery = `
		UPDATE competition_athletes SET
		current_status = :current_status,
		current_attempt = :current_attempt,
		current_lift = :current_lift,
		declared_weight = :declared_weight
		WHERE id = :id
	`
	insertAttemptQuery = `
		INSERT INTO attempts (id, athlete_id, competition_id, lift_type, attempt_number, weight, result, timestamp)
		VALUES (:id, :athlete_id, :competition_id, :lift_type, :attempt_number, :weight, :result, :timestamp)
	`
	selectAttemptsQuery = `
		SELECT id, athlete_id, competition_id, lift_type, attempt_number, weight, result, timestamp
		FROM attempts
	`
)

func (s *EnrollmentStore) CreateEnrollment(ctx context.Context, enrollment *meet.Enrollment) error {
	_, err := s.db.NamedExecContext(ctx, createEnrollmentQuery, enrollment)
	if isUniqueViolation(err) {
		return meet.ErrAlreadyEnrolled
	}
	return err
}

func (s *EnrollmentStore) GetEnrollment(ctx context.Context, competitionID, enrollmentID uuid.UUID) (*meet.Enrollment, error) {
	var enrollment meet.Enrollment
	err := s.db.GetContext(ctx, &enrollment, "SELECT * FROM competition_athletes WHERE id = ? AND competition_id = ?", enrollmentID, competitionID)
	if err != nil {
		return nil, notFound(err)
	}
	return &enrollment, nil
}

// GetPlatformEnrollments lists the enrollments lifting on one platform;
// uuid.Nil selects the unassigned pool.
func (s *EnrollmentStore) GetPlatformEnrollments(ctx context.Context, competitionID, platformID uuid.UUID) ([]meet.Enrollment, error) {
	var enrollments []meet.Enrollment
	var err error
	if platformID == uuid.Nil {
		err = s.db.SelectContext(ctx, &enrollments, `SELECT * FROM competition_athletes
			WHERE competition_id = ? AND platform_id IS NULL
			ORDER BY created_at ASC`, competitionID)
	} else {
		err = s.db.SelectContext(ctx, &enrollments, `SELECT * FROM competition_athletes
			WHERE competition_id = ? AND platform_id = ?
			ORDER BY created_at ASC`, competitionID, platformID)
	}
	return enrollments, err
}

// UpdateEnrollmentState writes the controller-owned columns. A second
// current row on the same platform is rejected by the database as well.
func (s *EnrollmentStore) UpdateEnrollmentState(ctx context.Context, enrollment *meet.Enrollment) error {
	res, err := s.db.NamedExecContext(ctx, updateEnrollmentStateQuery, enrollment)
	if err != nil {
		if isUniqueViolation(err) {
			return meet.ErrAthleteAlreadyActive
		}
		return err
	}
	return expectRow(res)
}

func (s *EnrollmentStore) UpdateEnrollmentPlatform(ctx context.Context, enrollmentID uuid.UUID, platformID *uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "UPDATE competition_athletes SET platform_id = ? WHERE id = ?", platformID, enrollmentID)
	if err != nil {
		if isUniqueViolation(err) {
			return meet.ErrAthleteAlreadyActive
		}
		return err
	}
	return expectRow(res)
}

func (s *EnrollmentStore) DeleteEnrollment(ctx context.Context, enrollmentID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM competition_athletes WHERE id = ?", enrollmentID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// CompleteAttempt appends the attempt and stores the enrollment's new state
// in one transaction.
func (s *EnrollmentStore) CompleteAttempt(ctx context.Context, enrollment *meet.Enrollment, attempt *meet.Attempt) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertAttemptQuery, attempt); err != nil {
		if isUniqueViolation(err) {
			return meet.ErrDuplicateAttempt
		}
		return fmt.Errorf("failed to insert attempt: %w", err)
	}

	res, err := tx.NamedExecContext(ctx, updateEnrollmentStateQuery, enrollment)
	if err != nil {
		return fmt.Errorf("failed to update enrollment: %w", err)
	}
	if err := expectRow(res); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *EnrollmentStore) GetAttempts(ctx context.Context, competitionID uuid.UUID) ([]meet.Attempt, error) {
	var attempts []meet.Attempt
	err := s.db.SelectContext(ctx, &attempts, selectAttemptsQuery+" WHERE competition_id = ? ORDER BY timestamp ASC", competitionID)
	return attempts, err
}
