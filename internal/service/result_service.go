package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/meet-control/internal/ledger"
	"github.com/AdamBeresnev/meet-control/internal/meet"
	"github.com/AdamBeresnev/meet-control/internal/store"
	"github.com/AdamBeresnev/meet-control/internal/utils"
	"github.com/google/uuid"
)

// ResultService derives the competition standings from the attempt ledger
// and keeps the competition_results table in sync.
type ResultService struct {
	competitions *store.CompetitionStore
	attempts     *store.EnrollmentStore
	results      *store.ResultStore
}

func NewResultService(competitions *store.CompetitionStore, attempts *store.EnrollmentStore, results *store.ResultStore) *ResultService {
	return &ResultService{competitions: competitions, attempts: attempts, results: results}
}

// Recalculate rebuilds the stored standings of one competition.
func (s *ResultService) Recalculate(ctx context.Context, competitionID uuid.UUID) ([]meet.Result, error) {
	athletes, err := s.competitions.GetCompetitionAthletes(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get athletes: %w", err)
	}
	attempts, err := s.attempts.GetAttempts(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempts: %w", err)
	}

	entrants := make([]ledger.Entrant, 0, len(athletes))
	for _, a := range athletes {
		entrants = append(entrants, ledger.Entrant{AthleteID: a.ID, Name: a.Name, BodyWeight: a.BodyWeight})
	}

	now := time.Now().UTC()
	standings := ledger.Standings(attempts, entrants)
	results := make([]meet.Result, 0, len(standings))
	for _, st := range standings {
		result := meet.Result{
			ID:            uuid.New(),
			CompetitionID: competitionID,
			AthleteID:     st.AthleteID,
			AthleteName:   st.Name,
			BestSquat:     bestOf(st, meet.Squat),
			BestBench:     bestOf(st, meet.Bench),
			BestDeadlift:  bestOf(st, meet.Deadlift),
			UpdatedAt:     now,
		}
		if st.HasTotal {
			result.Total = utils.Ptr(st.Total)
			result.Position = utils.Ptr(st.Position)
		}
		results = append(results, result)
	}

	if err := s.results.ReplaceResults(ctx, competitionID, results); err != nil {
		return nil, fmt.Errorf("%w: failed to store results: %w", meet.ErrPersistenceFailure, err)
	}
	return results, nil
}

// RecalculateActive refreshes every competition in progress. It is the
// scheduled job.
func (s *ResultService) RecalculateActive(ctx context.Context) error {
	competitions, err := s.competitions.GetCompetitionsByStatus(ctx, meet.CompetitionInProgress)
	if err != nil {
		return fmt.Errorf("failed to get active competitions: %w", err)
	}

	var errs []error
	for _, c := range competitions {
		results, err := s.Recalculate(ctx, c.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("competition %s: %w", c.ID, err))
			continue
		}
		slog.Debug("results recalculated", "competition", c.ID, "athletes", len(results))
	}
	return errors.Join(errs...)
}

// Results returns the last stored standings, ranked athletes first.
func (s *ResultService) Results(ctx context.Context, competitionID uuid.UUID) (*meet.Competition, []meet.Result, error) {
	competition, err := s.competitions.GetCompetition(ctx, competitionID)
	if err != nil {
		return nil, nil, err
	}
	results, err := s.results.GetResults(ctx, competitionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get results: %w", err)
	}
	return competition, results, nil
}

func bestOf(st ledger.Standing, lift meet.LiftType) *float64 {
	if best, ok := st.Best[lift]; ok {
		return utils.Ptr(best)
	}
	return nil
}
