package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AdamBeresnev/meet-control/internal/meet"
	"github.com/AdamBeresnev/meet-control/internal/store"
	"github.com/AdamBeresnev/meet-control/internal/utils"
	"github.com/google/uuid"
)

// CompetitionService manages competitions, their platforms and the athlete
// registry. Anything touching enrollments goes through ControlService.
type CompetitionService struct {
	store *store.CompetitionStore
}

func NewCompetitionService(store *store.CompetitionStore) *CompetitionService {
	return &CompetitionService{store: store}
}

type CompetitionInput struct {
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
}

type AthleteInput struct {
	Name           string      `json:"name"`
	Gender         meet.Gender `json:"gender"`
	BodyWeight     float64     `json:"body_weight"`
	Club           string      `json:"club"`
	SquatOpener    *float64    `json:"squat_opener"`
	BenchOpener    *float64    `json:"bench_opener"`
	DeadliftOpener *float64    `json:"deadlift_opener"`
}

type CompetitionOverview struct {
	Competition *meet.Competition `json:"competition"`
	Platforms   []meet.Platform   `json:"platforms"`
}

func (s *CompetitionService) CreateCompetition(ctx context.Context, input CompetitionInput) (*meet.Competition, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, &meet.ValidationError{Field: "name", Message: "is required"}
	}
	if input.Date.IsZero() {
		return nil, &meet.ValidationError{Field: "date", Message: "is required"}
	}

	competition := &meet.Competition{
		ID:          uuid.New(),
		Name:        name,
		Location:    strings.TrimSpace(input.Location),
		Date:        input.Date.UTC(),
		Description: utils.StringOrNil(input.Description),
		Status:      meet.CompetitionUpcoming,
	}
	if err := s.store.CreateCompetition(ctx, competition); err != nil {
		return nil, fmt.Errorf("failed to create competition: %w", err)
	}
	return s.store.GetCompetition(ctx, competition.ID)
}

func (s *CompetitionService) GetCompetition(ctx context.Context, id uuid.UUID) (*CompetitionOverview, error) {
	competition, err := s.store.GetCompetition(ctx, id)
	if err != nil {
		return nil, err
	}
	platforms, err := s.store.GetPlatforms(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get platforms: %w", err)
	}
	return &CompetitionOverview{Competition: competition, Platforms: platforms}, nil
}

var statusTransitions = map[meet.CompetitionStatus][]meet.CompetitionStatus{
	meet.CompetitionUpcoming:   {meet.CompetitionInProgress, meet.CompetitionCancelled},
	meet.CompetitionInProgress: {meet.CompetitionFinished, meet.CompetitionCancelled},
}

// SetStatus moves a competition along upcoming -> in_progress -> finished.
// Upcoming and running competitions may be cancelled.
func (s *CompetitionService) SetStatus(ctx context.Context, id uuid.UUID, status meet.CompetitionStatus) (*meet.Competition, error) {
	if !status.Valid() {
		return nil, &meet.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	competition, err := s.store.GetCompetition(ctx, id)
	if err != nil {
		return nil, err
	}
	if competition.Status == status {
		return competition, nil
	}

	allowed := false
	for _, next := range statusTransitions[competition.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: competition is %s, cannot become %s", meet.ErrInvalidTransition, competition.Status, status)
	}

	if err := s.store.UpdateCompetitionStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("failed to update competition status: %w", err)
	}
	competition.Status = status
	return competition, nil
}

func (s *CompetitionService) CreatePlatform(ctx context.Context, competitionID uuid.UUID, name, platformType string) (*meet.Platform, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &meet.ValidationError{Field: "name", Message: "is required"}
	}
	if _, err := s.store.GetCompetition(ctx, competitionID); err != nil {
		return nil, err
	}

	platform := &meet.Platform{
		ID:            uuid.New(),
		CompetitionID: competitionID,
		Name:          name,
		Type:          utils.StringOrNil(platformType),
	}
	if err := s.store.CreatePlatform(ctx, platform); err != nil {
		return nil, fmt.Errorf("failed to create platform: %w", err)
	}
	return s.store.GetPlatform(ctx, competitionID, platform.ID)
}

func (s *CompetitionService) CreateAthlete(ctx context.Context, input AthleteInput) (*meet.Athlete, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, &meet.ValidationError{Field: "name", Message: "is required"}
	}
	if input.Gender != meet.Male && input.Gender != meet.Female {
		return nil, &meet.ValidationError{Field: "gender", Message: "must be male or female"}
	}
	if input.BodyWeight < 0 {
		return nil, &meet.ValidationError{Field: "body_weight", Message: "must not be negative"}
	}
	for field, opener := range map[string]*float64{
		"squat_opener":    input.SquatOpener,
		"bench_opener":    input.BenchOpener,
		"deadlift_opener": input.DeadliftOpener,
	} {
		if opener != nil && *opener <= 0 {
			return nil, &meet.ValidationError{Field: field, Message: "must be positive"}
		}
	}

	athlete := &meet.Athlete{
		ID:             uuid.New(),
		Name:           name,
		Gender:         input.Gender,
		BodyWeight:     input.BodyWeight,
		Club:           strings.TrimSpace(input.Club),
		SquatOpener:    input.SquatOpener,
		BenchOpener:    input.BenchOpener,
		DeadliftOpener: input.DeadliftOpener,
	}
	if err := s.store.CreateAthlete(ctx, athlete); err != nil {
		return nil, fmt.Errorf("failed to create athlete: %w", err)
	}
	return s.store.GetAthlete(ctx, athlete.ID)
}
