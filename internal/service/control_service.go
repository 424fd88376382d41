package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/AdamBeresnev/meet-control/internal/countdown"
	"github.com/AdamBeresnev/meet-control/internal/ledger"
	"github.com/AdamBeresnev/meet-control/internal/meet"
	"github.com/AdamBeresnev/meet-control/internal/notify"
	"github.com/AdamBeresnev/meet-control/internal/utils"
	"github.com/google/uuid"
)

// SequencingStore is the persistence the controller needs. It is satisfied
// by *store.EnrollmentStore.
type SequencingStore interface {
	CreateEnrollment(ctx context.Context, enrollment *meet.Enrollment) error
	GetEnrollment(ctx context.Context, competitionID, enrollmentID uuid.UUID) (*meet.Enrollment, error)
	GetPlatformEnrollments(ctx context.Context, competitionID, platformID uuid.UUID) ([]meet.Enrollment, error)
	UpdateEnrollmentState(ctx context.Context, enrollment *meet.Enrollment) error
	UpdateEnrollmentPlatform(ctx context.Context, enrollmentID uuid.UUID, platformID *uuid.UUID) error
	DeleteEnrollment(ctx context.Context, enrollmentID uuid.UUID) error
	CompleteAttempt(ctx context.Context, enrollment *meet.Enrollment, attempt *meet.Attempt) error
	GetAttempts(ctx context.Context, competitionID uuid.UUID) ([]meet.Attempt, error)
}

// Directory resolves the athletes and platforms enrollments point at. It is
// satisfied by *store.CompetitionStore.
type Directory interface {
	GetCompetition(ctx context.Context, id uuid.UUID) (*meet.Competition, error)
	GetAthlete(ctx context.Context, id uuid.UUID) (*meet.Athlete, error)
	GetPlatform(ctx context.Context, competitionID, platformID uuid.UUID) (*meet.Platform, error)
	DeletePlatform(ctx context.Context, competitionID, platformID uuid.UUID) error
}

type Rules struct {
	AttemptSeconds  int
	AttemptsPerLift int
}

type ControlOption func(*ControlService)

// WithTimerOptions is passed to every platform's countdown timer.
func WithTimerOptions(opts ...countdown.Option) ControlOption {
	return func(s *ControlService) { s.timerOpts = append(s.timerOpts, opts...) }
}

func WithClock(now func() time.Time) ControlOption {
	return func(s *ControlService) { s.now = now }
}

type sessionKey struct {
	competitionID uuid.UUID
	platformID    uuid.UUID
}

// platformSession is the authoritative state of one platform. All fields are
// guarded by mu; every mutation of the platform holds it for its whole
// duration, persistence included.
type platformSession struct {
	mu  sync.Mutex
	key sessionKey

	loaded bool
	closed bool

	enrollments map[uuid.UUID]*meet.Enrollment
	current     uuid.UUID
	// cycle is the timer cycle belonging to the current attempt. An expiry
	// for any other cycle is stale.
	cycle uint64
	timer *countdown.Timer
}

// ControlService sequences athletes through their attempts, one session per
// (competition, platform). The unassigned pool is the session keyed by
// uuid.Nil.
type ControlService struct {
	store     SequencingStore
	directory Directory
	notifier  notify.Publisher
	rules     Rules
	timerOpts []countdown.Option
	now       func() time.Time

	mu       sync.Mutex
	sessions map[sessionKey]*platformSession

	ledgerMu sync.Mutex
	ledgers  map[uuid.UUID]*ledger.Ledger
}

func NewControlService(store SequencingStore, directory Directory, notifier notify.Publisher, rules Rules, opts ...ControlOption) (*ControlService, error) {
	if rules.AttemptSeconds <= 0 {
		return nil, meet.ErrInvalidDuration
	}
	if rules.AttemptsPerLift <= 0 {
		return nil, fmt.Errorf("attempts per lift must be positive, got %d", rules.AttemptsPerLift)
	}

	s := &ControlService{
		store:     store,
		directory: directory,
		notifier:  notifier,
		rules:     rules,
		now:       func() time.Time { return time.Now().UTC() },
		sessions:  make(map[sessionKey]*platformSession),
		ledgers:   make(map[uuid.UUID]*ledger.Ledger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TimerState is the clock as shown to officials.
type TimerState struct {
	Running   bool `json:"running"`
	Remaining int  `json:"remaining"`
	Duration  int  `json:"duration"`
}

// PlatformState is a consistent snapshot of one session.
type PlatformState struct {
	CompetitionID uuid.UUID         `json:"competition_id"`
	PlatformID    uuid.UUID         `json:"platform_id"`
	Current       *meet.Enrollment  `json:"current,omitempty"`
	Queue         []meet.Enrollment `json:"queue"`
	Completed     []meet.Enrollment `json:"completed"`
	Timer         TimerState        `json:"timer"`
}

// Registration enrolls an athlete. A zero DeclaredWeight falls back to the
// opener of the lift the athlete starts on, or to the last attempted weight
// when that lift is already under way.
type Registration struct {
	AthleteID      uuid.UUID  `json:"athlete_id"`
	PlatformID     *uuid.UUID `json:"platform_id,omitempty"`
	LotNumber      *int       `json:"lot_number,omitempty"`
	DeclaredWeight float64    `json:"declared_weight,omitempty"`
}

func (s *ControlService) Register(ctx context.Context, competitionID uuid.UUID, reg Registration) (*meet.Enrollment, error) {
	athlete, err := s.directory.GetAthlete(ctx, reg.AthleteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get athlete: %w", err)
	}

	platformID := uuid.Nil
	if reg.PlatformID != nil {
		platformID = *reg.PlatformID
	}
	sess, err := s.lockSession(ctx, competitionID, platformID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	// An athlete registering again after a withdrawal continues after the
	// last recorded attempt.
	led, err := s.ledgerFor(ctx, competitionID)
	if err != nil {
		return nil, s.failed(sess, "Registration failed", err)
	}
	lift, number, ok := led.NextAttempt(athlete.ID, s.rules.AttemptsPerLift)
	if !ok {
		return nil, meet.ErrAttemptsExhausted
	}

	weight := reg.DeclaredWeight
	previous, lifted := led.LastAttempt(athlete.ID, lift)
	if weight == 0 {
		if lifted {
			weight = previous.Weight
		} else {
			weight, _ = athlete.Opener(lift)
		}
	}
	if weight <= 0 {
		return nil, meet.ErrInvalidWeight
	}
	if lifted && weight < previous.Weight {
		return nil, fmt.Errorf("%w: %gkg is below the previous %gkg", meet.ErrInvalidWeight, weight, previous.Weight)
	}

	enrollment := &meet.Enrollment{
		ID:             uuid.New(),
		AthleteID:      athlete.ID,
		CompetitionID:  competitionID,
		PlatformID:     utils.UUIDOrNil(platformID),
		LotNumber:      reg.LotNumber,
		Status:         meet.StatusWaiting,
		CurrentAttempt: number,
		CurrentLift:    lift,
		DeclaredWeight: weight,
		CreatedAt:      s.now(),
	}
	if err := s.store.CreateEnrollment(ctx, enrollment); err != nil {
		return nil, s.failed(sess, "Registration failed", persistenceFailure("create enrollment", err))
	}
	sess.enrollments[enrollment.ID] = enrollment

	slog.Info("athlete registered", "competition", competitionID, "athlete", athlete.Name,
		"enrollment", enrollment.ID, "lift", lift, "attempt", number)
	s.publish(sess, notify.Info, "Athlete registered", fmt.Sprintf("%s - %s", athlete.Name, describe(enrollment)))
	out := *enrollment
	return &out, nil
}

// Select makes a waiting enrollment current and starts the attempt clock.
func (s *ControlService) Select(ctx context.Context, competitionID, platformID, enrollmentID uuid.UUID) (*meet.Enrollment, error) {
	sess, err := s.lockSession(ctx, competitionID, platformID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	return s.selectLocked(ctx, sess, enrollmentID)
}

// SelectNext selects the waiting enrollment that lifts first.
func (s *ControlService) SelectNext(ctx context.Context, competitionID, platformID uuid.UUID) (*meet.Enrollment, error) {
	sess, err := s.lockSession(ctx, competitionID, platformID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if sess.current != uuid.Nil {
		return nil, meet.ErrAthleteAlreadyActive
	}
	queue := sess.byStatus(meet.StatusWaiting)
	if len(queue) == 0 {
		return nil, meet.ErrNoWaitingAthlete
	}
	return s.selectLocked(ctx, sess, queue[0].ID)
}

func (s *ControlService) selectLocked(ctx context.Context, sess *platformSession, enrollmentID uuid.UUID) (*meet.Enrollment, error) {
	if sess.current != uuid.Nil {
		return nil, meet.ErrAthleteAlreadyActive
	}
	enrollment, ok := sess.enrollments[enrollmentID]
	if !ok {
		return nil, meet.ErrNotFound
	}
	if enrollment.Status != meet.StatusWaiting {
		return nil, fmt.Errorf("%w: %s cannot become current", meet.ErrInvalidTransition, enrollment.Status)
	}

	next := *enrollment
	next.Status = meet.StatusCurrent
	if err := s.store.UpdateEnrollmentState(ctx, &next); err != nil {
		return nil, s.failed(sess, "Selection failed", persistenceFailure("update enrollment", err))
	}

	*enrollment = next
	sess.current = enrollment.ID
	if err := sess.timer.Start(s.rules.AttemptSeconds); err != nil {
		slog.Error("failed to start attempt clock", "error", err)
	}
	sess.cycle = sess.timer.Cycle()

	slog.Info("attempt started",
		"competition", sess.key.competitionID, "platform", sess.key.platformID,
		"enrollment", enrollment.ID, "lift", enrollment.CurrentLift, "attempt", enrollment.CurrentAttempt)
	s.publish(sess, notify.Info, "Attempt started", describe(enrollment))
	out := *enrollment
	return &out, nil
}

// RecordResult applies the judges' decision to the current attempt.
// attemptNumber must be the number of the attempt in progress.
func (s *ControlService) RecordResult(ctx context.Context, competitionID, platformID uuid.UUID, attemptNumber int, result meet.AttemptResult) (*meet.Attempt, error) {
	if !result.Decided() {
		return nil, meet.ErrInvalidResult
	}

	sess, err := s.lockSession(ctx, competitionID, platformID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if sess.current == uuid.Nil {
		return nil, meet.ErrNoActiveAttempt
	}
	if current := sess.enrollments[sess.current]; attemptNumber != current.CurrentAttempt {
		return nil, fmt.Errorf("%w: attempt %d is in progress, got %d",
			meet.ErrInvalidAttemptSequence, current.CurrentAttempt, attemptNumber)
	}
	return s.completeLocked(ctx, sess, result)
}

// expire is the timer callback. It completes the attempt as invalid unless
// the judges already decided it or the cycle belongs to an earlier attempt.
func (s *ControlService) expire(sess *platformSession, cycle uint64) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closed || sess.current == uuid.Nil || sess.cycle != cycle {
		slog.Debug("discarding stale timer expiry", "platform", sess.key.platformID, "cycle", cycle)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	expired := describe(sess.enrollments[sess.current])
	if _, err := s.completeLocked(ctx, sess, meet.ResultInvalid); err != nil {
		slog.Error("failed to complete expired attempt", "platform", sess.key.platformID, "error", err)
		return
	}
	s.publish(sess, notify.Warning, "Time expired", expired)
}

// completeLocked records the current attempt and moves its enrollment to
// completed. On failure nothing in memory changes and the clock keeps its
// state.
func (s *ControlService) completeLocked(ctx context.Context, sess *platformSession, result meet.AttemptResult) (*meet.Attempt, error) {
	enrollment := sess.enrollments[sess.current]
	attempt := &meet.Attempt{
		ID:            uuid.New(),
		AthleteID:     enrollment.AthleteID,
		CompetitionID: enrollment.CompetitionID,
		LiftType:      enrollment.CurrentLift,
		AttemptNumber: enrollment.CurrentAttempt,
		Weight:        enrollment.DeclaredWeight,
		Result:        result,
		Timestamp:     s.now(),
	}

	led, err := s.ledgerFor(ctx, enrollment.CompetitionID)
	if err != nil {
		return nil, s.failed(sess, "Recording failed", err)
	}
	if err := led.Check(*attempt); err != nil {
		return nil, s.failed(sess, "Recording failed", err)
	}

	next := *enrollment
	next.Status = meet.StatusCompleted
	if err := s.store.CompleteAttempt(ctx, &next, attempt); err != nil {
		return nil, s.failed(sess, "Recording failed", persistenceFailure("complete attempt", err))
	}
	if err := led.Record(*attempt); err != nil {
		slog.Error("ledger rejected a persisted attempt", "attempt", attempt.ID, "error", err)
	}

	*enrollment = next
	sess.current = uuid.Nil
	sess.cycle = 0
	if err := sess.timer.Reset(s.rules.AttemptSeconds); err != nil {
		slog.Error("failed to reset attempt clock", "error", err)
	}

	slog.Info("attempt recorded",
		"competition", sess.key.competitionID, "platform", sess.key.platformID,
		"enrollment", enrollment.ID, "lift", attempt.LiftType, "attempt", attempt.AttemptNumber, "result", result)
	s.publish(sess, notify.Success, "Attempt recorded",
		fmt.Sprintf("%s #%d %gkg: %s", attempt.LiftType, attempt.AttemptNumber, attempt.Weight, result))
	return attempt, nil
}

// Advance moves a completed enrollment back to waiting for its next attempt,
// or for the first attempt of the next lift, with a new declared weight.
func (s *ControlService) Advance(ctx context.Context, competitionID, enrollmentID uuid.UUID, weight float64) (*meet.Enrollment, error) {
	if weight <= 0 {
		return nil, meet.ErrInvalidWeight
	}

	sess, enrollment, err := s.lockEnrollment(ctx, competitionID, enrollmentID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if enrollment.Status != meet.StatusCompleted {
		return nil, fmt.Errorf("%w: %s cannot advance", meet.ErrInvalidTransition, enrollment.Status)
	}

	next := *enrollment
	switch lift, ok := enrollment.CurrentLift.Next(); {
	case enrollment.CurrentAttempt < s.rules.AttemptsPerLift:
		if weight < enrollment.DeclaredWeight {
			return nil, fmt.Errorf("%w: %gkg is below the previous %gkg", meet.ErrInvalidWeight, weight, enrollment.DeclaredWeight)
		}
		next.CurrentAttempt++
	case ok:
		next.CurrentLift = lift
		next.CurrentAttempt = 1
	default:
		return nil, meet.ErrAttemptsExhausted
	}
	next.Status = meet.StatusWaiting
	next.DeclaredWeight = weight

	if err := s.store.UpdateEnrollmentState(ctx, &next); err != nil {
		return nil, s.failed(sess, "Advance failed", persistenceFailure("update enrollment", err))
	}
	*enrollment = next

	slog.Info("enrollment advanced", "enrollment", enrollment.ID, "lift", next.CurrentLift, "attempt", next.CurrentAttempt)
	out := *enrollment
	return &out, nil
}

// AssignPlatform moves a non-current enrollment to another platform, or to
// the unassigned pool when platformID is nil.
func (s *ControlService) AssignPlatform(ctx context.Context, competitionID, enrollmentID uuid.UUID, platformID *uuid.UUID) (*meet.Enrollment, error) {
	target := uuid.Nil
	if platformID != nil {
		target = *platformID
	}
	if target != uuid.Nil {
		if _, err := s.directory.GetPlatform(ctx, competitionID, target); err != nil {
			return nil, fmt.Errorf("failed to get platform: %w", err)
		}
	}

	src, enrollment, err := s.lockEnrollment(ctx, competitionID, enrollmentID)
	if err != nil {
		return nil, err
	}
	if src.key.platformID == target {
		out := *enrollment
		src.mu.Unlock()
		return &out, nil
	}
	if enrollment.Status == meet.StatusCurrent {
		src.mu.Unlock()
		return nil, fmt.Errorf("%w: athlete is lifting", meet.ErrInvalidTransition)
	}
	if err := s.store.UpdateEnrollmentPlatform(ctx, enrollmentID, utils.UUIDOrNil(target)); err != nil {
		err = s.failed(src, "Platform change failed", persistenceFailure("update enrollment platform", err))
		src.mu.Unlock()
		return nil, err
	}
	delete(src.enrollments, enrollmentID)
	moved := *enrollment
	moved.PlatformID = utils.UUIDOrNil(target)
	src.mu.Unlock()

	dst, err := s.lockSession(ctx, competitionID, target)
	if err != nil {
		return nil, err
	}
	defer dst.mu.Unlock()
	dst.enrollments[moved.ID] = &moved

	slog.Info("enrollment moved", "enrollment", enrollmentID, "from", src.key.platformID, "to", target)
	out := moved
	return &out, nil
}

// Withdraw removes an enrollment. Withdrawing the current athlete abandons
// the attempt without recording it.
func (s *ControlService) Withdraw(ctx context.Context, competitionID, enrollmentID uuid.UUID) error {
	sess, enrollment, err := s.lockEnrollment(ctx, competitionID, enrollmentID)
	if err != nil {
		return err
	}
	defer sess.mu.Unlock()

	if err := s.store.DeleteEnrollment(ctx, enrollmentID); err != nil {
		return s.failed(sess, "Withdrawal failed", persistenceFailure("delete enrollment", err))
	}
	if sess.current == enrollment.ID {
		sess.current = uuid.Nil
		sess.cycle = 0
		if err := sess.timer.Reset(s.rules.AttemptSeconds); err != nil {
			slog.Error("failed to reset attempt clock", "error", err)
		}
	}
	delete(sess.enrollments, enrollmentID)

	slog.Info("enrollment withdrawn", "enrollment", enrollmentID)
	s.publish(sess, notify.Info, "Athlete withdrawn", "")
	return nil
}

// PauseTimer stops the clock of the current attempt, keeping its remaining time.
func (s *ControlService) PauseTimer(ctx context.Context, competitionID, platformID uuid.UUID) (TimerState, error) {
	return s.withCurrent(ctx, competitionID, platformID, func(sess *platformSession) {
		sess.timer.Stop()
	})
}

func (s *ControlService) ResumeTimer(ctx context.Context, competitionID, platformID uuid.UUID) (TimerState, error) {
	return s.withCurrent(ctx, competitionID, platformID, func(sess *platformSession) {
		sess.timer.Resume()
	})
}

// ResetTimer halts the clock and restores the full attempt window. The reset
// clock counts as a new cycle for the same attempt.
func (s *ControlService) ResetTimer(ctx context.Context, competitionID, platformID uuid.UUID) (TimerState, error) {
	return s.withCurrent(ctx, competitionID, platformID, func(sess *platformSession) {
		if err := sess.timer.Reset(s.rules.AttemptSeconds); err != nil {
			slog.Error("failed to reset attempt clock", "error", err)
		}
		sess.cycle = sess.timer.Cycle()
	})
}

func (s *ControlService) withCurrent(ctx context.Context, competitionID, platformID uuid.UUID, fn func(*platformSession)) (TimerState, error) {
	sess, err := s.lockSession(ctx, competitionID, platformID)
	if err != nil {
		return TimerState{}, err
	}
	defer sess.mu.Unlock()

	if sess.current == uuid.Nil {
		return TimerState{}, meet.ErrNoActiveAttempt
	}
	fn(sess)
	return sess.timerState(), nil
}

// DeletePlatform removes a platform that has no attempt in progress. Its
// enrollments fall back to the unassigned pool.
func (s *ControlService) DeletePlatform(ctx context.Context, competitionID, platformID uuid.UUID) error {
	if platformID == uuid.Nil {
		return meet.ErrNotFound
	}

	sess, err := s.lockSession(ctx, competitionID, platformID)
	if err != nil {
		return err
	}
	if sess.current != uuid.Nil {
		sess.mu.Unlock()
		return meet.ErrPlatformInUse
	}
	if err := s.directory.DeletePlatform(ctx, competitionID, platformID); err != nil {
		err = persistenceFailure("delete platform", err)
		sess.mu.Unlock()
		return err
	}

	sess.timer.Stop()
	sess.closed = true
	moved := make([]meet.Enrollment, 0, len(sess.enrollments))
	for _, e := range sess.enrollments {
		m := *e
		m.PlatformID = nil
		moved = append(moved, m)
	}
	s.mu.Lock()
	delete(s.sessions, sess.key)
	s.mu.Unlock()
	sess.mu.Unlock()

	pool, err := s.lockSession(ctx, competitionID, uuid.Nil)
	if err != nil {
		return err
	}
	defer pool.mu.Unlock()
	for i := range moved {
		pool.enrollments[moved[i].ID] = &moved[i]
	}

	slog.Info("platform deleted", "competition", competitionID, "platform", platformID, "unassigned", len(moved))
	return nil
}

// Snapshot returns the session's state, the queue in lifting order.
func (s *ControlService) Snapshot(ctx context.Context, competitionID, platformID uuid.UUID) (*PlatformState, error) {
	sess, err := s.lockSession(ctx, competitionID, platformID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	state := &PlatformState{
		CompetitionID: competitionID,
		PlatformID:    platformID,
		Queue:         sess.byStatus(meet.StatusWaiting),
		Completed:     sess.byStatus(meet.StatusCompleted),
		Timer:         sess.timerState(),
	}
	if sess.current != uuid.Nil {
		current := *sess.enrollments[sess.current]
		state.Current = &current
	}
	return state, nil
}

// Close halts every running clock.
func (s *ControlService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		sess.timer.Stop()
	}
}

// lockSession returns the loaded session for the platform with its lock held.
func (s *ControlService) lockSession(ctx context.Context, competitionID, platformID uuid.UUID) (*platformSession, error) {
	key := sessionKey{competitionID: competitionID, platformID: platformID}

	s.mu.Lock()
	sess, ok := s.sessions[key]
	if !ok {
		sess = &platformSession{key: key}
		sess.timer = countdown.New(func(cycle uint64) { s.expire(sess, cycle) }, s.timerOpts...)
		s.sessions[key] = sess
	}
	s.mu.Unlock()

	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return nil, meet.ErrNotFound
	}
	if sess.loaded {
		return sess, nil
	}
	if err := s.load(ctx, sess); err != nil {
		sess.mu.Unlock()
		if errors.Is(err, meet.ErrNotFound) {
			s.mu.Lock()
			if s.sessions[key] == sess {
				delete(s.sessions, key)
			}
			s.mu.Unlock()
		}
		return nil, err
	}
	return sess, nil
}

func (s *ControlService) load(ctx context.Context, sess *platformSession) error {
	if _, err := s.directory.GetCompetition(ctx, sess.key.competitionID); err != nil {
		return fmt.Errorf("failed to get competition: %w", err)
	}
	if sess.key.platformID != uuid.Nil {
		if _, err := s.directory.GetPlatform(ctx, sess.key.competitionID, sess.key.platformID); err != nil {
			return fmt.Errorf("failed to get platform: %w", err)
		}
	}
	enrollments, err := s.store.GetPlatformEnrollments(ctx, sess.key.competitionID, sess.key.platformID)
	if err != nil {
		return persistenceFailure("load enrollments", err)
	}

	sess.enrollments = make(map[uuid.UUID]*meet.Enrollment, len(enrollments))
	for i := range enrollments {
		e := &enrollments[i]
		sess.enrollments[e.ID] = e
		if e.Status == meet.StatusCurrent {
			// A restart loses the clock; the attempt waits for the judges
			// or a timer reset.
			sess.current = e.ID
		}
	}
	if err := sess.timer.Reset(s.rules.AttemptSeconds); err != nil {
		return err
	}
	if sess.current != uuid.Nil {
		sess.cycle = sess.timer.Cycle()
	}
	sess.loaded = true
	return nil
}

// lockEnrollment finds the session that owns an enrollment and returns it locked.
func (s *ControlService) lockEnrollment(ctx context.Context, competitionID, enrollmentID uuid.UUID) (*platformSession, *meet.Enrollment, error) {
	stored, err := s.store.GetEnrollment(ctx, competitionID, enrollmentID)
	if err != nil {
		return nil, nil, persistenceFailure("get enrollment", err)
	}
	sess, err := s.lockSession(ctx, competitionID, stored.PlatformKey())
	if err != nil {
		return nil, nil, err
	}
	enrollment, ok := sess.enrollments[enrollmentID]
	if !ok {
		// Moved or withdrawn between the lookup and the lock.
		sess.mu.Unlock()
		return nil, nil, meet.ErrNotFound
	}
	return sess, enrollment, nil
}

func (s *ControlService) ledgerFor(ctx context.Context, competitionID uuid.UUID) (*ledger.Ledger, error) {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	if led, ok := s.ledgers[competitionID]; ok {
		return led, nil
	}
	attempts, err := s.store.GetAttempts(ctx, competitionID)
	if err != nil {
		return nil, persistenceFailure("load attempts", err)
	}
	led, err := ledger.New(attempts...)
	if err != nil {
		return nil, err
	}
	s.ledgers[competitionID] = led
	return led, nil
}

// Attempts returns the recorded attempts of a competition in ledger order.
func (s *ControlService) Attempts(ctx context.Context, competitionID uuid.UUID) ([]meet.Attempt, error) {
	led, err := s.ledgerFor(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	return led.Attempts(), nil
}

func (s *ControlService) publish(sess *platformSession, typ notify.Type, title, message string) {
	s.send(sess, notify.Notification{Type: typ, Title: title, Message: message})
}

func (s *ControlService) send(sess *platformSession, n notify.Notification) {
	if s.notifier == nil {
		return
	}
	n.CompetitionID = sess.key.competitionID
	n.PlatformID = sess.key.platformID
	s.notifier.Publish(n)
}

// failed reports err to officials and returns it unchanged.
func (s *ControlService) failed(sess *platformSession, title string, err error) error {
	if errors.Is(err, meet.ErrPersistenceFailure) {
		slog.Error(title, "competition", sess.key.competitionID, "platform", sess.key.platformID, "error", err)
	}
	s.send(sess, notify.Failure(title, err))
	return err
}

// byStatus must be called with mu held. Waiting enrollments come back in
// lifting order, the rest by registration.
func (sess *platformSession) byStatus(status meet.EnrollmentStatus) []meet.Enrollment {
	out := make([]meet.Enrollment, 0, len(sess.enrollments))
	for _, e := range sess.enrollments {
		if e.Status == status {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if status == meet.StatusWaiting {
			return out[i].LiftsBefore(&out[j])
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (sess *platformSession) timerState() TimerState {
	return TimerState{
		Running:   sess.timer.Running(),
		Remaining: sess.timer.Remaining(),
		Duration:  sess.timer.Duration(),
	}
}

// persistenceFailure tags storage errors so callers can tell them apart from
// rule violations. Domain errors the store already translated pass through.
func persistenceFailure(op string, err error) error {
	for _, known := range []error{
		meet.ErrNotFound,
		meet.ErrAthleteAlreadyActive,
		meet.ErrDuplicateAttempt,
		meet.ErrAlreadyEnrolled,
		meet.ErrPlatformInUse,
		meet.ErrPersistenceFailure,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: failed to %s: %w", meet.ErrPersistenceFailure, op, err)
}

func describe(e *meet.Enrollment) string {
	return fmt.Sprintf("%s #%d %gkg", e.CurrentLift, e.CurrentAttempt, e.DeclaredWeight)
}
