// Package ledger keeps the append-only record of decided attempts for one
// competition and derives best lifts, totals and standings from it.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AdamBeresnev/meet-control/internal/meet"
	"github.com/google/uuid"
)

// Key identifies one logical attempt. An attempt is recorded at most once.
type Key struct {
	AthleteID     uuid.UUID
	CompetitionID uuid.UUID
	Lift          meet.LiftType
	AttemptNumber int
}

func KeyOf(a meet.Attempt) Key {
	return Key{
		AthleteID:     a.AthleteID,
		CompetitionID: a.CompetitionID,
		Lift:          a.LiftType,
		AttemptNumber: a.AttemptNumber,
	}
}

type liftKey struct {
	athleteID uuid.UUID
	lift      meet.LiftType
}

type Ledger struct {
	mu      sync.RWMutex
	entries []meet.Attempt
	keys    map[Key]struct{}
	last    map[liftKey]int
}

// New builds a ledger from previously persisted attempts. The records must
// already satisfy the ledger invariants.
func New(records ...meet.Attempt) (*Ledger, error) {
	l := &Ledger{
		keys: make(map[Key]struct{}),
		last: make(map[liftKey]int),
	}

	sorted := append([]meet.Attempt(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AttemptNumber < sorted[j].AttemptNumber
	})
	for _, a := range sorted {
		if err := l.Record(a); err != nil {
			return nil, fmt.Errorf("failed to load attempt %s: %w", a.ID, err)
		}
	}
	return l, nil
}

// Check validates a without recording it.
func (l *Ledger) Check(a meet.Attempt) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.check(a)
}

func (l *Ledger) check(a meet.Attempt) error {
	if _, ok := l.keys[KeyOf(a)]; ok {
		return meet.ErrDuplicateAttempt
	}
	if !a.LiftType.Valid() {
		return fmt.Errorf("unknown lift %q", a.LiftType)
	}
	if a.AttemptNumber != l.last[liftKey{a.AthleteID, a.LiftType}]+1 {
		return meet.ErrInvalidAttemptSequence
	}
	return nil
}

// Record appends a. Attempt numbers per (athlete, lift) must increase by one.
func (l *Ledger) Record(a meet.Attempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.check(a); err != nil {
		return err
	}
	l.entries = append(l.entries, a)
	l.keys[KeyOf(a)] = struct{}{}
	l.last[liftKey{a.AthleteID, a.LiftType}] = a.AttemptNumber
	return nil
}

// NextAttempt returns the lift and attempt number the athlete takes next when
// every lift allows attemptsPerLift attempts. ok is false once all lifts are
// used up.
func (l *Ledger) NextAttempt(athleteID uuid.UUID, attemptsPerLift int) (lift meet.LiftType, number int, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, lift := range meet.Lifts {
		if last := l.last[liftKey{athleteID, lift}]; last < attemptsPerLift {
			return lift, last + 1, true
		}
	}
	return "", 0, false
}

// LastAttempt returns the most recent attempt of the athlete on lift.
func (l *Ledger) LastAttempt(athleteID uuid.UUID, lift meet.LiftType) (meet.Attempt, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if a := l.entries[i]; a.AthleteID == athleteID && a.LiftType == lift {
			return a, true
		}
	}
	return meet.Attempt{}, false
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Attempts returns a copy of all recorded attempts in recording order.
func (l *Ledger) Attempts() []meet.Attempt {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]meet.Attempt(nil), l.entries...)
}

func (l *Ledger) BestLift(athleteID uuid.UUID, lift meet.LiftType) (float64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return BestLift(l.entries, athleteID, lift)
}

func (l *Ledger) TotalForAthlete(athleteID uuid.UUID) (float64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return TotalForAthlete(l.entries, athleteID)
}

// BestLift returns the heaviest valid attempt of the athlete for lift. The
// second value is false when the athlete has no valid attempt on that lift.
func BestLift(attempts []meet.Attempt, athleteID uuid.UUID, lift meet.LiftType) (float64, bool) {
	var best float64
	found := false
	for _, a := range attempts {
		if a.AthleteID != athleteID || a.LiftType != lift || a.Result != meet.ResultValid {
			continue
		}
		if !found || a.Weight > best {
			best = a.Weight
			found = true
		}
	}
	return best, found
}

// TotalForAthlete sums the best lifts across squat, bench and deadlift. An
// athlete without a valid attempt in every lift has no total.
func TotalForAthlete(attempts []meet.Attempt, athleteID uuid.UUID) (float64, bool) {
	var total float64
	for _, lift := range meet.Lifts {
		best, ok := BestLift(attempts, athleteID, lift)
		if !ok {
			return 0, false
		}
		total += best
	}
	return total, true
}

// totalReachedAt returns when the athlete's last best lift was made, used to
// separate equal totals.
func totalReachedAt(attempts []meet.Attempt, athleteID uuid.UUID) time.Time {
	var at time.Time
	for _, lift := range meet.Lifts {
		best, ok := BestLift(attempts, athleteID, lift)
		if !ok {
			continue
		}
		for _, a := range attempts {
			if a.AthleteID == athleteID && a.LiftType == lift && a.Result == meet.ResultValid && a.Weight == best {
				if a.Timestamp.After(at) {
					at = a.Timestamp
				}
				break
			}
		}
	}
	return at
}
