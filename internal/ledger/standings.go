package ledger

import (
	"sort"
	"time"

	"github.com/AdamBeresnev/meet-control/internal/meet"
	"github.com/google/uuid"
)

// Entrant is an athlete taking part in the ranking.
type Entrant struct {
	AthleteID  uuid.UUID
	Name       string
	BodyWeight float64
}

type Standing struct {
	Entrant
	Best      map[meet.LiftType]float64
	Total     float64
	HasTotal  bool
	Position  int
	reachedAt time.Time
}

// Standings ranks entrants by total, descending. Equal totals go to the
// lighter athlete, then to whoever reached the total first. Athletes without
// a total are listed after all ranked athletes with Position 0.
func (l *Ledger) Standings(entrants []Entrant) []Standing {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Standings(l.entries, entrants)
}

func Standings(attempts []meet.Attempt, entrants []Entrant) []Standing {
	out := make([]Standing, 0, len(entrants))
	for _, e := range entrants {
		s := Standing{Entrant: e, Best: make(map[meet.LiftType]float64)}
		for _, lift := range meet.Lifts {
			if best, ok := BestLift(attempts, e.AthleteID, lift); ok {
				s.Best[lift] = best
			}
		}
		s.Total, s.HasTotal = TotalForAthlete(attempts, e.AthleteID)
		if s.HasTotal {
			s.reachedAt = totalReachedAt(attempts, e.AthleteID)
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.HasTotal != b.HasTotal {
			return a.HasTotal
		}
		if !a.HasTotal {
			return a.Name < b.Name
		}
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.BodyWeight != b.BodyWeight {
			return a.BodyWeight < b.BodyWeight
		}
		return a.reachedAt.Before(b.reachedAt)
	})

	for i := range out {
		if out[i].HasTotal {
			out[i].Position = i + 1
		}
	}
	return out
}
