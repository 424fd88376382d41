package views

import (
	"strconv"

	"github.com/AdamBeresnev/meet-control/internal/meet"
	"github.com/AdamBeresnev/meet-control/internal/utils"
)

type BoardRow struct {
	Position string
	Name     string
	Squat    string
	Bench    string
	Deadlift string
	Total    string
}

// PrepareBoardRows formats stored results for display. Missing values are
// shown as a dash.
func PrepareBoardRows(results []meet.Result) []BoardRow {
	rows := make([]BoardRow, 0, len(results))
	for _, r := range results {
		position := "-"
		if r.Position != nil {
			position = strconv.Itoa(*r.Position)
		}
		rows = append(rows, BoardRow{
			Position: position,
			Name:     r.AthleteName,
			Squat:    formatWeight(r.BestSquat),
			Bench:    formatWeight(r.BestBench),
			Deadlift: formatWeight(r.BestDeadlift),
			Total:    formatWeight(r.Total),
		})
	}
	return rows
}

func formatWeight(w *float64) string {
	if w == nil {
		return "-"
	}
	return strconv.FormatFloat(*w, 'f', -1, 64)
}

func boardDescription(competition *meet.Competition) string {
	return utils.OrZero(competition.Description)
}
