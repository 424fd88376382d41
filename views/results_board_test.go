package views

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/AdamBeresnev/meet-control/internal/meet"
	"github.com/AdamBeresnev/meet-control/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareBoardRows(t *testing.T) {
	rows := PrepareBoardRows([]meet.Result{
		{AthleteName: "Anna", BestSquat: utils.Ptr(117.5), BestBench: utils.Ptr(70.0), BestDeadlift: utils.Ptr(140.0), Total: utils.Ptr(327.5), Position: utils.Ptr(1)},
		{AthleteName: "Olga", BestSquat: utils.Ptr(100.0)},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, BoardRow{Position: "1", Name: "Anna", Squat: "117.5", Bench: "70", Deadlift: "140", Total: "327.5"}, rows[0])
	assert.Equal(t, BoardRow{Position: "-", Name: "Olga", Squat: "100", Bench: "-", Deadlift: "-", Total: "-"}, rows[1])
}

func TestResultsBoard(t *testing.T) {
	competition := &meet.Competition{
		Name:     "Open <Cup>",
		Location: "Hall",
		Date:     time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		Status:   meet.CompetitionInProgress,
	}

	var buf bytes.Buffer
	err := ResultsBoard(competition, []meet.Result{
		{AthleteName: "Anna & Co", Total: utils.Ptr(327.5), Position: utils.Ptr(1)},
	}).Render(context.Background(), &buf)
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "Open &lt;Cup&gt;")
	assert.Contains(t, html, "Anna &amp; Co")
	assert.Contains(t, html, "<td>327.5</td>")
	assert.Contains(t, html, "2 May 2026")
	assert.NotContains(t, html, `class="description"`)

	buf.Reset()
	competition.Description = utils.Ptr("Raw & equipped")
	require.NoError(t, ResultsBoard(competition, nil).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "No results yet.")
	assert.Contains(t, buf.String(), "Raw &amp; equipped")
}
