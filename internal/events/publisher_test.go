package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronHausheer/liftoff/internal/model"
)

func testRecord() *model.RunRecord {
	started := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	return &model.RunRecord{
		ID:         "8c0f2a1e-9e0b-4c5d-8f3a-2b1c0d9e8f7a",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Minute),
		Outcome:    model.OutcomeSucceeded,
		Commit:     "4f2a9c1d8e7b6a5f4e3d2c1b0a9f8e7d6c5b4a39",
		Branch:     "main",
		DeployURL:  "https://movie-api-abc.vercel.app",
	}
}

// TestRunStartedEvent carries run identity and git metadata but no
// outcome fields.
func TestRunStartedEvent(t *testing.T) {
	rec := testRecord()
	event := runStartedEvent(rec)

	assert.Equal(t, TypeRunStarted, event.Type)
	assert.Equal(t, rec.ID, event.RunID)
	assert.Equal(t, rec.StartedAt, event.Time)
	assert.Equal(t, "main", event.Branch)
	assert.Empty(t, event.Outcome)
	assert.Nil(t, event.ExitCode)

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "outcome")
	assert.NotContains(t, string(data), "exitCode")
}

// TestPhaseFinishedEvent includes the exit code even when it is zero.
func TestPhaseFinishedEvent(t *testing.T) {
	rec := testRecord()
	res := model.PhaseResult{
		Phase:      model.PhaseBuild,
		Status:     model.StatusSucceeded,
		ExitCode:   0,
		FinishedAt: rec.StartedAt.Add(time.Minute),
	}

	event := phaseFinishedEvent(rec, res)

	assert.Equal(t, TypePhaseFinished, event.Type)
	assert.Equal(t, "build", event.Phase)
	assert.Equal(t, "succeeded", event.Status)
	require.NotNil(t, event.ExitCode)
	assert.Equal(t, 0, *event.ExitCode)

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"exitCode":0`)
}

// TestRunFinishedEvent carries outcome and deployment URL.
func TestRunFinishedEvent(t *testing.T) {
	rec := testRecord()
	event := runFinishedEvent(rec)

	assert.Equal(t, TypeRunFinished, event.Type)
	assert.Equal(t, rec.FinishedAt, event.Time)
	assert.Equal(t, "succeeded", event.Outcome)
	assert.Equal(t, "https://movie-api-abc.vercel.app", event.DeployURL)
	assert.Empty(t, event.Phase)
}
