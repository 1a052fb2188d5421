package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/agentic-studio/internal/domain"
	"github.com/yungbote/agentic-studio/internal/jobs/orchestrator"
)

func TestParseBriefYAML(t *testing.T) {
	raw := []byte(`
topic: "  Morning routines for founders "
tone: upbeat
language: en
callToAction: Follow for more
keywords: [startup, " ", habits]
uploadTargets: [youtube, tiktok]
scheduleTime: 2030-11-01T09:00:00Z
`)
	spec, err := parseBrief(raw)
	require.NoError(t, err)
	assert.Equal(t, "Morning routines for founders", spec.Topic)
	assert.Equal(t, domain.DefaultDurationSeconds, spec.DurationSeconds)
	assert.Equal(t, []string{"startup", "habits"}, spec.Keywords)
	assert.Equal(t, []domain.UploadTarget{domain.TargetYouTube, domain.TargetTikTok}, spec.UploadTargets)
	require.NotNil(t, spec.ScheduleTime)
	assert.Equal(t, 2030, spec.ScheduleTime.Year())
}

func TestParseBriefAcceptsJSON(t *testing.T) {
	raw := []byte(`{"topic":"Budget travel","tone":"calm","language":"en","durationSeconds":60,"callToAction":"Subscribe","uploadTargets":["tiktok"]}`)
	spec, err := parseBrief(raw)
	require.NoError(t, err)
	assert.Equal(t, 60, spec.DurationSeconds)
}

func TestParseBriefRejectsInvalid(t *testing.T) {
	_, err := parseBrief([]byte("topic: abc\nuploadTargets: [vimeo]\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidSpec))

	_, err = parseBrief([]byte("topic: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse brief")
}

func TestProgressLineShowsRunningStage(t *testing.T) {
	var buf bytes.Buffer
	progressLine(&buf, orchestrator.JobSnapshot{
		Seq:   3,
		State: orchestrator.StateRendering,
		Stages: []orchestrator.Stage{
			{ID: "script", Label: "Generate Script", Status: orchestrator.StageSucceeded},
			{ID: "render", Label: "Render Video", Status: orchestrator.StageRunning, Detail: "Submitting render"},
		},
	})
	assert.Contains(t, buf.String(), "Render Video: Submitting render")

	buf.Reset()
	progressLine(&buf, orchestrator.JobSnapshot{Seq: 9, State: orchestrator.StateDone, Terminal: true})
	assert.Contains(t, buf.String(), "done")
}
