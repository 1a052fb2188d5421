package orchestrator

import (
	"time"

	"github.com/yungbote/agentic-studio/internal/domain"
)

type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
)

func (s StageStatus) Terminal() bool {
	return s == StageSucceeded || s == StageFailed
}

const (
	StageScript     = "script"
	StageStoryboard = "storyboard"
	StageRender     = "render"
)

var stageLabels = map[string]string{
	StageScript:                  "Generate Script",
	StageStoryboard:              "Storyboard Builder",
	StageRender:                  "Render Video",
	string(domain.TargetYouTube): "Upload to YouTube",
	string(domain.TargetTikTok):  "Upload to TikTok",
}

// UploadStageID is the stage id used for a target's upload step.
func UploadStageID(t domain.UploadTarget) string { return string(t) }

type Stage struct {
	ID          string      `json:"id"`
	Label       string      `json:"label"`
	Status      StageStatus `json:"status"`
	Detail      string      `json:"detail,omitempty"`
	StartedAt   *time.Time  `json:"startedAt,omitempty"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
}

// StagePatch holds the fields Mark may change. Zero values leave the stage
// untouched.
type StagePatch struct {
	Status      StageStatus
	Detail      *string
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Timeline is the stage arena for one run. It is not safe for concurrent
// use and must never be shared between runs.
type Timeline struct {
	order  []string
	stages map[string]*Stage
}

// NewTimeline lays out script, storyboard, render, then one upload stage per
// target in request order.
func NewTimeline(targets []domain.UploadTarget) *Timeline {
	t := &Timeline{stages: map[string]*Stage{}}
	t.add(StageScript)
	t.add(StageStoryboard)
	t.add(StageRender)
	for _, target := range targets {
		t.add(UploadStageID(target))
	}
	return t
}

func (t *Timeline) add(id string) {
	if _, ok := t.stages[id]; ok {
		return
	}
	label := stageLabels[id]
	if label == "" {
		label = "Upload to " + id
	}
	t.order = append(t.order, id)
	t.stages[id] = &Stage{ID: id, Label: label, Status: StagePending}
}

// Mark applies p to the stage in place. Unknown ids are ignored.
func (t *Timeline) Mark(id string, p StagePatch) {
	ss := t.stages[id]
	if ss == nil {
		return
	}
	if p.Status != "" {
		ss.Status = p.Status
	}
	if p.Detail != nil {
		ss.Detail = *p.Detail
	}
	if p.StartedAt != nil {
		ss.StartedAt = ptrTime(*p.StartedAt)
	}
	if p.CompletedAt != nil {
		ss.CompletedAt = ptrTime(*p.CompletedAt)
	}
}

// Snapshot copies every stage, timestamps included, so the result shares
// nothing with the live arena.
func (t *Timeline) Snapshot() []Stage {
	out := make([]Stage, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, copyStage(t.stages[id]))
	}
	return out
}

func copyStage(ss *Stage) Stage {
	c := *ss
	if ss.StartedAt != nil {
		c.StartedAt = ptrTime(*ss.StartedAt)
	}
	if ss.CompletedAt != nil {
		c.CompletedAt = ptrTime(*ss.CompletedAt)
	}
	return c
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrString(s string) *string { return &s }
