package orchestrator

import (
	"testing"
	"time"

	"github.com/yungbote/agentic-studio/internal/domain"
)

func TestNewTimelineOrder(t *testing.T) {
	tl := NewTimeline([]domain.UploadTarget{domain.TargetTikTok, domain.TargetYouTube})
	got := tl.Snapshot()
	want := []struct{ id, label string }{
		{"script", "Generate Script"},
		{"storyboard", "Storyboard Builder"},
		{"render", "Render Video"},
		{"tiktok", "Upload to TikTok"},
		{"youtube", "Upload to YouTube"},
	}
	if len(got) != len(want) {
		t.Fatalf("stage count: want=%d got=%d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].ID != w.id || got[i].Label != w.label || got[i].Status != StagePending {
			t.Fatalf("stage %d: want=%s/%q/pending got=%s/%q/%s", i, w.id, w.label, got[i].ID, got[i].Label, got[i].Status)
		}
	}
}

func TestNewTimelineNoTargets(t *testing.T) {
	if n := len(NewTimeline(nil).Snapshot()); n != 3 {
		t.Fatalf("stage count: want=3 got=%d", n)
	}
}

func TestTimelineMarkUnknownIsNoop(t *testing.T) {
	tl := NewTimeline(nil)
	before := tl.Snapshot()
	tl.Mark("vimeo", StagePatch{Status: StageRunning, Detail: ptrString("x")})
	after := tl.Snapshot()
	for i := range before {
		if before[i].Status != after[i].Status || before[i].Detail != after[i].Detail {
			t.Fatalf("stage %s changed after unknown mark", before[i].ID)
		}
	}
}

func TestTimelineSnapshotIsIndependent(t *testing.T) {
	tl := NewTimeline(nil)
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tl.Mark(StageScript, StagePatch{Status: StageRunning, StartedAt: &started})
	snap := tl.Snapshot()

	later := started.Add(time.Minute)
	tl.Mark(StageScript, StagePatch{Status: StageSucceeded, Detail: ptrString("4 beats drafted"), StartedAt: &later})

	if snap[0].Status != StageRunning {
		t.Fatalf("snapshot status mutated: got=%s", snap[0].Status)
	}
	if !snap[0].StartedAt.Equal(started) {
		t.Fatalf("snapshot start mutated: got=%v", snap[0].StartedAt)
	}
	snap[0].StartedAt = nil
	if live := tl.Snapshot()[0]; live.StartedAt == nil {
		t.Fatalf("live stage lost its start time after editing a snapshot")
	}
}
