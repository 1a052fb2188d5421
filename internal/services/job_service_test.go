package services

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/agentic-studio/internal/data/repos/jobs"
	"github.com/yungbote/agentic-studio/internal/data/repos/testutil"
	"github.com/yungbote/agentic-studio/internal/domain"
	"github.com/yungbote/agentic-studio/internal/jobs/orchestrator"
	"github.com/yungbote/agentic-studio/internal/platform/ctxutil"
	"github.com/yungbote/agentic-studio/internal/realtime"
)

// scriptedRunner emits one running snapshot and then either finishes or
// waits for cancellation when block is set.
type scriptedRunner struct {
	block    bool
	started  chan struct{}
	videoURL string
}

func (r *scriptedRunner) Run(ctx context.Context, spec domain.JobSpecification) iter.Seq[orchestrator.JobSnapshot] {
	return func(yield func(orchestrator.JobSnapshot) bool) {
		id := ctxutil.JobID(ctx)
		if !yield(orchestrator.JobSnapshot{JobID: id, Seq: 1, State: orchestrator.StateScripting}) {
			return
		}
		if r.started != nil {
			close(r.started)
		}
		if r.block {
			<-ctx.Done()
			yield(orchestrator.JobSnapshot{JobID: id, Seq: 2, State: orchestrator.StateFailed, Error: orchestrator.ErrJobCanceled.Error(), Terminal: true})
			return
		}
		videoURL := r.videoURL
		if videoURL == "" {
			videoURL = "https://cdn.example/v.mp4"
		}
		yield(orchestrator.JobSnapshot{
			JobID:    id,
			Seq:      2,
			State:    orchestrator.StateDone,
			Terminal: true,
			Output:   orchestrator.Output{VideoURL: videoURL},
		})
	}
}

type recordingNotifier struct {
	mu    sync.Mutex
	snaps []orchestrator.JobSnapshot
}

func (n *recordingNotifier) Snapshot(_ context.Context, s orchestrator.JobSnapshot) {
	n.mu.Lock()
	n.snaps = append(n.snaps, s)
	n.mu.Unlock()
}

func specForTest() domain.JobSpecification {
	return domain.JobSpecification{
		Topic:           "Morning routines for founders",
		Tone:            "upbeat",
		Language:        "en",
		DurationSeconds: 90,
		CallToAction:    "Follow for more",
		UploadTargets:   []domain.UploadTarget{domain.TargetYouTube},
	}
}

func TestRunSyncArchivesTerminalSnapshot(t *testing.T) {
	log := testutil.Logger(t)
	repo := jobs.NewJobRunRepo(testutil.DB(t), log)
	notify := &recordingNotifier{}
	svc := NewJobService(log, &scriptedRunner{}, repo, notify, nil, 2)

	final, err := svc.RunSync(context.Background(), specForTest())
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	if final.State != orchestrator.StateDone || !final.Terminal {
		t.Fatalf("final: got=%+v", final)
	}
	if len(notify.snaps) != 2 {
		t.Fatalf("notified: want=2 got=%d", len(notify.snaps))
	}

	runs, err := svc.ListArchived(context.Background(), 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListArchived: got=%d err=%v", len(runs), err)
	}
	if runs[0].VideoURL != "https://cdn.example/v.mp4" || runs[0].State != "done" {
		t.Fatalf("archived: got=%+v", runs[0])
	}

	got, err := svc.Get(context.Background(), final.JobID)
	if err != nil || got.State != orchestrator.StateDone {
		t.Fatalf("Get: got=%+v err=%v", got, err)
	}
}

func TestRunSyncKeepsInlineVideoOutOfRetainedSnapshots(t *testing.T) {
	log := testutil.Logger(t)
	repo := jobs.NewJobRunRepo(testutil.DB(t), log)
	inline := "data:video/mp4;base64," + strings.Repeat("AAAA", 1024)
	svc := NewJobService(log, &scriptedRunner{videoURL: inline}, repo, nil, nil, 1)

	final, err := svc.RunSync(context.Background(), specForTest())
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	if final.Output.VideoURL != inline {
		t.Fatalf("returned snapshot: want inline video got len=%d", len(final.Output.VideoURL))
	}

	cached, err := svc.Get(context.Background(), final.JobID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cached.Output.VideoURL != "" {
		t.Fatalf("cached video url: want empty got len=%d", len(cached.Output.VideoURL))
	}

	runs, err := svc.ListArchived(context.Background(), 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListArchived: got=%d err=%v", len(runs), err)
	}
	if runs[0].VideoURL != "" {
		t.Fatalf("archived video url: want empty got len=%d", len(runs[0].VideoURL))
	}
	if strings.Contains(string(runs[0].Snapshot), "base64") {
		t.Fatalf("archived snapshot still carries the inline video (%d bytes)", len(runs[0].Snapshot))
	}
}

func TestShutdownCancelsAndArchivesSyncJobs(t *testing.T) {
	log := testutil.Logger(t)
	repo := jobs.NewJobRunRepo(testutil.DB(t), log)
	runner := &scriptedRunner{block: true, started: make(chan struct{})}
	svc := NewJobService(log, runner, repo, nil, nil, 1)

	type result struct {
		snap orchestrator.JobSnapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		snap, err := svc.RunSync(context.Background(), specForTest())
		done <- result{snap, err}
	}()
	<-runner.started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	// Shutdown returned, so the run must already be archived.
	runs, err := svc.ListArchived(context.Background(), 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListArchived: got=%d err=%v", len(runs), err)
	}
	if runs[0].State != string(orchestrator.StateFailed) || runs[0].Error != "job canceled" {
		t.Fatalf("archived: state=%q error=%q", runs[0].State, runs[0].Error)
	}

	res := <-done
	if res.err != nil || !res.snap.Terminal || res.snap.Error != "job canceled" {
		t.Fatalf("RunSync: got=%+v err=%v", res.snap, res.err)
	}

	if _, err := svc.Start(context.Background(), specForTest()); !errors.Is(err, ErrShutdown) {
		t.Fatalf("Start after Shutdown: want ErrShutdown got=%v", err)
	}
	if _, err := svc.RunSync(context.Background(), specForTest()); !errors.Is(err, ErrShutdown) {
		t.Fatalf("RunSync after Shutdown: want ErrShutdown got=%v", err)
	}
}

func TestRunSyncRejectsInvalidSpec(t *testing.T) {
	svc := NewJobService(testutil.Logger(t), &scriptedRunner{}, nil, nil, nil, 1)
	spec := specForTest()
	spec.Topic = "abc"
	_, err := svc.RunSync(context.Background(), spec)
	if !errors.Is(err, domain.ErrInvalidSpec) {
		t.Fatalf("want ErrInvalidSpec got=%v", err)
	}
}

func TestStartCancelAndBusy(t *testing.T) {
	runner := &scriptedRunner{block: true, started: make(chan struct{})}
	svc := NewJobService(testutil.Logger(t), runner, nil, nil, nil, 1)

	id, err := svc.Start(context.Background(), specForTest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-runner.started

	if _, err := svc.Start(context.Background(), specForTest()); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Start: want ErrBusy got=%v", err)
	}

	snap, err := svc.Get(context.Background(), id)
	if err != nil || snap.Terminal {
		t.Fatalf("Get active: got=%+v err=%v", snap, err)
	}

	if !svc.Cancel(id) {
		t.Fatalf("Cancel: want true")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	snap, err = svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get finished: %v", err)
	}
	if snap.State != orchestrator.StateFailed || snap.Error != "job canceled" {
		t.Fatalf("canceled job: got=%+v", snap)
	}
	if svc.Cancel(id) {
		t.Fatalf("Cancel finished job: want false")
	}
}

func TestGetUnknownJob(t *testing.T) {
	svc := NewJobService(testutil.Logger(t), &scriptedRunner{}, nil, nil, nil, 1)
	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("want ErrJobNotFound got=%v", err)
	}
}

func TestSnapshotMessageEvents(t *testing.T) {
	cases := []struct {
		snap  orchestrator.JobSnapshot
		event realtime.SSEEvent
	}{
		{orchestrator.JobSnapshot{JobID: "a", State: orchestrator.StateRendering}, realtime.SSEEventJobSnapshot},
		{orchestrator.JobSnapshot{JobID: "a", State: orchestrator.StateDone, Terminal: true}, realtime.SSEEventJobDone},
		{orchestrator.JobSnapshot{JobID: "a", State: orchestrator.StateFailed, Terminal: true}, realtime.SSEEventJobFailed},
	}
	for _, tc := range cases {
		msg := SnapshotMessage(tc.snap)
		if msg.Event != tc.event || msg.Channel != "a" || msg.Final != tc.snap.Terminal {
			t.Fatalf("%s: want=%q got=%+v", tc.snap.State, tc.event, msg)
		}
		if tc.snap.State == orchestrator.StateFailed && msg.Event == realtime.SSEEventJobDone {
			t.Fatalf("failed job: JobFailed must replace JobDone")
		}
	}
}
