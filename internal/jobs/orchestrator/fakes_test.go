package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yungbote/agentic-studio/internal/domain"
	"github.com/yungbote/agentic-studio/internal/modules/storyboard"
)

type fakeScript struct {
	script domain.Script
	err    error
	calls  int
}

func (f *fakeScript) DraftScript(ctx context.Context, spec domain.JobSpecification) (domain.Script, error) {
	f.calls++
	if f.err != nil {
		return domain.Script{}, f.err
	}
	return f.script, nil
}

type fakeRenderer struct {
	artifact domain.VideoArtifact
	err      error
	block    bool
	delay    time.Duration
	calls    int
}

func (f *fakeRenderer) Render(ctx context.Context, sb domain.Storyboard, spec domain.JobSpecification) (domain.VideoArtifact, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return domain.VideoArtifact{}, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return domain.VideoArtifact{}, f.err
	}
	return f.artifact, nil
}

type fakeUploader struct {
	mu      sync.Mutex
	outcome domain.UploadOutcome
	err     error
	panics  bool
	reqs    []domain.UploadRequest
}

func (f *fakeUploader) Upload(ctx context.Context, req domain.UploadRequest) (domain.UploadOutcome, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.panics {
		panic("uploader exploded")
	}
	if f.err != nil {
		return domain.UploadOutcome{}, f.err
	}
	return f.outcome, nil
}

type fakePublisher struct {
	url string
	err error
}

func (f *fakePublisher) Publish(ctx context.Context, a domain.VideoArtifact) (string, error) {
	return f.url, f.err
}

type countingObserver struct {
	stages []string
	jobs   []JobState
}

func (o *countingObserver) StageFinished(stage string, class StageClass, status StageStatus, d time.Duration) {
	o.stages = append(o.stages, stage+":"+string(status))
}

func (o *countingObserver) JobFinished(state JobState, d time.Duration) {
	o.jobs = append(o.jobs, state)
}

func sampleScript() domain.Script {
	return domain.Script{
		Title: "Five-minute mornings",
		Hook:  "Your morning decides your day.",
		Sections: []domain.ScriptSection{
			{Heading: "Wake", Narration: "Skip snooze.", DurationSeconds: 8},
			{Heading: "Plan", Narration: "Pick one win.", DurationSeconds: 12},
		},
		CTA: "Try it tomorrow.",
	}
}

func sampleSpec(targets ...domain.UploadTarget) domain.JobSpecification {
	return domain.JobSpecification{
		Topic:           "Morning routines",
		Tone:            "upbeat",
		Language:        "en",
		DurationSeconds: 60,
		CallToAction:    "Follow for more",
		Keywords:        []string{"habits", "focus"},
		UploadTargets:   targets,
	}
}

func sampleArtifact() domain.VideoArtifact {
	return domain.VideoArtifact{Data: []byte("mp4-bytes"), MimeType: domain.MimeMP4, Filename: "agentic-video-1.mp4"}
}

type harness struct {
	script    *fakeScript
	renderer  *fakeRenderer
	youtube   *fakeUploader
	tiktok    *fakeUploader
	publisher *fakePublisher
	observer  *countingObserver
	engine    *Engine
}

func newHarness() *harness {
	h := &harness{
		script:    &fakeScript{script: sampleScript()},
		renderer:  &fakeRenderer{artifact: sampleArtifact()},
		youtube:   &fakeUploader{outcome: domain.UploadOutcome{VideoID: "yt-123"}},
		tiktok:    &fakeUploader{outcome: domain.UploadOutcome{VideoID: "tt-456", ShareURL: "https://tiktok.example/v/456"}},
		publisher: &fakePublisher{url: "https://cdn.example/agentic-video-1.mp4"},
		observer:  &countingObserver{},
	}
	h.engine = NewEngine(nil, h.script, storyboard.Compose, h.renderer, h.publisher, map[domain.UploadTarget]Uploader{
		domain.TargetYouTube: h.youtube,
		domain.TargetTikTok:  h.tiktok,
	})
	h.engine.Observer = h.observer
	return h
}

func collect(ctx context.Context, e *Engine, spec domain.JobSpecification) []JobSnapshot {
	var out []JobSnapshot
	for snap := range e.Run(ctx, spec) {
		out = append(out, snap)
	}
	return out
}

var errBoom = errors.New("boom")
