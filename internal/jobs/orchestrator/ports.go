package orchestrator

import (
	"context"
	"time"

	"github.com/yungbote/agentic-studio/internal/domain"
)

type ScriptProducer interface {
	DraftScript(ctx context.Context, spec domain.JobSpecification) (domain.Script, error)
}

// ComposeFunc derives the storyboard. It must be pure.
type ComposeFunc func(script domain.Script, spec domain.JobSpecification) (domain.Storyboard, error)

type Renderer interface {
	Render(ctx context.Context, sb domain.Storyboard, spec domain.JobSpecification) (domain.VideoArtifact, error)
}

type Uploader interface {
	Upload(ctx context.Context, req domain.UploadRequest) (domain.UploadOutcome, error)
}

// VideoPublisher turns a rendered artifact into a locator a client can play.
type VideoPublisher interface {
	Publish(ctx context.Context, artifact domain.VideoArtifact) (string, error)
}

// Observer receives stage and run completions for metrics.
type Observer interface {
	StageFinished(stage string, class StageClass, status StageStatus, d time.Duration)
	JobFinished(state JobState, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) StageFinished(string, StageClass, StageStatus, time.Duration) {}
func (nopObserver) JobFinished(JobState, time.Duration)                          {}
