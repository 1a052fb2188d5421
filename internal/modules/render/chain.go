package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/agentic-studio/internal/domain"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
)

// Backend produces a video for a storyboard.
type Backend interface {
	Render(ctx context.Context, sb domain.Storyboard, spec domain.JobSpecification) (domain.VideoArtifact, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, sb domain.Storyboard, spec domain.JobSpecification) (domain.VideoArtifact, error)

func (f BackendFunc) Render(ctx context.Context, sb domain.Storyboard, spec domain.JobSpecification) (domain.VideoArtifact, error) {
	return f(ctx, sb, spec)
}

type namedBackend struct {
	name string
	b    Backend
}

// Chain tries the primary provider and falls back in order. Any failure
// other than cancellation moves on to the next backend.
type Chain struct {
	log      *logger.Logger
	backends []namedBackend
}

func NewChain(log *logger.Logger) *Chain {
	if log == nil {
		log = logger.Nop()
	}
	return &Chain{log: log.With("service", "RenderChain")}
}

// Use appends a backend. A nil backend is skipped.
func (c *Chain) Use(name string, b Backend) *Chain {
	if b != nil {
		c.backends = append(c.backends, namedBackend{name: name, b: b})
	}
	return c
}

func (c *Chain) Len() int { return len(c.backends) }

func (c *Chain) Render(ctx context.Context, sb domain.Storyboard, spec domain.JobSpecification) (domain.VideoArtifact, error) {
	if len(c.backends) == 0 {
		return domain.VideoArtifact{}, &domain.RenderError{Message: "no render backend configured"}
	}
	var errs []error
	for i, nb := range c.backends {
		art, err := nb.b.Render(ctx, sb, spec)
		if err == nil {
			if i > 0 {
				c.log.Info("render served by fallback", "backend", nb.name, "filename", art.Filename)
			}
			return art, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.VideoArtifact{}, ctxErr
		}
		c.log.Warn("render backend failed, falling back", "backend", nb.name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", nb.name, err))
	}
	last := errs[len(errs)-1]
	if len(errs) == 1 {
		return domain.VideoArtifact{}, last
	}
	return domain.VideoArtifact{}, &domain.RenderError{Message: last.Error(), Err: errors.Join(errs...)}
}

// Placeholder serves a fixed video file from disk.
type Placeholder struct {
	Path string
	now  func() time.Time
}

func NewPlaceholder(path string) *Placeholder {
	return &Placeholder{Path: path, now: time.Now}
}

func (p *Placeholder) Render(ctx context.Context, _ domain.Storyboard, _ domain.JobSpecification) (domain.VideoArtifact, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return domain.VideoArtifact{}, &domain.RenderError{Message: "read placeholder video", Err: err}
	}
	return domain.VideoArtifact{
		Data:     data,
		MimeType: domain.MimeMP4,
		Filename: fmt.Sprintf("placeholder-%d.mp4", p.now().UnixMilli()),
	}, nil
}
