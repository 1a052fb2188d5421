package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/yungbote/agentic-studio/internal/realtime"
)

// Bus fans SSE messages out across server instances.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

// LocalBus delivers in-process only; used when no redis is configured.
type LocalBus struct {
	mu       sync.RWMutex
	handlers []func(realtime.SSEMessage)
}

func NewLocalBus() *LocalBus { return &LocalBus{} }

func (b *LocalBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.handlers {
		h(msg)
	}
	return nil
}

func (b *LocalBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if onMsg == nil {
		return errors.New("onMsg callback required")
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, onMsg)
	b.mu.Unlock()
	return nil
}

func (b *LocalBus) Close() error { return nil }
