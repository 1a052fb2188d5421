package services

import (
	"context"

	"github.com/yungbote/agentic-studio/internal/jobs/orchestrator"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
	"github.com/yungbote/agentic-studio/internal/realtime"
	"github.com/yungbote/agentic-studio/internal/realtime/bus"
)

type JobNotifier interface {
	Snapshot(ctx context.Context, snap orchestrator.JobSnapshot)
}

// jobNotifier publishes every snapshot on the job's channel. The bus forwarder
// on each instance broadcasts it to local SSE clients.
type jobNotifier struct {
	log *logger.Logger
	bus bus.Bus
}

func NewJobNotifier(log *logger.Logger, b bus.Bus) JobNotifier {
	if log == nil {
		log = logger.Nop()
	}
	return &jobNotifier{log: log.With("service", "JobNotifier"), bus: b}
}

func (n *jobNotifier) Snapshot(ctx context.Context, snap orchestrator.JobSnapshot) {
	if n.bus == nil {
		return
	}
	if err := n.bus.Publish(context.WithoutCancel(ctx), SnapshotMessage(snap)); err != nil {
		n.log.Warn("publish snapshot failed", "job_id", snap.JobID, "seq", snap.Seq, "error", err)
	}
}

func SnapshotMessage(snap orchestrator.JobSnapshot) realtime.SSEMessage {
	event := realtime.SSEEventJobSnapshot
	if snap.Terminal {
		event = realtime.SSEEventJobDone
		if snap.State == orchestrator.StateFailed {
			event = realtime.SSEEventJobFailed
		}
	}
	return realtime.SSEMessage{
		Channel: snap.JobID,
		Event:   event,
		Data:    snap,
		Final:   snap.Terminal,
	}
}
