package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"gorm.io/datatypes"

	repojobs "github.com/yungbote/agentic-studio/internal/data/repos/jobs"
	"github.com/yungbote/agentic-studio/internal/domain"
	types "github.com/yungbote/agentic-studio/internal/domain/jobs"
	"github.com/yungbote/agentic-studio/internal/jobs/orchestrator"
	"github.com/yungbote/agentic-studio/internal/observability"
	"github.com/yungbote/agentic-studio/internal/pkg/dbctx"
	"github.com/yungbote/agentic-studio/internal/platform/ctxutil"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrBusy        = errors.New("too many jobs in flight")
	ErrShutdown    = errors.New("job service is shutting down")
)

// Runner is the orchestrator entry point.
type Runner interface {
	Run(ctx context.Context, spec domain.JobSpecification) iter.Seq[orchestrator.JobSnapshot]
}

type JobService interface {
	// RunSync drives a job to completion on the caller's goroutine and
	// returns the terminal snapshot.
	RunSync(ctx context.Context, spec domain.JobSpecification) (orchestrator.JobSnapshot, error)
	// Start launches a job in the background and returns its id.
	Start(ctx context.Context, spec domain.JobSpecification) (string, error)
	Get(ctx context.Context, jobID string) (orchestrator.JobSnapshot, error)
	Cancel(jobID string) bool
	ListArchived(ctx context.Context, limit int) ([]*types.JobRun, error)
	// Shutdown refuses new jobs, cancels every in-flight job and waits for
	// them to archive.
	Shutdown(ctx context.Context) error
}

type activeJob struct {
	cancel context.CancelFunc
	mu     sync.Mutex
	latest orchestrator.JobSnapshot
}

func (a *activeJob) set(s orchestrator.JobSnapshot) {
	a.mu.Lock()
	a.latest = s
	a.mu.Unlock()
}

func (a *activeJob) get() orchestrator.JobSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latest.Clone()
}

const recentLimit = 256

type jobService struct {
	log     *logger.Logger
	runner  Runner
	archive repojobs.JobRunRepo
	notify  JobNotifier
	metrics *observability.Metrics
	slots   *semaphore.Weighted

	mu      sync.RWMutex
	closing bool
	active  map[string]*activeJob
	recent  map[string]orchestrator.JobSnapshot
	order   []string
	wg      sync.WaitGroup
}

// NewJobService wires the runner to the archive and notifier. archive and
// notify may be nil.
func NewJobService(baseLog *logger.Logger, runner Runner, archive repojobs.JobRunRepo, notify JobNotifier, metrics *observability.Metrics, maxConcurrent int) JobService {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &jobService{
		log:     baseLog.With("service", "JobService"),
		runner:  runner,
		archive: archive,
		notify:  notify,
		metrics: metrics,
		slots:   semaphore.NewWeighted(int64(maxConcurrent)),
		active:  map[string]*activeJob{},
		recent:  map[string]orchestrator.JobSnapshot{},
	}
}

func prepare(spec domain.JobSpecification) (domain.JobSpecification, error) {
	spec = spec.Normalize()
	if err := spec.Validate(); err != nil {
		return spec, err
	}
	return spec, nil
}

func (s *jobService) RunSync(ctx context.Context, spec domain.JobSpecification) (orchestrator.JobSnapshot, error) {
	spec, err := prepare(spec)
	if err != nil {
		return orchestrator.JobSnapshot{}, err
	}
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return orchestrator.JobSnapshot{}, err
	}
	defer s.slots.Release(1)

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	job := &activeJob{cancel: cancel}
	if err := s.track(id, job); err != nil {
		return orchestrator.JobSnapshot{}, err
	}
	defer s.wg.Done()
	return s.drive(ctx, id, spec, job)
}

func (s *jobService) Start(ctx context.Context, spec domain.JobSpecification) (string, error) {
	spec, err := prepare(spec)
	if err != nil {
		return "", err
	}
	if !s.slots.TryAcquire(1) {
		return "", ErrBusy
	}

	id := uuid.NewString()
	// The run outlives the request that started it but keeps its trace data.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := &activeJob{cancel: cancel}
	job.set(orchestrator.JobSnapshot{JobID: id, State: orchestrator.StateScripting})
	if err := s.track(id, job); err != nil {
		cancel()
		s.slots.Release(1)
		return "", err
	}

	go func() {
		defer s.wg.Done()
		defer s.slots.Release(1)
		defer cancel()
		if _, err := s.drive(runCtx, id, spec, job); err != nil {
			s.log.Warn("background job ended without a snapshot", "job_id", id, "error", err)
		}
	}()
	return id, nil
}

// track registers job and counts it against Shutdown's wait. Callers must
// call s.wg.Done when the job has been archived.
func (s *jobService) track(id string, job *activeJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return ErrShutdown
	}
	s.active[id] = job
	s.wg.Add(1)
	return nil
}

func (s *jobService) drive(ctx context.Context, id string, spec domain.JobSpecification, job *activeJob) (orchestrator.JobSnapshot, error) {
	ctx = ctxutil.WithJobID(ctx, id)
	started := time.Now().UTC()
	s.metrics.JobStarted()
	defer s.metrics.JobEnded()

	log := s.log.With("job_id", id)
	log.Info("job started", "topic", spec.Topic, "targets", spec.UploadTargets)

	var last orchestrator.JobSnapshot
	seen := false
	for snap := range s.runner.Run(ctx, spec) {
		last, seen = snap, true
		job.set(snap)
		if s.notify != nil {
			s.notify.Snapshot(ctx, snap)
		}
	}
	kept := retained(last)
	s.finish(id, kept, seen)
	if !seen {
		return last, fmt.Errorf("job %s produced no snapshots", id)
	}
	log.Info("job finished", "state", last.State, "error", last.Error)
	s.store(ctx, spec, kept, started)
	return last, nil
}

// retained is the copy of a finished snapshot that outlives the run. Inline
// data: URIs carry the whole video, so they are dropped.
func retained(snap orchestrator.JobSnapshot) orchestrator.JobSnapshot {
	if !strings.HasPrefix(snap.Output.VideoURL, "data:") {
		return snap
	}
	out := snap.Clone()
	out.Output.VideoURL = ""
	return out
}

func (s *jobService) finish(id string, last orchestrator.JobSnapshot, seen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
	if !seen {
		return
	}
	s.recent[id] = last
	s.order = append(s.order, id)
	for len(s.order) > recentLimit {
		delete(s.recent, s.order[0])
		s.order = s.order[1:]
	}
}

// store archives terminal snapshots only.
func (s *jobService) store(ctx context.Context, spec domain.JobSpecification, snap orchestrator.JobSnapshot, started time.Time) {
	if s.archive == nil || !snap.Terminal {
		return
	}
	uid, err := uuid.Parse(snap.JobID)
	if err != nil {
		return
	}
	specJSON, _ := json.Marshal(spec)
	targetsJSON, _ := json.Marshal(spec.UploadTargets)
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		s.log.Warn("marshal snapshot failed", "job_id", snap.JobID, "error", err)
		return
	}
	finished := time.Now().UTC()
	run := &types.JobRun{
		ID:         uid,
		State:      string(snap.State),
		Topic:      spec.Topic,
		Targets:    datatypes.JSON(targetsJSON),
		Spec:       datatypes.JSON(specJSON),
		Snapshot:   datatypes.JSON(snapJSON),
		VideoURL:   snap.Output.VideoURL,
		Error:      snap.Error,
		StartedAt:  started,
		FinishedAt: &finished,
	}
	if err := s.archive.Save(dbctx.New(context.WithoutCancel(ctx)), run); err != nil {
		s.log.Warn("archive job failed", "job_id", snap.JobID, "error", err)
	}
}

func (s *jobService) Get(ctx context.Context, jobID string) (orchestrator.JobSnapshot, error) {
	s.mu.RLock()
	job, ok := s.active[jobID]
	recent, done := s.recent[jobID]
	s.mu.RUnlock()
	if ok {
		return job.get(), nil
	}
	if done {
		return recent.Clone(), nil
	}
	if s.archive == nil {
		return orchestrator.JobSnapshot{}, ErrJobNotFound
	}
	uid, err := uuid.Parse(jobID)
	if err != nil {
		return orchestrator.JobSnapshot{}, ErrJobNotFound
	}
	run, err := s.archive.GetByID(dbctx.New(ctx), uid)
	if err != nil {
		return orchestrator.JobSnapshot{}, fmt.Errorf("load archived job: %w", err)
	}
	if run == nil {
		return orchestrator.JobSnapshot{}, ErrJobNotFound
	}
	var snap orchestrator.JobSnapshot
	if err := json.Unmarshal(run.Snapshot, &snap); err != nil {
		return orchestrator.JobSnapshot{}, fmt.Errorf("decode archived snapshot: %w", err)
	}
	return snap, nil
}

func (s *jobService) Cancel(jobID string) bool {
	s.mu.RLock()
	job, ok := s.active[jobID]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	job.cancel()
	s.log.Info("job cancel requested", "job_id", jobID)
	return true
}

func (s *jobService) ListArchived(ctx context.Context, limit int) ([]*types.JobRun, error) {
	if s.archive == nil {
		return nil, nil
	}
	return s.archive.ListRecent(dbctx.New(ctx), limit)
}

func (s *jobService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	for _, job := range s.active {
		job.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
