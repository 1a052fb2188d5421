package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/agentic-studio/internal/domain"
	"github.com/yungbote/agentic-studio/internal/platform/ctxutil"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
)

// -------------------- Public API --------------------

var ErrJobCanceled = errors.New("job canceled")

type Engine struct {
	Script    ScriptProducer
	Compose   ComposeFunc
	Renderer  Renderer
	Publisher VideoPublisher
	Uploaders map[domain.UploadTarget]Uploader
	Observer  Observer

	// StageTimeout bounds each external call; zero means no bound.
	StageTimeout time.Duration

	log *logger.Logger
	now func() time.Time
}

func NewEngine(log *logger.Logger, script ScriptProducer, compose ComposeFunc, renderer Renderer, publisher VideoPublisher, uploaders map[domain.UploadTarget]Uploader) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		Script:    script,
		Compose:   compose,
		Renderer:  renderer,
		Publisher: publisher,
		Uploaders: uploaders,
		Observer:  nopObserver{},
		log:       log.With("service", "Orchestrator"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run returns the lazy snapshot sequence for one job. Nothing executes until
// the caller starts ranging, and each stage begins only after the previous
// snapshot was accepted. Breaking out of the range stops the run. The last
// element has Terminal set and is the authoritative result.
func (e *Engine) Run(ctx context.Context, spec domain.JobSpecification) iter.Seq[JobSnapshot] {
	return func(yield func(JobSnapshot) bool) {
		r := &run{
			e:       e,
			ctx:     ctxutil.Default(ctx),
			spec:    spec,
			jobID:   ctxutil.JobID(ctx),
			tl:      NewTimeline(spec.UploadTargets),
			state:   StateScripting,
			yield:   yield,
			started: time.Now(),
		}
		r.log = e.log.With("job_id", r.jobID)
		r.execute()
	}
}

// Drain consumes seq and returns the last snapshot.
func Drain(seq iter.Seq[JobSnapshot]) (JobSnapshot, bool) {
	var (
		last JobSnapshot
		ok   bool
	)
	for snap := range seq {
		last, ok = snap, true
	}
	return last, ok
}

// -------------------- run --------------------

type stageDef struct {
	id       string
	class    StageClass
	state    JobState
	runMsg   string
	perform  func(ctx context.Context) stageResult
	external bool
}

// stageResult carries the outcome plus the fold into run state. apply only
// ever runs on the engine goroutine.
type stageResult struct {
	outcome StageOutcome
	apply   func()
}

func failed(err error) stageResult { return stageResult{outcome: Failed(err)} }

type run struct {
	e     *Engine
	ctx   context.Context
	spec  domain.JobSpecification
	jobID string
	log   *logger.Logger

	tl    *Timeline
	out   Output
	state JobState
	err   string
	seq   int

	script     domain.Script
	storyboard domain.Storyboard
	artifact   domain.VideoArtifact

	yield   func(JobSnapshot) bool
	stopped bool
	started time.Time
}

func (r *run) plan() []stageDef {
	defs := []stageDef{
		{id: StageScript, class: Mandatory, state: StateScripting, perform: r.draftScript, external: true},
		{id: StageStoryboard, class: Mandatory, state: StateStoryboarding, perform: r.composeStoryboard},
		{id: StageRender, class: Mandatory, state: StateRendering, runMsg: "Generating video", perform: r.renderVideo, external: true},
	}
	for _, target := range r.spec.UploadTargets {
		defs = append(defs, stageDef{
			id:       UploadStageID(target),
			class:    Optional,
			state:    StateUploading,
			external: true,
			perform:  func(ctx context.Context) stageResult { return r.upload(ctx, target) },
		})
	}
	return defs
}

func (r *run) execute() {
	defs := r.plan()
	for i, def := range defs {
		if !r.begin(def) {
			return
		}
		start := time.Now()
		res := r.perform(def)
		outcome := res.outcome
		if outcome.Kind == OutcomeSucceeded && res.apply != nil {
			res.apply()
		}
		r.e.observer().StageFinished(def.id, def.class, outcome.Status(), time.Since(start))

		if outcome.Kind == OutcomeFailed {
			canceled := r.ctx.Err() != nil
			if def.class == Mandatory || canceled {
				r.abort(def, outcome, canceled)
				return
			}
			r.log.Warn("optional stage failed", "stage", def.id, "error", outcome.Detail)
		}
		if !r.finish(def, outcome, i == len(defs)-1) {
			return
		}
	}
}

// -------------------- transitions --------------------

func (r *run) begin(def stageDef) bool {
	r.state = def.state
	now := r.e.now()
	patch := StagePatch{Status: StageRunning, StartedAt: &now}
	if def.runMsg != "" {
		patch.Detail = ptrString(def.runMsg)
	}
	r.tl.Mark(def.id, patch)
	r.log.Debug("stage started", "stage", def.id, "class", def.class.String())
	return r.emit(false)
}

func (r *run) finish(def stageDef, o StageOutcome, last bool) bool {
	now := r.e.now()
	r.tl.Mark(def.id, StagePatch{Status: o.Status(), Detail: ptrString(o.Detail), CompletedAt: &now})
	if last {
		r.state = StateDone
		r.log.Info("job finished", "state", r.state, "duration_ms", time.Since(r.started).Milliseconds())
		r.e.observer().JobFinished(r.state, time.Since(r.started))
	}
	return r.emit(last)
}

func (r *run) abort(def stageDef, o StageOutcome, canceled bool) {
	now := r.e.now()
	r.tl.Mark(def.id, StagePatch{Status: StageFailed, Detail: ptrString(o.Detail), CompletedAt: &now})
	r.state = StateFailed
	r.err = o.Detail
	if canceled {
		r.err = ErrJobCanceled.Error()
	}
	r.log.Warn("job failed", "stage", def.id, "error", o.Detail, "canceled", canceled)
	r.e.observer().JobFinished(r.state, time.Since(r.started))
	r.emit(true)
}

func (r *run) emit(terminal bool) bool {
	if r.stopped {
		return false
	}
	r.seq++
	snap := JobSnapshot{
		JobID:    r.jobID,
		Seq:      r.seq,
		State:    r.state,
		Stages:   r.tl.Snapshot(),
		Output:   r.out.clone(),
		Error:    r.err,
		Terminal: terminal,
	}
	if !r.yield(snap) {
		r.stopped = true
		r.log.Debug("consumer stopped", "seq", r.seq)
		return false
	}
	return true
}

// -------------------- stage bodies --------------------

func (r *run) draftScript(ctx context.Context) stageResult {
	if r.e.Script == nil {
		return failed(&domain.ProviderError{Message: "script producer is not configured"})
	}
	script, err := r.e.Script.DraftScript(ctx, r.spec)
	if err != nil {
		return failed(err)
	}
	return stageResult{
		outcome: Succeeded(fmt.Sprintf("%d beats drafted", script.Beats())),
		apply: func() {
			r.script = script
			r.out.Script = script.Text()
		},
	}
}

func (r *run) composeStoryboard(context.Context) stageResult {
	if r.e.Compose == nil {
		return failed(&domain.MalformedScriptError{Reason: "no storyboard composer"})
	}
	sb, err := r.e.Compose(r.script, r.spec)
	if err != nil {
		return failed(err)
	}
	return stageResult{
		outcome: Succeeded(fmt.Sprintf("%d scenes planned", len(sb.Scenes))),
		apply: func() {
			r.storyboard = sb
			r.out.Storyboard = sb.Clone()
		},
	}
}

func (r *run) renderVideo(ctx context.Context) stageResult {
	if r.e.Renderer == nil {
		return failed(&domain.RenderError{Message: "video renderer is not configured"})
	}
	artifact, err := r.e.Renderer.Render(ctx, r.storyboard, r.spec)
	if err != nil {
		return failed(err)
	}
	url := r.locate(ctx, artifact)
	return stageResult{
		outcome: Succeeded(artifact.Filename),
		apply: func() {
			r.artifact = artifact
			r.out.VideoURL = url
		},
	}
}

func (r *run) locate(ctx context.Context, artifact domain.VideoArtifact) string {
	if r.e.Publisher != nil {
		url, err := r.e.Publisher.Publish(ctx, artifact)
		if err == nil && url != "" {
			return url
		}
		r.log.Warn("video publish failed, inlining artifact", "filename", artifact.Filename, "error", err)
	}
	return artifact.DataURI()
}

func (r *run) upload(ctx context.Context, target domain.UploadTarget) stageResult {
	up := r.e.Uploaders[target]
	if up == nil {
		return failed(&domain.UploadError{Target: target, Message: fmt.Sprintf("no uploader configured for %s", target)})
	}
	req := domain.UploadRequest{
		Video:        r.artifact.Data,
		MimeType:     r.artifact.MimeType,
		Title:        r.storyboard.Title,
		Description:  r.storyboard.Description,
		Keywords:     append([]string(nil), r.spec.Keywords...),
		Language:     r.spec.Language,
		CallToAction: r.spec.CallToAction,
		Visibility:   r.spec.Visibility(),
	}
	if !r.spec.AutoPublish && r.spec.ScheduleTime != nil {
		at := r.spec.ScheduleTime.UTC()
		req.PublishAt = &at
	}
	res, err := up.Upload(ctx, req)
	if err != nil {
		return failed(err)
	}
	return stageResult{
		outcome: Succeeded(res.VideoID),
		apply: func() {
			if r.out.Uploads == nil {
				r.out.Uploads = map[domain.UploadTarget]domain.UploadOutcome{}
			}
			r.out.Uploads[target] = res
		},
	}
}

// -------------------- safety --------------------

// perform runs one stage body under its own span, with panic recovery and
// the optional per-call timeout. A context that is already done fails the
// stage without calling out.
func (r *run) perform(def stageDef) (res stageResult) {
	ctx, span := otel.Tracer("github.com/yungbote/agentic-studio/orchestrator").Start(r.ctx, "stage."+def.id)
	span.SetAttributes(
		attribute.String("job.id", r.jobID),
		attribute.String("stage.id", def.id),
		attribute.String("stage.class", def.class.String()),
	)
	defer func() {
		if res.outcome.Kind == OutcomeFailed {
			span.RecordError(res.outcome.Err)
			span.SetStatus(codes.Error, res.outcome.Detail)
		}
		span.End()
	}()

	if err := ctx.Err(); err != nil {
		return failed(err)
	}
	if !def.external || r.e.StageTimeout <= 0 {
		return safeCall(r.log, def.id, func() stageResult { return def.perform(ctx) })
	}

	tctx, cancel := context.WithTimeout(ctx, r.e.StageTimeout)
	defer cancel()
	ch := make(chan stageResult, 1)
	go func() {
		ch <- safeCall(r.log, def.id, func() stageResult { return def.perform(tctx) })
	}()
	select {
	case got := <-ch:
		if got.outcome.Kind == OutcomeSucceeded || tctx.Err() == nil {
			return got
		}
	case <-tctx.Done():
	}
	if err := r.ctx.Err(); err != nil {
		return failed(err)
	}
	return failed(fmt.Errorf("stage %q timed out: %w", def.id, tctx.Err()))
}

func safeCall(log *logger.Logger, stage string, fn func() stageResult) (res stageResult) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("stage panicked", "stage", stage, "panic", rec, "stack", string(debug.Stack()))
			res = failed(&panicError{stage: stage, value: rec})
		}
	}()
	return fn()
}

type panicError struct {
	stage string
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprintf("stage %s panicked: %v", p.stage, p.value)
}

func (e *Engine) observer() Observer {
	if e.Observer == nil {
		return nopObserver{}
	}
	return e.Observer
}
