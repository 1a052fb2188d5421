package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/agentic-studio/internal/domain"
	"github.com/yungbote/agentic-studio/internal/http/response"
	"github.com/yungbote/agentic-studio/internal/observability"
	"github.com/yungbote/agentic-studio/internal/platform/apierr"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
	"github.com/yungbote/agentic-studio/internal/realtime"
	"github.com/yungbote/agentic-studio/internal/services"
)

type JobHandler struct {
	log     *logger.Logger
	jobs    services.JobService
	hub     *realtime.SSEHub
	metrics *observability.Metrics
}

func NewJobHandler(log *logger.Logger, jobs services.JobService, hub *realtime.SSEHub, metrics *observability.Metrics) *JobHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &JobHandler{log: log.With("handler", "JobHandler"), jobs: jobs, hub: hub, metrics: metrics}
}

// POST /api/agent
// Runs the whole job inside the request. Any failure before a snapshot exists
// is a 500 with a flat {"error"} body; a job that ran and failed is still 200.
func (h *JobHandler) RunAgent(c *gin.Context) {
	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.agentError(c, err)
		return
	}
	spec, err := req.toSpec()
	if err != nil {
		h.agentError(c, err)
		return
	}
	final, err := h.jobs.RunSync(c.Request.Context(), spec)
	if err != nil {
		h.agentError(c, err)
		return
	}
	c.JSON(http.StatusOK, final)
}

func (h *JobHandler) agentError(c *gin.Context, err error) {
	h.log.Warn("agent request failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// POST /api/jobs
func (h *JobHandler) StartJob(c *gin.Context) {
	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	spec, err := req.toSpec()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job", err)
		return
	}
	id, err := h.jobs.Start(c.Request.Context(), spec)
	switch {
	case errors.Is(err, domain.ErrInvalidSpec):
		response.RespondError(c, http.StatusBadRequest, "invalid_job", err)
		return
	case errors.Is(err, services.ErrBusy):
		response.RespondError(c, http.StatusTooManyRequests, "busy", err)
		return
	case errors.Is(err, services.ErrShutdown):
		response.RespondError(c, http.StatusServiceUnavailable, "shutting_down", err)
		return
	case err != nil:
		response.RespondAPIError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"jobId": id})
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	snap, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, lookupError(err))
		return
	}
	response.RespondOK(c, gin.H{"job": snap})
}

// POST /api/jobs/:id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	id := c.Param("id")
	if !h.jobs.Cancel(id) {
		response.RespondError(c, http.StatusConflict, "not_running", errors.New("job is not running"))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"jobId": id, "canceled": true})
}

// GET /api/jobs?limit=
func (h *JobHandler) ListJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.jobs.ListArchived(c.Request.Context(), limit)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"jobs": runs})
}

// GET /api/jobs/:id/stream
// Subscribes before reading the current snapshot so nothing published in
// between is lost; clients dedupe on seq.
func (h *JobHandler) StreamJob(c *gin.Context) {
	id := c.Param("id")
	if h.hub == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "streaming_disabled", errors.New("streaming is not configured"))
		return
	}
	client := h.hub.NewSSEClient()
	h.hub.AddChannel(client, id)
	defer h.hub.CloseClient(client)

	snap, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, lookupError(err))
		return
	}
	client.Outbound <- services.SnapshotMessage(snap)

	h.metrics.SSEClientConnected()
	defer h.metrics.SSEClientDisconnected()
	h.log.Debug("SSE stream open", "job_id", id, "client_id", client.ID)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
}

func lookupError(err error) error {
	if errors.Is(err, services.ErrJobNotFound) {
		return apierr.NotFound("job_not_found", err)
	}
	return err
}
