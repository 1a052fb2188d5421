package videogen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/agentic-studio/internal/domain"
	"github.com/yungbote/agentic-studio/internal/observability"
	"github.com/yungbote/agentic-studio/internal/pkg/httpx"
	"github.com/yungbote/agentic-studio/internal/platform/ctxutil"
	"github.com/yungbote/agentic-studio/internal/platform/envutil"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultTimeout      = 15 * time.Minute
	maxVideoBytes       = 512 << 20
)

var ErrNotConfigured = errors.New("external video generation not configured")

type Config struct {
	URL          string
	APIKey       string
	PollInterval time.Duration
	Timeout      time.Duration
	MaxRetries   int
}

func ConfigFromEnv() Config {
	return Config{
		URL:          strings.TrimRight(envutil.String("VIDEO_GEN_API_URL", ""), "/"),
		APIKey:       envutil.String("VIDEO_GEN_API_KEY", ""),
		PollInterval: envutil.Seconds("VIDEO_GEN_POLL_SECONDS", DefaultPollInterval),
		Timeout:      envutil.Seconds("VIDEO_GEN_TIMEOUT_SECONDS", DefaultTimeout),
		MaxRetries:   envutil.Int("VIDEO_GEN_MAX_RETRIES", 2),
	}
}

func (c Config) Configured() bool {
	return strings.TrimSpace(c.URL) != "" && strings.TrimSpace(c.APIKey) != ""
}

// Client talks to a job-based video generation provider: create a job, poll
// it until completed or failed, then download the result.
type Client struct {
	log      *logger.Logger
	cfg      Config
	http     *http.Client
	now      func() time.Time
	maxBytes int64
}

func New(log *logger.Logger, cfg Config) *Client {
	if log == nil {
		log = logger.Nop()
	}
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		log:      log.With("service", "VideoGen"),
		cfg:      cfg,
		http:     &http.Client{Timeout: 2 * time.Minute},
		now:      time.Now,
		maxBytes: maxVideoBytes,
	}
}

type jobRequest struct {
	Storyboard domain.Storyboard `json:"storyboard"`
	Metadata   jobMetadata       `json:"metadata"`
}

type jobMetadata struct {
	Duration int    `json:"duration"`
	Language string `json:"language"`
	Tone     string `json:"tone"`
}

type jobStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (c *Client) Render(ctx context.Context, sb domain.Storyboard, spec domain.JobSpecification) (domain.VideoArtifact, error) {
	if !c.cfg.Configured() {
		return domain.VideoArtifact{}, ErrNotConfigured
	}
	job, err := c.createJob(ctx, jobRequest{
		Storyboard: sb,
		Metadata:   jobMetadata{Duration: sb.TotalDuration(), Language: spec.Language, Tone: spec.Tone},
	})
	if err != nil {
		return domain.VideoArtifact{}, err
	}
	if strings.TrimSpace(job.ID) == "" {
		return domain.VideoArtifact{}, &domain.RenderError{Message: "video generation provider did not return a job id"}
	}
	c.log.Info("video job created", "video_job_id", job.ID, "status", job.Status)

	deadline := c.now().Add(c.cfg.Timeout)
	for {
		switch strings.ToLower(strings.TrimSpace(job.Status)) {
		case "completed", "succeeded":
			if job.DownloadURL != "" {
				return c.download(ctx, job.DownloadURL)
			}
		case "failed", "canceled":
			msg := strings.TrimSpace(job.Error)
			if msg == "" {
				msg = "video generation failed"
			}
			return domain.VideoArtifact{}, &domain.RenderError{Message: msg}
		}
		if !c.now().Before(deadline) {
			return domain.VideoArtifact{}, domain.ErrRenderTimeout
		}

		select {
		case <-ctx.Done():
			return domain.VideoArtifact{}, ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}

		id := job.ID
		job, err = c.getJob(ctx, id)
		if err != nil {
			return domain.VideoArtifact{}, err
		}
		if job.ID == "" {
			job.ID = id
		}
	}
}

func (c *Client) createJob(ctx context.Context, body jobRequest) (jobStatus, error) {
	var out jobStatus
	b, err := json.Marshal(body)
	if err != nil {
		return out, err
	}
	err = c.retrier().Do(ctx, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, c.cfg.URL, b, "create", &out)
	})
	if err != nil {
		return out, renderErr("video generation request failed", err)
	}
	return out, nil
}

func (c *Client) getJob(ctx context.Context, id string) (jobStatus, error) {
	var out jobStatus
	err := c.retrier().Do(ctx, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, c.cfg.URL+"/"+id, nil, "poll", &out)
	})
	if err != nil {
		return out, renderErr("failed to poll video generation job", err)
	}
	return out, nil
}

func (c *Client) download(ctx context.Context, url string) (domain.VideoArtifact, error) {
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, url, nil)
	if err != nil {
		return domain.VideoArtifact{}, renderErr("failed to download generated video", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	start := time.Now()
	resp, err := c.http.Do(req)
	observability.Current().ObserveProviderRequest("videogen", "download", statusOf(resp, err), time.Since(start))
	if err != nil {
		return domain.VideoArtifact{}, renderErr("failed to download generated video", err)
	}
	defer resp.Body.Close()
	if err := httpx.CheckResponse("videogen download", resp); err != nil {
		return domain.VideoArtifact{}, renderErr("failed to download generated video", err)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return domain.VideoArtifact{}, renderErr("failed to download generated video", err)
	}
	if int64(len(data)) > c.maxBytes {
		return domain.VideoArtifact{}, &domain.RenderError{Message: fmt.Sprintf("generated video exceeds %d bytes", c.maxBytes)}
	}
	mime := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	if mime == "" {
		mime = domain.MimeMP4
	}
	c.log.Info("video downloaded", "bytes", len(data), "mime", mime)
	return domain.VideoArtifact{
		Data:     data,
		MimeType: mime,
		Filename: fmt.Sprintf("agentic-video-%d.mp4", c.now().UnixMilli()),
	}, nil
}

func (c *Client) doJSON(ctx context.Context, method, url string, body []byte, op string, out any) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, url, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if td := ctxutil.GetTraceData(ctx); td != nil && td.TraceID != "" {
		req.Header.Set("X-Request-Id", td.TraceID)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	observability.Current().ObserveProviderRequest("videogen", op, statusOf(resp, err), time.Since(start))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := httpx.CheckResponse("videogen "+op, resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) retrier() httpx.Retrier {
	return httpx.Retrier{
		MaxRetries: c.cfg.MaxRetries,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			c.log.Warn("video provider request retrying", "attempt", attempt, "wait", wait.String(), "error", err)
		},
	}
}

func renderErr(msg string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &domain.RenderError{Message: msg + ": " + err.Error(), Err: err}
}

func statusOf(resp *http.Response, err error) string {
	if err != nil {
		return "error"
	}
	return strconv.Itoa(resp.StatusCode)
}
