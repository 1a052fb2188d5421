package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/agentic-studio/internal/domain"
	types "github.com/yungbote/agentic-studio/internal/domain/jobs"
	"github.com/yungbote/agentic-studio/internal/jobs/orchestrator"
	"github.com/yungbote/agentic-studio/internal/platform/envutil"
	"github.com/yungbote/agentic-studio/internal/realtime"
)

// errStreamDone stops the SSE reader after the final message.
var errStreamDone = errors.New("stream done")

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

// Client talks to a running studio server.
type Client struct {
	baseURL    string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{baseURL: baseURL, timeout: timeout, maxRetries: maxRetries, httpClient: hc}, nil
}

func NewFromEnv() (*Client, error) {
	return New(Options{
		BaseURL:    envutil.String("STUDIO_SERVER_URL", "http://localhost:8080"),
		Timeout:    envutil.Seconds("STUDIO_CLIENT_TIMEOUT_SECONDS", 30*time.Second),
		MaxRetries: envutil.Int("STUDIO_CLIENT_MAX_RETRIES", 2),
	})
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) StartJob(ctx context.Context, spec domain.JobSpecification) (string, error) {
	var resp struct {
		JobID string `json:"jobId"`
	}
	if err := c.doJSON(ctx, c.timeout, http.MethodPost, "/api/jobs", spec, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", errors.New("server returned no job id")
	}
	return resp.JobID, nil
}

// RunAgent blocks until the server finished the whole job; no client timeout
// applies beyond ctx.
func (c *Client) RunAgent(ctx context.Context, spec domain.JobSpecification) (orchestrator.JobSnapshot, error) {
	var snap orchestrator.JobSnapshot
	err := c.doJSON(ctx, 0, http.MethodPost, "/api/agent", spec, &snap)
	return snap, err
}

func (c *Client) GetJob(ctx context.Context, id string) (orchestrator.JobSnapshot, error) {
	var resp struct {
		Job orchestrator.JobSnapshot `json:"job"`
	}
	err := c.doJSON(ctx, c.timeout, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &resp)
	return resp.Job, err
}

func (c *Client) CancelJob(ctx context.Context, id string) error {
	return c.doJSON(ctx, c.timeout, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/cancel", nil, nil)
}

func (c *Client) ListJobs(ctx context.Context, limit int) ([]*types.JobRun, error) {
	var resp struct {
		Jobs []*types.JobRun `json:"jobs"`
	}
	path := "/api/jobs?limit=" + strconv.Itoa(limit)
	if err := c.doJSON(ctx, c.timeout, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Watch streams a job's snapshots until the terminal one and returns it.
func (c *Client) Watch(ctx context.Context, id string, onSnapshot func(orchestrator.JobSnapshot)) (orchestrator.JobSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/jobs/"+url.PathEscape(id)+"/stream", nil)
	if err != nil {
		return orchestrator.JobSnapshot{}, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return orchestrator.JobSnapshot{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return orchestrator.JobSnapshot{}, parseHTTPError(resp.StatusCode, raw)
	}

	var (
		last    orchestrator.JobSnapshot
		lastSeq = -1
	)
	err = streamSSE(resp.Body, func(_ string, data string) error {
		var msg struct {
			realtime.SSEMessage
			Data orchestrator.JobSnapshot `json:"data"`
		}
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
		// The current snapshot may arrive twice around subscription.
		if msg.Data.Seq > lastSeq || msg.Data.Terminal {
			lastSeq = msg.Data.Seq
			last = msg.Data
			if onSnapshot != nil {
				onSnapshot(msg.Data)
			}
		}
		if msg.Final {
			return errStreamDone
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStreamDone) {
		return last, err
	}
	if !last.Terminal {
		return last, errors.New("stream ended before the job finished")
	}
	return last, nil
}

func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func (c *Client) doJSON(ctx context.Context, timeout time.Duration, method string, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	ctx2 := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx2, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	retries := 0
	if idempotent(method) {
		retries = c.maxRetries
	}

	var lastErr error
	backoff := 250 * time.Millisecond
	for attempt := 0; attempt <= retries; attempt++ {
		if ctx2.Err() != nil {
			return ctx2.Err()
		}

		req, err := http.NewRequestWithContext(ctx2, method, c.baseURL+path, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				return readErr
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				lastErr = parseHTTPError(resp.StatusCode, raw)
				if resp.StatusCode < 500 {
					return lastErr
				}
			} else {
				if out == nil {
					return nil
				}
				return json.Unmarshal(raw, out)
			}
		}

		if attempt < retries {
			select {
			case <-ctx2.Done():
				return ctx2.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return lastErr
}
