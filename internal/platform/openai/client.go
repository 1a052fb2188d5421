package openai

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
	"sync"
	"time"

	"github.com/yungbote/agentic-studio/internal/observability"
	"github.com/yungbote/agentic-studio/internal/pkg/httpx"
	"github.com/yungbote/agentic-studio/internal/platform/ctxutil"
	"github.com/yungbote/agentic-studio/internal/platform/envutil"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
)

// Client is the slice of the OpenAI API the studio needs: structured
// outputs through the Responses API.
type Client interface {
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature *float64
}

// ConfigFromEnv reads OPENAI_* variables. OPENAI_TEMPERATURE=off omits the
// temperature parameter entirely.
func ConfigFromEnv() Config {
	cfg := Config{
		APIKey:     envutil.String("OPENAI_API_KEY", ""),
		BaseURL:    envutil.String("OPENAI_BASE_URL", "https://api.openai.com"),
		Model:      envutil.String("OPENAI_MODEL", "gpt-4o-mini"),
		Timeout:    envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 180*time.Second),
		MaxRetries: envutil.Int("OPENAI_MAX_RETRIES", 4),
	}
	temp := 0.7
	switch raw := strings.ToLower(envutil.String("OPENAI_TEMPERATURE", "")); raw {
	case "":
		cfg.Temperature = &temp
	case "off", "none", "nil", "false":
	default:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			cfg.Temperature = &f
		} else {
			cfg.Temperature = &temp
		}
	}
	return cfg
}

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	model       string
	httpClient  *http.Client
	maxRetries  int
	temperature *float64

	// Models that rejected temperature once are remembered for the
	// lifetime of the client.
	noTempMu   sync.RWMutex
	noTempSeen map[string]bool
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &client{
		log:         log.With("service", "OpenAIClient"),
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		httpClient:  &http.Client{Timeout: timeout},
		maxRetries:  maxRetries,
		temperature: cfg.Temperature,
		noTempSeen:  map[string]bool{},
	}, nil
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func isUnsupportedTemperatureParam(err error) bool {
	var he *openAIHTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(he.Body)
	if !strings.Contains(msg, "temperature") {
		return false
	}
	for _, hint := range []string{"unsupported parameter", "unknown parameter", "not supported", "does not support", "only the default", "unsupported_value"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if td := ctxutil.GetTraceData(ctx); td != nil && td.RequestID != "" {
		req.Header.Set("X-Client-Request-Id", td.RequestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second
	start := time.Now()

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			observability.Current().ObserveProviderRequest("openai", path, statusFromResp(resp, nil), time.Since(start))
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			return nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			observability.Current().ObserveProviderRequest("openai", path, statusFromResp(resp, err), time.Since(start))
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
			"job_id", ctxutil.JobID(ctx),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

// -------------------- Responses API --------------------

type responsesInput struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type responsesRequest struct {
	Model string           `json:"model"`
	Input []responsesInput `json:"input"`
	Text  struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func extractOutputText(resp responsesResponse) (text string, refusal string) {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, c := range item.Content {
			switch {
			case c.Type == "output_text" && c.Text != "":
				out.WriteString(c.Text)
			case c.Type == "refusal" && c.Refusal != "":
				refusal = c.Refusal
			}
		}
	}
	if refusal == "" {
		refusal = resp.Refusal
	}
	return out.String(), refusal
}

func (c *client) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error) {
	if schemaName == "" {
		return nil, errors.New("schemaName required")
	}
	if schema == nil {
		return nil, errors.New("schema required")
	}

	req := responsesRequest{
		Model: c.model,
		Input: []responsesInput{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	if c.temperature != nil && !c.modelIsNoTemp(c.model) {
		req.Temperature = c.temperature
	}
	req.Text.Format = map[string]any{
		"type":   "json_schema",
		"name":   schemaName,
		"schema": schema,
		"strict": true,
	}

	var resp responsesResponse
	err := c.do(ctx, http.MethodPost, "/v1/responses", &req, &resp)
	if err != nil && req.Temperature != nil && isUnsupportedTemperatureParam(err) {
		c.noteNoTempModel(req.Model)
		req.Temperature = nil
		err = c.do(ctx, http.MethodPost, "/v1/responses", &req, &resp)
	}
	if err != nil {
		return nil, err
	}

	jsonText, refusal := extractOutputText(resp)
	if refusal != "" {
		return nil, fmt.Errorf("model refused: %s", refusal)
	}
	if strings.TrimSpace(jsonText) == "" {
		return nil, fmt.Errorf("no output_text found in response")
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(jsonText), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return obj, nil
}

func (c *client) modelIsNoTemp(model string) bool {
	c.noTempMu.RLock()
	defer c.noTempMu.RUnlock()
	return c.noTempSeen[strings.ToLower(strings.TrimSpace(model))]
}

func (c *client) noteNoTempModel(model string) {
	c.noTempMu.Lock()
	c.noTempSeen[strings.ToLower(strings.TrimSpace(model))] = true
	c.noTempMu.Unlock()
}

func statusFromResp(resp *http.Response, err error) string {
	if resp != nil {
		return strconv.Itoa(resp.StatusCode)
	}
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
