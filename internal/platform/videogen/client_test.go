package videogen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/agentic-studio/internal/domain"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
)

func testStoryboard() domain.Storyboard {
	return domain.Storyboard{
		Title: "t",
		Scenes: []domain.Scene{
			{ID: "hook", Duration: 4},
			{ID: "scene-1", Duration: 10},
			{ID: "cta", Duration: 5},
		},
	}
}

func testSpec() domain.JobSpecification {
	return domain.JobSpecification{Language: "en", Tone: "calm"}
}

func newTestClient(t *testing.T, url string, timeout time.Duration) *Client {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return New(log, Config{URL: url, APIKey: "k", PollInterval: 5 * time.Millisecond, Timeout: timeout})
}

func TestRenderPollsUntilCompleted(t *testing.T) {
	var polls int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("auth header: got=%q", r.Header.Get("Authorization"))
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/jobs":
			var body jobRequest
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.Metadata.Duration != 19 || body.Metadata.Language != "en" {
				t.Errorf("metadata: got=%+v", body.Metadata)
			}
			_ = json.NewEncoder(w).Encode(jobStatus{ID: "j1", Status: "queued"})
		case r.Method == http.MethodGet && r.URL.Path == "/jobs/j1":
			if atomic.AddInt32(&polls, 1) < 2 {
				_ = json.NewEncoder(w).Encode(jobStatus{ID: "j1", Status: "processing"})
				return
			}
			_ = json.NewEncoder(w).Encode(jobStatus{ID: "j1", Status: "completed", DownloadURL: srv.URL + "/files/j1"})
		case r.URL.Path == "/files/j1":
			w.Header().Set("Content-Type", "video/mp4")
			_, _ = w.Write([]byte("mp4-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/jobs", time.Minute)
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }

	art, err := c.Render(context.Background(), testStoryboard(), testSpec())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if string(art.Data) != "mp4-bytes" {
		t.Fatalf("data: got=%q", art.Data)
	}
	if art.Filename != "agentic-video-1700000000000.mp4" {
		t.Fatalf("filename: got=%q", art.Filename)
	}
	if atomic.LoadInt32(&polls) != 2 {
		t.Fatalf("polls: want=2 got=%d", polls)
	}
}

func TestRenderRejectsOversizedDownload(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/jobs":
			_ = json.NewEncoder(w).Encode(jobStatus{ID: "j1", Status: "completed", DownloadURL: srv.URL + "/files/j1"})
		case "/jobs/j1":
			_ = json.NewEncoder(w).Encode(jobStatus{ID: "j1", Status: "completed", DownloadURL: srv.URL + "/files/j1"})
		case "/files/j1":
			_, _ = w.Write([]byte("0123456789"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/jobs", time.Minute)
	c.maxBytes = 8
	_, err := c.Render(context.Background(), testStoryboard(), testSpec())
	var re *domain.RenderError
	if !errors.As(err, &re) || !strings.Contains(re.Error(), "exceeds 8 bytes") {
		t.Fatalf("want oversized RenderError got=%v", err)
	}

	c.maxBytes = 10
	art, err := c.Render(context.Background(), testStoryboard(), testSpec())
	if err != nil {
		t.Fatalf("Render at limit: %v", err)
	}
	if len(art.Data) != 10 {
		t.Fatalf("data: want=10 bytes got=%d", len(art.Data))
	}
}

func TestRenderReportsProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jobStatus{ID: "j1", Status: "failed", Error: "quota exhausted"})
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, time.Minute).Render(context.Background(), testStoryboard(), testSpec())
	var re *domain.RenderError
	if !errors.As(err, &re) || re.Error() != "quota exhausted" {
		t.Fatalf("want RenderError(quota exhausted) got=%v", err)
	}
}

func TestRenderTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jobStatus{ID: "j1", Status: "processing"})
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 20*time.Millisecond).Render(context.Background(), testStoryboard(), testSpec())
	if !errors.Is(err, domain.ErrRenderTimeout) {
		t.Fatalf("want ErrRenderTimeout got=%v", err)
	}
}

func TestRenderCreateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad storyboard", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, time.Minute).Render(context.Background(), testStoryboard(), testSpec())
	if err == nil || !strings.Contains(err.Error(), "video generation request failed") {
		t.Fatalf("want request failure got=%v", err)
	}
}

func TestRenderNotConfigured(t *testing.T) {
	c := New(nil, Config{})
	if _, err := c.Render(context.Background(), testStoryboard(), testSpec()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured got=%v", err)
	}
}
