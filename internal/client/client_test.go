package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yungbote/agentic-studio/internal/domain"
	"github.com/yungbote/agentic-studio/internal/jobs/orchestrator"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL + "/", MaxRetries: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestStartJob(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/jobs" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"jobId":"abc"}`))
	})
	id, err := c.StartJob(context.Background(), domain.JobSpecification{Topic: "Cold showers"})
	if err != nil || id != "abc" {
		t.Fatalf("StartJob: id=%q err=%v", id, err)
	}
}

func TestErrorEnvelopes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/agent") {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"topic too short"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"job not found","code":"job_not_found"}}`))
	})

	_, err := c.GetJob(context.Background(), "missing")
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusNotFound || he.Code != "job_not_found" {
		t.Fatalf("GetJob: got=%v", err)
	}

	_, err = c.RunAgent(context.Background(), domain.JobSpecification{})
	if !errors.As(err, &he) || he.Message != "topic too short" {
		t.Fatalf("RunAgent: got=%v", err)
	}
}

func TestGetRetriesServerErrorsButPostDoesNot(t *testing.T) {
	var gets, posts atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if gets.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`{"job":{"jobId":"a","state":"done","terminal":true}}`))
			return
		}
		posts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	snap, err := c.GetJob(context.Background(), "a")
	if err != nil || snap.JobID != "a" {
		t.Fatalf("GetJob: snap=%+v err=%v", snap, err)
	}
	if gets.Load() != 3 {
		t.Fatalf("gets: want=3 got=%d", gets.Load())
	}
	if err := c.CancelJob(context.Background(), "a"); err == nil {
		t.Fatalf("CancelJob: expected error")
	}
	if posts.Load() != 1 {
		t.Fatalf("posts: want=1 got=%d", posts.Load())
	}
}

func TestWatchStopsAtFinal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			`{"channel":"a","event":"JobSnapshot","data":{"jobId":"a","seq":3,"state":"rendering"}}`,
			`{"channel":"a","event":"JobSnapshot","data":{"jobId":"a","seq":3,"state":"rendering"}}`,
			`{"channel":"a","event":"JobSnapshot","data":{"jobId":"a","seq":4,"state":"rendering"}}`,
			`{"channel":"a","event":"JobDone","data":{"jobId":"a","seq":5,"state":"done","terminal":true},"final":true}`,
		}
		_, _ = fmt.Fprint(w, ": ping\n\n")
		for _, f := range frames {
			_, _ = fmt.Fprintf(w, "event: x\ndata: %s\n\n", f)
		}
	})

	var seen []int
	final, err := c.Watch(context.Background(), "a", func(s orchestrator.JobSnapshot) { seen = append(seen, s.Seq) })
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if final.Seq != 5 || !final.Terminal {
		t.Fatalf("final: got=%+v", final)
	}
	if len(seen) != 3 {
		t.Fatalf("seen: want 3 distinct snapshots got=%v", seen)
	}
}

func TestWatchReportsEarlyEOF(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "data: {\"data\":{\"seq\":1,\"state\":\"scripting\"}}\n\n")
	})
	if _, err := c.Watch(context.Background(), "a", nil); err == nil {
		t.Fatalf("Watch: expected error for truncated stream")
	}
}
