package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"429", &StatusError{StatusCode: 429}, true},
		{"503", &StatusError{StatusCode: 503}, true},
		{"400", &StatusError{StatusCode: 400}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.want {
			t.Fatalf("%s: want=%v got=%v", tc.name, tc.want, got)
		}
	}
}

func TestCheckResponseCapturesBody(t *testing.T) {
	resp := &http.Response{
		StatusCode: 400,
		Header:     http.Header{"Retry-After": []string{"3"}},
		Body:       io.NopCloser(strings.NewReader("bad input")),
	}
	err := CheckResponse("TikTok upload init failed", resp)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %T", err)
	}
	if se.Error() != "TikTok upload init failed: bad input" {
		t.Fatalf("message: got=%q", se.Error())
	}
	if se.RetryAfter != 3*time.Second {
		t.Fatalf("retry after: want=3s got=%v", se.RetryAfter)
	}
}

func TestRetrierStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Retrier{MaxRetries: 3, BaseDelay: time.Millisecond}.Do(context.Background(), func(context.Context) error {
		calls++
		return &StatusError{StatusCode: 400}
	})
	if err == nil || calls != 1 {
		t.Fatalf("calls: want=1 got=%d err=%v", calls, err)
	}
}

func TestRetrierRetriesTransient(t *testing.T) {
	calls := 0
	err := Retrier{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return &StatusError{StatusCode: 503}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls: want=3 got=%d", calls)
	}
}
