package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

func IsRetryableHTTPStatus(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

// IsRetryableError reports transient transport or status failures. Caller
// cancellation is never retryable; a per-attempt deadline is.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	return false
}

func RetryAfterDuration(resp *http.Response, fallback, max time.Duration) time.Duration {
	sleepFor := fallback
	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				sleepFor = time.Duration(secs) * time.Second
			}
		}
	}
	if max > 0 && sleepFor > max {
		sleepFor = max
	}
	return sleepFor
}

func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	j := 0.2
	delta := base.Seconds() * j
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

// StatusError is a non-2xx response from a provider.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		body = http.StatusText(e.StatusCode)
	}
	if e.Op == "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, body)
	}
	return fmt.Sprintf("%s: %s", e.Op, body)
}

func (e *StatusError) HTTPStatusCode() int { return e.StatusCode }

const maxErrorBody = 4 << 10

// CheckResponse returns nil for 2xx. Otherwise it drains up to 4KiB of the
// body into a *StatusError.
func CheckResponse(op string, resp *http.Response) error {
	if resp == nil {
		return fmt.Errorf("%s: nil response", op)
	}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       string(b),
		RetryAfter: RetryAfterDuration(resp, 0, 30*time.Second),
	}
}

// Retrier re-runs a whole request attempt while the failure is transient.
type Retrier struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	OnRetry    func(attempt int, wait time.Duration, err error)
}

func (r Retrier) Do(ctx context.Context, attempt func(ctx context.Context) error) error {
	base := r.BaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	maxDelay := r.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 20 * time.Second
	}
	var err error
	for i := 0; ; i++ {
		err = attempt(ctx)
		if err == nil {
			return nil
		}
		if i >= r.MaxRetries || !IsRetryableError(err) || ctx.Err() != nil {
			return err
		}
		wait := base * time.Duration(1<<i)
		var se *StatusError
		if errors.As(err, &se) && se.RetryAfter > 0 {
			wait = se.RetryAfter
		}
		if wait > maxDelay {
			wait = maxDelay
		}
		wait = JitterSleep(wait)
		if r.OnRetry != nil {
			r.OnRetry(i+1, wait, err)
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(wait):
		}
	}
}
