package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromUnwrapsChain(t *testing.T) {
	base := NotFound("job_not_found", errors.New("no such job"))
	wrapped := fmt.Errorf("lookup: %w", base)
	got := From(wrapped)
	if got.Status != http.StatusNotFound || got.Code != "job_not_found" {
		t.Fatalf("From: got status=%d code=%q", got.Status, got.Code)
	}
}

func TestFromDefaultsToInternal(t *testing.T) {
	got := From(errors.New("boom"))
	if got.Status != http.StatusInternalServerError {
		t.Fatalf("status: want=%d got=%d", http.StatusInternalServerError, got.Status)
	}
	if got.Error() != "boom" {
		t.Fatalf("message: want=%q got=%q", "boom", got.Error())
	}
}
