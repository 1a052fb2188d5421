package ctxutil

import (
	"context"
	"testing"
)

func TestJobIDRoundTrip(t *testing.T) {
	ctx := WithJobID(context.Background(), "job-1")
	if got := JobID(ctx); got != "job-1" {
		t.Fatalf("JobID: want=%q got=%q", "job-1", got)
	}
	if got := JobID(context.Background()); got != "" {
		t.Fatalf("JobID on bare ctx: want empty got=%q", got)
	}
}

func TestTraceDataMissing(t *testing.T) {
	if td := GetTraceData(context.Background()); td != nil {
		t.Fatalf("expected nil trace data, got %+v", td)
	}
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "t", RequestID: "r"})
	if td := GetTraceData(ctx); td == nil || td.RequestID != "r" {
		t.Fatalf("trace data: got %+v", td)
	}
}
