package script

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/agentic-studio/internal/domain"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
)

type fakeAI struct {
	out    map[string]any
	err    error
	user   string
	schema map[string]any
}

func (f *fakeAI) GenerateJSON(ctx context.Context, system, user, name string, schema map[string]any) (map[string]any, error) {
	f.user = user
	f.schema = schema
	return f.out, f.err
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func spec() domain.JobSpecification {
	return domain.JobSpecification{
		Topic:           "Cold showers",
		Tone:            "calm",
		Language:        "en",
		DurationSeconds: 60,
		CallToAction:    "Subscribe",
		Keywords:        []string{"health", "habits"},
		IncludeBroll:    true,
		UploadTargets:   []domain.UploadTarget{domain.TargetYouTube},
	}
}

func goodResponse() map[string]any {
	return map[string]any{
		"title": "Cold showers, warm results",
		"hook":  "What if five minutes changed your day?",
		"sections": []any{
			map[string]any{"heading": "Why", "narration": "Cold water wakes you up.", "duration_seconds": 12.0, "visuals": "", "broll": " shower head "},
		},
		"cta": "Subscribe",
	}
}

func TestDraftScriptDecodesResponse(t *testing.T) {
	ai := &fakeAI{out: goodResponse()}
	p := NewProducer(testLogger(t), ai)

	s, err := p.DraftScript(context.Background(), spec())
	if err != nil {
		t.Fatalf("DraftScript: %v", err)
	}
	if s.Title != "Cold showers, warm results" {
		t.Fatalf("title: got=%q", s.Title)
	}
	if len(s.Sections) != 1 || s.Sections[0].DurationSeconds != 12 {
		t.Fatalf("sections: got=%+v", s.Sections)
	}
	if s.Sections[0].Broll != "shower head" {
		t.Fatalf("broll: want=%q got=%q", "shower head", s.Sections[0].Broll)
	}
	for _, line := range []string{"Topic: Cold showers", "Duration target: 60 seconds", "Keywords: health, habits", "Include broll suggestions: yes"} {
		if !strings.Contains(ai.user, line) {
			t.Fatalf("prompt missing %q:\n%s", line, ai.user)
		}
	}
	if ai.schema["additionalProperties"] != false {
		t.Fatalf("request schema must be strict")
	}
}

func TestDraftScriptRejectsSchemaMismatch(t *testing.T) {
	bad := goodResponse()
	bad["sections"] = "not a list"
	p := NewProducer(testLogger(t), &fakeAI{out: bad})

	_, err := p.DraftScript(context.Background(), spec())
	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("want ProviderError got=%v", err)
	}
}

func TestDraftScriptLeavesShortDurationsToTheComposer(t *testing.T) {
	resp := goodResponse()
	resp["sections"].([]any)[0].(map[string]any)["duration_seconds"] = 0.0
	p := NewProducer(testLogger(t), &fakeAI{out: resp})

	s, err := p.DraftScript(context.Background(), spec())
	if err != nil {
		t.Fatalf("DraftScript: %v", err)
	}
	if got := s.Sections[0].DurationSeconds; got != 0 {
		t.Fatalf("duration: want=0 got=%v", got)
	}
}

func TestDraftScriptAcceptsEmptySections(t *testing.T) {
	resp := goodResponse()
	resp["sections"] = []any{}
	p := NewProducer(testLogger(t), &fakeAI{out: resp})

	s, err := p.DraftScript(context.Background(), spec())
	if err != nil {
		t.Fatalf("DraftScript: %v", err)
	}
	if len(s.Sections) != 0 {
		t.Fatalf("sections: want none got=%+v", s.Sections)
	}
}

func TestDraftScriptWrapsClientError(t *testing.T) {
	p := NewProducer(testLogger(t), &fakeAI{err: errors.New("openai 500")})

	_, err := p.DraftScript(context.Background(), spec())
	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("want ProviderError got=%v", err)
	}
	if got := err.Error(); got != "openai: openai 500" {
		t.Fatalf("message: want=%q got=%q", "openai: openai 500", got)
	}
}

func TestDraftScriptPassesCancellationThrough(t *testing.T) {
	p := NewProducer(testLogger(t), &fakeAI{err: context.Canceled})
	_, err := p.DraftScript(context.Background(), spec())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled got=%v", err)
	}
}

func TestDraftScriptWithoutClient(t *testing.T) {
	p := NewProducer(nil, nil)
	_, err := p.DraftScript(context.Background(), spec())
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("want configuration error got=%v", err)
	}
}
