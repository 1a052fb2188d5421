package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/agentic-studio/internal/domain"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
	"github.com/yungbote/agentic-studio/internal/platform/openai"
)

const provider = "openai"

const systemPrompt = "You are a senior short-form creative director. Return structured scripts that map perfectly into storyboard scenes. " +
	"Write the hook first, then ordered sections with a heading, narration, and a target duration in seconds, then a closing call to action. " +
	"Leave visuals or broll empty when you have no direction for them."

// Producer drafts scripts through the LLM client.
type Producer struct {
	log *logger.Logger
	ai  openai.Client
}

func NewProducer(log *logger.Logger, ai openai.Client) *Producer {
	if log == nil {
		log = logger.Nop()
	}
	return &Producer{log: log.With("service", "ScriptProducer"), ai: ai}
}

func (p *Producer) DraftScript(ctx context.Context, spec domain.JobSpecification) (domain.Script, error) {
	if p.ai == nil {
		return domain.Script{}, &domain.ProviderError{Provider: provider, Message: "OPENAI_API_KEY is not configured"}
	}
	obj, err := p.ai.GenerateJSON(ctx, systemPrompt, userPrompt(spec), schemaName, requestSchema())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.Script{}, err
		}
		return domain.Script{}, &domain.ProviderError{Provider: provider, Err: err}
	}
	if err := validateScriptJSON(obj); err != nil {
		p.log.Warn("script response rejected", "error", err)
		return domain.Script{}, &domain.ProviderError{Provider: provider, Message: "invalid script response", Err: err}
	}
	s, err := decodeScript(obj)
	if err != nil {
		return domain.Script{}, &domain.ProviderError{Provider: provider, Message: "invalid script response", Err: err}
	}
	p.log.Debug("script drafted", "title", s.Title, "sections", len(s.Sections))
	return s, nil
}

func userPrompt(spec domain.JobSpecification) string {
	broll := "no"
	if spec.IncludeBroll {
		broll = "yes"
	}
	return strings.Join([]string{
		"Topic: " + spec.Topic,
		"Tone: " + spec.Tone,
		"Language: " + spec.Language,
		fmt.Sprintf("Duration target: %d seconds", spec.DurationSeconds),
		"Call to action: " + spec.CallToAction,
		"Keywords: " + strings.Join(spec.Keywords, ", "),
		"Include broll suggestions: " + broll,
	}, "\n")
}

func decodeScript(obj map[string]any) (domain.Script, error) {
	b, err := json.Marshal(obj)
	if err != nil {
		return domain.Script{}, err
	}
	var s domain.Script
	if err := json.Unmarshal(b, &s); err != nil {
		return domain.Script{}, err
	}
	for i := range s.Sections {
		s.Sections[i].Visuals = strings.TrimSpace(s.Sections[i].Visuals)
		s.Sections[i].Broll = strings.TrimSpace(s.Sections[i].Broll)
	}
	return s, nil
}
