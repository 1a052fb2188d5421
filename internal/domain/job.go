package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

type UploadTarget string

const (
	TargetYouTube UploadTarget = "youtube"
	TargetTikTok  UploadTarget = "tiktok"
)

func (t UploadTarget) Valid() bool {
	switch t {
	case TargetYouTube, TargetTikTok:
		return true
	}
	return false
}

func ParseUploadTarget(s string) (UploadTarget, error) {
	t := UploadTarget(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown upload target %q", s)
	}
	return t, nil
}

// Input bounds enforced by Validate.
const (
	MinTopicLen    = 4
	MaxTopicLen    = 240
	MinToneLen     = 3
	MaxToneLen     = 48
	MinLanguageLen = 2
	MaxLanguageLen = 32
	MinDuration    = 30
	MaxDuration    = 600
	MinCTALen      = 3
	MaxCTALen      = 160
	MaxKeywords    = 10
	MinKeywordLen  = 2
	MaxKeywordLen  = 32

	DefaultDurationSeconds = 90
)

// JobSpecification is the brief for one production run. It is validated
// once at the edge; the orchestrator trusts it as-is.
type JobSpecification struct {
	Topic           string         `json:"topic" yaml:"topic"`
	Tone            string         `json:"tone" yaml:"tone"`
	Language        string         `json:"language" yaml:"language"`
	DurationSeconds int            `json:"durationSeconds" yaml:"durationSeconds"`
	CallToAction    string         `json:"callToAction" yaml:"callToAction"`
	Keywords        []string       `json:"keywords" yaml:"keywords"`
	IncludeBroll    bool           `json:"includeBroll" yaml:"includeBroll"`
	UploadTargets   []UploadTarget `json:"uploadTargets" yaml:"uploadTargets"`
	ScheduleTime    *time.Time     `json:"scheduleTime,omitempty" yaml:"scheduleTime,omitempty"`
	AutoPublish     bool           `json:"autoPublish" yaml:"autoPublish"`
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

var ErrInvalidSpec = errors.New("invalid job specification")

// Validate checks every bound and returns all violations joined, each
// wrapping ErrInvalidSpec.
func (s JobSpecification) Validate() error {
	return s.ValidateAt(time.Now())
}

// ValidateAt is Validate with an explicit clock; ScheduleTime must be after now.
func (s JobSpecification) ValidateAt(now time.Time) error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidSpec, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}))
	}
	checkLen := func(field, v string, min, max int) {
		n := utf8.RuneCountInString(strings.TrimSpace(v))
		if n < min || n > max {
			add(field, "length must be %d..%d (got %d)", min, max, n)
		}
	}

	checkLen("topic", s.Topic, MinTopicLen, MaxTopicLen)
	checkLen("tone", s.Tone, MinToneLen, MaxToneLen)
	checkLen("language", s.Language, MinLanguageLen, MaxLanguageLen)
	checkLen("callToAction", s.CallToAction, MinCTALen, MaxCTALen)

	if s.DurationSeconds < MinDuration || s.DurationSeconds > MaxDuration {
		add("durationSeconds", "must be %d..%d (got %d)", MinDuration, MaxDuration, s.DurationSeconds)
	}
	if len(s.Keywords) > MaxKeywords {
		add("keywords", "at most %d allowed (got %d)", MaxKeywords, len(s.Keywords))
	}
	for i, kw := range s.Keywords {
		n := utf8.RuneCountInString(kw)
		if n < MinKeywordLen || n > MaxKeywordLen {
			add(fmt.Sprintf("keywords[%d]", i), "length must be %d..%d (got %d)", MinKeywordLen, MaxKeywordLen, n)
		}
	}

	if len(s.UploadTargets) == 0 {
		add("uploadTargets", "at least one target is required")
	}
	seen := map[UploadTarget]bool{}
	for i, t := range s.UploadTargets {
		if !t.Valid() {
			add(fmt.Sprintf("uploadTargets[%d]", i), "unknown target %q", string(t))
			continue
		}
		if seen[t] {
			add(fmt.Sprintf("uploadTargets[%d]", i), "duplicate target %q", string(t))
		}
		seen[t] = true
	}

	if s.ScheduleTime != nil && !s.ScheduleTime.After(now) {
		add("scheduleTime", "must be in the future (got %s)", s.ScheduleTime.UTC().Format(time.RFC3339))
	}

	return errors.Join(errs...)
}

// Normalize trims free-text fields and drops empty keywords.
func (s JobSpecification) Normalize() JobSpecification {
	out := s
	out.Topic = strings.TrimSpace(s.Topic)
	out.Tone = strings.TrimSpace(s.Tone)
	out.Language = strings.TrimSpace(s.Language)
	out.CallToAction = strings.TrimSpace(s.CallToAction)
	out.Keywords = nil
	for _, kw := range s.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			out.Keywords = append(out.Keywords, kw)
		}
	}
	if len(s.UploadTargets) > 0 {
		out.UploadTargets = append([]UploadTarget(nil), s.UploadTargets...)
	}
	return out
}

const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Visibility is what uploaders use for privacy: public only when the job
// auto-publishes.
func (s JobSpecification) Visibility() string {
	if s.AutoPublish {
		return VisibilityPublic
	}
	return VisibilityPrivate
}
