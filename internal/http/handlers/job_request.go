package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/agentic-studio/internal/domain"
)

const defaultDurationSeconds = 90

// jobRequest is the lenient wire form of a job brief. keywords may be a CSV
// string or an array; uploadTargets may be a single string or an array.
type jobRequest struct {
	Topic           string          `json:"topic"`
	Tone            string          `json:"tone"`
	Language        string          `json:"language"`
	DurationSeconds *int            `json:"durationSeconds"`
	CallToAction    string          `json:"callToAction"`
	Keywords        json.RawMessage `json:"keywords"`
	IncludeBroll    bool            `json:"includeBroll"`
	UploadTargets   json.RawMessage `json:"uploadTargets"`
	ScheduleTime    string          `json:"scheduleTime"`
	AutoPublish     bool            `json:"autoPublish"`
}

// datetime-local inputs arrive without a zone.
var scheduleLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}

func (r jobRequest) toSpec() (domain.JobSpecification, error) {
	spec := domain.JobSpecification{
		Topic:           strings.TrimSpace(r.Topic),
		Tone:            strings.TrimSpace(r.Tone),
		Language:        strings.TrimSpace(r.Language),
		DurationSeconds: defaultDurationSeconds,
		CallToAction:    strings.TrimSpace(r.CallToAction),
		IncludeBroll:    r.IncludeBroll,
		AutoPublish:     r.AutoPublish,
	}
	if r.DurationSeconds != nil {
		spec.DurationSeconds = *r.DurationSeconds
	}

	kws, err := stringsOrCSV(r.Keywords, true)
	if err != nil {
		return spec, fmt.Errorf("keywords: %w", err)
	}
	spec.Keywords = kws

	rawTargets, err := stringsOrCSV(r.UploadTargets, false)
	if err != nil {
		return spec, fmt.Errorf("uploadTargets: %w", err)
	}
	for _, raw := range rawTargets {
		t, err := domain.ParseUploadTarget(raw)
		if err != nil {
			return spec, err
		}
		spec.UploadTargets = append(spec.UploadTargets, t)
	}

	if s := strings.TrimSpace(r.ScheduleTime); s != "" {
		ts, err := parseScheduleTime(s)
		if err != nil {
			return spec, err
		}
		spec.ScheduleTime = &ts
	}
	return spec, nil
}

func parseScheduleTime(s string) (time.Time, error) {
	for _, layout := range scheduleLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("scheduleTime: unrecognized timestamp %q", s)
}

// stringsOrCSV accepts null, a string, or an array of strings. A string is
// split on commas only when split is set.
func stringsOrCSV(raw json.RawMessage, split bool) ([]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var list []string
	switch trimmed[0] {
	case '[':
		var items []any
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		for _, it := range items {
			if it == nil {
				continue
			}
			list = append(list, fmt.Sprint(it))
		}
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if split {
			list = strings.Split(s, ",")
		} else {
			list = []string{s}
		}
	default:
		return nil, errors.New("expected a string or an array")
	}
	out := list[:0]
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
