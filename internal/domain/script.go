package domain

import "strings"

type ScriptSection struct {
	Heading         string  `json:"heading"`
	Narration       string  `json:"narration"`
	DurationSeconds float64 `json:"duration_seconds"`
	Visuals         string  `json:"visuals,omitempty"`
	Broll           string  `json:"broll,omitempty"`
}

type Script struct {
	Title    string          `json:"title"`
	Hook     string          `json:"hook"`
	Sections []ScriptSection `json:"sections"`
	CTA      string          `json:"cta"`
}

// Text is the narration read top to bottom: hook then every section.
func (s Script) Text() string {
	parts := make([]string, 0, len(s.Sections)+1)
	parts = append(parts, s.Hook)
	for _, sec := range s.Sections {
		parts = append(parts, sec.Narration)
	}
	return strings.Join(parts, "\n\n")
}

// Beats counts hook + sections + cta.
func (s Script) Beats() int { return len(s.Sections) + 2 }
