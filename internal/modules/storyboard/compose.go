package storyboard

import (
	"fmt"
	"math"
	"strings"

	"github.com/yungbote/agentic-studio/internal/domain"
)

// Scene duration bounds, in whole seconds.
const (
	HookMinSeconds = 3
	HookMaxSeconds = 6
	BodyMinSeconds = 6
	BodyMaxSeconds = 20
	CTASeconds     = 5

	defaultHookSeconds = 4
)

const (
	ctaVisualStyle    = "Animated CTA card with strong typography"
	ctaBrollDirection = "Brand CTA motion lockup"
	headingSeparator  = " • "
)

// Compose derives the storyboard for script. It is a pure function: equal
// inputs always produce equal storyboards.
func Compose(script domain.Script, spec domain.JobSpecification) (domain.Storyboard, error) {
	if err := check(script); err != nil {
		return domain.Storyboard{}, err
	}

	scenes := make([]domain.Scene, 0, len(script.Sections)+2)
	scenes = append(scenes, hookScene(script, spec))
	for i, sec := range script.Sections {
		scenes = append(scenes, domain.Scene{
			ID:             fmt.Sprintf("scene-%d", i+1),
			Caption:        sec.Heading,
			Narration:      sec.Narration,
			Duration:       clampSeconds(sec.DurationSeconds, BodyMinSeconds, BodyMaxSeconds),
			VisualStyle:    bodyVisualStyle(sec, spec),
			BrollDirection: broll(spec, sec.Broll),
		})
	}
	scenes = append(scenes, domain.Scene{
		ID:             "cta",
		Caption:        spec.CallToAction,
		Narration:      script.CTA,
		Duration:       CTASeconds,
		VisualStyle:    ctaVisualStyle,
		BrollDirection: broll(spec, ctaBrollDirection),
	})

	return domain.Storyboard{
		Title:       script.Title,
		Description: describe(script),
		Scenes:      scenes,
	}, nil
}

func hookScene(script domain.Script, spec domain.JobSpecification) domain.Scene {
	seconds := float64(defaultHookSeconds)
	lead := domain.ScriptSection{}
	if len(script.Sections) > 0 {
		lead = script.Sections[0]
		seconds = lead.DurationSeconds
	}
	return domain.Scene{
		ID:             "hook",
		Caption:        script.Hook,
		Narration:      script.Hook,
		Duration:       clampSeconds(seconds, HookMinSeconds, HookMaxSeconds),
		VisualStyle:    fmt.Sprintf("Dynamic kinetic typography in %s tone", spec.Tone),
		BrollDirection: broll(spec, lead.Broll),
	}
}

func bodyVisualStyle(sec domain.ScriptSection, spec domain.JobSpecification) string {
	if strings.TrimSpace(sec.Visuals) != "" {
		return sec.Visuals
	}
	return fmt.Sprintf("Clean gradient background with bold captions (%s)", spec.Tone)
}

func broll(spec domain.JobSpecification, direction string) string {
	if !spec.IncludeBroll {
		return ""
	}
	return direction
}

func describe(script domain.Script) string {
	headings := make([]string, 0, len(script.Sections))
	for _, sec := range script.Sections {
		headings = append(headings, sec.Heading)
	}
	return script.Hook + "\n\n" + strings.Join(headings, headingSeparator) + "\n\n" + script.CTA
}

// clampSeconds rounds half up to a whole second, then clamps into [lo, hi].
// Bounds are applied in float space so out-of-range values never reach the
// int conversion.
func clampSeconds(v float64, lo, hi int) int {
	r := math.Floor(v + 0.5)
	if r <= float64(lo) {
		return lo
	}
	if r >= float64(hi) {
		return hi
	}
	return int(r)
}

func check(script domain.Script) error {
	if strings.TrimSpace(script.Title) == "" {
		return &domain.MalformedScriptError{Reason: "missing title"}
	}
	if strings.TrimSpace(script.Hook) == "" {
		return &domain.MalformedScriptError{Reason: "missing hook"}
	}
	for i, sec := range script.Sections {
		if strings.TrimSpace(sec.Heading) == "" || strings.TrimSpace(sec.Narration) == "" {
			return &domain.MalformedScriptError{Reason: fmt.Sprintf("section %d is missing heading or narration", i+1)}
		}
		if math.IsNaN(sec.DurationSeconds) || math.IsInf(sec.DurationSeconds, 0) {
			return &domain.MalformedScriptError{Reason: fmt.Sprintf("section %d has a non-finite duration", i+1)}
		}
	}
	return nil
}
