package storyboard

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/yungbote/agentic-studio/internal/domain"
)

func testSpec() domain.JobSpecification {
	return domain.JobSpecification{
		Topic:           "Morning routines",
		Tone:            "upbeat",
		Language:        "en",
		DurationSeconds: 60,
		CallToAction:    "Follow for more",
		Keywords:        []string{"habits", "focus"},
		UploadTargets:   []domain.UploadTarget{domain.TargetYouTube},
	}
}

func testScript() domain.Script {
	return domain.Script{
		Title: "Five-minute mornings",
		Hook:  "Your morning decides your day.",
		Sections: []domain.ScriptSection{
			{Heading: "Wake", Narration: "Skip snooze.", DurationSeconds: 10, Broll: "alarm clock close-up"},
			{Heading: "Move", Narration: "Stretch for two.", DurationSeconds: 2, Visuals: "sunlit yoga mat"},
			{Heading: "Plan", Narration: "Pick one win.", DurationSeconds: 45},
		},
		CTA: "Try it tomorrow.",
	}
}

func TestComposeClampsSceneDurations(t *testing.T) {
	sb, err := Compose(testScript(), testSpec())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	want := map[string]int{
		"hook":    6,
		"scene-1": 10,
		"scene-2": 6,
		"scene-3": 20,
		"cta":     5,
	}
	if len(sb.Scenes) != len(want) {
		t.Fatalf("scene count: want=%d got=%d", len(want), len(sb.Scenes))
	}
	for _, sc := range sb.Scenes {
		if sc.Duration != want[sc.ID] {
			t.Fatalf("%s duration: want=%d got=%d", sc.ID, want[sc.ID], sc.Duration)
		}
	}
}

func TestClampSeconds(t *testing.T) {
	cases := []struct {
		in     float64
		lo, hi int
		want   int
	}{
		{2, BodyMinSeconds, BodyMaxSeconds, 6},
		{45, BodyMinSeconds, BodyMaxSeconds, 20},
		{10, HookMinSeconds, HookMaxSeconds, 6},
		{1, HookMinSeconds, HookMaxSeconds, 3},
		{7.5, BodyMinSeconds, BodyMaxSeconds, 8},
		{7.49, BodyMinSeconds, BodyMaxSeconds, 7},
		{-4, BodyMinSeconds, BodyMaxSeconds, 6},
		{0, BodyMinSeconds, BodyMaxSeconds, 6},
		{1e19, BodyMinSeconds, BodyMaxSeconds, 20},
		{1e300, HookMinSeconds, HookMaxSeconds, 6},
		{-1e300, BodyMinSeconds, BodyMaxSeconds, 6},
	}
	for _, tc := range cases {
		if got := clampSeconds(tc.in, tc.lo, tc.hi); got != tc.want {
			t.Fatalf("clampSeconds(%v, %d, %d): want=%d got=%d", tc.in, tc.lo, tc.hi, tc.want, got)
		}
	}
}

func TestComposeHugeDurationsClampToMaximum(t *testing.T) {
	script := testScript()
	script.Sections[0].DurationSeconds = 1e19
	script.Sections[1].DurationSeconds = 1e300
	sb, err := Compose(script, testSpec())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	want := map[string]int{"hook": 6, "scene-1": 20, "scene-2": 20}
	for _, sc := range sb.Scenes {
		if w, ok := want[sc.ID]; ok && sc.Duration != w {
			t.Fatalf("%s duration: want=%d got=%d", sc.ID, w, sc.Duration)
		}
	}
}

func TestComposeWithoutSectionsUsesDefaultHook(t *testing.T) {
	script := testScript()
	script.Sections = nil
	sb, err := Compose(script, testSpec())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(sb.Scenes) != 2 {
		t.Fatalf("scene count: want=2 got=%d", len(sb.Scenes))
	}
	if got := sb.Scenes[0].Duration; got != defaultHookSeconds {
		t.Fatalf("hook duration: want=%d got=%d", defaultHookSeconds, got)
	}
	if got := sb.Scenes[1].ID; got != "cta" {
		t.Fatalf("last scene: want=%q got=%q", "cta", got)
	}
}

func TestComposeCTAIsAlwaysFiveSeconds(t *testing.T) {
	script := testScript()
	script.Sections[0].DurationSeconds = 600
	sb, err := Compose(script, testSpec())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	last := sb.Scenes[len(sb.Scenes)-1]
	if last.ID != "cta" || last.Duration != CTASeconds {
		t.Fatalf("cta scene: got id=%q duration=%d", last.ID, last.Duration)
	}
	if last.Caption != "Follow for more" || last.Narration != "Try it tomorrow." {
		t.Fatalf("cta text: got caption=%q narration=%q", last.Caption, last.Narration)
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	a, errA := Compose(testScript(), testSpec())
	b, errB := Compose(testScript(), testSpec())
	if errA != nil || errB != nil {
		t.Fatalf("Compose: %v / %v", errA, errB)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("storyboards differ:\n%+v\n%+v", a, b)
	}
}

func TestComposeDescriptionAndStyles(t *testing.T) {
	sb, err := Compose(testScript(), testSpec())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	wantDesc := "Your morning decides your day.\n\nWake • Move • Plan\n\nTry it tomorrow."
	if sb.Description != wantDesc {
		t.Fatalf("description: want=%q got=%q", wantDesc, sb.Description)
	}
	if sb.Title != "Five-minute mornings" {
		t.Fatalf("title: got=%q", sb.Title)
	}
	if got := sb.Scenes[0].VisualStyle; got != "Dynamic kinetic typography in upbeat tone" {
		t.Fatalf("hook style: got=%q", got)
	}
	if got := sb.Scenes[1].VisualStyle; got != "Clean gradient background with bold captions (upbeat)" {
		t.Fatalf("default body style: got=%q", got)
	}
	if got := sb.Scenes[2].VisualStyle; got != "sunlit yoga mat" {
		t.Fatalf("explicit body style: got=%q", got)
	}
}

func TestComposeBrollOnlyWhenRequested(t *testing.T) {
	sb, err := Compose(testScript(), testSpec())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	for _, sc := range sb.Scenes {
		if sc.BrollDirection != "" {
			t.Fatalf("%s: unexpected broll %q", sc.ID, sc.BrollDirection)
		}
	}

	spec := testSpec()
	spec.IncludeBroll = true
	sb, err = Compose(testScript(), spec)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got := sb.Scenes[0].BrollDirection; got != "alarm clock close-up" {
		t.Fatalf("hook broll: got=%q", got)
	}
	if got := sb.Scenes[len(sb.Scenes)-1].BrollDirection; got != "Brand CTA motion lockup" {
		t.Fatalf("cta broll: got=%q", got)
	}
}

func TestComposeRejectsMalformedScripts(t *testing.T) {
	cases := map[string]func(*domain.Script){
		"no title": func(s *domain.Script) { s.Title = " " },
		"no hook":  func(s *domain.Script) { s.Hook = "" },
		"empty heading": func(s *domain.Script) {
			s.Sections[1].Heading = ""
		},
		"nan duration": func(s *domain.Script) {
			s.Sections[0].DurationSeconds = math.NaN()
		},
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			script := testScript()
			mut(&script)
			_, err := Compose(script, testSpec())
			var me *domain.MalformedScriptError
			if !errors.As(err, &me) {
				t.Fatalf("expected MalformedScriptError, got %v", err)
			}
		})
	}
}
