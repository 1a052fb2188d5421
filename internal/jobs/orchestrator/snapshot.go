package orchestrator

import (
	"maps"

	"github.com/yungbote/agentic-studio/internal/domain"
)

type JobState string

const (
	StateScripting     JobState = "scripting"
	StateStoryboarding JobState = "storyboarding"
	StateRendering     JobState = "rendering"
	StateUploading     JobState = "uploading"
	StateDone          JobState = "done"
	StateFailed        JobState = "failed"
)

type Output struct {
	Script     string                                       `json:"script,omitempty"`
	Storyboard *domain.Storyboard                           `json:"storyboard,omitempty"`
	VideoURL   string                                       `json:"videoUrl,omitempty"`
	Uploads    map[domain.UploadTarget]domain.UploadOutcome `json:"uploads,omitempty"`
}

func (o Output) UploadID(t domain.UploadTarget) (string, bool) {
	u, ok := o.Uploads[t]
	if !ok {
		return "", false
	}
	return u.VideoID, true
}

func (o Output) clone() Output {
	c := o
	c.Storyboard = o.Storyboard.Clone()
	if o.Uploads != nil {
		c.Uploads = maps.Clone(o.Uploads)
	}
	return c
}

// JobSnapshot is one point-in-time view of a run. Snapshots share no
// mutable state with the engine or with each other.
type JobSnapshot struct {
	JobID    string   `json:"jobId,omitempty"`
	Seq      int      `json:"seq"`
	State    JobState `json:"state"`
	Stages   []Stage  `json:"steps"`
	Output   Output   `json:"output"`
	Error    string   `json:"error,omitempty"`
	Terminal bool     `json:"terminal"`
}

func (s JobSnapshot) Stage(id string) (Stage, bool) {
	for _, st := range s.Stages {
		if st.ID == id {
			return st, true
		}
	}
	return Stage{}, false
}

// Clone deep-copies s for consumers that fan one snapshot out to several
// readers.
func (s JobSnapshot) Clone() JobSnapshot {
	c := s
	c.Stages = make([]Stage, len(s.Stages))
	for i := range s.Stages {
		c.Stages[i] = copyStage(&s.Stages[i])
	}
	c.Output = s.Output.clone()
	return c
}
