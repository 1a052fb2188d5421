package domain

type Scene struct {
	ID             string `json:"id"`
	Caption        string `json:"caption"`
	Narration      string `json:"narration"`
	Duration       int    `json:"duration"`
	VisualStyle    string `json:"visualStyle"`
	BrollDirection string `json:"brollDirection,omitempty"`
}

type Storyboard struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Scenes      []Scene `json:"scenes"`
}

func (s Storyboard) TotalDuration() int {
	total := 0
	for _, sc := range s.Scenes {
		total += sc.Duration
	}
	return total
}

// Clone returns a copy that shares no slices with s.
func (s *Storyboard) Clone() *Storyboard {
	if s == nil {
		return nil
	}
	out := *s
	out.Scenes = append([]Scene(nil), s.Scenes...)
	return &out
}
