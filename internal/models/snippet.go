package models

import "time"

// Snippet is one saved reusable chat message.
type Snippet struct {
	CreatedAt time.Time `json:"timestamp"`
	Content   []Segment `json:"content"`
	Caption   string    `json:"caption"`
	// Alias, when set, replaces Content on the rendered button. The
	// original content stays untouched underneath.
	Alias []Segment `json:"alias,omitempty"`
}

func NewSnippet(content []Segment) *Snippet {
	return &Snippet{
		CreatedAt: time.Now().UTC(),
		Content:   CloneSegments(content),
		Caption:   Caption(content),
	}
}

// DisplayContent is what the button shows: the alias override if present,
// the raw content otherwise.
func (s *Snippet) DisplayContent() []Segment {
	if len(s.Alias) > 0 {
		return s.Alias
	}
	return s.Content
}
