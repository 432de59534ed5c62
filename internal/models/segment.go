package models

import (
	"errors"

	json "github.com/goccy/go-json"
)

// Segment is one element of a snippet's content: either plain text or a
// reference to a pictorial stamp. The JSON form mirrors the composer's
// node model — a bare string for text, {"alt","src"} for a stamp.
type Segment struct {
	Text  string
	Stamp *Stamp
}

type Stamp struct {
	Name     string `json:"alt"`
	ImageURL string `json:"src"`
}

func TextSegment(text string) Segment {
	return Segment{Text: text}
}

func StampSegment(name, imageURL string) Segment {
	return Segment{Stamp: &Stamp{Name: name, ImageURL: imageURL}}
}

func (s Segment) IsStamp() bool {
	return s.Stamp != nil
}

func (s Segment) MarshalJSON() ([]byte, error) {
	if s.Stamp != nil {
		return json.Marshal(s.Stamp)
	}
	return json.Marshal(s.Text)
}

func (s *Segment) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		s.Text = text
		s.Stamp = nil
		return nil
	}
	var stamp Stamp
	if err := json.Unmarshal(data, &stamp); err != nil {
		return err
	}
	if stamp.Name == "" {
		return errors.New("segment: stamp without a name")
	}
	s.Text = ""
	s.Stamp = &stamp
	return nil
}

const maxCaptionLen = 50

// Caption builds the truncated human-readable preview for a content
// sequence: text verbatim, stamps as [name].
func Caption(content []Segment) string {
	var out []rune
	for _, seg := range content {
		if seg.IsStamp() {
			out = append(out, []rune("["+seg.Stamp.Name+"]")...)
		} else {
			out = append(out, []rune(seg.Text)...)
		}
		if len(out) >= maxCaptionLen {
			break
		}
	}
	if len(out) > maxCaptionLen {
		out = out[:maxCaptionLen]
	}
	return string(out)
}

func CloneSegments(content []Segment) []Segment {
	if content == nil {
		return nil
	}
	out := make([]Segment, len(content))
	for i, seg := range content {
		out[i] = seg
		if seg.Stamp != nil {
			stamp := *seg.Stamp
			out[i].Stamp = &stamp
		}
	}
	return out
}
