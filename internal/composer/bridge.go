package composer

import (
	"strings"

	"chathelper/internal/models"
	"chathelper/internal/providers"
)

// Bridge converts between the widget's live content tree and segment
// sequences. It owns no state; a torn-down widget makes every call a no-op.
type Bridge struct {
	widget Widget
	logger providers.Logger
}

func NewBridge(widget Widget, logger providers.Logger) *Bridge {
	return &Bridge{widget: widget, logger: logger}
}

// ReadCurrentInput snapshots the composer content as segments. Text runs
// are trimmed and empty ones dropped; stamps nested inside wrapper nodes
// are discovered recursively. Returns nil when the composer is not there.
func (b *Bridge) ReadCurrentInput() []models.Segment {
	nodes, ok := b.widget.InputNodes()
	if !ok {
		return nil
	}
	segments := make([]models.Segment, 0, len(nodes))
	for _, node := range nodes {
		segments = collectSegments(node, segments)
	}
	return segments
}

func collectSegments(node *InputNode, acc []models.Segment) []models.Segment {
	if node == nil {
		return acc
	}
	switch node.Kind {
	case NodeText:
		if text := strings.TrimSpace(node.Text); text != "" {
			acc = append(acc, models.TextSegment(text))
		}
	case NodeStamp:
		if node.Name != "" {
			acc = append(acc, models.StampSegment(node.Name, node.ImageURL))
		}
	case NodeWrapper:
		for _, child := range node.Children {
			acc = collectSegments(child, acc)
		}
	}
	return acc
}

// InsertSegments replays segments into the composer in order. A stamp
// whose control is missing from the picker degrades to its name as literal
// text, so the user still sees what the snippet meant to say.
func (b *Bridge) InsertSegments(segments []models.Segment) {
	for _, seg := range segments {
		if seg.IsStamp() {
			if b.widget.ActivateStamp(seg.Stamp.Name) {
				continue
			}
			b.logger.Debugf(providers.TypeApp, "Stamp control %q unavailable, inserting name as text", seg.Stamp.Name)
			b.widget.InsertText(seg.Stamp.Name)
			continue
		}
		if seg.Text != "" {
			b.widget.InsertText(seg.Text)
		}
	}
}
