package composer

// NodeKind discriminates the shapes a composer content node can take.
type NodeKind uint8

const (
	// NodeText is a run of plain text.
	NodeText NodeKind = iota
	// NodeStamp is an inline stamp image carrying name and source attributes.
	NodeStamp
	// NodeWrapper is a structural element whose children may hold stamps.
	NodeWrapper
)

// InputNode is one node of the composer's live content tree as the widget
// exposes it. Stamps can sit arbitrarily deep inside wrapper nodes.
type InputNode struct {
	Kind     NodeKind
	Text     string
	Name     string
	ImageURL string
	Children []*InputNode
}

func TextNode(text string) *InputNode {
	return &InputNode{Kind: NodeText, Text: text}
}

func StampNode(name, imageURL string) *InputNode {
	return &InputNode{Kind: NodeStamp, Name: name, ImageURL: imageURL}
}

func WrapperNode(children ...*InputNode) *InputNode {
	return &InputNode{Kind: NodeWrapper, Children: children}
}

// Widget is the third-party composer surface. Every method can legitimately
// fail at any moment (widget still rendering, or mid-teardown); callers
// treat false as "not there right now", never as a fault.
type Widget interface {
	// InputNodes returns the composer's current content tree. The second
	// return is false when the composer element cannot be found.
	InputNodes() ([]*InputNode, bool)
	// InsertText feeds text through the widget's native insertion primitive.
	InsertText(text string) bool
	// ActivateStamp synthetically activates the picker control for the
	// named stamp. False when no such control is currently present.
	ActivateStamp(name string) bool
}
