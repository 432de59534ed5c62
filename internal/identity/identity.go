package identity

// ChannelIdentity is the best-effort identifier for the channel currently
// being viewed. Name is what bucket alias matching keys on; it is not
// stable across strategies or environments, which is why buckets keep an
// alias set instead of a single key.
type ChannelIdentity struct {
	Name string `json:"name"`
	Href string `json:"href"`
}

// Anchor is a candidate channel link found in the host document, listed in
// selector priority order.
type Anchor struct {
	Href string
	Text string
}

// PageContext is the read-only view of the host page the resolver scans.
// Every method may legitimately come back empty while the page is still
// rendering or after teardown.
type PageContext interface {
	// PageState returns the in-page global data object, nil if absent.
	PageState() map[string]any
	// ChannelAnchors returns candidate channel anchors, best selector first.
	ChannelAnchors() []Anchor
	PageURL() string
	Referrer() string
}

// Strategy is one resolution attempt. Strategies are tried in order,
// first success wins; the ordering is a tuned default, not a contract,
// so callers may supply their own list.
type Strategy interface {
	Name() string
	Resolve(page PageContext) *ChannelIdentity
}
