package identity

import (
	"net/url"
	"strings"
)

// canonicalPrefix marks a canonical channel id; values carrying it are
// preferred over any other candidate the page-state scan turns up.
const canonicalPrefix = "UC"

const channelURLBase = "https://www.youtube.com/channel/"

// candidateFields are the page-state keys that may hold a channel
// identifier, in decreasing order of trust.
var candidateFields = []string{"channelId", "externalChannelId", "externalId", "browseId"}

// PageStateStrategy searches the in-page global data object recursively
// for a channel identifier field.
type PageStateStrategy struct{}

func (PageStateStrategy) Name() string { return "page-state" }

func (PageStateStrategy) Resolve(page PageContext) *ChannelIdentity {
	state := page.PageState()
	if state == nil {
		return nil
	}

	var fallback string
	for _, field := range candidateFields {
		found := searchField(state, field, 0)
		for _, v := range found {
			if strings.HasPrefix(v, canonicalPrefix) {
				return &ChannelIdentity{Name: v, Href: channelURLBase + v}
			}
			if fallback == "" {
				fallback = v
			}
		}
	}
	if fallback == "" {
		return nil
	}
	return &ChannelIdentity{Name: fallback}
}

const maxSearchDepth = 8

func searchField(node any, field string, depth int) []string {
	if depth > maxSearchDepth {
		return nil
	}
	var out []string
	switch v := node.(type) {
	case map[string]any:
		if s, ok := v[field].(string); ok && s != "" {
			out = append(out, s)
		}
		for _, child := range v {
			out = append(out, searchField(child, field, depth+1)...)
		}
	case []any:
		for _, child := range v {
			out = append(out, searchField(child, field, depth+1)...)
		}
	}
	return out
}

// DOMStrategy extracts the channel identity from anchor hrefs that encode
// either a canonical-id path segment or a handle path segment.
type DOMStrategy struct{}

func (DOMStrategy) Name() string { return "dom" }

func (DOMStrategy) Resolve(page PageContext) *ChannelIdentity {
	for _, anchor := range page.ChannelAnchors() {
		if name := identifierFromHref(anchor.Href); name != "" {
			return &ChannelIdentity{Name: name, Href: anchor.Href}
		}
	}
	return nil
}

func identifierFromHref(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	path := u.Path
	if i := strings.Index(path, "/channel/"); i >= 0 {
		return firstSegment(path[i+len("/channel/"):])
	}
	if i := strings.Index(path, "/@"); i >= 0 {
		if handle := firstSegment(path[i+1:]); handle != "@" && handle != "" {
			return handle
		}
	}
	return ""
}

func firstSegment(p string) string {
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}

// URLStrategy falls back to the video id in the document URL's query
// string, or the referrer's, and synthesizes a Video_<id> pseudo-identity.
type URLStrategy struct{}

func (URLStrategy) Name() string { return "url" }

func (URLStrategy) Resolve(page PageContext) *ChannelIdentity {
	for _, raw := range []string{page.PageURL(), page.Referrer()} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if id := u.Query().Get("v"); id != "" {
			return &ChannelIdentity{Name: "Video_" + id, Href: raw}
		}
	}
	return nil
}

// PlaceholderStrategy is the last resort: a constant identity when the
// page context is at least recognizable, nil otherwise.
type PlaceholderStrategy struct{}

func (PlaceholderStrategy) Name() string { return "placeholder" }

func (PlaceholderStrategy) Resolve(page PageContext) *ChannelIdentity {
	if page.PageURL() == "" {
		return nil
	}
	return &ChannelIdentity{Name: "UnknownChannel"}
}

// DefaultStrategies is the tuned default ordering: structured page state,
// then DOM anchors, then URL fallback, then the constant placeholder.
func DefaultStrategies() []Strategy {
	return []Strategy{
		PageStateStrategy{},
		DOMStrategy{},
		URLStrategy{},
		PlaceholderStrategy{},
	}
}
