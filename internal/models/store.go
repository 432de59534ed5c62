package models

// GlobalKey is the sentinel bucket key for the channel-independent bucket.
const GlobalKey = "__global__"

// ChannelBucket holds the snippets saved for one recognized channel.
// Aliases is the set of identifier strings that have ever resolved to this
// bucket; membership there, not PrimaryName equality, decides "is this
// channel". An identifier belongs to at most one bucket.
type ChannelBucket struct {
	PrimaryName string     `json:"name"`
	Href        string     `json:"href"`
	Aliases     []string   `json:"aliases"`
	Snippets    []*Snippet `json:"data"`
}

func (b *ChannelBucket) HasAlias(name string) bool {
	for _, a := range b.Aliases {
		if a == name {
			return true
		}
	}
	return false
}

// AddAlias records a new identifier for this bucket. The caller is
// responsible for the cross-bucket uniqueness invariant (see Store.Claim).
func (b *ChannelBucket) AddAlias(name string) {
	if name == "" || b.HasAlias(name) {
		return
	}
	b.Aliases = append(b.Aliases, name)
}

// Store is the root persisted document: one global bucket plus the
// per-channel buckets.
type Store struct {
	Global   []*Snippet       `json:"global"`
	Channels []*ChannelBucket `json:"channels"`
}

func NewStore() *Store {
	return &Store{
		Global:   []*Snippet{},
		Channels: []*ChannelBucket{},
	}
}

// FindBucket resolves an identifier to its owning bucket via alias-set
// membership. Returns nil when no bucket owns the identifier.
func (s *Store) FindBucket(name string) *ChannelBucket {
	if name == "" || name == GlobalKey {
		return nil
	}
	for _, b := range s.Channels {
		if b.HasAlias(name) {
			return b
		}
	}
	return nil
}

// Claim resolves name to an existing bucket or creates a new one. A miss
// on the alias set falls back to matching the last known canonical URL,
// which is how a channel resolved under a new identifier merges into its
// existing bucket instead of spawning a second one; the new identifier
// joins the alias set at that point. Uniqueness holds because a name is
// only ever claimed after FindBucket missed every other bucket.
func (s *Store) Claim(name, href string) *ChannelBucket {
	if b := s.FindBucket(name); b != nil {
		if href != "" {
			b.Href = href
		}
		return b
	}
	if href != "" {
		for _, b := range s.Channels {
			if b.Href == href {
				b.AddAlias(name)
				return b
			}
		}
	}
	b := &ChannelBucket{
		PrimaryName: name,
		Href:        href,
		Aliases:     []string{name},
		Snippets:    []*Snippet{},
	}
	s.Channels = append(s.Channels, b)
	return b
}

// Prune drops channel buckets whose snippet list has become empty.
func (s *Store) Prune() {
	kept := s.Channels[:0]
	for _, b := range s.Channels {
		if len(b.Snippets) > 0 {
			kept = append(kept, b)
		}
	}
	s.Channels = kept
}

func (s *Store) CountSnippets() int {
	n := len(s.Global)
	for _, b := range s.Channels {
		n += len(b.Snippets)
	}
	return n
}
