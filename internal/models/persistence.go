package models

import (
	json "github.com/goccy/go-json"
)

// Store documents are persisted with an explicit version field. Version 1
// predates alias sets: its buckets carry only name/href/data. Decoding
// migrates lazily by seeding each alias set from the primary name, so a
// V1 document round-trips into a valid V2 store without a batch step.
const storeVersion = 2

type storeDocument struct {
	Version  int              `json:"version,omitempty"`
	Global   []*Snippet       `json:"global"`
	Channels []*ChannelBucket `json:"channels"`
}

func EncodeStore(s *Store) ([]byte, error) {
	doc := storeDocument{
		Version:  storeVersion,
		Global:   s.Global,
		Channels: s.Channels,
	}
	if doc.Global == nil {
		doc.Global = []*Snippet{}
	}
	if doc.Channels == nil {
		doc.Channels = []*ChannelBucket{}
	}
	return json.Marshal(doc)
}

func DecodeStore(data []byte) (*Store, error) {
	if len(data) == 0 {
		return NewStore(), nil
	}

	var doc storeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	s := &Store{
		Global:   doc.Global,
		Channels: doc.Channels,
	}
	if s.Global == nil {
		s.Global = []*Snippet{}
	}
	if s.Channels == nil {
		s.Channels = []*ChannelBucket{}
	}

	for _, b := range s.Channels {
		if len(b.Aliases) == 0 {
			b.Aliases = []string{b.PrimaryName}
		}
		if b.Snippets == nil {
			b.Snippets = []*Snippet{}
		}
		for _, snip := range b.Snippets {
			if snip.Caption == "" {
				snip.Caption = Caption(snip.Content)
			}
		}
	}
	for _, snip := range s.Global {
		if snip.Caption == "" {
			snip.Caption = Caption(snip.Content)
		}
	}

	return s, nil
}
