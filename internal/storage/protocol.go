package storage

import (
	"chathelper/internal/models"

	json "github.com/goccy/go-json"
)

// Cross-context messaging protocol between the page-side engine and the
// privileged storage backend.
const (
	SourcePage    = "page"
	SourceContent = "content"

	TypeStorageGet         = "storage-get"
	TypeStorageSet         = "storage-set"
	TypeStorageGetResponse = "storage-get-response"
	TypeStorageSetResponse = "storage-set-response"

	TypeExtensionReloaded = "extension-reloaded"
	TypeSettingsInit      = "settings-init"
	TypeSettingsChanged   = "settings-changed"
)

// errInvalidatedPattern marks a backend error caused by the hosting
// add-on having been reloaded underneath a live page.
const errInvalidatedPattern = "extension context invalidated"

// errConflictPattern marks a rejected stale write.
const errConflictPattern = "revision conflict"

type Message struct {
	Source    string           `json:"source,omitempty"`
	Type      string           `json:"type"`
	RequestID string           `json:"requestId,omitempty"`
	Key       string           `json:"key,omitempty"`
	Value     json.RawMessage  `json:"value,omitempty"`
	Data      json.RawMessage  `json:"data,omitempty"`
	Revision  uint64           `json:"revision,omitempty"`
	Success   bool             `json:"success,omitempty"`
	Error     string           `json:"error,omitempty"`
	Settings  *models.Settings `json:"settings,omitempty"`
}

func (m *Message) isResponse() bool {
	return m.Type == TypeStorageGetResponse || m.Type == TypeStorageSetResponse
}

// Transport carries protocol messages to and from the privileged backend.
// Messages() is closed when the underlying channel dies.
type Transport interface {
	Send(msg *Message) error
	Messages() <-chan *Message
	Close() error
}
