package storage

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"chathelper/internal/models"
	"chathelper/internal/providers"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// BridgeBackend reaches the privileged storage backend through the
// request/response message protocol. Requests carry generated ids and are
// matched against responses; an unanswered request rejects after the
// configured timeout.
//
// Invalidation is terminal: once the backend reports the invalidated
// pattern (or the reloaded notification arrives), the bridge raises the
// notifier exactly once, stops logging the now-expected failures, and
// short-circuits every later call to ErrInvalidated without a round trip.
type BridgeBackend struct {
	transport Transport
	timeout   time.Duration
	logger    providers.Logger
	notifier  InvalidationNotifier

	mu      sync.Mutex
	pending map[string]chan *Message

	settingsMu   sync.Mutex
	onSettingsFn func(models.Settings)
	lastSettings *models.Settings

	invalidated atomic.Bool
	notifyOnce  sync.Once
	done        chan struct{}
}

func NewBridgeBackend(transport Transport, timeout time.Duration, logger providers.Logger, notifier InvalidationNotifier) *BridgeBackend {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b := &BridgeBackend{
		transport: transport,
		timeout:   timeout,
		logger:    logger,
		notifier:  notifier,
		pending:   make(map[string]chan *Message),
		done:      make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// OnSettings registers the callback invoked for settings-init and
// settings-changed broadcasts. A snapshot that arrived before
// registration is replayed immediately, so the caller never misses the
// initial state.
func (b *BridgeBackend) OnSettings(fn func(models.Settings)) {
	b.settingsMu.Lock()
	b.onSettingsFn = fn
	last := b.lastSettings
	b.settingsMu.Unlock()
	if last != nil {
		fn(*last)
	}
}

func (b *BridgeBackend) deliverSettings(settings models.Settings) {
	b.settingsMu.Lock()
	b.lastSettings = &settings
	fn := b.onSettingsFn
	b.settingsMu.Unlock()
	if fn != nil {
		fn(settings)
	}
}

func (b *BridgeBackend) dispatch() {
	for msg := range b.transport.Messages() {
		switch {
		case msg.isResponse():
			b.mu.Lock()
			ch, ok := b.pending[msg.RequestID]
			if ok {
				delete(b.pending, msg.RequestID)
			}
			b.mu.Unlock()
			if ok {
				ch <- msg
			}
		case msg.Type == TypeExtensionReloaded:
			b.invalidate()
		case msg.Type == TypeSettingsInit || msg.Type == TypeSettingsChanged:
			if msg.Settings != nil {
				b.deliverSettings(*msg.Settings)
			}
		}
	}
}

func (b *BridgeBackend) invalidate() {
	if b.invalidated.Swap(true) {
		return
	}
	b.notifyOnce.Do(func() {
		b.logger.Warnf(providers.TypeApp, "Storage backend invalidated, a page reload is required")
		if b.notifier != nil {
			b.notifier.NotifyInvalidated()
		}
	})

	// Outstanding requests can never be answered now.
	b.mu.Lock()
	for id, ch := range b.pending {
		delete(b.pending, id)
		close(ch)
	}
	b.mu.Unlock()
	close(b.done)
}

func matchesInvalidation(errText string) bool {
	return strings.Contains(strings.ToLower(errText), errInvalidatedPattern)
}

func (b *BridgeBackend) roundTrip(ctx context.Context, msg *Message) (*Message, error) {
	if b.invalidated.Load() {
		return nil, ErrInvalidated
	}

	msg.Source = SourcePage
	msg.RequestID = uuid.NewString()

	ch := make(chan *Message, 1)
	b.mu.Lock()
	b.pending[msg.RequestID] = ch
	b.mu.Unlock()

	drop := func() {
		b.mu.Lock()
		delete(b.pending, msg.RequestID)
		b.mu.Unlock()
	}

	if err := b.transport.Send(msg); err != nil {
		drop()
		if matchesInvalidation(err.Error()) {
			b.invalidate()
			return nil, ErrInvalidated
		}
		b.logger.Errorf(providers.TypeApp, "Storage request send failed: %s", err)
		return nil, err
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrInvalidated
		}
		if resp.Error != "" {
			if matchesInvalidation(resp.Error) {
				b.invalidate()
				return nil, ErrInvalidated
			}
			if strings.Contains(resp.Error, errConflictPattern) {
				return resp, ErrConflict
			}
			b.logger.Errorf(providers.TypeApp, "Storage request %s failed: %s", msg.Type, resp.Error)
			return nil, &backendError{text: resp.Error}
		}
		return resp, nil
	case <-time.After(b.timeout):
		drop()
		b.logger.Errorf(providers.TypeApp, "Storage request %s timed out after %s", msg.Type, b.timeout)
		return nil, ErrTimeout
	case <-ctx.Done():
		drop()
		return nil, ctx.Err()
	case <-b.done:
		drop()
		return nil, ErrInvalidated
	}
}

func (b *BridgeBackend) Get(ctx context.Context, key string) ([]byte, uint64, error) {
	resp, err := b.roundTrip(ctx, &Message{Type: TypeStorageGet, Key: key})
	if err != nil {
		return nil, 0, err
	}
	return resp.Data, resp.Revision, nil
}

func (b *BridgeBackend) Set(ctx context.Context, key string, data []byte, expectRevision uint64) (uint64, error) {
	resp, err := b.roundTrip(ctx, &Message{
		Type:     TypeStorageSet,
		Key:      key,
		Value:    json.RawMessage(data),
		Revision: expectRevision,
	})
	if err != nil {
		if resp != nil {
			return resp.Revision, err
		}
		return 0, err
	}
	return resp.Revision, nil
}

// Close tears down the transport. Safe to call after invalidation.
func (b *BridgeBackend) Close() error {
	return b.transport.Close()
}

type backendError struct {
	text string
}

func (e *backendError) Error() string {
	return "storage: backend error: " + e.text
}
