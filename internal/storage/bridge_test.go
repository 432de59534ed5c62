package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chathelper/internal/models"
	"chathelper/internal/testutil"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeTransport is an in-process Transport with a scriptable responder.
type pipeTransport struct {
	mu      sync.Mutex
	in      chan *Message
	sent    []*Message
	respond func(*Message) *Message
	sendErr error
	closed  bool
}

func newPipeTransport() *pipeTransport {
	return &pipeTransport{in: make(chan *Message, 16)}
}

func (p *pipeTransport) Send(msg *Message) error {
	p.mu.Lock()
	p.sent = append(p.sent, msg)
	respond := p.respond
	err := p.sendErr
	p.mu.Unlock()
	if err != nil {
		return err
	}
	if respond != nil {
		if resp := respond(msg); resp != nil {
			p.in <- resp
		}
	}
	return nil
}

func (p *pipeTransport) Messages() <-chan *Message { return p.in }

func (p *pipeTransport) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.in)
	}
	return nil
}

func (p *pipeTransport) push(msg *Message) { p.in <- msg }

func (p *pipeTransport) sentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type countingNotifier struct {
	calls atomic.Int32
}

func (n *countingNotifier) NotifyInvalidated() { n.calls.Add(1) }

func echoStore() func(*Message) *Message {
	store := map[string][]byte{}
	revs := map[string]uint64{}
	var mu sync.Mutex
	return func(msg *Message) *Message {
		mu.Lock()
		defer mu.Unlock()
		switch msg.Type {
		case TypeStorageGet:
			return &Message{
				Source:    SourceContent,
				Type:      TypeStorageGetResponse,
				RequestID: msg.RequestID,
				Data:      json.RawMessage(store[msg.Key]),
				Revision:  revs[msg.Key],
			}
		case TypeStorageSet:
			if msg.Revision != revs[msg.Key] {
				return &Message{
					Source:    SourceContent,
					Type:      TypeStorageSetResponse,
					RequestID: msg.RequestID,
					Revision:  revs[msg.Key],
					Error:     "revision conflict",
				}
			}
			store[msg.Key] = msg.Value
			revs[msg.Key]++
			return &Message{
				Source:    SourceContent,
				Type:      TypeStorageSetResponse,
				RequestID: msg.RequestID,
				Revision:  revs[msg.Key],
				Success:   true,
			}
		}
		return nil
	}
}

func TestBridgeBackend_GetSetRoundtrip(t *testing.T) {
	pipe := newPipeTransport()
	pipe.respond = echoStore()
	b := NewBridgeBackend(pipe, time.Second, &testutil.MockLogger{}, &countingNotifier{})
	defer b.Close()

	rev, err := b.Set(context.Background(), "chatData", []byte(`{"global":[]}`), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rev)

	data, rev, err := b.Get(context.Background(), "chatData")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rev)
	assert.JSONEq(t, `{"global":[]}`, string(data))
}

func TestBridgeBackend_RequestIDsAreUnique(t *testing.T) {
	pipe := newPipeTransport()
	pipe.respond = echoStore()
	b := NewBridgeBackend(pipe, time.Second, &testutil.MockLogger{}, nil)
	defer b.Close()

	_, _, err := b.Get(context.Background(), "a")
	require.NoError(t, err)
	_, _, err = b.Get(context.Background(), "b")
	require.NoError(t, err)

	pipe.mu.Lock()
	defer pipe.mu.Unlock()
	require.Len(t, pipe.sent, 2)
	assert.Equal(t, SourcePage, pipe.sent[0].Source)
	assert.NotEmpty(t, pipe.sent[0].RequestID)
	assert.NotEqual(t, pipe.sent[0].RequestID, pipe.sent[1].RequestID)
}

func TestBridgeBackend_StaleSetConflict(t *testing.T) {
	pipe := newPipeTransport()
	pipe.respond = echoStore()
	b := NewBridgeBackend(pipe, time.Second, &testutil.MockLogger{}, nil)
	defer b.Close()

	_, err := b.Set(context.Background(), "chatData", []byte("v1"), 0)
	require.NoError(t, err)

	_, err = b.Set(context.Background(), "chatData", []byte("v2"), 0)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestBridgeBackend_Timeout(t *testing.T) {
	pipe := newPipeTransport() // never responds
	b := NewBridgeBackend(pipe, 50*time.Millisecond, &testutil.MockLogger{}, nil)
	defer b.Close()

	_, _, err := b.Get(context.Background(), "chatData")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestBridgeBackend_ContextCancel(t *testing.T) {
	pipe := newPipeTransport()
	b := NewBridgeBackend(pipe, time.Second, &testutil.MockLogger{}, nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := b.Get(ctx, "chatData")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBridgeBackend_ReloadedNotificationIsTerminal(t *testing.T) {
	pipe := newPipeTransport()
	notifier := &countingNotifier{}
	b := NewBridgeBackend(pipe, time.Second, &testutil.MockLogger{}, notifier)

	pipe.push(&Message{Type: TypeExtensionReloaded})

	require.Eventually(t, func() bool {
		_, _, err := b.Get(context.Background(), "chatData")
		return err == ErrInvalidated
	}, time.Second, 5*time.Millisecond)

	sentBefore := pipe.sentCount()
	for i := 0; i < 10; i++ {
		_, _, err := b.Get(context.Background(), "chatData")
		assert.ErrorIs(t, err, ErrInvalidated)
		_, err = b.Set(context.Background(), "chatData", nil, 0)
		assert.ErrorIs(t, err, ErrInvalidated)
	}

	assert.Equal(t, sentBefore, pipe.sentCount(), "invalidated calls must not reach the transport")
	assert.Equal(t, int32(1), notifier.calls.Load(), "exactly one user notification")
}

func TestBridgeBackend_InvalidationErrorPattern(t *testing.T) {
	pipe := newPipeTransport()
	pipe.respond = func(msg *Message) *Message {
		return &Message{
			Source:    SourceContent,
			Type:      TypeStorageGetResponse,
			RequestID: msg.RequestID,
			Error:     "Extension context invalidated.",
		}
	}
	notifier := &countingNotifier{}
	b := NewBridgeBackend(pipe, time.Second, &testutil.MockLogger{}, notifier)

	_, _, err := b.Get(context.Background(), "chatData")
	assert.ErrorIs(t, err, ErrInvalidated)
	assert.Equal(t, int32(1), notifier.calls.Load())

	_, _, err = b.Get(context.Background(), "chatData")
	assert.ErrorIs(t, err, ErrInvalidated)
	assert.Equal(t, int32(1), notifier.calls.Load(), "notification fires once")
}

func TestBridgeBackend_BackendError(t *testing.T) {
	pipe := newPipeTransport()
	pipe.respond = func(msg *Message) *Message {
		return &Message{
			Source:    SourceContent,
			Type:      TypeStorageGetResponse,
			RequestID: msg.RequestID,
			Error:     "quota exceeded",
		}
	}
	logger := &testutil.MockLogger{}
	b := NewBridgeBackend(pipe, time.Second, logger, nil)
	defer b.Close()

	_, _, err := b.Get(context.Background(), "chatData")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidated)
	assert.Contains(t, err.Error(), "quota exceeded")

	// Recoverable errors keep the channel usable.
	pipe.respond = echoStore()
	_, _, err = b.Get(context.Background(), "chatData")
	assert.NoError(t, err)
}

func TestBridgeBackend_SettingsBroadcast(t *testing.T) {
	pipe := newPipeTransport()
	b := NewBridgeBackend(pipe, time.Second, &testutil.MockLogger{}, nil)
	defer b.Close()

	var mu sync.Mutex
	var got []models.Settings
	b.OnSettings(func(s models.Settings) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, s)
	})

	pipe.push(&Message{Type: TypeSettingsInit, Settings: &models.Settings{StampTextConversionEnabled: true}})
	pipe.push(&Message{Type: TypeSettingsChanged, Settings: &models.Settings{AutoPreloadStampsEnabled: true}})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)
}
