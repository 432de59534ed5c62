package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"chathelper/internal/models"
	"chathelper/internal/persist"
	"chathelper/internal/storage"
	"chathelper/internal/testutil"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notifierSpy struct {
	mu    sync.Mutex
	count int
}

func (n *notifierSpy) NotifyInvalidated() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
}

func (n *notifierSpy) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

type wsFixture struct {
	controller *WSController
	store      persist.FileStoreInterface
	metrics    *testutil.MockMetrics
	server     *httptest.Server
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	f := &wsFixture{
		store:   persist.NewFileStore(&testutil.MockCompressor{}, &testutil.MockLogger{}),
		metrics: &testutil.MockMetrics{},
	}
	f.controller = NewWSController(&testutil.MockLogger{}, f.store, f.metrics)
	f.server = httptest.NewServer(http.HandlerFunc(f.controller.HandleWS))
	t.Cleanup(f.server.Close)
	return f
}

func (f *wsFixture) dial(t *testing.T, notifier storage.InvalidationNotifier) *storage.BridgeBackend {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	transport, err := storage.DialTransport(context.Background(), url)
	require.NoError(t, err)
	backend := storage.NewBridgeBackend(transport, 2*time.Second, &testutil.MockLogger{}, notifier)
	t.Cleanup(func() { backend.Close() })
	return backend
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestWSController_GetSetRoundtrip(t *testing.T) {
	f := newWSFixture(t)
	backend := f.dial(t, &notifierSpy{})
	ctx := context.Background()

	data, revision, err := backend.Get(ctx, models.StoreKey)
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Zero(t, revision)

	store := models.NewStore()
	store.Global = append(store.Global, models.NewSnippet([]models.Segment{models.TextSegment("hello")}))
	encoded, err := models.EncodeStore(store)
	require.NoError(t, err)

	newRev, err := backend.Set(ctx, models.StoreKey, encoded, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), newRev)

	data, revision, err = backend.Get(ctx, models.StoreKey)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), revision)
	decoded, err := models.DecodeStore(data)
	require.NoError(t, err)
	require.Len(t, decoded.Global, 1)
	assert.Equal(t, "hello", decoded.Global[0].Caption)
}

func TestWSController_StaleWriteConflicts(t *testing.T) {
	f := newWSFixture(t)
	backend := f.dial(t, &notifierSpy{})
	ctx := context.Background()

	encoded, err := models.EncodeStore(models.NewStore())
	require.NoError(t, err)
	_, err = backend.Set(ctx, models.StoreKey, encoded, 0)
	require.NoError(t, err)

	_, err = backend.Set(ctx, models.StoreKey, encoded, 0)
	assert.ErrorIs(t, err, storage.ErrConflict)
	assert.Equal(t, 1, f.metrics.StoreConflicts)
}

func TestWSController_SettingsBroadcast(t *testing.T) {
	f := newWSFixture(t)
	writer := f.dial(t, &notifierSpy{})
	listener := f.dial(t, &notifierSpy{})

	var mu sync.Mutex
	var received []models.Settings
	listener.OnSettings(func(s models.Settings) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, s)
	})

	// Both clients got a settings snapshot on connect.
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, "settings snapshot not received")
	assert.Equal(t, models.DefaultSettings(), received[0])

	want := models.Settings{StampTextConversionEnabled: false, AutoPreloadStampsEnabled: true}
	payload, err := json.Marshal(want)
	require.NoError(t, err)
	_, err = writer.Set(context.Background(), models.SettingsKey, payload, 0)
	require.NoError(t, err)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, "settings change not broadcast")
	mu.Lock()
	assert.Equal(t, want, received[1])
	mu.Unlock()
}

func TestWSController_ReloadBroadcastInvalidatesClients(t *testing.T) {
	f := newWSFixture(t)
	notifier := &notifierSpy{}
	backend := f.dial(t, notifier)

	// Make sure the connection is live before broadcasting.
	_, _, err := backend.Get(context.Background(), models.StoreKey)
	require.NoError(t, err)

	f.controller.BroadcastReloaded()

	waitFor(t, func() bool { return notifier.Count() == 1 }, "invalidation not notified")

	_, _, err = backend.Get(context.Background(), models.StoreKey)
	assert.ErrorIs(t, err, storage.ErrInvalidated)
	assert.Equal(t, 1, notifier.Count(), "notification fires exactly once")
}

func TestWSController_ClientCount(t *testing.T) {
	f := newWSFixture(t)
	assert.Zero(t, f.controller.ClientCount())

	backend := f.dial(t, &notifierSpy{})
	_, _, err := backend.Get(context.Background(), models.StoreKey)
	require.NoError(t, err)
	assert.Equal(t, 1, f.controller.ClientCount())
	assert.Equal(t, 1, f.metrics.Clients)

	require.NoError(t, backend.Close())
	waitFor(t, func() bool { return f.controller.ClientCount() == 0 }, "client not unregistered")
}
