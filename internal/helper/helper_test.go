package helper

import (
	"context"
	"testing"
	"time"

	"chathelper/internal/composer"
	"chathelper/internal/identity"
	"chathelper/internal/models"
	"chathelper/internal/paste"
	"chathelper/internal/reconciler"
	"chathelper/internal/services"
	"chathelper/internal/storage"
	"chathelper/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePage struct {
	state map[string]any
	url   string
}

func (p *fakePage) PageState() map[string]any        { return p.state }
func (p *fakePage) ChannelAnchors() []identity.Anchor { return nil }
func (p *fakePage) PageURL() string                  { return p.url }
func (p *fakePage) Referrer() string                 { return "" }

type fakeWidget struct {
	nodes  []*composer.InputNode
	stamps map[string]bool

	inserted  []string
	activated []string
}

func (w *fakeWidget) InputNodes() ([]*composer.InputNode, bool) { return w.nodes, true }

func (w *fakeWidget) InsertText(text string) bool {
	w.inserted = append(w.inserted, text)
	return true
}

func (w *fakeWidget) ActivateStamp(name string) bool {
	if !w.stamps[name] {
		return false
	}
	w.activated = append(w.activated, name)
	return true
}

type fakeSurface struct {
	bars []*reconciler.BarModel
}

func (s *fakeSurface) ClearBars() {}

func (s *fakeSurface) Render(bar *reconciler.BarModel) bool {
	s.bars = append(s.bars, bar)
	return true
}

type fakePicker struct {
	names []string
	opens int
}

func (p *fakePicker) Open() bool                  { p.opens++; return true }
func (p *fakePicker) Close()                      {}
func (p *fakePicker) CategoryTabs() []string      { return nil }
func (p *fakePicker) ActivateTab(string) bool     { return false }
func (p *fakePicker) VisibleStampNames() []string { return p.names }

type fakeFrameHost struct {
	marker bool
}

func (h *fakeFrameHost) ProbeReady() (bool, error) { return true, nil }
func (h *fakeFrameHost) HasMarker() bool           { return h.marker }
func (h *fakeFrameHost) SetMarker()                { h.marker = true }
func (h *fakeFrameHost) ClearMarker()              { h.marker = false }

type instantClock struct{}

func (instantClock) Sleep(context.Context, time.Duration) error { return nil }

type fixture struct {
	helper  *Helper
	widget  *fakeWidget
	surface *fakeSurface
	picker  *fakePicker
	host    *fakeFrameHost
	cache   *testutil.MemoryCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := storage.NewMemoryBackend()
	logger := &testutil.MockLogger{}
	settings := services.NewSettingsService(backend, logger)

	f := &fixture{
		widget:  &fakeWidget{stamps: map[string]bool{"happycat": true}},
		surface: &fakeSurface{},
		picker:  &fakePicker{names: []string{"happycat", "wave"}},
		host:    &fakeFrameHost{},
		cache:   testutil.NewMemoryCache(),
	}
	f.helper = New(Deps{
		FrameID:   "frame-1",
		Backend:   backend,
		Settings:  settings,
		Cache:     f.cache,
		Logger:    logger,
		Page:      &fakePage{state: map[string]any{"channelId": "UCabc"}, url: "https://example.com/watch?v=xyz"},
		Widget:    f.widget,
		Surface:   f.surface,
		Picker:    f.picker,
		FrameHost: f.host,
		Clock:     instantClock{},
	})
	return f
}

func TestHelper_InitializationWiresFrame(t *testing.T) {
	f := newFixture(t)

	f.helper.Monitor.ContainerAppeared(context.Background(), "frame-1")

	require.Len(t, f.surface.bars, 1, "first render ran")
	assert.Equal(t, 1, f.picker.opens, "auto preload ran")
	assert.Equal(t, []string{"happycat", "wave"}, f.helper.Preloader.Names())
	assert.True(t, f.host.marker)
}

func TestHelper_SaveThroughBarUsesResolvedIdentity(t *testing.T) {
	f := newFixture(t)
	f.helper.Monitor.ContainerAppeared(context.Background(), "frame-1")

	f.widget.nodes = []*composer.InputNode{composer.TextNode("hello chat")}
	f.surface.bars[len(f.surface.bars)-1].OnSave(false)

	list, err := f.helper.Records.ListApplicable(context.Background(), &identity.ChannelIdentity{Name: "UCabc"})
	require.NoError(t, err)
	require.Len(t, list.Channel, 1)
	assert.Equal(t, "hello chat", list.Channel[0].Snippet.Caption)
}

func TestHelper_PasteUsesPreloadedNames(t *testing.T) {
	f := newFixture(t)
	f.helper.Monitor.ContainerAppeared(context.Background(), "frame-1")

	got := f.helper.Interceptor.HandlePaste("hihappycatbye")
	assert.Equal(t, paste.OutcomeReplaced, got)
	assert.Equal(t, []string{"happycat"}, f.widget.activated)
	assert.Equal(t, []string{"hi", "bye"}, f.widget.inserted)
}

func TestHelper_ResetClearsDerivedState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.helper.Monitor.ContainerAppeared(ctx, "frame-1")
	require.NotNil(t, f.helper.Resolver.Resolve())
	_, cached := f.cache.Get("identity:frame-1")
	require.True(t, cached)

	f.helper.Monitor.ContainerRemoved()

	_, cached = f.cache.Get("identity:frame-1")
	assert.False(t, cached, "identity cache invalidated")
	assert.False(t, f.helper.Preloader.Done())

	// The next appearance initializes cleanly.
	f.helper.Monitor.ContainerAppeared(ctx, "frame-2")
	assert.Len(t, f.surface.bars, 2)
	assert.Equal(t, 2, f.picker.opens)
}

func TestHelper_FramesAreIsolated(t *testing.T) {
	f1 := newFixture(t)
	f2 := newFixture(t)

	f1.helper.Monitor.ContainerAppeared(context.Background(), "frame-1")
	assert.Len(t, f1.surface.bars, 1)
	assert.Empty(t, f2.surface.bars, "second frame untouched by the first one's lifecycle")
	assert.False(t, f2.helper.Preloader.Done())
}

func TestHelper_ConversionFollowsSettings(t *testing.T) {
	f := newFixture(t)
	f.helper.Monitor.ContainerAppeared(context.Background(), "frame-1")

	f.helper.settings.Apply(models.Settings{
		StampTextConversionEnabled: false,
		AutoPreloadStampsEnabled:   true,
	})
	assert.Equal(t, paste.OutcomeDefault, f.helper.Interceptor.HandlePaste("happycat"))
}
