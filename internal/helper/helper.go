package helper

import (
	"context"
	"errors"

	"chathelper/internal/composer"
	"chathelper/internal/identity"
	"chathelper/internal/lifecycle"
	"chathelper/internal/paste"
	"chathelper/internal/providers"
	"chathelper/internal/reconciler"
	"chathelper/internal/services"
	"chathelper/internal/stamps"
	"chathelper/internal/storage"
)

// Deps are the collaborators one frame's component set is built from.
// Backend, Settings, Cache and Logger are shared process-wide; everything
// else is bound to the host frame.
type Deps struct {
	FrameID    string
	Backend    storage.Backend
	Settings   services.SettingsServiceInterface
	Cache      providers.CacheProviderInterface
	Logger     providers.Logger
	Page       identity.PageContext
	Widget     composer.Widget
	Surface    reconciler.Surface
	Picker     stamps.Picker
	FrameHost  lifecycle.FrameHost
	Clock      stamps.Clock
	Strategies []identity.Strategy
}

// Helper is one frame's fully wired component set. Each host frame gets
// its own instance; no state is shared between frames except the storage
// backend and the settings service.
type Helper struct {
	Resolver    *identity.Resolver
	Records     services.RecordServiceInterface
	Bridge      *composer.Bridge
	Reconciler  *reconciler.Reconciler
	Preloader   *stamps.Preloader
	Interceptor *paste.Interceptor
	Monitor     *lifecycle.Monitor

	settings services.SettingsServiceInterface
	logger   providers.Logger
}

func New(deps Deps) *Helper {
	strategies := deps.Strategies
	if strategies == nil {
		strategies = identity.DefaultStrategies()
	}
	clock := deps.Clock
	if clock == nil {
		clock = stamps.NewClock()
	}

	h := &Helper{
		settings: deps.Settings,
		logger:   deps.Logger,
	}
	h.Resolver = identity.NewResolver(deps.Page, strategies, deps.Cache, deps.Logger, deps.FrameID)
	h.Records = services.NewRecordService(deps.Backend, h.Resolver, deps.Logger)
	h.Bridge = composer.NewBridge(deps.Widget, deps.Logger)
	h.Reconciler = reconciler.NewReconciler(h.Records, h.Resolver, h.Bridge, deps.Surface, deps.Logger)
	h.Preloader = stamps.NewPreloader(deps.Picker, clock, deps.Logger)
	h.Interceptor = paste.NewInterceptor(h.Bridge, h.Preloader, h.conversionEnabled, deps.Logger)
	h.Monitor = lifecycle.NewMonitor(deps.FrameHost, lifecycle.Hooks{
		Initialize: h.initialize,
		Reset:      h.reset,
	}, deps.Logger)
	return h
}

func (h *Helper) conversionEnabled() bool {
	return h.settings.Current().StampTextConversionEnabled
}

// initialize runs once per frame lifecycle: first render of the button
// bar, then the optional stamp preload.
func (h *Helper) initialize(ctx context.Context) error {
	if _, err := h.Reconciler.Trigger(ctx); err != nil {
		return err
	}
	if h.settings.Current().AutoPreloadStampsEnabled {
		if err := h.Preloader.Run(ctx); err != nil {
			if errors.Is(err, stamps.ErrPickerUnavailable) {
				// The picker renders late on some pages; the preload
				// simply stays armed for the next lifecycle trigger.
				h.logger.Debugf(providers.TypeApp, "Stamp preload deferred: %s", err)
				return nil
			}
			return err
		}
	}
	return nil
}

// reset clears everything derived from a stale frame.
func (h *Helper) reset() {
	h.Reconciler.Reset()
	h.Preloader.Reset()
	h.Resolver.InvalidateCache()
}
