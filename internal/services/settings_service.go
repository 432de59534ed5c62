package services

import (
	"context"
	"sync"

	"chathelper/internal/models"
	"chathelper/internal/providers"
	"chathelper/internal/storage"

	json "github.com/goccy/go-json"
)

type SettingsServiceInterface interface {
	Load(ctx context.Context) (models.Settings, error)
	Save(ctx context.Context, settings models.Settings) error
	Current() models.Settings
	Apply(settings models.Settings)
	Subscribe(fn func(models.Settings))
}

// SettingsService keeps the current feature flags, persists them under
// their own record, and fans out changes to subscribers. Apply is also
// the entry point for settings broadcasts arriving over the bridge.
type SettingsService struct {
	backend storage.Backend
	logger  providers.Logger

	mu      sync.Mutex
	current models.Settings
	subs    []func(models.Settings)
}

func NewSettingsService(backend storage.Backend, logger providers.Logger) SettingsServiceInterface {
	return &SettingsService{
		backend: backend,
		logger:  logger,
		current: models.DefaultSettings(),
	}
}

// Load reads the persisted flags, layering them over the defaults so a
// record written by an older build keeps sane values for new flags.
func (ss *SettingsService) Load(ctx context.Context) (models.Settings, error) {
	data, _, err := ss.backend.Get(ctx, models.SettingsKey)
	if err != nil {
		return ss.Current(), err
	}
	settings := models.DefaultSettings()
	if len(data) > 0 {
		if err := json.Unmarshal(data, &settings); err != nil {
			ss.logger.Warnf(providers.TypeApp, "Settings record unreadable, using defaults: %s", err)
			settings = models.DefaultSettings()
		}
	}
	ss.Apply(settings)
	return settings, nil
}

func (ss *SettingsService) Save(ctx context.Context, settings models.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	_, rev, err := ss.backend.Get(ctx, models.SettingsKey)
	if err != nil {
		return err
	}
	if _, err := ss.backend.Set(ctx, models.SettingsKey, data, rev); err != nil {
		return err
	}
	ss.Apply(settings)
	return nil
}

func (ss *SettingsService) Current() models.Settings {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.current
}

func (ss *SettingsService) Apply(settings models.Settings) {
	ss.mu.Lock()
	changed := settings != ss.current
	ss.current = settings
	subs := make([]func(models.Settings), len(ss.subs))
	copy(subs, ss.subs)
	ss.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range subs {
		fn(settings)
	}
}

func (ss *SettingsService) Subscribe(fn func(models.Settings)) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.subs = append(ss.subs, fn)
}
