package models

// Storage record keys, shared between the engine and the storage backend.
const (
	StoreKey    = "chatData"
	SettingsKey = "chatHelperSettings"
)

// Settings is the small process-wide feature flag set. It is persisted
// independently of the Store and broadcast on change.
type Settings struct {
	StampTextConversionEnabled bool `json:"stampTextConversionEnabled"`
	AutoPreloadStampsEnabled   bool `json:"autoPreloadStampsEnabled"`
}

func DefaultSettings() Settings {
	return Settings{
		StampTextConversionEnabled: true,
		AutoPreloadStampsEnabled:   true,
	}
}
