package persist

import (
	"context"
	"os"
	"sync"

	"chathelper/internal/models"
	"chathelper/internal/persist/interfaces"
	"chathelper/internal/providers"
	"chathelper/internal/storage"

	json "github.com/goccy/go-json"
)

// FileStoreInterface is the daemon's record store: the revisioned backend
// the message protocol serves, plus snapshots for the inspection endpoints
// and counts for the metrics gauges.
type FileStoreInterface interface {
	storage.Backend
	providers.StoreStats
	StoreSnapshot() (*models.Store, error)
	CurrentSettings() models.Settings
	SaveToFile(fileName string) error
	LoadFromFile(fileName string) error
}

type record struct {
	data     []byte
	revision uint64
}

// diskDocument is the on-disk envelope: both records in one compressed
// file, each in its wire JSON form.
type diskDocument struct {
	Store    json.RawMessage `json:"store"`
	Settings json.RawMessage `json:"settings"`
}

// FileStore holds the live records in memory with per-record revisions and
// persists them to one zstd-compressed JSON file. Set enforces
// check-and-set: a write whose expected revision is stale fails with
// ErrConflict and changes nothing.
type FileStore struct {
	compressor interfaces.CompressorInterface
	logger     providers.Logger

	mu      sync.RWMutex
	records map[string]*record

	// Counts are maintained on store writes so the metrics gauges do not
	// decode the document on every scrape.
	buckets  int
	snippets int
}

func NewFileStore(compressor interfaces.CompressorInterface, logger providers.Logger) FileStoreInterface {
	return &FileStore{
		compressor: compressor,
		logger:     logger,
		records:    map[string]*record{},
	}
}

// Get returns a copy of the record's data and its current revision. A
// missing record is data nil, revision 0.
func (fs *FileStore) Get(_ context.Context, key string) ([]byte, uint64, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	rec, ok := fs.records[key]
	if !ok {
		return nil, 0, nil
	}
	out := make([]byte, len(rec.data))
	copy(out, rec.data)
	return out, rec.revision, nil
}

func (fs *FileStore) Set(_ context.Context, key string, data []byte, expectRevision uint64) (uint64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	rec, ok := fs.records[key]
	current := uint64(0)
	if ok {
		current = rec.revision
	}
	if expectRevision != current {
		return 0, storage.ErrConflict
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	fs.records[key] = &record{data: stored, revision: current + 1}
	if key == models.StoreKey {
		fs.recountLocked(stored)
	}
	return current + 1, nil
}

func (fs *FileStore) recountLocked(data []byte) {
	store, err := models.DecodeStore(data)
	if err != nil {
		fs.logger.Warnf(providers.TypeApp, "Stored document unreadable while counting: %s", err)
		return
	}
	fs.buckets = len(store.Channels)
	fs.snippets = store.CountSnippets()
}

func (fs *FileStore) Buckets() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.buckets
}

func (fs *FileStore) Snippets() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.snippets
}

// StoreSnapshot decodes the current store record for the inspection API.
func (fs *FileStore) StoreSnapshot() (*models.Store, error) {
	data, _, _ := fs.Get(context.Background(), models.StoreKey)
	return models.DecodeStore(data)
}

func (fs *FileStore) CurrentSettings() models.Settings {
	data, _, _ := fs.Get(context.Background(), models.SettingsKey)
	settings := models.DefaultSettings()
	if len(data) > 0 {
		if err := json.Unmarshal(data, &settings); err != nil {
			fs.logger.Warnf(providers.TypeApp, "Settings record unreadable, using defaults: %s", err)
			return models.DefaultSettings()
		}
	}
	return settings
}

func (fs *FileStore) SaveToFile(fileName string) error {
	fs.mu.RLock()
	doc := diskDocument{}
	if rec, ok := fs.records[models.StoreKey]; ok {
		doc.Store = append(json.RawMessage{}, rec.data...)
	}
	if rec, ok := fs.records[models.SettingsKey]; ok {
		doc.Settings = append(json.RawMessage{}, rec.data...)
	}
	fs.mu.RUnlock()

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	data, err := fs.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

// LoadFromFile seeds the records from disk. The store record is run
// through the versioned decoder so an old-format document migrates on
// load. A missing file is a clean first start.
func (fs *FileStore) LoadFromFile(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	decompressedData, err := fs.compressor.Decompress(data)
	if err != nil {
		return err
	}

	var doc diskDocument
	if err := json.Unmarshal(decompressedData, &doc); err != nil {
		return err
	}

	store, err := models.DecodeStore(doc.Store)
	if err != nil {
		fs.logger.Warnf(providers.TypeApp, "Inconsistent store document found, starting fresh: %s", err)
		store = models.NewStore()
	}
	encoded, err := models.EncodeStore(store)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.records[models.StoreKey] = &record{data: encoded, revision: 1}
	if len(doc.Settings) > 0 {
		fs.records[models.SettingsKey] = &record{data: append([]byte{}, doc.Settings...), revision: 1}
	}
	fs.recountLocked(encoded)
	return nil
}
