package services

import (
	"context"
	"errors"

	"chathelper/internal/identity"
	"chathelper/internal/models"
	"chathelper/internal/providers"
	"chathelper/internal/storage"
)

// IdentityResolver is the slice of identity.Resolver the record service
// needs: the current channel identity, or nil when unknown.
type IdentityResolver interface {
	Resolve() *identity.ChannelIdentity
}

// Entry is one applicable snippet annotated with the position and bucket
// key later delete/reorder calls need.
type Entry struct {
	Snippet   *models.Snippet
	Index     int
	IsGlobal  bool
	BucketKey string
}

type ApplicableSnippets struct {
	Global  []Entry
	Channel []Entry
}

type RecordServiceInterface interface {
	SaveSnippet(ctx context.Context, content []models.Segment, toGlobal bool) (bool, error)
	DeleteSnippet(ctx context.Context, bucketKey string, index int) (bool, error)
	MoveSnippet(ctx context.Context, fromKey string, index int, toGlobal bool) (bool, error)
	Reorder(ctx context.Context, bucketKey string, oldIndex, newIndex int) (bool, error)
	SetAlias(ctx context.Context, bucketKey string, index int, alias []models.Segment) (bool, error)
	ClearAlias(ctx context.Context, bucketKey string, index int) (bool, error)
	ListApplicable(ctx context.Context, id *identity.ChannelIdentity) (*ApplicableSnippets, error)
}

// RecordService runs every mutation as get-full-store, mutate-in-memory,
// put-full-store. The backend's revision check turns a concurrent writer
// into a conflict; one re-read-and-reapply pass absorbs the common case
// of a single racing caller.
type RecordService struct {
	backend  storage.Backend
	resolver IdentityResolver
	logger   providers.Logger
}

const storeWriteAttempts = 2

func NewRecordService(backend storage.Backend, resolver IdentityResolver, logger providers.Logger) RecordServiceInterface {
	return &RecordService{
		backend:  backend,
		resolver: resolver,
		logger:   logger,
	}
}

func (rs *RecordService) loadStore(ctx context.Context) (*models.Store, uint64, error) {
	data, rev, err := rs.backend.Get(ctx, models.StoreKey)
	if err != nil {
		return nil, 0, err
	}
	store, err := models.DecodeStore(data)
	if err != nil {
		// A corrupt document is unrecoverable; start over rather than
		// wedging every operation.
		rs.logger.Warnf(providers.TypeApp, "Store document unreadable, starting fresh: %s", err)
		return models.NewStore(), rev, nil
	}
	return store, rev, nil
}

func (rs *RecordService) update(ctx context.Context, mutate func(*models.Store) bool) (bool, error) {
	for attempt := 0; attempt < storeWriteAttempts; attempt++ {
		store, rev, err := rs.loadStore(ctx)
		if err != nil {
			return false, err
		}
		if !mutate(store) {
			return false, nil
		}
		store.Prune()
		encoded, err := models.EncodeStore(store)
		if err != nil {
			return false, err
		}
		if _, err := rs.backend.Set(ctx, models.StoreKey, encoded, rev); err != nil {
			if errors.Is(err, storage.ErrConflict) && attempt < storeWriteAttempts-1 {
				rs.logger.Debugf(providers.TypeApp, "Store write conflict, reapplying")
				continue
			}
			return false, err
		}
		return true, nil
	}
	return false, storage.ErrConflict
}

// bucketRef resolves a bucket key to the snippet slice it names. The
// second return is the owning channel bucket, nil for the global bucket.
func bucketRef(store *models.Store, key string) (*[]*models.Snippet, bool) {
	if key == models.GlobalKey {
		return &store.Global, true
	}
	if b := store.FindBucket(key); b != nil {
		return &b.Snippets, true
	}
	return nil, false
}

// SaveSnippet appends a new snippet. A save targeted at the current
// channel falls back to the global bucket when no identity resolves; a
// snippet is never dropped for lack of identity.
func (rs *RecordService) SaveSnippet(ctx context.Context, content []models.Segment, toGlobal bool) (bool, error) {
	if len(content) == 0 {
		return false, nil
	}
	var id *identity.ChannelIdentity
	if !toGlobal {
		id = rs.resolver.Resolve()
		if id == nil {
			rs.logger.Debugf(providers.TypeApp, "No channel identity, saving to global bucket")
		}
	}
	return rs.update(ctx, func(store *models.Store) bool {
		snip := models.NewSnippet(content)
		if toGlobal || id == nil {
			store.Global = append(store.Global, snip)
		} else {
			b := store.Claim(id.Name, id.Href)
			b.Snippets = append(b.Snippets, snip)
		}
		return true
	})
}

// DeleteSnippet removes by position. Emptying a channel bucket deletes
// the bucket.
func (rs *RecordService) DeleteSnippet(ctx context.Context, bucketKey string, index int) (bool, error) {
	return rs.update(ctx, func(store *models.Store) bool {
		list, ok := bucketRef(store, bucketKey)
		if !ok || index < 0 || index >= len(*list) {
			return false
		}
		*list = append((*list)[:index], (*list)[index+1:]...)
		return true
	})
}

// MoveSnippet relocates a snippet across buckets. Moving into a channel
// bucket resolves and merges by current identity the same way SaveSnippet
// does.
func (rs *RecordService) MoveSnippet(ctx context.Context, fromKey string, index int, toGlobal bool) (bool, error) {
	var id *identity.ChannelIdentity
	if !toGlobal {
		id = rs.resolver.Resolve()
	}
	return rs.update(ctx, func(store *models.Store) bool {
		list, ok := bucketRef(store, fromKey)
		if !ok || index < 0 || index >= len(*list) {
			return false
		}
		snip := (*list)[index]
		*list = append((*list)[:index], (*list)[index+1:]...)
		if toGlobal || id == nil {
			store.Global = append(store.Global, snip)
		} else {
			b := store.Claim(id.Name, id.Href)
			b.Snippets = append(b.Snippets, snip)
		}
		return true
	})
}

// Reorder moves a snippet within its bucket. Out-of-range indices fail
// without touching the store.
func (rs *RecordService) Reorder(ctx context.Context, bucketKey string, oldIndex, newIndex int) (bool, error) {
	return rs.update(ctx, func(store *models.Store) bool {
		list, ok := bucketRef(store, bucketKey)
		if !ok {
			return false
		}
		n := len(*list)
		if oldIndex < 0 || oldIndex >= n || newIndex < 0 || newIndex >= n {
			return false
		}
		snip := (*list)[oldIndex]
		*list = append((*list)[:oldIndex], (*list)[oldIndex+1:]...)
		rest := *list
		out := make([]*models.Snippet, 0, n)
		out = append(out, rest[:newIndex]...)
		out = append(out, snip)
		out = append(out, rest[newIndex:]...)
		*list = out
		return true
	})
}

// SetAlias attaches the display override; the underlying content stays
// untouched.
func (rs *RecordService) SetAlias(ctx context.Context, bucketKey string, index int, alias []models.Segment) (bool, error) {
	if len(alias) == 0 {
		return false, nil
	}
	return rs.update(ctx, func(store *models.Store) bool {
		list, ok := bucketRef(store, bucketKey)
		if !ok || index < 0 || index >= len(*list) {
			return false
		}
		(*list)[index].Alias = models.CloneSegments(alias)
		return true
	})
}

func (rs *RecordService) ClearAlias(ctx context.Context, bucketKey string, index int) (bool, error) {
	return rs.update(ctx, func(store *models.Store) bool {
		list, ok := bucketRef(store, bucketKey)
		if !ok || index < 0 || index >= len(*list) {
			return false
		}
		(*list)[index].Alias = nil
		return true
	})
}

// ListApplicable is the read-only projection the button bar renders:
// global snippets plus the current channel's, each annotated with the
// positional index later calls need.
func (rs *RecordService) ListApplicable(ctx context.Context, id *identity.ChannelIdentity) (*ApplicableSnippets, error) {
	store, _, err := rs.loadStore(ctx)
	if err != nil {
		return nil, err
	}

	out := &ApplicableSnippets{}
	for i, snip := range store.Global {
		out.Global = append(out.Global, Entry{
			Snippet:   snip,
			Index:     i,
			IsGlobal:  true,
			BucketKey: models.GlobalKey,
		})
	}
	if id != nil {
		if b := store.FindBucket(id.Name); b != nil {
			for i, snip := range b.Snippets {
				out.Channel = append(out.Channel, Entry{
					Snippet:   snip,
					Index:     i,
					BucketKey: id.Name,
				})
			}
		}
	}
	return out, nil
}
