package storage

import (
	"context"
	"errors"
)

var (
	// ErrConflict means a Set carried a stale expected revision; the store
	// was not modified.
	ErrConflict = errors.New("storage: revision conflict")
	// ErrInvalidated means the privileged backend is gone for the rest of
	// this page lifetime; every further call fails immediately.
	ErrInvalidated = errors.New("storage: backend invalidated")
	// ErrTimeout means the backend did not answer within the request window.
	ErrTimeout = errors.New("storage: request timed out")
)

// Backend is the persistence channel: a coarse-grained key/value store
// with revision check-and-set. A missing key reads as empty data at
// revision zero. Set succeeds only when expectRevision matches the
// stored revision, which turns the read-modify-write race on the full
// store snapshot into a detectable conflict instead of a silent lost
// update.
type Backend interface {
	Get(ctx context.Context, key string) (data []byte, revision uint64, err error)
	Set(ctx context.Context, key string, data []byte, expectRevision uint64) (newRevision uint64, err error)
}

// InvalidationNotifier surfaces the one-time, user-visible notification
// raised when the backend flips to its terminal invalidated state.
type InvalidationNotifier interface {
	NotifyInvalidated()
}
