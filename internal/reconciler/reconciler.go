package reconciler

import (
	"context"
	"sync/atomic"

	"chathelper/internal/identity"
	"chathelper/internal/models"
	"chathelper/internal/providers"
	"chathelper/internal/services"
)

// Inserter is the slice of the composer bridge the reconciler needs.
type Inserter interface {
	ReadCurrentInput() []models.Segment
	InsertSegments(segments []models.Segment)
}

// Reconciler keeps the on-page button bar consistent with the record store
// and the current channel identity. One instance per host composer; the
// guard makes concurrent triggers coalesce by dropping the latecomer, on
// the expectation that every mutating path re-triggers after it commits.
type Reconciler struct {
	records  services.RecordServiceInterface
	resolver services.IdentityResolver
	bridge   Inserter
	surface  Surface
	logger   providers.Logger

	reconciling atomic.Bool
}

func NewReconciler(records services.RecordServiceInterface, resolver services.IdentityResolver, bridge Inserter, surface Surface, logger providers.Logger) *Reconciler {
	return &Reconciler{
		records:  records,
		resolver: resolver,
		bridge:   bridge,
		surface:  surface,
		logger:   logger,
	}
}

// Trigger runs one rebuild. A trigger arriving while a rebuild is in
// flight is dropped, not queued. Returns whether a rebuild ran.
func (r *Reconciler) Trigger(ctx context.Context) (bool, error) {
	if !r.reconciling.CompareAndSwap(false, true) {
		r.logger.Debugf(providers.TypeApp, "Reconciliation already in flight, trigger dropped")
		return false, nil
	}
	defer r.reconciling.Store(false)

	id := r.resolver.Resolve()
	applicable, err := r.records.ListApplicable(ctx, id)
	if err != nil {
		return false, err
	}

	r.surface.ClearBars()

	bar := &BarModel{
		OnSave:    r.saveHandler(),
		OnReorder: r.reorderHandler(id),
	}
	for _, entry := range applicable.Global {
		bar.Buttons = append(bar.Buttons, r.control(entry))
	}
	for _, entry := range applicable.Channel {
		bar.Buttons = append(bar.Buttons, r.control(entry))
	}

	if !r.surface.Render(bar) {
		r.logger.Debugf(providers.TypeApp, "Composer not present, bar not rendered")
		return false, nil
	}
	return true, nil
}

// Reset clears the in-flight guard; called when the frame lifecycle
// restarts so a rebuild abandoned by teardown cannot wedge the next one.
func (r *Reconciler) Reset() {
	r.reconciling.Store(false)
}

func (r *Reconciler) control(entry services.Entry) *Control {
	snip := entry.Snippet
	label := snip.Caption
	if len(snip.Alias) > 0 {
		label = models.Caption(snip.Alias)
	}
	content := models.CloneSegments(snip.Content)
	key, index := entry.BucketKey, entry.Index

	return &Control{
		Label:    label,
		IsGlobal: entry.IsGlobal,
		OnClick: func() {
			r.bridge.InsertSegments(content)
		},
		Actions: ContextActions{
			Delete: r.mutation(func(ctx context.Context) (bool, error) {
				return r.records.DeleteSnippet(ctx, key, index)
			}),
			MoveToGlobal: r.mutation(func(ctx context.Context) (bool, error) {
				return r.records.MoveSnippet(ctx, key, index, true)
			}),
			MoveToChannel: r.mutation(func(ctx context.Context) (bool, error) {
				return r.records.MoveSnippet(ctx, key, index, false)
			}),
			SetAlias: func(alias []models.Segment) {
				r.mutation(func(ctx context.Context) (bool, error) {
					return r.records.SetAlias(ctx, key, index, alias)
				})()
			},
			ClearAlias: r.mutation(func(ctx context.Context) (bool, error) {
				return r.records.ClearAlias(ctx, key, index)
			}),
		},
	}
}

func (r *Reconciler) saveHandler() func(toGlobal bool) {
	return func(toGlobal bool) {
		content := r.bridge.ReadCurrentInput()
		if len(content) == 0 {
			return
		}
		r.mutation(func(ctx context.Context) (bool, error) {
			return r.records.SaveSnippet(ctx, content, toGlobal)
		})()
	}
}

func (r *Reconciler) reorderHandler(id *identity.ChannelIdentity) func(isGlobal bool, oldIndex, newIndex int) {
	return func(isGlobal bool, oldIndex, newIndex int) {
		key := models.GlobalKey
		if !isGlobal {
			if id == nil {
				return
			}
			key = id.Name
		}
		r.mutation(func(ctx context.Context) (bool, error) {
			return r.records.Reorder(ctx, key, oldIndex, newIndex)
		})()
	}
}

// mutation wraps a store operation into a UI callback: run it, leave
// visible state alone on failure, re-trigger reconciliation on success.
func (r *Reconciler) mutation(op func(ctx context.Context) (bool, error)) func() {
	return func() {
		ctx := context.Background()
		ok, err := op(ctx)
		if err != nil {
			r.logger.Warnf(providers.TypeApp, "Store operation failed: %s", err)
			return
		}
		if !ok {
			return
		}
		if _, err := r.Trigger(ctx); err != nil {
			r.logger.Warnf(providers.TypeApp, "Rebuild after mutation failed: %s", err)
		}
	}
}
