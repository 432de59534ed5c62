package reconciler

import "chathelper/internal/models"

// ContextActions are the secondary (context-menu) operations exposed on one
// snippet button. Each mutates the store and re-triggers reconciliation.
type ContextActions struct {
	Delete        func()
	MoveToGlobal  func()
	MoveToChannel func()
	SetAlias      func(alias []models.Segment)
	ClearAlias    func()
}

// Control is one rendered snippet button. OnClick inserts the snippet's
// content (never its alias) into the composer.
type Control struct {
	Label    string
	IsGlobal bool
	OnClick  func()
	Actions  ContextActions
}

// BarModel is the full desired state of the button bar for one rebuild.
// OnReorder reports a completed drag: the surface computes the moved
// button's old and new position from final display order; reorders never
// cross the global/channel boundary.
type BarModel struct {
	Buttons   []*Control
	OnSave    func(toGlobal bool)
	OnReorder func(isGlobal bool, oldIndex, newIndex int)
}

// Surface is the host-document rendering target for the button bar.
type Surface interface {
	// ClearBars removes every existing bar. More than one can exist after
	// an earlier race, so removal is not first-match.
	ClearBars()
	// Render attaches a fresh bar after the composer's toolbar. False when
	// the composer is not currently present.
	Render(bar *BarModel) bool
}
