package stamps

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"chathelper/internal/providers"
)

// Picker is the host widget's stamp picker panel. Tabs gate lazily-loaded
// stamp sets; a tab's stamps only materialize after the tab is activated
// and the panel has had time to settle.
type Picker interface {
	Open() bool
	Close()
	CategoryTabs() []string
	ActivateTab(name string) bool
	VisibleStampNames() []string
}

// Clock abstracts the settle waits between picker interactions so tests
// run without real delays.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func NewClock() Clock { return realClock{} }

// Stage names the steps of the preload protocol, in execution order.
type Stage string

const (
	StageOpen    Stage = "open"
	StageSettle  Stage = "settle"
	StageTabWalk Stage = "tab-walk"
	StageCollect Stage = "collect"
	StageClose   Stage = "close"
)

var ErrPickerUnavailable = errors.New("stamp picker unavailable")

const (
	defaultOpenSettle = 300 * time.Millisecond
	defaultTabSettle  = 200 * time.Millisecond
)

// Preloader forces the picker's lazily-loaded stamp sets to materialize by
// opening the panel and walking every category tab, collecting the stamp
// names it sees along the way. The collected set feeds the paste
// interceptor. Runs at most once per frame lifecycle; Reset rearms it.
type Preloader struct {
	picker Picker
	clock  Clock
	logger providers.Logger

	openSettle time.Duration
	tabSettle  time.Duration

	mu    sync.Mutex
	done  bool
	names map[string]struct{}
}

func NewPreloader(picker Picker, clock Clock, logger providers.Logger) *Preloader {
	return &Preloader{
		picker:     picker,
		clock:      clock,
		logger:     logger,
		openSettle: defaultOpenSettle,
		tabSettle:  defaultTabSettle,
		names:      map[string]struct{}{},
	}
}

// Run executes the protocol: open, settle, walk every tab collecting names
// after each settle, close. A picker that will not open is left for the
// next lifecycle trigger.
func (p *Preloader) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	p.logger.Debugf(providers.TypeApp, "Stamp preload stage %s", StageOpen)
	if !p.picker.Open() {
		return ErrPickerUnavailable
	}
	defer func() {
		p.logger.Debugf(providers.TypeApp, "Stamp preload stage %s", StageClose)
		p.picker.Close()
	}()

	p.logger.Debugf(providers.TypeApp, "Stamp preload stage %s", StageSettle)
	if err := p.clock.Sleep(ctx, p.openSettle); err != nil {
		return err
	}
	p.collect()

	p.logger.Debugf(providers.TypeApp, "Stamp preload stage %s", StageTabWalk)
	for _, tab := range p.picker.CategoryTabs() {
		if !p.picker.ActivateTab(tab) {
			p.logger.Debugf(providers.TypeApp, "Category tab %q not activatable, skipping", tab)
			continue
		}
		if err := p.clock.Sleep(ctx, p.tabSettle); err != nil {
			return err
		}
		p.collect()
	}

	p.mu.Lock()
	p.done = true
	p.mu.Unlock()
	return nil
}

func (p *Preloader) collect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, name := range p.picker.VisibleStampNames() {
		if name != "" {
			p.names[name] = struct{}{}
		}
	}
}

// Names returns the collected stamp names, sorted for determinism.
func (p *Preloader) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.names))
	for name := range p.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (p *Preloader) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Reset rearms the preloader and drops the collected set; called when the
// frame lifecycle restarts.
func (p *Preloader) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = false
	p.names = map[string]struct{}{}
}
