package paste

import (
	"sync/atomic"

	"chathelper/internal/models"
	"chathelper/internal/providers"
)

// Outcome says what the interceptor did with one paste event, which in turn
// tells the event handler whether to suppress default paste behavior.
type Outcome uint8

const (
	// OutcomeDefault lets the widget's normal paste proceed untouched.
	OutcomeDefault Outcome = iota
	// OutcomeReplaced means default paste was cancelled and the tokens
	// were replayed through the composer.
	OutcomeReplaced
	// OutcomeDropped means default paste was cancelled and nothing was
	// inserted (a paste arrived while another was still processing).
	OutcomeDropped
)

// Inserter is the slice of the composer bridge the interceptor needs.
type Inserter interface {
	InsertSegments(segments []models.Segment)
}

// StampNames supplies the current set of known stamp names. It is refreshed
// by the picker preload, independently of the record store.
type StampNames interface {
	Names() []string
}

// Interceptor turns pasted text containing known stamp names into a
// sequence of text insertions and stamp activations. Only one paste is
// processed at a time; a concurrent one is dropped, not queued — paste is
// a direct, repeatable user action.
type Interceptor struct {
	inserter Inserter
	names    StampNames
	enabled  func() bool
	logger   providers.Logger

	processing atomic.Bool
}

func NewInterceptor(inserter Inserter, names StampNames, enabled func() bool, logger providers.Logger) *Interceptor {
	return &Interceptor{
		inserter: inserter,
		names:    names,
		enabled:  enabled,
		logger:   logger,
	}
}

// HandlePaste processes one paste event's plain-text payload.
func (in *Interceptor) HandlePaste(text string) Outcome {
	if text == "" || !in.enabled() {
		return OutcomeDefault
	}
	if !in.processing.CompareAndSwap(false, true) {
		in.logger.Debugf(providers.TypeApp, "Paste dropped, previous one still processing")
		return OutcomeDropped
	}
	defer in.processing.Store(false)

	tokens, stamps := Tokenize(text, in.names.Names())
	if stamps == 0 {
		return OutcomeDefault
	}

	segments := make([]models.Segment, 0, len(tokens))
	for _, tok := range tokens {
		if tok.IsStamp() {
			segments = append(segments, models.StampSegment(tok.Stamp, ""))
		} else {
			segments = append(segments, models.TextSegment(tok.Text))
		}
	}
	in.inserter.InsertSegments(segments)
	return OutcomeReplaced
}
