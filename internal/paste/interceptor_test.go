package paste

import (
	"testing"

	"chathelper/internal/models"
	"chathelper/internal/testutil"

	"github.com/stretchr/testify/assert"
)

type recordingInserter struct {
	entered  chan struct{}
	release  chan struct{}
	inserted [][]models.Segment
}

func (r *recordingInserter) InsertSegments(segments []models.Segment) {
	r.inserted = append(r.inserted, segments)
	if r.entered != nil {
		close(r.entered)
		<-r.release
	}
}

type staticNames []string

func (s staticNames) Names() []string { return s }

func enabled() bool  { return true }
func disabled() bool { return false }

func TestInterceptor_ReplacesStampText(t *testing.T) {
	inserter := &recordingInserter{}
	in := NewInterceptor(inserter, staticNames{"happycat"}, enabled, &testutil.MockLogger{})

	got := in.HandlePaste("hihappycatbye")
	assert.Equal(t, OutcomeReplaced, got)
	assert.Equal(t, [][]models.Segment{{
		models.TextSegment("hi"),
		models.StampSegment("happycat", ""),
		models.TextSegment("bye"),
	}}, inserter.inserted)
}

func TestInterceptor_NoStampsPassesThrough(t *testing.T) {
	inserter := &recordingInserter{}
	in := NewInterceptor(inserter, staticNames{"happycat"}, enabled, &testutil.MockLogger{})

	assert.Equal(t, OutcomeDefault, in.HandlePaste("just words"))
	assert.Empty(t, inserter.inserted)
}

func TestInterceptor_EmptyPayloadPassesThrough(t *testing.T) {
	in := NewInterceptor(&recordingInserter{}, staticNames{"happycat"}, enabled, &testutil.MockLogger{})
	assert.Equal(t, OutcomeDefault, in.HandlePaste(""))
}

func TestInterceptor_DisabledPassesThrough(t *testing.T) {
	inserter := &recordingInserter{}
	in := NewInterceptor(inserter, staticNames{"happycat"}, disabled, &testutil.MockLogger{})

	assert.Equal(t, OutcomeDefault, in.HandlePaste("happycat"))
	assert.Empty(t, inserter.inserted)
}

func TestInterceptor_ConcurrentPasteDropped(t *testing.T) {
	inserter := &recordingInserter{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	in := NewInterceptor(inserter, staticNames{"happycat"}, enabled, &testutil.MockLogger{})

	first := make(chan Outcome, 1)
	go func() {
		first <- in.HandlePaste("happycat")
	}()
	<-inserter.entered

	assert.Equal(t, OutcomeDropped, in.HandlePaste("happycat again"))

	close(inserter.release)
	assert.Equal(t, OutcomeReplaced, <-first)
	assert.Len(t, inserter.inserted, 1, "dropped paste inserted nothing")
}
