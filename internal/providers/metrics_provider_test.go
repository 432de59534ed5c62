package providers

import (
	"chathelper/internal/structures"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeStats struct {
	buckets  int
	snippets int
}

func (f *fakeStats) Buckets() int  { return f.buckets }
func (f *fakeStats) Snippets() int { return f.snippets }

func TestNewMetricsProvider_Disabled(t *testing.T) {
	conf := &structures.Config{Metrics: structures.MetricsConfig{Enabled: false}}
	m := NewMetricsProvider(conf, &fakeStats{})

	_, ok := m.(*noopMetrics)
	assert.True(t, ok)

	// noop must not panic
	m.IncRequestsTotal("/store", 200)
	m.ObserveRequestDuration("/store", time.Millisecond)
	m.IncCacheHits()
	m.IncCacheMisses()
	m.IncStorageOps("storage-get")
	m.IncStoreConflicts()
	m.ObservePersistenceDuration(time.Millisecond)
	m.SetConnectedClients(3)
}

func TestHttpStatusBucket(t *testing.T) {
	assert.Equal(t, "1xx", httpStatusBucket(100))
	assert.Equal(t, "2xx", httpStatusBucket(200))
	assert.Equal(t, "3xx", httpStatusBucket(301))
	assert.Equal(t, "4xx", httpStatusBucket(404))
	assert.Equal(t, "5xx", httpStatusBucket(500))
}
