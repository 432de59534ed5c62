package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"chathelper/internal/models"
	"chathelper/internal/persist"
	"chathelper/internal/testutil"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticClients int

func (s staticClients) ClientCount() int { return int(s) }

func seededStore(t *testing.T) persist.FileStoreInterface {
	t.Helper()
	fs := persist.NewFileStore(&testutil.MockCompressor{}, &testutil.MockLogger{})
	store := models.NewStore()
	store.Global = append(store.Global, models.NewSnippet([]models.Segment{models.TextSegment("g")}))
	b := store.Claim("UCabc", "")
	b.Snippets = append(b.Snippets, models.NewSnippet([]models.Segment{models.TextSegment("c")}))
	data, err := models.EncodeStore(store)
	require.NoError(t, err)
	_, err = fs.Set(context.Background(), models.StoreKey, data, 0)
	require.NoError(t, err)
	return fs
}

func TestHealthController(t *testing.T) {
	hc := NewHealthController(seededStore(t), staticClients(3))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	hc.Health(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.EqualValues(t, 1, resp["buckets"])
	assert.EqualValues(t, 2, resp["snippets"])
	assert.EqualValues(t, 3, resp["clients"])
}

func TestHealthController_MethodNotAllowed(t *testing.T) {
	hc := NewHealthController(seededStore(t), staticClients(0))

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()
	hc.Health(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
