package controllers

import (
	"net/http"

	"chathelper/internal/persist"
	"chathelper/internal/providers"

	json "github.com/goccy/go-json"
)

// ApiController serves the read-only inspection endpoints. Responses go
// through the response cache; staleness is bounded by the cache TTL.
type ApiController struct {
	logger providers.Logger
	store  persist.FileStoreInterface
	cache  providers.CacheProviderInterface
}

func NewApiController(logger providers.Logger, store persist.FileStoreInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger: logger,
		store:  store,
		cache:  cache,
	}
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (ac *ApiController) GetStore(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, "api:store", func() (any, error) {
		return ac.store.StoreSnapshot()
	})
}

func (ac *ApiController) GetSettings(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, "api:settings", func() (any, error) {
		return ac.store.CurrentSettings(), nil
	})
}
