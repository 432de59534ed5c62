package controllers

import (
	"fmt"
	"net/http"
	"time"

	"chathelper/internal/persist"

	json "github.com/goccy/go-json"
)

type HealthController struct {
	store     persist.FileStoreInterface
	clients   ClientCounter
	startTime time.Time
}

// ClientCounter reports how many protocol clients are connected.
type ClientCounter interface {
	ClientCount() int
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Buckets       int     `json:"buckets"`
	Snippets      int     `json:"snippets"`
	Clients       int     `json:"clients"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		Buckets:       hc.store.Buckets(),
		Snippets:      hc.store.Snippets(),
		Clients:       hc.clients.ClientCount(),
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(store persist.FileStoreInterface, clients ClientCounter) *HealthController {
	return &HealthController{
		store:     store,
		clients:   clients,
		startTime: time.Now(),
	}
}
