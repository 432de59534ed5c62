package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	baseURL      = "http://127.0.0.1:18090"
	numWorkers   = 50
	testDuration = 10 * time.Second
	numChannels  = 20
	setRetries   = 5
)

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

type protoMessage struct {
	Source    string          `json:"source,omitempty"`
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Key       string          `json:"key,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Revision  uint64          `json:"revision,omitempty"`
	Success   bool            `json:"success,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// wsWorker drives one protocol connection synchronously: send a request,
// read frames until its response arrives (broadcasts are skipped).
type wsWorker struct {
	conn *websocket.Conn
}

func dialWorker() (*wsWorker, error) {
	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return &wsWorker{conn: conn}, nil
}

func (w *wsWorker) roundTrip(msg *protoMessage) (*protoMessage, error) {
	msg.Source = "page"
	msg.RequestID = uuid.NewString()
	if err := w.conn.WriteJSON(msg); err != nil {
		return nil, err
	}
	for {
		var resp protoMessage
		if err := w.conn.ReadJSON(&resp); err != nil {
			return nil, err
		}
		if resp.RequestID == msg.RequestID {
			return &resp, nil
		}
	}
}

func (w *wsWorker) doGet() result {
	start := time.Now()
	resp, err := w.roundTrip(&protoMessage{Type: "storage-get", Key: "chatData"})
	return result{
		endpoint: "ws storage-get",
		latency:  time.Since(start),
		err:      err != nil || resp.Error != "",
	}
}

// doSet runs one full read-modify-write: fetch the store, append a
// snippet to a random channel bucket, write back with the fetched
// revision, retrying on conflict like a real client.
func (w *wsWorker) doSet(rng *rand.Rand) result {
	start := time.Now()
	failed := true
	for attempt := 0; attempt < setRetries; attempt++ {
		resp, err := w.roundTrip(&protoMessage{Type: "storage-get", Key: "chatData"})
		if err != nil || resp.Error != "" {
			break
		}
		doc := mutateStore(resp.Data, rng)
		set, err := w.roundTrip(&protoMessage{
			Type:     "storage-set",
			Key:      "chatData",
			Value:    doc,
			Revision: resp.Revision,
		})
		if err != nil {
			break
		}
		if set.Success {
			failed = false
			break
		}
		if set.Error != "revision conflict" {
			break
		}
	}
	return result{endpoint: "ws storage-set", latency: time.Since(start), err: failed}
}

type storeDoc struct {
	Version  int          `json:"version"`
	Global   []snippetDoc `json:"global"`
	Channels []bucketDoc  `json:"channels"`
}

type bucketDoc struct {
	Name    string       `json:"name"`
	Href    string       `json:"href"`
	Aliases []string     `json:"aliases"`
	Data    []snippetDoc `json:"data"`
}

type snippetDoc struct {
	Timestamp time.Time `json:"timestamp"`
	Content   []string  `json:"content"`
	Caption   string    `json:"caption"`
}

func mutateStore(data []byte, rng *rand.Rand) json.RawMessage {
	var doc storeDoc
	_ = json.Unmarshal(data, &doc)
	doc.Version = 2
	if doc.Global == nil {
		doc.Global = []snippetDoc{}
	}

	name := fmt.Sprintf("UCload%02d", rng.Intn(numChannels))
	text := fmt.Sprintf("snippet %d", rng.Intn(1_000_000))
	snip := snippetDoc{Timestamp: time.Now().UTC(), Content: []string{text}, Caption: text}

	placed := false
	for i := range doc.Channels {
		if doc.Channels[i].Name == name {
			doc.Channels[i].Data = append(doc.Channels[i].Data, snip)
			placed = true
			break
		}
	}
	if !placed {
		doc.Channels = append(doc.Channels, bucketDoc{
			Name:    name,
			Href:    "https://example.com/channel/" + name,
			Aliases: []string{name},
			Data:    []snippetDoc{snip},
		})
	}

	out, _ := json.Marshal(doc)
	return out
}

func doHTTPGet(path string) result {
	start := time.Now()
	resp, err := httpClient.Get(baseURL + path)
	r := result{endpoint: "GET " + path, latency: time.Since(start)}
	if err != nil {
		r.err = true
		return r
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	r.err = resp.StatusCode != http.StatusOK
	return r
}

func main() {
	fmt.Println("=== chathelperd Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s | Channels: %d\n\n", numWorkers, testDuration, numChannels)

	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	fmt.Println("\n--- Phase 1: Seeding snippets (storage-set) ---")
	runPhase(testDuration, func(w *wsWorker, rng *rand.Rand) result {
		return w.doSet(rng)
	})

	fmt.Println("\n--- Phase 2: Mixed load (30% set, 50% get, 20% HTTP) ---")
	runPhase(testDuration, func(w *wsWorker, rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.30:
			return w.doSet(rng)
		case r < 0.80:
			return w.doGet()
		case r < 0.90:
			return doHTTPGet("/store")
		case r < 0.95:
			return doHTTPGet("/settings")
		default:
			return doHTTPGet("/health")
		}
	})

	fmt.Println("\n--- Phase 3: Read-heavy load (5% set, 75% get, 20% HTTP) ---")
	runPhase(testDuration, func(w *wsWorker, rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.05:
			return w.doSet(rng)
		case r < 0.80:
			return w.doGet()
		case r < 0.95:
			return doHTTPGet("/store")
		default:
			return doHTTPGet("/health")
		}
	})
}

func runPhase(duration time.Duration, workFn func(w *wsWorker, rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			worker, err := dialWorker()
			if err != nil {
				fmt.Printf("  worker dial failed: %v\n", err)
				return
			}
			defer worker.conn.Close()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(worker, rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		avg := avgDuration(s.latencies)
		p50 := percentile(s.latencies, 0.50)
		p95 := percentile(s.latencies, 0.95)
		p99 := percentile(s.latencies, 0.99)

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, fmtDur(avg), fmtDur(p50), fmtDur(p95), fmtDur(p99))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + strings.Repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func avgDuration(latencies []time.Duration) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	return sum / time.Duration(len(latencies))
}

func percentile(latencies []time.Duration, p float64) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	idx := int(float64(len(latencies)-1) * p)
	return latencies[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
}
