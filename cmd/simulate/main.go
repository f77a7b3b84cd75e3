package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// simulate fires concurrent booking requests at the API, deliberately
// contending for the same therapist slots, and reports how many were
// accepted, rejected with conflicts, or failed. With the day lock working,
// the accepted count for any one slot is at most one.

type simConfig struct {
	apiBaseURL  string
	workers     int
	requests    int
	therapistID string
	patientID   string
	serviceID   string
	date        string
	slots       int
}

type metrics struct {
	total     int64
	created   int64
	conflicts int64
	errors    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (m *metrics) record(latency time.Duration, status int) {
	atomic.AddInt64(&m.total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.created, 1)
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		atomic.AddInt64(&m.conflicts, 1)
	default:
		atomic.AddInt64(&m.errors, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *metrics) percentile(p int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func main() {
	log.SetFlags(log.LstdFlags)

	cfg := simConfig{}
	flag.StringVar(&cfg.apiBaseURL, "api", "http://localhost:8080", "API base URL")
	flag.IntVar(&cfg.workers, "workers", 16, "concurrent workers")
	flag.IntVar(&cfg.requests, "requests", 200, "total booking requests")
	flag.StringVar(&cfg.therapistID, "therapist", "", "therapist UUID to contend on (required)")
	flag.StringVar(&cfg.patientID, "patient", "", "patient UUID (required)")
	flag.StringVar(&cfg.serviceID, "service", "", "service UUID (required)")
	flag.StringVar(&cfg.date, "date", time.Now().AddDate(0, 0, 7).Format("2006-01-02"), "target date")
	flag.IntVar(&cfg.slots, "slots", 4, "number of distinct start times to contend on")
	flag.Parse()

	if cfg.therapistID == "" || cfg.patientID == "" || cfg.serviceID == "" {
		log.Fatal("-therapist, -patient and -service are required")
	}

	// A handful of grid start times; many workers race for each.
	times := make([]string, 0, cfg.slots)
	for i := 0; i < cfg.slots; i++ {
		times = append(times, fmt.Sprintf("%02d:00", 9+i))
	}

	log.Printf("simulating %d bookings with %d workers against %d slots on %s",
		cfg.requests, cfg.workers, cfg.slots, cfg.date)

	client := &http.Client{Timeout: 10 * time.Second}
	m := &metrics{}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < cfg.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				bookOnce(client, cfg, times[rand.Intn(len(times))], m)
			}
		}()
	}

	start := time.Now()
	for i := 0; i < cfg.requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	log.Printf("done in %s", elapsed)
	log.Printf("total=%d created=%d conflicts=%d errors=%d",
		atomic.LoadInt64(&m.total), atomic.LoadInt64(&m.created),
		atomic.LoadInt64(&m.conflicts), atomic.LoadInt64(&m.errors))
	log.Printf("latency p50=%s p95=%s", m.percentile(50), m.percentile(95))

	if created := atomic.LoadInt64(&m.created); created > int64(cfg.slots) {
		log.Printf("WARNING: %d sessions created for %d slots, double booking occurred", created, cfg.slots)
	}
}

func bookOnce(client *http.Client, cfg simConfig, hhmm string, m *metrics) {
	payload := map[string]any{
		"patient_id":       cfg.patientID,
		"therapist_id":     cfg.therapistID,
		"service_id":       cfg.serviceID,
		"date":             cfg.date,
		"time":             hhmm,
		"duration_minutes": 60,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("marshal payload: %v", err)
		return
	}

	start := time.Now()
	resp, err := client.Post(cfg.apiBaseURL+"/sessions", "application/json", bytes.NewReader(body))
	latency := time.Since(start)

	if err != nil {
		m.record(latency, 0)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	m.record(latency, resp.StatusCode)
}
