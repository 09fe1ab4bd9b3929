// Benchmark drives a running provenance API with synthetic traffic: it
// registers products, walks each one through a chain of transfers and
// repairs, and reports throughput and latency percentiles.
package main

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/mr-tron/base58"
)

const defaultBaseURL = "http://localhost:8080"

type Config struct {
	BaseURL     string
	Products    int           // Number of products to create
	ChainLength int           // Transfers per product
	Concurrency int           // Number of concurrent workers
	Timeout     time.Duration // Timeout per request
}

type wallet struct {
	address string
	private ed25519.PrivateKey
	token   string
}

func newWallet() (*wallet, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &wallet{
		address: base58.Encode(pub),
		private: priv,
	}, nil
}

func (w *wallet) sign(message string) string {
	return base58.Encode(ed25519.Sign(w.private, []byte(message)))
}

type client struct {
	http    *http.Client
	baseURL string
}

func (c *client) post(path, token string, body, out interface{}) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (c *client) login(w *wallet) error {
	message := fmt.Sprintf("benchmark login %d", time.Now().UnixNano())
	var resp struct {
		Token string `json:"token"`
	}
	status, err := c.post("/api/v1/auth/login", "", map[string]string{
		"wallet_address": w.address,
		"message":        message,
		"signature":      w.sign(message),
	}, &resp)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("login returned %d", status)
	}
	w.token = resp.Token
	return nil
}

type sample struct {
	duration time.Duration
	ok       bool
}

type stats struct {
	mu      sync.Mutex
	samples []sample
}

func (s *stats) record(d time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample{duration: d, ok: ok})
}

func (s *stats) report(elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.samples)
	if total == 0 {
		fmt.Println("No requests issued")
		return
	}

	var succeeded int
	durations := make([]time.Duration, 0, total)
	for _, sm := range s.samples {
		if sm.ok {
			succeeded++
		}
		durations = append(durations, sm.duration)
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	percentile := func(p float64) time.Duration {
		idx := int(p * float64(total-1))
		return durations[idx]
	}

	fmt.Printf("Requests:   %d (%s succeeded)\n", total, percentageString(succeeded, total))
	fmt.Printf("Throughput: %s\n", formatRate(total, elapsed))
	fmt.Printf("Latency:    p50=%s p90=%s p99=%s max=%s\n",
		percentile(0.50).Round(time.Millisecond),
		percentile(0.90).Round(time.Millisecond),
		percentile(0.99).Round(time.Millisecond),
		durations[total-1].Round(time.Millisecond),
	)
}

// runProduct carries one product through its whole lifecycle: create,
// a chain of transfers, one repair per hop.
func runProduct(c *client, productID string, owners []*wallet, st *stats) error {
	timed := func(path, token string, body interface{}, want int) error {
		start := time.Now()
		status, err := c.post(path, token, body, nil)
		st.record(time.Since(start), err == nil && status == want)
		if err != nil {
			return err
		}
		if status != want {
			return fmt.Errorf("%s returned %d, want %d", path, status, want)
		}
		return nil
	}

	if err := timed("/api/v1/products", owners[0].token, map[string]string{
		"product_id":   productID,
		"metadata":     "benchmark batch",
		"manufacturer": owners[0].address,
	}, http.StatusCreated); err != nil {
		return err
	}

	for i := 1; i < len(owners); i++ {
		if err := timed("/api/v1/products/"+productID+"/transfer", owners[i-1].token, map[string]string{
			"current_owner": owners[i-1].address,
			"next_owner":    owners[i].address,
		}, http.StatusOK); err != nil {
			return err
		}

		if err := timed("/api/v1/products/"+productID+"/repair", owners[i].token, map[string]string{
			"owner":           owners[i].address,
			"repair_metadata": "routine service",
		}, http.StatusOK); err != nil {
			return err
		}
	}

	return nil
}

func run(cfg Config) error {
	c := &client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
	}

	// One wallet per hop in the ownership chain, shared across products
	owners := make([]*wallet, cfg.ChainLength+1)
	for i := range owners {
		w, err := newWallet()
		if err != nil {
			return err
		}
		if err := c.login(w); err != nil {
			return fmt.Errorf("failed to login wallet %d: %w", i, err)
		}
		owners[i] = w
	}

	st := &stats{}
	jobs := make(chan string)
	var wg sync.WaitGroup
	var failures sync.Map

	start := time.Now()
	for range cfg.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for productID := range jobs {
				if err := runProduct(c, productID, owners, st); err != nil {
					failures.Store(productID, err)
				}
			}
		}()
	}

	runID := time.Now().UnixNano()
	for i := range cfg.Products {
		jobs <- fmt.Sprintf("BENCH-%d-%d", runID, i)
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	var failed int
	failures.Range(func(key, value any) bool {
		failed++
		fmt.Fprintf(os.Stderr, "product %v failed: %v\n", key, value)
		return true
	})

	fmt.Printf("Products:   %d (%d failed), chain length %d, %d workers, %s elapsed\n",
		cfg.Products, failed, cfg.ChainLength, cfg.Concurrency, elapsed.Round(time.Millisecond))
	st.report(elapsed)

	if failed > 0 {
		return fmt.Errorf("%d of %d products failed", failed, cfg.Products)
	}
	return nil
}

func main() {
	cfg := Config{}
	flag.StringVar(&cfg.BaseURL, "url", defaultBaseURL, "Base URL of the provenance API")
	flag.IntVar(&cfg.Products, "products", 100, "Number of products to create")
	flag.IntVar(&cfg.ChainLength, "chain", 3, "Number of ownership transfers per product")
	flag.IntVar(&cfg.Concurrency, "concurrency", 8, "Number of concurrent workers")
	flag.DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "Timeout per request")
	flag.Parse()

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "benchmark failed: %v\n", err)
		os.Exit(1)
	}
}
