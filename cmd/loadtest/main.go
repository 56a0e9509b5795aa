// loadtest replays one explain request against a running server at a fixed
// rate and reports latency percentiles.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/awmpietro/golang-trace-explainability-case/internal/transport/explaindto"
)

type sample struct {
	latency time.Duration
	status  int
	err     error
}

func main() {
	url := flag.String("url", "http://localhost:8080/v1/explain", "explain endpoint URL")
	runA := flag.String("run-a", "", "run A location as the server sees it (required)")
	runB := flag.String("run-b", "", "run B location as the server sees it (required)")
	catalog := flag.String("catalog", "", "decision-point catalog (DOT) sent with every request")
	rps := flag.Int("rps", 50, "target requests per second")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	workers := flag.Int("workers", 50, "number of concurrent workers")
	timeout := flag.Duration("timeout", 5*time.Second, "HTTP client timeout")
	maxP90 := flag.Duration("max-p90", 50*time.Millisecond, "P90 latency budget")
	flag.Parse()

	if *rps <= 0 || *duration <= 0 || *workers <= 0 {
		fmt.Fprintln(os.Stderr, "rps, duration and workers must be > 0")
		os.Exit(2)
	}

	req := explaindto.ExplainRequest{RunA: *runA, RunB: *runB}
	if err := req.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v (use -run-a and -run-b)\n", err)
		os.Exit(2)
	}
	if *catalog != "" {
		dot, err := os.ReadFile(*catalog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read catalog: %v\n", err)
			os.Exit(2)
		}
		req.CatalogDOT = string(dot)
	}
	body, err := json.Marshal(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal payload: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: *timeout}
	jobs := make(chan struct{}, *workers)

	var wg sync.WaitGroup
	var mu sync.Mutex
	samples := make([]sample, 0, *rps*int(duration.Seconds())+1)
	record := func(s sample) {
		mu.Lock()
		samples = append(samples, s)
		mu.Unlock()
	}

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				record(post(client, *url, body))
			}
		}()
	}

	ticker := time.NewTicker(time.Second / time.Duration(*rps))
	deadline := time.Now().Add(*duration)
	for now := range ticker.C {
		if now.After(deadline) {
			break
		}
		jobs <- struct{}{}
	}
	ticker.Stop()
	close(jobs)
	wg.Wait()

	if len(samples) == 0 {
		fmt.Fprintln(os.Stderr, "no requests executed")
		os.Exit(1)
	}

	latencies := make([]time.Duration, 0, len(samples))
	var ok, non2xx, errs int
	for _, s := range samples {
		latencies = append(latencies, s.latency)
		switch {
		case s.err != nil:
			errs++
		case s.status >= 200 && s.status < 300:
			ok++
		default:
			non2xx++
		}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	p90 := percentile(latencies, 90)
	achieved := float64(len(latencies)) / duration.Seconds()

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle("Load test")
	t.AppendRows([]table.Row{
		{"target_rps", *rps},
		{"achieved_rps", fmt.Sprintf("%.2f", achieved)},
		{"requests", len(latencies)},
		{"2xx", ok},
		{"non_2xx", non2xx},
		{"errors", errs},
		{"avg_ms", fmt.Sprintf("%.3f", ms(average(latencies)))},
		{"p50_ms", fmt.Sprintf("%.3f", ms(percentile(latencies, 50)))},
		{"p90_ms", fmt.Sprintf("%.3f", ms(p90))},
		{"p99_ms", fmt.Sprintf("%.3f", ms(percentile(latencies, 99)))},
	})
	fmt.Println(t.Render())

	if achieved >= float64(*rps)*0.98 && p90 < *maxP90 && errs == 0 && non2xx == 0 {
		fmt.Printf("PASS: %d rps with P90 under %s\n", *rps, *maxP90)
		return
	}
	fmt.Println("FAIL: target missed or requests failed")
	os.Exit(1)
}

func post(client *http.Client, url string, body []byte) sample {
	start := time.Now()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return sample{latency: time.Since(start), err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	lat := time.Since(start)
	if err != nil {
		return sample{latency: lat, err: err}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return sample{latency: lat, status: resp.StatusCode}
}

func percentile(items []time.Duration, p int) time.Duration {
	if len(items) == 0 {
		return 0
	}
	return items[(len(items)-1)*p/100]
}

func average(items []time.Duration) time.Duration {
	if len(items) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range items {
		total += d
	}
	return total / time.Duration(len(items))
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
