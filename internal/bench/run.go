package bench

import (
	"context"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"
)

// Run drives cfg.Clients hosts against the WebSocket endpoint at url for
// cfg.Duration and returns the report. Client failures are counted in the
// report, not returned.
func Run(ctx context.Context, url string, cfg Config, logger *slog.Logger) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	samplesCh := make(chan time.Duration, sampleBuffer(cfg.Clients))
	var samples []time.Duration
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for rtt := range samplesCh {
			samples = append(samples, rtt)
		}
	}()

	st := &stats{samples: samplesCh}

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < cfg.Clients; i++ {
		c := &client{id: i, cfg: cfg, url: url, stats: st}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.run(ctx); err != nil {
				st.errs.totalErrors.Add(1)
				logger.Debug("client stopped", "client", c.id, "error", err)
			}
		}()
	}
	wg.Wait()
	close(samplesCh)
	<-collectorDone
	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()

	slices.Sort(samples)
	report := buildReport(cfg, elapsed, samples, st, before, after, beforeMetrics, afterMetrics)
	return &report, nil
}

func sampleBuffer(clients int) int {
	return max(clients*4, 1024)
}
