package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/bruteguard"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		hot         = flag.Int("hot", 100, "concurrent failures recorded against one identifier")
		clients     = flag.Int("clients", 10000, "distinct identifiers for the spread phases")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per spread phase (record + validate)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "bfp-load", "key prefix")
	)
	flag.Parse()

	if *hot <= 0 || *clients <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "hot, clients, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := bruteguard.DefaultConfig()
	cfg.Cache.KeyPrefix = *prefix
	// Keep every identifier below the ban limit so the spread phases measure the allow path.
	cfg.Protection.BanLimit = 1 << 30
	cfg.Protection.SoftLimit = 1 << 29
	cfg.Store.OperationTimeout = 0
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := bruteguard.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	if err := runHotPhase(ctx, engine, *hot); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ids := make([]string, *clients)
	for i := range ids {
		ids[i] = fmt.Sprintf("10.%d.%d.%d", (i>>16)&0xFF, (i>>8)&0xFF, i&0xFF)
	}

	recordStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand) error {
		_, err := engine.RecordFailure(ctx, ids[r.Intn(len(ids))])
		return err
	})
	validateStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand) error {
		_, err := engine.Validate(ctx, ids[r.Intn(len(ids))])
		return err
	})

	fmt.Println("---- results ----")
	printStats("record_failure", recordStats)
	printStats("validate", validateStats)
}

// runHotPhase records n failures concurrently on one identifier and checks that none
// was lost.
func runHotPhase(ctx context.Context, engine *bruteguard.Engine, n int) error {
	const id = "203.0.113.1"
	if err := engine.RecordSuccess(ctx, id); err != nil {
		return fmt.Errorf("reset hot identifier: %w", err)
	}

	var (
		wg       sync.WaitGroup
		failures int64
	)
	start := time.Now()
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := engine.RecordFailure(ctx, id); err != nil {
				atomic.AddInt64(&failures, 1)
			}
		}()
	}
	wg.Wait()

	rec, err := engine.Inspect(ctx, id)
	if err != nil {
		return fmt.Errorf("inspect hot identifier: %w", err)
	}
	want := n - int(failures)
	fmt.Printf("hot: failures=%d errors=%d counted=%d in %s\n", n, failures, rec.Attempts, time.Since(start).Round(time.Millisecond))
	if rec.Attempts != want {
		return fmt.Errorf("lost updates: recorded %d failures, counter holds %d", want, rec.Attempts)
	}
	return nil
}

func runPhase(ops, concurrency int, seed int64, op func(*rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
