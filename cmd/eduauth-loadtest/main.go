package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	eduAuth "github.com/MrEthical07/eduAuth"
	"github.com/MrEthical07/eduAuth/authtest"
	"github.com/MrEthical07/eduAuth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		clients     = flag.Int("clients", 200, "number of independent client sessions")
		concurrency = flag.Int("concurrency", 32, "number of concurrent workers")
		ops         = flag.Int("ops", 5000, "profile refreshes in the refresh phase")
		apiURL      = flag.String("api-url", "", "API base URL; if empty, an in-process stub API is used")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "eduauth-load", "session key prefix")
	)
	flag.Parse()

	if *clients <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "clients, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	base := *apiURL
	if base == "" {
		api, err := authtest.New()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start stub api: %v\n", err)
			os.Exit(1)
		}
		ts := httptest.NewServer(api.Handler())
		defer ts.Close()
		base = ts.URL + "/api"
		fmt.Printf("using stub api at %s\n", base)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	var rdb redis.UniversalClient
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}
	rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer rdb.Close()

	// One shared HTTP transport, as a host process would have.
	httpClient := &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: *concurrency}}

	fmt.Printf("building %d clients...\n", *clients)
	pool := make([]*eduAuth.Client, 0, *clients)
	for i := 0; i < *clients; i++ {
		cfg := eduAuth.DefaultConfig()
		cfg.API.BaseURL = base
		cfg.Storage.Backend = eduAuth.StorageRedis
		cfg.Storage.RedisPrefix = fmt.Sprintf("%s:%d", *prefix, i)

		c, err := eduAuth.New().WithConfig(cfg).WithRedis(rdb).WithHTTPClient(httpClient).Build(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "build client %d: %v\n", i, err)
			os.Exit(1)
		}
		pool = append(pool, c)
	}
	defer func() {
		for _, c := range pool {
			_ = c.Close()
		}
	}()

	loginStats := runPhase(len(pool), *concurrency, func(i int) error {
		_, err := pool[i].Login(ctx, eduAuth.LoginInput{Email: authtest.DemoEmail, Password: authtest.DemoPassword})
		return err
	})
	refreshStats := runPhase(*ops, *concurrency, func(i int) error {
		_, err := pool[i%len(pool)].Me(ctx)
		return err
	})
	rehydrateStats := runPhase(len(pool), *concurrency, func(i int) error {
		cfg := pool[i].Config()
		storage := session.NewRedisStorage(rdb, cfg.Storage.RedisPrefix, 0)
		_, err := session.NewPersistence(storage, cfg.Storage.SnapshotKey, "").Snapshot(ctx)
		return err
	})

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("me", refreshStats)
	printStats("snapshot-read", rehydrateStats)
}

// runPhase runs fn for indexes 0..ops-1 across concurrency workers.
func runPhase(ops, concurrency int, fn func(i int) error) phaseStats {
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
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := fn(i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
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
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
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
