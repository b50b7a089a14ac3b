// Command grant-probe issues password grants against a live identity service
// through a fully built engine and reports latency percentiles.
//
// Configuration is read from GOAUTHWEB_* environment variables first; flags
// override it. The password is read from GOAUTHWEB_PROBE_PASSWORD so it never
// appears in the process list.
//
//	GOAUTHWEB_PROBE_PASSWORD=... grant-probe -app https://id.example.com/v1/applications/x -login alice -n 20
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goAuthWeb "github.com/MrEthical07/goAuthWeb"
	"github.com/MrEthical07/goAuthWeb/metrics/export/prometheus"
	"github.com/MrEthical07/goAuthWeb/oauth"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const passwordEnv = "GOAUTHWEB_PROBE_PASSWORD"

func main() {
	var (
		appHref      = flag.String("app", "", "application href; overrides GOAUTHWEB_APPLICATION_HREF")
		login        = flag.String("login", "", "login to authenticate")
		accountStore = flag.String("account-store", "", "optional account store href")
		attempts     = flag.Int("n", 1, "number of grants to issue")
		concurrency  = flag.Int("concurrency", 1, "number of concurrent workers")
		timeout      = flag.Duration("timeout", 0, "per-grant timeout; overrides GOAUTHWEB_GRANT_TIMEOUT")
		redisAddr    = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		showMetrics  = flag.Bool("metrics", false, "print engine metrics in Prometheus format when done")
		verbose      = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	secret := os.Getenv(passwordEnv)
	if *login == "" || secret == "" {
		fmt.Fprintf(os.Stderr, "-login and %s are required\n", passwordEnv)
		os.Exit(2)
	}
	if *attempts <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "n and concurrency must be > 0")
		os.Exit(2)
	}

	cfg, err := goAuthWeb.LoadConfigFromEnv(goAuthWeb.DefaultEnvPrefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *appHref != "" {
		cfg.Application.Href = *appHref
	}
	if *timeout > 0 {
		cfg.Grant.Timeout = *timeout
	}
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := goAuthWeb.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	client, cleanup, err := openRedis(*redisAddr, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer cleanup()

	engine, err := goAuthWeb.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLogger(logger).
		Build()
	if err != nil {
		logger.Fatal("engine build", zap.Error(err))
	}
	defer engine.Close()

	attempt := goAuthWeb.LoginAttempt{
		Login:        *login,
		Password:     secret,
		AccountStore: *accountStore,
	}
	if cfg.Application.Href != "" {
		attempt.Application = &oauth.Application{Href: cfg.Application.Href}
	}

	stats, outcomes := runProbe(context.Background(), engine, attempt, *attempts, *concurrency)
	printStats("grant", stats)
	for outcome, n := range outcomes {
		fmt.Printf("  %s: %d\n", outcome, n)
	}
	if *showMetrics {
		fmt.Print(prometheus.NewPrometheusExporter(engine).Render())
	}
	if stats.failures > 0 {
		os.Exit(1)
	}
}

func openRedis(addr string, logger *zap.Logger) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		logger.Debug("using redis", zap.String("addr", addr))
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	logger.Debug("using miniredis", zap.String("addr", mr.Addr()))
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func runProbe(ctx context.Context, engine *goAuthWeb.Engine, attempt goAuthWeb.LoginAttempt, ops, concurrency int) (phaseStats, map[string]int) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		outcomes  = make(map[string]int)
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
				_, err := engine.Authenticate(ctx, attempt)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				outcomes[classify(err)]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures), outcomes
}

func classify(err error) string {
	switch {
	case err == nil:
		return "authenticated"
	case errors.Is(err, goAuthWeb.ErrLoginRateLimited):
		return "rate_limited"
	case errors.Is(err, goAuthWeb.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, goAuthWeb.ErrConfiguration):
		return "configuration_error"
	default:
		return "grant_exchange_failed"
	}
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
