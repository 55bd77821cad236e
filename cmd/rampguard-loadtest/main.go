package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/zestpay/rampguard"
	"github.com/zestpay/rampguard/lock"
)

var (
	ltIdentifiers int
	ltConcurrency int
	ltOps         int
	ltRate        float64
	ltRedisAddr   string
	ltSubject     string
)

// rootCmd drives the two load phases: rate limit checks and lock churn.
var rootCmd = &cobra.Command{
	Use:   "rampguard-loadtest",
	Short: "Measure rampguard throughput against a Redis backend",
	Long: `Measure rampguard check and lock throughput against a Redis backend.

The tool runs two phases. The check phase drives CheckLimit across a pool
of identifiers with per-identifier client IPs. The lock phase acquires and
releases withdrawal locks over the same pool, so contended acquisitions are
expected and reported separately from failures.

Policies are widened so the run measures store throughput, not refusals.

Examples:
  rampguard-loadtest --ops 500000 --concurrency 512
  rampguard-loadtest --redis-addr localhost:6379 --rate 20000
  rampguard-loadtest --identifiers 1000 --subject withdrawal`,
	RunE:          runLoadTest,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().IntVar(&ltIdentifiers, "identifiers", 50000, "number of distinct identifiers to cycle through")
	rootCmd.Flags().IntVar(&ltConcurrency, "concurrency", 256, "number of concurrent workers")
	rootCmd.Flags().IntVar(&ltOps, "ops", 200000, "operations per phase (check + lock)")
	rootCmd.Flags().Float64Var(&ltRate, "rate", 0, "target operations per second; 0 disables pacing")
	rootCmd.Flags().StringVar(&ltRedisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	rootCmd.Flags().StringVar(&ltSubject, "subject", rampguard.SubjectOTP, "policy subject to exercise")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type target struct {
	identifier string
	ip         string
}

func runLoadTest(cmd *cobra.Command, args []string) error {
	if ltIdentifiers <= 0 || ltConcurrency <= 0 || ltOps <= 0 {
		return fmt.Errorf("identifiers, concurrency, and ops must be > 0")
	}

	ctx := context.Background()

	addr := ltRedisAddr
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
			return fmt.Errorf("failed to start miniredis: %w", err)
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

	// Limits high enough that no stage refuses during a normal run.
	policy := rampguard.Policy{
		Email: rampguard.EmailWindowPolicy{
			Count:  1 << 30,
			Window: time.Hour,
			KeyTTL: 2 * time.Hour,
		},
		IP: rampguard.IPBucketPolicy{
			Capacity:      1 << 30,
			RefillPerHour: 3600,
			KeyTTL:        2 * time.Hour,
		},
		Progressive: rampguard.ProgressiveDelayPolicy{
			Delays:       map[int]time.Duration{1: 0},
			DefaultDelay: 0,
			AttemptsTTL:  time.Hour,
			LastSeenTTL:  time.Hour,
		},
		Global: rampguard.GlobalLimitPolicy{
			Count:  1 << 30,
			Window: time.Minute,
		},
	}

	engine, err := rampguard.New().
		WithRedis(client).
		WithPolicy(ltSubject, policy).
		WithLogger(zerolog.Nop()).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}
	defer engine.Close()

	var pacer *rate.Limiter
	if ltRate > 0 {
		pacer = rate.NewLimiter(rate.Limit(ltRate), ltConcurrency)
	}

	targets := make([]target, ltIdentifiers)
	for i := 0; i < ltIdentifiers; i++ {
		targets[i] = target{
			identifier: fmt.Sprintf("user-%d@load.test", i),
			ip:         fmt.Sprintf("10.%d.%d.%d", (i>>16)&0xFF, (i>>8)&0xFF, i&0xFF),
		}
	}

	checkStats := runCheckPhase(ctx, engine, pacer, targets, ltSubject, ltOps, ltConcurrency)
	lockStats := runLockPhase(ctx, engine, pacer, targets, ltOps, ltConcurrency)

	fmt.Println("---- results ----")
	printStats("check", checkStats)
	printStats("lock", lockStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("metrics: allowed=%d denied=%d lock_acquired=%d lock_contended=%d lock_released=%d store_errors=%d\n",
		snap.Counters[rampguard.MetricCheckAllowed],
		snap.Counters[rampguard.MetricCheckDenied],
		snap.Counters[rampguard.MetricLockAcquired],
		snap.Counters[rampguard.MetricLockContended],
		snap.Counters[rampguard.MetricLockReleased],
		snap.Counters[rampguard.MetricStoreError],
	)
	return nil
}

func runCheckPhase(ctx context.Context, engine *rampguard.Engine, pacer *rate.Limiter, targets []target, subject string, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		limited   int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				if pacer != nil {
					if err := pacer.Wait(ctx); err != nil {
						return
					}
				}
				t := targets[r.Intn(len(targets))]
				t0 := time.Now()
				res, err := engine.CheckLimit(ctx, subject, t.identifier, t.ip)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else if !res.Allowed {
					atomic.AddInt64(&limited, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures, limited)
}

func runLockPhase(ctx context.Context, engine *rampguard.Engine, pacer *rate.Limiter, targets []target, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		limited   int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	lk := engine.Locks().Get("withdrawal")

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				if pacer != nil {
					if err := pacer.Wait(ctx); err != nil {
						return
					}
				}
				resource := targets[r.Intn(len(targets))].identifier
				t0 := time.Now()
				token, err := lk.Acquire(ctx, resource)
				if err == nil {
					err = lk.Release(ctx, resource, token)
				}
				d := time.Since(t0)
				switch {
				case err == nil:
				case errors.Is(err, lock.ErrHeld):
					atomic.AddInt64(&limited, 1)
				default:
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
	return computeStats(total, latencies, failures, limited)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	limited  int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures, limited int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		limited:  limited,
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
	fmt.Printf("%s: ops=%d limited=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.limited,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
