// Command probe dispara requisições concorrentes contra uma API através do
// Transport com coordenador de rate limit e reporta quanto cada rota esperou.
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"ratelimit-client/client/ratelimit"
	"ratelimit-client/client/ratelimit/application"
	"ratelimit-client/client/ratelimit/domain"
	"ratelimit-client/client/ratelimit/infra"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		_, _ = os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(2)
	}

	log := newLogger(cfg.LogDebug)
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("probe failed", zap.Error(err))
	}
}

func newLogger(debug bool) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if debug {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func run(ctx context.Context, cfg config, log *zap.Logger) error {
	mem := infra.NewMemoryStatsStore()
	stats := infra.MultiStats{mem}

	if cfg.Stats.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Stats.RedisAddr,
			Password: cfg.Stats.RedisPassword,
			DB:       cfg.Stats.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			return err
		}
		stats = append(stats, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.Stats.Prefix),
			infra.WithStatsTTL(cfg.Stats.TTL),
			infra.WithStatsBucket(cfg.Stats.Bucket),
		))
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		prom, err := infra.NewPrometheusStats("probe", reg)
		if err != nil {
			return err
		}
		stats = append(stats, prom)
		go serveMetrics(ctx, cfg.MetricsAddr, reg, log)
	}

	coord := application.NewCoordinator(
		application.WithLogger(log.Named("coordinator")),
		application.WithStats(stats),
	)
	n, err := infra.LoadRoutesFile(cfg.RoutesFile, coord)
	if err != nil {
		return err
	}

	var pacer domain.Pacer
	if cfg.PacerRPS > 0 {
		p := infra.NewPacer(cfg.PacerRPS, cfg.PacerBurst)
		p.StartJanitor(ctx)
		pacer = p
	}

	client := &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: ratelimit.NewTransport(ratelimit.Options{
			Coordinator: coord,
			Pacer:       pacer,
			Logger:      log,
			Base: ratelimit.NewConcurrencyTransport(ratelimit.ConcurrencyOptions{
				Max:            cfg.ConcurrencyMax,
				AcquireTimeout: cfg.ConcurrencyTimeout,
			}),
		}),
	}

	log.Info("probe starting",
		zap.String("target", cfg.TargetURL),
		zap.Int("routes", n),
		zap.Strings("paths", cfg.Paths),
		zap.Int("requests", cfg.Requests),
		zap.Int("workers", cfg.Workers),
		zap.Float64("pacer_rps", cfg.PacerRPS),
		zap.Int("concurrency_max", cfg.ConcurrencyMax),
		zap.Bool("redis_stats", cfg.Stats.Enabled))

	jobs := make(chan string)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				probeOnce(ctx, client, cfg, path, log)
			}
		}()
	}

feed:
	for i := 0; i < cfg.Requests; i++ {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- cfg.Paths[i%len(cfg.Paths)]:
		}
	}
	close(jobs)
	wg.Wait()

	total := mem.Total()
	log.Info("probe finished",
		zap.Int64("immediate", total.Immediate),
		zap.Int64("waited", total.Waited),
		zap.Int64("cancelled", total.Cancelled),
		zap.Duration("total_wait", total.TotalWait))
	for _, r := range coord.Routes() {
		log.Info("route state",
			zap.String("route", r.Name),
			zap.String("pattern", r.Pattern),
			zap.Int("limit", r.Limit),
			zap.Int("used", r.Used),
			zap.Time("expires_at", r.ExpiresAt),
			zap.Int("enqueued", r.Enqueued))
	}
	return nil
}

func probeOnce(ctx context.Context, client *http.Client, cfg config, path string, log *zap.Logger) {
	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.TargetURL+path, nil)
	if err != nil {
		log.Error("build request", zap.Error(err))
		return
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-Id", reqID)
	if cfg.ClientKey != "" {
		req.Header.Set(cfg.ClientKeyHeader, cfg.ClientKey)
	}

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		log.Warn("request failed", zap.String("request_id", reqID), zap.String("path", path), zap.Error(err))
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	log.Info("request done",
		zap.String("request_id", reqID),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("remaining", resp.Header.Get(domain.HeaderRemaining)),
		zap.Duration("elapsed", time.Since(started)))
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server error", zap.Error(err))
	}
}
