// Command example-server é uma API de exemplo que aplica cotas por rota e
// publica os headers x-ratelimit-*, útil para exercitar o probe localmente.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ratelimit-client/client/ratelimit/domain"
	"ratelimit-client/client/ratelimit/infra"
	"ratelimit-client/upstream"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
)

type config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8081"`
	RoutesFile string `env:"ROUTES_FILE" envDefault:"routes.example.yaml"`
	KeyHeader  string `env:"RATE_KEY_HEADER" envDefault:"X-Api-Key"`
	TrustXFF   bool   `env:"TRUST_XFF" envDefault:"false"`
}

// quotaTable coleta as rotas do YAML como cotas do servidor.
type quotaTable struct {
	quotas []upstream.Quota
}

func (q *quotaTable) Register(p domain.RoutePattern, limit int, window time.Duration) error {
	q.quotas = append(q.quotas, upstream.Quota{Route: p, Limit: limit, Window: window})
	return nil
}

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatal("config error", zap.Error(err))
	}

	table := &quotaTable{}
	if _, err := infra.LoadRoutesFile(cfg.RoutesFile, table); err != nil {
		log.Fatal("routes error", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	quotas := upstream.NewQuotas(table.quotas)
	quotas.StartJanitor(ctx)

	h := upstream.Middleware(upstream.Options{
		Quotas:    quotas,
		KeyHeader: cfg.KeyHeader,
		TrustXFF:  cfg.TrustXFF,
		Logger:    log,
	})(mux)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("example server listening",
		zap.String("addr", cfg.ListenAddr),
		zap.Int("quotas", len(table.quotas)))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server error", zap.Error(err))
	}
}
