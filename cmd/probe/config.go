package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type config struct {
	TargetURL  string   `env:"TARGET_URL,required,notEmpty"`
	RoutesFile string   `env:"ROUTES_FILE" envDefault:"routes.example.yaml"`
	Paths      []string `env:"PROBE_PATHS" envSeparator:"," envDefault:"/orders"`
	Method     string   `env:"PROBE_METHOD" envDefault:"GET"`
	Requests   int      `env:"PROBE_REQUESTS" envDefault:"20"`
	Workers    int      `env:"PROBE_WORKERS" envDefault:"4"`
	// ClientKeyHeader/ClientKey identificam este cliente no servidor (cota por chave).
	ClientKeyHeader string        `env:"CLIENT_KEY_HEADER" envDefault:"X-Api-Key"`
	ClientKey       string        `env:"CLIENT_KEY"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5m"`

	// IMPORTANTE: o pacer é um teto local adicional; com PACER_RPS=0 fica desligado
	// e só os headers do servidor controlam a espera.
	PacerRPS   float64 `env:"PACER_RPS" envDefault:"0"`
	PacerBurst int     `env:"PACER_BURST" envDefault:"1"`

	ConcurrencyMax     int           `env:"CONCURRENCY_MAX" envDefault:"0"`
	ConcurrencyTimeout time.Duration `env:"CONCURRENCY_TIMEOUT" envDefault:"0"`

	MetricsAddr string `env:"METRICS_ADDR"`
	LogDebug    bool   `env:"LOG_DEBUG" envDefault:"false"`

	Stats statsConfig `envPrefix:"RATE_STATS_"`
}

type statsConfig struct {
	Enabled       bool          `env:"ENABLED" envDefault:"false"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	Prefix        string        `env:"PREFIX" envDefault:"ratelimit:client"`
	TTL           time.Duration `env:"TTL" envDefault:"24h"`
	Bucket        string        `env:"BUCKET" envDefault:"minute"`
}

// readConfig carrega .env (se existir) e depois as variáveis de ambiente.
func readConfig() (config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, err
	}
	return cfg, cfg.validate()
}

func (c config) validate() error {
	if c.Stats.Enabled && strings.TrimSpace(c.Stats.RedisAddr) == "" {
		return errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true")
	}
	if len(c.Paths) == 0 {
		return errors.New("PROBE_PATHS must list at least one path")
	}
	if c.Requests <= 0 {
		return errors.New("PROBE_REQUESTS must be > 0")
	}
	if c.Workers <= 0 {
		return errors.New("PROBE_WORKERS must be > 0")
	}
	if c.PacerRPS < 0 {
		return errors.New("PACER_RPS must be >= 0")
	}
	if c.PacerRPS > 0 && c.PacerBurst <= 0 {
		return errors.New("PACER_BURST must be > 0")
	}
	if c.ConcurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return nil
}
