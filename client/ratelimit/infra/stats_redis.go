package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ratelimit-client/client/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava eventos de espera em hashes do Redis:
//
//	<prefix>:total              immediate|waited|cancelled|wait_ms
//	<prefix>:minute:<yyyymmddHHMM>  mesmos campos (com TTL)
//	<prefix>:route              <route>:<campo>
//
// Útil quando vários processos do mesmo cliente querem um painel comum; o
// estado de rate limit em si continua local a cada processo.
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix string
	// ttl aplica apenas em chaves de série temporal.
	// total e route são cumulativos e não expiram.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "ratelimit:client",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.WaitEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := eventField(ev)
	waitMs := ev.Duration.Milliseconds()

	totalKey := s.prefix + ":total"

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, totalKey, field, 1)
	if waitMs > 0 {
		pipe.HIncrBy(ctx, totalKey, "wait_ms", waitMs)
	}

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if waitMs > 0 {
			pipe.HIncrBy(ctx, bucketKey, "wait_ms", waitMs)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if route := strings.TrimSpace(ev.Route); route != "" {
		routeKey := s.prefix + ":route"
		pipe.HIncrBy(ctx, routeKey, route+":"+field, 1)
		if waitMs > 0 {
			pipe.HIncrBy(ctx, routeKey, route+":wait_ms", waitMs)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis stats: %w", err)
	}
	return nil
}

func eventField(ev domain.WaitEvent) string {
	switch {
	case ev.Cancelled:
		return "cancelled"
	case ev.Waited:
		return "waited"
	default:
		return "immediate"
	}
}
