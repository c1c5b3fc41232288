package infra

import (
	"context"
	"maps"
	"sync"
	"time"

	"ratelimit-client/client/ratelimit/domain"
)

type Counters struct {
	Immediate int64
	Waited    int64
	Cancelled int64
	// TotalWait soma as esperas calculadas das chamadas que esperaram.
	TotalWait time.Duration
}

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes, para o probe e para desenvolvimento.
//
// Não faz expiração e não é indicada para processos de vida longa com
// WithTrackPaths ligado (cardinalidade por path).
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
	byPath  map[string]Counters

	trackPaths bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackPaths(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackPaths = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byRoute: make(map[string]Counters),
		byPath:  make(map[string]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.WaitEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total = add(s.total, ev)
	s.byRoute[ev.Route] = add(s.byRoute[ev.Route], ev)
	if s.trackPaths {
		key := ev.Method + " " + ev.Path
		s.byPath[key] = add(s.byPath[key], ev)
	}
	return nil
}

func add(c Counters, ev domain.WaitEvent) Counters {
	if !ev.Waited {
		c.Immediate++
		return c
	}
	c.Waited++
	c.TotalWait += ev.Duration
	if ev.Cancelled {
		c.Cancelled++
	}
	return c
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) ByRoute() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.byRoute)
}

func (s *MemoryStatsStore) ByPath() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.byPath)
}
