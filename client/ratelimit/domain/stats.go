package domain

import (
	"context"
	"time"
)

// WaitEvent representa uma passagem pelo coordenador (Sleep).
//
// Method/Path são strings genéricas; Route é o nome lógico da rota casada.
// Cuidado com cardinalidade: Path sem controle pode explodir o número de
// séries/chaves em Redis ou Prometheus, por isso os stores agregam por Route.
type WaitEvent struct {
	Route  string
	Method string
	Path   string

	// Waited indica se o chamador foi suspenso.
	Waited bool
	// Duration é a espera calculada pelo coordenador (0 quando não esperou).
	Duration time.Duration
	// Cancelled indica que o contexto encerrou durante a espera.
	Cancelled bool

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de espera.
//
// Implementações podem armazenar em Redis, Prometheus, memória, etc.
// O coordenador trata erro como best-effort (não derruba a chamada).
type StatsStore interface {
	Record(ctx context.Context, ev WaitEvent) error
}
