package infra

import (
	"context"

	"ratelimit-client/client/ratelimit/domain"
)

// MultiStats repassa o evento para vários stores; o primeiro erro é retornado,
// mas todos os stores recebem o evento.
type MultiStats []domain.StatsStore

func (m MultiStats) Record(ctx context.Context, ev domain.WaitEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
