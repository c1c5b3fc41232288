// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - Pacer: token bucket por host usando golang.org/x/time/rate
//   - ChanPool: semáforo simples para limitar requisições em voo
//   - MemoryStatsStore / RedisStatsStore / PrometheusStats: estatísticas de espera
//   - LoadRoutes: tabela de rotas em YAML
package infra
