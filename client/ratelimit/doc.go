// Package ratelimit fornece adapters net/http (http.RoundTripper) para o
// coordenador de rate limit por rota do lado do cliente.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (Coordinator, RouteLimitState, InFlightLimiter)
//   - infra: implementações concretas (pacer x/time/rate, semáforo, stats, rotas YAML)
//   - ratelimit (este pacote): transports HTTP + wiring
//
// Fluxo de uma requisição no Transport:
//
//  1. (opcional) Pacer por host suaviza rajadas
//  2. Coordinator.Sleep casa a rota e espera se a cota estiver esgotada
//  3. envia pelo transport base
//  4. route.Update(resp.Header) atualiza o modelo com x-ratelimit-*
//
// ConcurrencyTransport pode envolver o Transport para limitar requisições em voo.
package ratelimit
