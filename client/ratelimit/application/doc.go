// Package application contém os casos de uso do rate limit do lado do cliente.
//
// Ele depende apenas do pacote domain e não conhece net/http.
//
//   - Coordinator: registro de rotas, match por especificidade, Check/Sleep
//     com amplificação de espera contra thundering herd;
//   - RouteLimitState: cota por rota atualizada pelos headers x-ratelimit-*;
//   - InFlightLimiter: limite de requisições de saída em voo.
//
// Fluxo típico:
//
//	route, err := coord.Sleep(ctx, req.URL.Path, req.Method)
//	if err != nil { ... }           // ctx cancelado durante a espera
//	resp, err := send(req)
//	route.Update(resp.Header)        // nil-safe quando nenhuma rota casou
package application
