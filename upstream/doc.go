// Package upstream é um middleware net/http do lado do servidor que aplica
// cotas por rota em janela fixa e publica os headers x-ratelimit-limit,
// x-ratelimit-remaining e x-ratelimit-retry-after consumidos pelo coordenador
// do cliente.
//
// É usado pelo binário cmd/example-server e pelos testes do Transport como
// uma API "de verdade" para o cliente conversar.
package upstream
