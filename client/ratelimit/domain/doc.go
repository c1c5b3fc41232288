// Package domain define contratos e tipos de domínio do coordenador de rate limit por rota.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar regras de negócio
// de detalhes de infraestrutura (transporte HTTP, Redis, Prometheus).
package domain
