package domain

import "context"

// SlotPool representa um recurso com capacidade finita (ex: requisições em voo
// para a mesma API).
//
// A semântica é: Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar.
// Ao adquirir, retorna uma função de release que deve ser chamada exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}

// Pacer suaviza o envio antes de consultar o coordenador (ex: token bucket por host).
// Wait retorna erro se o ctx encerrar antes de liberar.
type Pacer interface {
	Wait(ctx context.Context, host string) error
}
