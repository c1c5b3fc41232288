package domain

import "errors"

var (
	// ErrRouteNotFound é retornado ao remover uma rota que não está registrada.
	ErrRouteNotFound = errors.New("route not found")
	// ErrInvalidPattern indica um padrão de path que não compila como regex.
	ErrInvalidPattern = errors.New("invalid route pattern")
	// ErrInvalidRoute indica limite ou janela inválidos no registro.
	ErrInvalidRoute = errors.New("invalid route")
)
