package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Nomes dos headers publicados pelo servidor.
const (
	HeaderLimit      = "x-ratelimit-limit"
	HeaderRemaining  = "x-ratelimit-remaining"
	HeaderRetryAfter = "x-ratelimit-retry-after"
)

// Headers é o mínimo necessário para ler headers de resposta.
// http.Header já satisfaz (Get canonicaliza o nome).
type Headers interface {
	Get(name string) string
}

// HeaderMap é uma implementação simples (case-insensitive) para testes e
// clientes que não usam net/http.
type HeaderMap map[string]string

func (h HeaderMap) Get(name string) string {
	if v, ok := h[name]; ok {
		return v
	}
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// HeaderInt lê um header inteiro.
// present=false quando o header não existe; err != nil quando existe mas é inválido.
func HeaderInt(h Headers, name string) (v int, present bool, err error) {
	raw := lookup(h, name)
	if raw == "" {
		return 0, false, nil
	}
	v, err = strconv.Atoi(raw)
	if err != nil {
		return 0, true, err
	}
	return v, true, nil
}

// maxUnixSeconds é o maior timestamp aceito (~ano 5138). Valores acima disso
// são quase sempre milissegundos publicados no lugar de segundos.
const maxUnixSeconds = 1e11

// ErrImplausibleTimestamp indica um timestamp fora da faixa de segundos Unix.
var ErrImplausibleTimestamp = errors.New("implausible unix timestamp")

// HeaderUnixTime lê um timestamp Unix absoluto em segundos (aceita fração).
// Timestamps negativos ou acima de maxUnixSeconds são tratados como inválidos.
func HeaderUnixTime(h Headers, name string) (t time.Time, present bool, err error) {
	raw := lookup(h, name)
	if raw == "" {
		return time.Time{}, false, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, true, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, true, strconv.ErrRange
	}
	if f < 0 || f > maxUnixSeconds {
		return time.Time{}, true, fmt.Errorf("%w: %s", ErrImplausibleTimestamp, raw)
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))), true, nil
}

func lookup(h Headers, name string) string {
	if h == nil {
		return ""
	}
	return strings.TrimSpace(h.Get(name))
}
