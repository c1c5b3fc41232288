package upstream

import (
	"math"
	"net/http"
	"strconv"

	"ratelimit-client/client/ratelimit/domain"

	"go.uber.org/zap"
)

type Options struct {
	Quotas       *Quotas
	KeyFn        KeyFunc
	KeyHeader    string
	TrustXFF     bool
	RejectStatus int
	Logger       *zap.Logger
}

// Middleware aplica as cotas e publica os headers de rate limit em toda
// resposta de rota com cota (inclusive na rejeição).
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXFF)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		if opts.Quotas == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			dec, ok := opts.Quotas.Take(key, r.URL.Path, r.Method)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set(domain.HeaderLimit, strconv.Itoa(dec.Limit))
			h.Set(domain.HeaderRemaining, strconv.Itoa(dec.Remaining))
			h.Set(domain.HeaderRetryAfter, strconv.FormatInt(dec.ResetAt.Unix(), 10))

			if !dec.Allowed {
				retry := max(int(math.Ceil(dec.ResetAt.Sub(opts.Quotas.Now()).Seconds())), 1)
				h.Set("Retry-After", strconv.Itoa(retry))
				opts.Logger.Info("quota exhausted",
					zap.String("route", dec.Route),
					zap.String("key", key),
					zap.Time("reset_at", dec.ResetAt))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
