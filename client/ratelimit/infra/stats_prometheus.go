package infra

import (
	"context"

	"ratelimit-client/client/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStats expõe os eventos de espera como métricas Prometheus.
// Os labels usam apenas o nome da rota (nunca o path) para manter a cardinalidade baixa.
type PrometheusStats struct {
	calls *prometheus.CounterVec
	waits *prometheus.HistogramVec
}

// NewPrometheusStats cria e registra os coletores em reg.
// Com reg nil usa prometheus.DefaultRegisterer.
func NewPrometheusStats(namespace string, reg prometheus.Registerer) (*PrometheusStats, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	s := &PrometheusStats{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ratelimit_sleep_total",
				Help:      "Total number of coordinator sleeps by route and outcome",
			},
			[]string{"route", "outcome"},
		),
		waits: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ratelimit_wait_seconds",
				Help:      "Computed wait before sending a rate limited request",
				Buckets:   []float64{1, 2, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"route"},
		),
	}

	for _, c := range []prometheus.Collector{s.calls, s.waits} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *PrometheusStats) Record(_ context.Context, ev domain.WaitEvent) error {
	s.calls.WithLabelValues(ev.Route, eventField(ev)).Inc()
	if ev.Waited {
		s.waits.WithLabelValues(ev.Route).Observe(ev.Duration.Seconds())
	}
	return nil
}
