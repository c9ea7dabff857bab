package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Scheduler and publish Prometheus metrics. Defined in a standalone package to
// avoid import cycles between the scheduler and HTTP packages.

var (
	PublishResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "publish_results_total",
		Help: "Resultados de publicación por plataforma",
	}, []string{"platform", "result"}) // result: published|failed|retried|skipped

	SchedulerTickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_tick_duration_seconds",
		Help:    "Duración de cada tick del scheduler",
		Buckets: prometheus.DefBuckets,
	})

	SchedulerBatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_batch_size",
		Help:    "Posts vencidos levantados por tick",
		Buckets: prometheus.LinearBuckets(0, 5, 11),
	})

	TokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "token_refreshes_total",
		Help: "Refrescos de access token por proveedor y resultado",
	}, []string{"provider", "result"}) // result: ok|invalid|error

	RateLimitRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "Requests rechazadas por rate limiting, por categoría",
	}, []string{"category"})
)

// RegisterPublish registers the scheduler/publish metrics on the given
// registry (or default if nil).
func RegisterPublish(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		PublishResults, SchedulerTickDuration, SchedulerBatchSize,
		TokenRefreshes, RateLimitRejections,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
