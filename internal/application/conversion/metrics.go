package conversion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	conversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "btxconv_conversions_total",
		Help: "Conversion jobs by direction and outcome",
	}, []string{"direction", "outcome"})

	conversionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "btxconv_conversion_duration_seconds",
		Help:    "Wall time of a single conversion job",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"direction"})

	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "btxconv_downloads_total",
		Help: "Artifact download attempts by outcome",
	}, []string{"outcome"})

	sweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "btxconv_swept_total",
		Help: "Stale workspaces and artifacts removed by the sweeper",
	})
)
