package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_cycles_total",
		Help: "Poll runs over all sources, by outcome",
	}, []string{"outcome"})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_cycle_duration_seconds",
		Help:    "Wall time of one poll run",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s .. ~34m
	})

	fetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_fetch_errors_total",
		Help: "Feed fetch or parse failures",
	}, []string{"source"})

	dispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_dispatches_total",
		Help: "Notification send attempts, by category and status",
	}, []string{"category", "status"})

	routeUnresolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_route_unresolved_total",
		Help: "Sources skipped because their category had no usable destination",
	}, []string{"category"})

	watermarkGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_watermark_timestamp_seconds",
		Help: "Unix time of the newest entry dispatched per source",
	}, []string{"source"})
)
