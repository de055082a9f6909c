package models

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	kindLabel = "kind"
)

var (
	worldEntityCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "world_entity_count",
		Help: "The number of entities in the world.",
	}, []string{kindLabel})

	worldFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "world_frames_total",
		Help: "The total number of dispatched frames.",
	})

	worldFrameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "world_frame_duration_seconds",
		Help:    "The time spent running the frame handlers.",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
	})
)

func instrumentIncreaseEntityGauge(kind string) {
	worldEntityCount.
		With(prometheus.Labels{kindLabel: kind}).
		Inc()
}

func instrumentDecreaseEntityGauge(kind string) {
	worldEntityCount.
		With(prometheus.Labels{kindLabel: kind}).
		Dec()
}

func instrumentFrame(d time.Duration) {
	worldFramesTotal.Inc()
	worldFrameDuration.Observe(d.Seconds())
}
