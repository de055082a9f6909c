package wander

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	wanderBounces = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wander_bounces_total",
		Help: "The total number of wanderers that bounced on the world edges.",
	})
)
