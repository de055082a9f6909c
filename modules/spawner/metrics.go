package spawner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	spawnerActiveCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spawner_active_count",
		Help: "The number of spawners inside the activation ring.",
	})

	spawnerMobsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spawner_mobs_total",
		Help: "The total number of mobs spawned.",
	})
)
