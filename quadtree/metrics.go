package quadtree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	indexLabel  = "index"
	opLabel     = "op"
	resultLabel = "result"

	resultOK = "ok"

	opInsert        = "insert"
	opRemove        = "remove"
	opUpdate        = "update"
	opUpdateInPlace = "update_in_place"
)

var (
	quadtreeSubdivisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_subdivisions_total",
		Help: "The number of leaves split into four children.",
	}, []string{indexLabel})

	quadtreeJoins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_joins_total",
		Help: "The number of internal nodes collapsed back into leaves.",
	}, []string{indexLabel})

	quadtreeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_operations_total",
		Help: "The number of index mutations by operation and result.",
	}, []string{
		indexLabel,
		opLabel,
		resultLabel,
	})

	quadtreeItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quadtree_items",
		Help: "The number of indexed items.",
	}, []string{indexLabel})
)

type indexMetrics struct {
	subdivisions prometheus.Counter
	joins        prometheus.Counter
	items        prometheus.Gauge
	operations   *prometheus.CounterVec
}

func newIndexMetrics(name string) indexMetrics {
	labels := prometheus.Labels{indexLabel: name}

	return indexMetrics{
		subdivisions: quadtreeSubdivisions.With(labels),
		joins:        quadtreeJoins.With(labels),
		items:        quadtreeItems.With(labels),
		operations:   quadtreeOperations.MustCurryWith(labels),
	}
}

func (m indexMetrics) countOperation(op string, err error) {
	result := resultOK
	if err != nil {
		result = errors.Type(err)
	}

	m.operations.
		With(prometheus.Labels{
			opLabel:     op,
			resultLabel: result,
		}).
		Inc()
}
