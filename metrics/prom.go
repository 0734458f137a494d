package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PasteCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bindrop_paste_created_total",
		Help: "no. of pastes created",
	})
	PasteServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bindrop_paste_served_total",
		Help: "no. of pastes served",
	})
	PasteDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bindrop_paste_deleted_total",
		Help: "no. of pastes deleted",
	})
	PasteRejectedTooBig = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bindrop_paste_rejected_too_big_total",
		Help: "no. of uploads rejected for exceeding the size limit",
	})
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bindrop_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
	PruneCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bindrop_prune_cycles_total",
		Help: "no. of cleanup worker cycles",
	})
	PrunedPastes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bindrop_pruned_pastes_total",
		Help: "no. of expired pastes removed by the cleanup worker",
	})
)
