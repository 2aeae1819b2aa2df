package shipment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fulfillment",
		Subsystem: "shipment",
		Name:      "jobs_enqueued_total",
		Help:      "Total number of shipment jobs enqueued.",
	})

	jobsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fulfillment",
		Subsystem: "shipment",
		Name:      "jobs_dropped_total",
		Help:      "Total number of shipment jobs dropped because the queue was full.",
	})

	jobsSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fulfillment",
		Subsystem: "shipment",
		Name:      "jobs_succeeded_total",
		Help:      "Total number of shipment jobs that purchased a label.",
	})

	jobsRetried = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fulfillment",
		Subsystem: "shipment",
		Name:      "jobs_retried_total",
		Help:      "Total number of shipment job retries.",
	})

	jobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fulfillment",
		Subsystem: "shipment",
		Name:      "jobs_failed_total",
		Help:      "Total number of shipment jobs that exhausted their retries.",
	})

	jobsInProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fulfillment",
		Subsystem: "shipment",
		Name:      "jobs_in_progress",
		Help:      "Number of shipment jobs currently being processed.",
	})
)
