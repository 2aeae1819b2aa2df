package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fulfillment",
	Subsystem: "webhook",
	Name:      "notifications_total",
	Help:      "Total number of payment notifications by outcome.",
}, []string{"outcome"})
