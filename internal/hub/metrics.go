package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "interview_connections_active",
		Help: "Open realtime connections",
	})

	connectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_connections_total",
		Help: "Realtime connections accepted since start",
	})

	messagesQueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_messages_queued_total",
		Help: "Outbound messages accepted into a client send queue by event",
	}, []string{"event"})

	messagesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_messages_dropped_total",
		Help: "Outbound messages dropped because the client send queue was full",
	}, []string{"event"})
)
