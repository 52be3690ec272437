package collab

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_events_dispatched_total",
		Help: "Inbound realtime events routed to a handler",
	}, []string{"event"})

	dispatchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_event_errors_total",
		Help: "Inbound realtime events that failed, by kind (rejected, internal, panic)",
	}, []string{"event", "kind"})

	persistFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_writebehind_failures_total",
		Help: "Room state write-behind attempts that failed",
	})

	persistLatencyMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "interview_writebehind_latency_ms",
		Help:    "Time to write room state back to the session store",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)
