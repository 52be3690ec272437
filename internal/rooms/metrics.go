package rooms

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "interview_rooms_active",
		Help: "Live rooms held by this instance",
	})

	roomsEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_rooms_evicted_total",
		Help: "Idle rooms evicted by the sweeper",
	})
)
