package executor

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    executionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "interview_executions_total",
        Help: "Code execution requests forwarded to the runner by language and outcome",
    }, []string{"language", "status"})

    executionLatencyMS = promauto.NewHistogram(prometheus.HistogramOpts{
        Name:    "interview_execution_latency_ms",
        Help:    "Round trip to the code runner in milliseconds",
        Buckets: prometheus.ExponentialBuckets(50, 1.8, 10),
    })
)
