// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_dispatch_attempts_total",
			Help: "Total number of dispatch attempts per channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "campaign_dispatch_duration_seconds",
			Help: "Duration of a single provider dispatch call in seconds",
		},
		[]string{"channel"},
	)

	CampaignExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_executions_total",
			Help: "Total number of campaign execution requests by result",
		},
		[]string{"result"},
	)

	ResultsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "campaign_results_in_flight",
			Help: "Number of results currently being dispatched per channel",
		},
		[]string{"channel"},
	)
)
