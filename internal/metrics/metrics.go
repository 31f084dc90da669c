package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CampaignsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campaigns_sent_total",
			Help: "Total campaigns that reached the sent state",
		},
	)

	CampaignFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_failures_total",
			Help: "Total campaigns moved to the failed state",
		},
	)

	RecipientsDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_recipients_dispatched_total",
			Help: "Total per-recipient messages handed to the transport",
		},
	)

	TrackingUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_updates_total",
			Help: "Tracking status updates by status and whether they changed the record",
		},
		[]string{"status", "result"},
	)

	DispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "campaign_dispatch_duration_seconds",
			Help:    "Time spent dispatching one campaign",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func Init() {
	prometheus.MustRegister(CampaignsSent)
	prometheus.MustRegister(CampaignFailures)
	prometheus.MustRegister(RecipientsDispatched)
	prometheus.MustRegister(TrackingUpdates)
	prometheus.MustRegister(DispatchDuration)
}
