package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type EventMetrics struct {
	PublishedTotal       *prometheus.CounterVec
	PublishFailuresTotal *prometheus.CounterVec
}

type ConsumerMetrics struct {
	ProcessedTotal prometheus.Counter
	DroppedTotal   prometheus.Counter
}

type NotifierMetrics struct {
	OutcomesTotal *prometheus.CounterVec
}

var (
	Events = EventMetrics{
		PublishedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profile_service_events_published_total",
				Help: "Total number of events successfully published, by topic.",
			},
			[]string{"topic"},
		),
		PublishFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profile_service_event_publish_failures_total",
				Help: "Total number of failed event publishes, by topic.",
			},
			[]string{"topic"},
		),
	}

	Consumer = ConsumerMetrics{
		ProcessedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "profile_service_sync_requests_processed_total",
				Help: "Total number of preference sync requests processed.",
			},
		),
		DroppedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "profile_service_sync_requests_dropped_total",
				Help: "Total number of malformed preference sync requests dropped.",
			},
		),
	}

	Notifier = NotifierMetrics{
		OutcomesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profile_service_notifier_outcomes_total",
				Help: "Total number of secondary notifier completions, by outcome.",
			},
			[]string{"outcome"},
		),
	}
)

func RecordEventPublish(topic string, ok bool) {
	if ok {
		Events.PublishedTotal.WithLabelValues(topic).Inc()
		return
	}
	Events.PublishFailuresTotal.WithLabelValues(topic).Inc()
}

func RecordSyncRequestProcessed() {
	Consumer.ProcessedTotal.Inc()
}

func RecordSyncRequestDropped() {
	Consumer.DroppedTotal.Inc()
}

func RecordNotifierOutcome(outcome string) {
	Notifier.OutcomesTotal.WithLabelValues(outcome).Inc()
}
