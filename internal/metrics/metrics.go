package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts pipeline outcomes. Construct once per process; prometheus
// registration is global.
type Metrics struct {
	PropertiesProcessed prometheus.Counter
	PropertiesFailed    prometheus.Counter
	DocumentsCaptured   prometheus.Counter
	DocumentsFailed     prometheus.Counter
	SessionRecoveries   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		PropertiesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "deedscan_properties_processed_total",
			Help: "Total number of property targets processed to completion",
		}),
		PropertiesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "deedscan_properties_failed_total",
			Help: "Total number of property targets aborted before persistence",
		}),
		DocumentsCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "deedscan_documents_captured_total",
			Help: "Total number of documents captured and summarized",
		}),
		DocumentsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "deedscan_documents_failed_total",
			Help: "Total number of documents recorded with the sentinel summary",
		}),
		SessionRecoveries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "deedscan_session_recoveries_total",
			Help: "Total number of capture session recovery attempts",
		}),
	}
}

func (m *Metrics) IncPropertiesProcessed() {
	if m != nil {
		m.PropertiesProcessed.Inc()
	}
}

func (m *Metrics) IncPropertiesFailed() {
	if m != nil {
		m.PropertiesFailed.Inc()
	}
}

func (m *Metrics) IncDocumentsCaptured() {
	if m != nil {
		m.DocumentsCaptured.Inc()
	}
}

func (m *Metrics) IncDocumentsFailed() {
	if m != nil {
		m.DocumentsFailed.Inc()
	}
}

func (m *Metrics) IncSessionRecoveries() {
	if m != nil {
		m.SessionRecoveries.Inc()
	}
}
