package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts catalog side effects that never surface as errors.
type Metrics struct {
	cleanupFailures prometheus.Counter
	imagesIngested  prometheus.Counter
}

// NewMetrics registers the catalog counters on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		cleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_blob_cleanup_failures_total",
			Help: "Blobs that could not be deleted or whose path could not be decoded.",
		}),
		imagesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_images_ingested_total",
			Help: "Images stored and referenced by a project.",
		}),
	}
	for _, c := range []prometheus.Collector{m.cleanupFailures, m.imagesIngested} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) cleanupFailed() {
	if m != nil {
		m.cleanupFailures.Inc()
	}
}

func (m *Metrics) ingested(n int) {
	if m != nil {
		m.imagesIngested.Add(float64(n))
	}
}
