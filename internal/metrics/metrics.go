package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "phonestorage"

// Metrics holds the process counters. A nil *Metrics is valid and records
// nothing, so components can be constructed without it in tests.
type Metrics struct {
	registry *prometheus.Registry

	PairingsCreated   prometheus.Counter
	PairingsConfirmed prometheus.Counter
	PairingsRevoked   prometheus.Counter
	PairingsExpired   prometheus.Counter
	DevicesCleaned    prometheus.Counter
	Syncs             prometheus.Counter
	SyncedFiles       prometheus.Counter
	Uploads           *prometheus.CounterVec
	UploadBytes       prometheus.Counter
	PersistFailures   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PairingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "pairings_created_total",
			Help: "Pairing QR codes generated.",
		}),
		PairingsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "pairings_confirmed_total",
			Help: "Pairings confirmed from the phone side.",
		}),
		PairingsRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "pairings_revoked_total",
			Help: "Pairings revoked explicitly.",
		}),
		PairingsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "pairings_expired_total",
			Help: "Pairings evicted lazily after expiry.",
		}),
		DevicesCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "devices_cleaned_total",
			Help: "Paired devices removed by inactivity cleanup.",
		}),
		Syncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "syncs_total",
			Help: "Sync calls accepted from paired devices.",
		}),
		SyncedFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "synced_files_total",
			Help: "File descriptors received through sync calls.",
		}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "uploads_total",
			Help: "Files uploaded, by media type.",
		}, []string{"type"}),
		UploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "upload_bytes_total",
			Help: "Bytes written by uploads.",
		}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "pairing_persist_failures_total",
			Help: "Pairing snapshot writes that failed and were skipped.",
		}),
	}

	m.registry.MustRegister(
		m.PairingsCreated, m.PairingsConfirmed, m.PairingsRevoked, m.PairingsExpired,
		m.DevicesCleaned, m.Syncs, m.SyncedFiles, m.Uploads, m.UploadBytes, m.PersistFailures,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the private registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) PairingCreated() {
	if m != nil {
		m.PairingsCreated.Inc()
	}
}

func (m *Metrics) PairingConfirmed() {
	if m != nil {
		m.PairingsConfirmed.Inc()
	}
}

func (m *Metrics) PairingRevoked() {
	if m != nil {
		m.PairingsRevoked.Inc()
	}
}

func (m *Metrics) PairingExpired() {
	if m != nil {
		m.PairingsExpired.Inc()
	}
}

func (m *Metrics) DevicesRemoved(n int) {
	if m != nil {
		m.DevicesCleaned.Add(float64(n))
	}
}

func (m *Metrics) SyncReceived(files int) {
	if m != nil {
		m.Syncs.Inc()
		m.SyncedFiles.Add(float64(files))
	}
}

func (m *Metrics) PersistFailed() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}

func (m *Metrics) UploadStored(mediaType string, size int64) {
	if m != nil {
		m.Uploads.WithLabelValues(mediaType).Inc()
		m.UploadBytes.Add(float64(size))
	}
}
