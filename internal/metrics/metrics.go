// Package metrics holds the fleet core's Prometheus counters and gauges:
// a private registry, a constructor that builds and registers every
// metric, and a Handler that refreshes gauges just before each scrape.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter and gauge exported by the monitor daemon.
type Metrics struct {
	registry *prometheus.Registry

	heartbeatsAcceptedTotal prometheus.Counter
	heartbeatsRejectedTotal prometheus.Counter
	announcesAcceptedTotal  prometheus.Counter
	bundlesSentTotal        prometheus.Counter
	transportErrorsTotal    prometheus.Counter
	encryptionFailuresTotal prometheus.Counter
	registrySize            prometheus.Gauge
	wsClients               prometheus.Gauge
}

// New creates and registers Prometheus metrics for the fleet core.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	heartbeatsAcceptedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fleetcore_heartbeats_accepted_total",
		Help: "Total number of /heartbeat messages accepted by the monitor",
	})
	heartbeatsRejectedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fleetcore_heartbeats_rejected_total",
		Help: "Total number of /heartbeat messages rejected as malformed",
	})
	announcesAcceptedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fleetcore_announces_accepted_total",
		Help: "Total number of /announce messages accepted by the monitor",
	})
	bundlesSentTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fleetcore_bundles_sent_total",
		Help: "Total number of OSC bundles sent by the scheduler",
	})
	transportErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fleetcore_transport_errors_total",
		Help: "Total number of UDP send or decode errors",
	})
	encryptionFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fleetcore_encryption_failures_total",
		Help: "Total number of encrypt or decrypt failures",
	})
	registrySize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleetcore_registry_size",
		Help: "Number of devices currently known to the registry",
	})
	wsClients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleetcore_ws_clients",
		Help: "Number of WebSocket clients currently subscribed to telemetry fan-out",
	})

	registry.MustRegister(
		heartbeatsAcceptedTotal,
		heartbeatsRejectedTotal,
		announcesAcceptedTotal,
		bundlesSentTotal,
		transportErrorsTotal,
		encryptionFailuresTotal,
		registrySize,
		wsClients,
	)

	return &Metrics{
		registry:                registry,
		heartbeatsAcceptedTotal: heartbeatsAcceptedTotal,
		heartbeatsRejectedTotal: heartbeatsRejectedTotal,
		announcesAcceptedTotal:  announcesAcceptedTotal,
		bundlesSentTotal:        bundlesSentTotal,
		transportErrorsTotal:    transportErrorsTotal,
		encryptionFailuresTotal: encryptionFailuresTotal,
		registrySize:            registrySize,
		wsClients:               wsClients,
	}
}

// HeartbeatAccepted satisfies heartbeat.Metrics.
func (m *Metrics) HeartbeatAccepted() { m.heartbeatsAcceptedTotal.Inc() }

// HeartbeatRejected satisfies heartbeat.Metrics.
func (m *Metrics) HeartbeatRejected() { m.heartbeatsRejectedTotal.Inc() }

// AnnounceAccepted satisfies heartbeat.Metrics.
func (m *Metrics) AnnounceAccepted() { m.announcesAcceptedTotal.Inc() }

// BundleSent increments the scheduler's sent-bundle counter.
func (m *Metrics) BundleSent() { m.bundlesSentTotal.Inc() }

// TransportError increments the transport error counter.
func (m *Metrics) TransportError() { m.transportErrorsTotal.Inc() }

// EncryptionFailure increments the encryption failure counter.
func (m *Metrics) EncryptionFailure() { m.encryptionFailuresTotal.Inc() }

// SetRegistrySize sets the registry size gauge.
func (m *Metrics) SetRegistrySize(n int) { m.registrySize.Set(float64(n)) }

// SetWSClients sets the live WebSocket client gauge.
func (m *Metrics) SetWSClients(n int) { m.wsClients.Set(float64(n)) }

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g.
// registry size, live WS client count).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
