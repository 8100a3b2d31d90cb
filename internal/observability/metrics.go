package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	linkLabels = []string{"iface"}

	linkRxBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshlink",
			Subsystem: "link",
			Name:      "rx_bytes_total",
			Help:      "Payload bytes delivered to the router, frame headers excluded.",
		},
		linkLabels,
	)
	linkTxBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshlink",
			Subsystem: "link",
			Name:      "tx_bytes_total",
			Help:      "Payload bytes fully written to the bridge, frame headers excluded.",
		},
		linkLabels,
	)
	linkFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshlink",
			Subsystem: "link",
			Name:      "frames_total",
			Help:      "Frames by direction (rx, tx, keepalive).",
		},
		[]string{"iface", "kind"},
	)
	linkDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshlink",
			Subsystem: "link",
			Name:      "dropped_total",
			Help:      "Outbound payloads dropped while offline or on write failure.",
		},
		linkLabels,
	)
	linkConnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshlink",
			Subsystem: "link",
			Name:      "connect_attempts_total",
			Help:      "Connect attempts by result.",
		},
		[]string{"iface", "result"},
	)
	linkOnline = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "meshlink",
			Subsystem: "link",
			Name:      "online",
			Help:      "1 while the interface holds a healthy connection.",
		},
		linkLabels,
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshlink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total status HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "meshlink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Status HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			linkRxBytes, linkTxBytes, linkFrames, linkDropped, linkConnects, linkOnline,
			httpRequests, httpDuration,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// LinkMetrics records one interface's counters. A nil *LinkMetrics is a no-op.
type LinkMetrics struct {
	rxBytes    prometheus.Counter
	txBytes    prometheus.Counter
	rxFrames   prometheus.Counter
	txFrames   prometheus.Counter
	keepalives prometheus.Counter
	dropped    prometheus.Counter
	connectOK  prometheus.Counter
	connectErr prometheus.Counter
	online     prometheus.Gauge
}

func NewLinkMetrics(iface string) *LinkMetrics {
	RegisterMetrics()
	return &LinkMetrics{
		rxBytes:    linkRxBytes.WithLabelValues(iface),
		txBytes:    linkTxBytes.WithLabelValues(iface),
		rxFrames:   linkFrames.WithLabelValues(iface, "rx"),
		txFrames:   linkFrames.WithLabelValues(iface, "tx"),
		keepalives: linkFrames.WithLabelValues(iface, "keepalive"),
		dropped:    linkDropped.WithLabelValues(iface),
		connectOK:  linkConnects.WithLabelValues(iface, "ok"),
		connectErr: linkConnects.WithLabelValues(iface, "error"),
		online:     linkOnline.WithLabelValues(iface),
	}
}

func (m *LinkMetrics) Received(n int) {
	if m == nil {
		return
	}
	m.rxBytes.Add(float64(n))
	m.rxFrames.Inc()
}

func (m *LinkMetrics) Sent(n int) {
	if m == nil {
		return
	}
	m.txBytes.Add(float64(n))
	m.txFrames.Inc()
}

func (m *LinkMetrics) Keepalive() {
	if m == nil {
		return
	}
	m.keepalives.Inc()
}

func (m *LinkMetrics) Dropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *LinkMetrics) ConnectResult(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.connectErr.Inc()
		return
	}
	m.connectOK.Inc()
}

func (m *LinkMetrics) SetOnline(online bool) {
	if m == nil {
		return
	}
	if online {
		m.online.Set(1)
		return
	}
	m.online.Set(0)
}
