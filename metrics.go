package eduAuth

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/eduAuth/transport"
)

// MetricID identifies one client counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that stored a session.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts logins rejected by the server or the network.
	MetricLoginFailure
	// MetricRegisterSuccess counts registrations that stored a session.
	MetricRegisterSuccess
	// MetricRegisterFailure counts registrations that failed for any reason but a duplicate account.
	MetricRegisterFailure
	// MetricRegisterDuplicate counts registrations rejected as an existing account.
	MetricRegisterDuplicate
	// MetricValidationRejected counts submissions stopped before the network by validation.
	MetricValidationRejected
	// MetricSubmissionRejected counts form submissions refused because one was already in flight.
	MetricSubmissionRejected
	// MetricUnauthorized counts 401 responses.
	MetricUnauthorized
	// MetricLogout counts completed logouts.
	MetricLogout
	// MetricSessionRehydrated counts startups that restored a held session.
	MetricSessionRehydrated
	// MetricProfileRefreshed counts successful profile refreshes.
	MetricProfileRefreshed
	// MetricRequestTimeout counts requests that timed out.
	MetricRequestTimeout
	// MetricRequestNetworkError counts requests that never reached the server.
	MetricRequestNetworkError
	// MetricRequestServerError counts 5xx responses.
	MetricRequestServerError
	// MetricRequestLatency is the request latency histogram.
	MetricRequestLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters. A nil *Metrics ignores every call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the histogram of id. Only [MetricRequestLatency] is
// a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricRequestLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// ObserveRequest implements transport.Observer.
func (m *Metrics) ObserveRequest(_, _ string, status int, code transport.Code, elapsed time.Duration) {
	if m == nil || !m.enabled {
		return
	}
	switch code {
	case transport.CodeTimeout:
		m.Inc(MetricRequestTimeout)
	case transport.CodeNetwork:
		m.Inc(MetricRequestNetworkError)
	}
	if status >= http.StatusInternalServerError {
		m.Inc(MetricRequestServerError)
	}
	m.Observe(MetricRequestLatency, elapsed)
}

// Value returns the current count of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the latency histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricRequestLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRequestLatency].buckets[i])
		}
		s.Histograms[MetricRequestLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
