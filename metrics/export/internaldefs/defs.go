package internaldefs

import (
	eduAuth "github.com/MrEthical07/eduAuth"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   eduAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   eduAuth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "eduauth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// CounterDefs lists every client counter in export order.
var CounterDefs = []CounterDef{
	{ID: eduAuth.MetricLoginSuccess, Name: "eduauth_login_success_total", Help: "Logins that stored a session."},
	{ID: eduAuth.MetricLoginFailure, Name: "eduauth_login_failure_total", Help: "Logins rejected by the server or the network."},
	{ID: eduAuth.MetricRegisterSuccess, Name: "eduauth_register_success_total", Help: "Registrations that stored a session."},
	{ID: eduAuth.MetricRegisterFailure, Name: "eduauth_register_failure_total", Help: "Failed registrations other than duplicates."},
	{ID: eduAuth.MetricRegisterDuplicate, Name: "eduauth_register_duplicate_total", Help: "Registrations rejected as an existing account."},
	{ID: eduAuth.MetricValidationRejected, Name: "eduauth_validation_rejected_total", Help: "Submissions stopped by local validation."},
	{ID: eduAuth.MetricSubmissionRejected, Name: "eduauth_submission_rejected_total", Help: "Form submissions refused while another was in flight."},
	{ID: eduAuth.MetricUnauthorized, Name: "eduauth_unauthorized_total", Help: "401 responses received."},
	{ID: eduAuth.MetricLogout, Name: "eduauth_logout_total", Help: "Completed logouts."},
	{ID: eduAuth.MetricSessionRehydrated, Name: "eduauth_session_rehydrated_total", Help: "Startups that restored a persisted session."},
	{ID: eduAuth.MetricProfileRefreshed, Name: "eduauth_profile_refreshed_total", Help: "Successful profile refreshes."},
	{ID: eduAuth.MetricRequestTimeout, Name: "eduauth_request_timeout_total", Help: "API requests that timed out."},
	{ID: eduAuth.MetricRequestNetworkError, Name: "eduauth_request_network_error_total", Help: "API requests that never reached the server."},
	{ID: eduAuth.MetricRequestServerError, Name: "eduauth_request_server_error_total", Help: "API responses with a 5xx status."},
}

// HistogramDefs lists every client histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: eduAuth.MetricRequestLatency, Name: "eduauth_request_latency_seconds", Help: "API request latency."},
}

// HistogramBounds are the upper bounds of the eight latency buckets, as
// rendered in the le label.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix renders each bound as an instrument name suffix.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// HistogramBoundSeconds are HistogramBounds without the +Inf bucket.
var HistogramBoundSeconds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets pads or truncates raw to eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
