package result

import "time"

// DefaultFailureWindow bounds the consecutive-failure lookback when a rule
// does not set its own threshold.
const DefaultFailureWindow = 10

// FailureKind classifies the transport error behind a down result. A completed
// HTTP exchange is never a failure at this level, whatever the status code.
type FailureKind string

const (
	FailureNone              FailureKind = ""
	FailureTimeout           FailureKind = "timeout"
	FailureDNS               FailureKind = "dns-failure"
	FailureConnectionRefused FailureKind = "connection-refused"
	FailureConnectionReset   FailureKind = "connection-reset"
	FailureUnknown           FailureKind = "unknown"
)

// CheckResult is the immutable outcome of one probe. StatusCode is 0 when the
// transport failed before a response was read.
type CheckResult struct {
	ID              int64             `json:"id"`
	MonitorID       int64             `json:"monitor_id"`
	StatusCode      int               `json:"status_code"`
	ResponseTime    time.Duration     `json:"response_time"`
	Up              bool              `json:"up"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	FailureKind     FailureKind       `json:"failure_kind,omitempty"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}
