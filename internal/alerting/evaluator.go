package alerting

import (
	"fmt"

	"github.com/pulseguard/pulseguard/internal/domain/alert"
	"github.com/pulseguard/pulseguard/internal/domain/monitor"
	"github.com/pulseguard/pulseguard/internal/domain/result"
)

// Evaluate reports whether the rule fires for the given check result.
// consecutiveFailures is the streak of most-recent down results for the
// monitor, computed by the caller from stored history.
func Evaluate(r *alert.Rule, res *result.CheckResult, consecutiveFailures int) bool {
	if !r.Enabled {
		return false
	}
	switch r.Type {
	case alert.RuleDowntime:
		threshold := r.Conditions.ConsecutiveFailures
		if threshold <= 0 {
			threshold = alert.DefaultConsecutiveFailures
		}
		return !res.Up && consecutiveFailures >= threshold

	case alert.RuleLatency:
		threshold := r.Conditions.LatencyThreshold
		if threshold <= 0 {
			threshold = alert.DefaultLatencyThreshold
		}
		// A down result never fires a latency rule, whatever its timing.
		return res.Up && res.ResponseTime > threshold

	case alert.RuleStatusCode:
		for _, code := range r.Conditions.StatusCodes {
			if res.StatusCode == code {
				return true
			}
		}
		return false

	case alert.RuleSSLExpiry:
		// Modeled but never evaluated; certificate inspection is out of scope.
		return false
	}
	return false
}

// Window returns how many recent results the consecutive-failure count for
// the rule should look at.
func Window(r *alert.Rule) int {
	if r.Type == alert.RuleDowntime && r.Conditions.ConsecutiveFailures > 0 {
		return r.Conditions.ConsecutiveFailures
	}
	return result.DefaultFailureWindow
}

// Title builds the short audit title for a firing.
func Title(r *alert.Rule, m *monitor.Monitor) string {
	switch r.Type {
	case alert.RuleDowntime:
		return fmt.Sprintf("%s is down", m.Name)
	case alert.RuleLatency:
		return fmt.Sprintf("%s is slow", m.Name)
	case alert.RuleStatusCode:
		return fmt.Sprintf("%s returned an unexpected status", m.Name)
	default:
		return fmt.Sprintf("%s alert", m.Name)
	}
}

// Message builds the human-readable alert message for a firing.
func Message(r *alert.Rule, m *monitor.Monitor, res *result.CheckResult, consecutiveFailures int) string {
	switch r.Type {
	case alert.RuleDowntime:
		return fmt.Sprintf("%s is DOWN. Failed %d consecutive checks.", m.Name, consecutiveFailures)
	case alert.RuleLatency:
		return fmt.Sprintf("%s is experiencing high latency: %dms", m.Name, res.ResponseTime.Milliseconds())
	case alert.RuleStatusCode:
		return fmt.Sprintf("%s returned status code %d", m.Name, res.StatusCode)
	default:
		return fmt.Sprintf("%s triggered a %s alert", m.Name, r.Type)
	}
}
