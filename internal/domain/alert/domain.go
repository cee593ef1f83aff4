package alert

import (
	"errors"
	"time"
)

type RuleType string

const (
	RuleDowntime   RuleType = "downtime"
	RuleLatency    RuleType = "latency"
	RuleStatusCode RuleType = "status_code"
	// RuleSSLExpiry is accepted and stored but never fires: certificate
	// inspection is not part of this system.
	RuleSSLExpiry RuleType = "ssl_expiry"
)

const (
	DefaultConsecutiveFailures = 3
	DefaultLatencyThreshold    = 3 * time.Second
)

// Conditions holds the type-specific thresholds of a rule. Zero values mean
// "use the default" for the rule's type.
type Conditions struct {
	ConsecutiveFailures int           `json:"consecutive_failures,omitempty"`
	LatencyThreshold    time.Duration `json:"latency_threshold,omitempty"`
	StatusCodes         []int         `json:"status_codes,omitempty"`
	SSLExpiryDays       int           `json:"ssl_expiry_days,omitempty"`
}

// WebhookConfig is the rule-embedded webhook binding.
type WebhookConfig struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Channels binds a rule to its delivery paths. Email and Webhook are embedded
// in the rule; ChannelIDs reference stored notification channels, which carry
// their own enablement and quiet hours.
type Channels struct {
	Email      bool           `json:"email"`
	EmailTo    []string       `json:"email_to,omitempty"`
	Webhook    *WebhookConfig `json:"webhook,omitempty"`
	ChannelIDs []int64        `json:"channel_ids,omitempty"`
}

// Rule converts check results into notifications. A nil MonitorID makes the
// rule global: it is evaluated against every monitor owned by OwnerID.
type Rule struct {
	ID         int64      `json:"id"`
	OwnerID    int64      `json:"owner_id"`
	MonitorID  *int64     `json:"monitor_id"`
	Type       RuleType   `json:"type"`
	Severity   string     `json:"severity"`
	Enabled    bool       `json:"enabled"`
	Conditions Conditions `json:"conditions"`
	Channels   Channels   `json:"channels"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type HistoryStatus string

const (
	StatusTriggered    HistoryStatus = "triggered"
	StatusAcknowledged HistoryStatus = "acknowledged"
	StatusResolved     HistoryStatus = "resolved"
)

var (
	ErrNotAcknowledgeable = errors.New("alert is not in triggered state")
	ErrAlreadyResolved    = errors.New("alert is already resolved")
)

// Metadata captures the check state at firing time.
type Metadata struct {
	ResponseTime        time.Duration `json:"response_time"`
	StatusCode          int           `json:"status_code"`
	Error               string        `json:"error,omitempty"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
}

// History is one audit record of one rule firing against one check.
// Lifecycle: triggered -> acknowledged -> resolved, or triggered -> resolved
// directly, in which case the acknowledge fields are backfilled to the
// resolver.
type History struct {
	ID               int64           `json:"id"`
	RuleID           int64           `json:"rule_id"`
	MonitorID        int64           `json:"monitor_id"`
	Status           HistoryStatus   `json:"status"`
	Title            string          `json:"title"`
	Message          string          `json:"message"`
	Metadata         Metadata        `json:"metadata"`
	ChannelsNotified map[string]bool `json:"channels_notified"`
	TriggeredAt      time.Time       `json:"triggered_at"`
	AcknowledgedAt   *time.Time      `json:"acknowledged_at"`
	AcknowledgedBy   *string         `json:"acknowledged_by"`
	ResolvedAt       *time.Time      `json:"resolved_at"`
}

func (h *History) Open() bool { return h.Status != StatusResolved }

func (h *History) Acknowledge(actor string, at time.Time) error {
	if h.Status != StatusTriggered {
		return ErrNotAcknowledgeable
	}
	h.Status = StatusAcknowledged
	h.AcknowledgedAt = &at
	h.AcknowledgedBy = &actor
	return nil
}

func (h *History) Resolve(actor string, at time.Time) error {
	if h.Status == StatusResolved {
		return ErrAlreadyResolved
	}
	if h.AcknowledgedAt == nil {
		h.AcknowledgedAt = &at
		h.AcknowledgedBy = &actor
	}
	h.Status = StatusResolved
	h.ResolvedAt = &at
	return nil
}
