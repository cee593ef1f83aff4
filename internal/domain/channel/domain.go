package channel

import "time"

type Kind string

const (
	KindEmail   Kind = "email"
	KindWebhook Kind = "webhook"
	// SMS and Slack channels are modeled and storable but are not wired into
	// rule-triggered dispatch.
	KindSMS   Kind = "sms"
	KindSlack Kind = "slack"
)

// QuietHours suppresses delivery inside a daily time-of-day window on the
// configured days. The window may cross midnight (e.g. 22:00-06:00).
type QuietHours struct {
	Start    string         `json:"start"` // "HH:MM"
	End      string         `json:"end"`   // "HH:MM"
	Timezone string         `json:"timezone"`
	Days     []time.Weekday `json:"days"`
}

// Contains reports whether t falls inside the quiet window. A malformed
// window never suppresses anything.
func (q *QuietHours) Contains(t time.Time) bool {
	if q == nil || q.Start == "" || q.End == "" {
		return false
	}
	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := t.In(loc)

	start, ok1 := minuteOfDay(q.Start)
	end, ok2 := minuteOfDay(q.End)
	if !ok1 || !ok2 {
		return false
	}
	now := local.Hour()*60 + local.Minute()

	var inside bool
	if start <= end {
		inside = now >= start && now < end
	} else {
		// Crosses midnight.
		inside = now >= start || now < end
	}
	if !inside {
		return false
	}

	if len(q.Days) == 0 {
		return true
	}
	day := local.Weekday()
	if start > end && now < end {
		// Window opened yesterday.
		day = local.AddDate(0, 0, -1).Weekday()
	}
	for _, d := range q.Days {
		if d == day {
			return true
		}
	}
	return false
}

func minuteOfDay(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// Channel is a configured delivery target.
type Channel struct {
	ID              int64             `json:"id"`
	OwnerID         int64             `json:"owner_id"`
	Name            string            `json:"name"`
	Kind            Kind              `json:"kind"`
	Enabled         bool              `json:"enabled"`
	EmailTo         []string          `json:"email_to,omitempty"`
	WebhookURL      string            `json:"webhook_url,omitempty"`
	WebhookHeaders  map[string]string `json:"webhook_headers,omitempty"`
	QuietHours      *QuietHours       `json:"quiet_hours,omitempty"`
	LastTestAt      *time.Time        `json:"last_test_at"`
	LastTestSuccess *bool             `json:"last_test_success"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Muted reports whether delivery through the channel should be suppressed at t.
func (c *Channel) Muted(t time.Time) bool {
	return c.QuietHours.Contains(t)
}
