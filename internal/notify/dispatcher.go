package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulseguard/pulseguard/internal/domain/alert"
	"github.com/pulseguard/pulseguard/internal/domain/channel"
	"github.com/pulseguard/pulseguard/internal/domain/monitor"
	"github.com/pulseguard/pulseguard/internal/domain/result"
)

const (
	ChannelEmail   = "email"
	ChannelWebhook = "webhook"
)

// Dispatcher fans a triggered alert out to the rule's channels. Channels are
// attempted independently: one channel failing is logged and never blocks the
// others, and the caller always gets the bookkeeping map back so the audit
// record can be written.
type Dispatcher struct {
	log      *zap.Logger
	mail     Sender
	webhook  *WebhookSender
	channels channel.Repo
	clock    func() time.Time
}

func NewDispatcher(log *zap.Logger, mail Sender, webhook *WebhookSender, channels channel.Repo) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		log:      log.With(zap.String("component", "notify.dispatcher")),
		mail:     mail,
		webhook:  webhook,
		channels: channels,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock fixes the dispatcher's notion of now, for tests.
func (d *Dispatcher) WithClock(clock func() time.Time) *Dispatcher {
	cp := *d
	cp.clock = clock
	return &cp
}

// Dispatch sends title/message through every channel enabled on the rule and
// returns which channels were notified successfully. Failed or skipped
// channels are reported false.
func (d *Dispatcher) Dispatch(ctx context.Context, r *alert.Rule, m *monitor.Monitor, res *result.CheckResult, title, message string) map[string]bool {
	notified := map[string]bool{}
	now := d.clock()

	if r.Channels.Email && d.mail != nil {
		notified[ChannelEmail] = false
		ok := true
		for _, to := range r.Channels.EmailTo {
			html, err := renderAlertEmail(title, message, m.Name, m.URL,
				res.Up, res.StatusCode, res.ResponseTime.Milliseconds(), res.ErrorMessage, res.CreatedAt)
			if err != nil {
				d.log.Error("render alert email", zap.Int64("rule_id", r.ID), zap.Error(err))
				ok = false
				break
			}
			if err := d.mail.Send(ctx, to, title, html); err != nil {
				d.log.Error("email dispatch failed",
					zap.Int64("rule_id", r.ID), zap.Int64("monitor_id", m.ID),
					zap.String("to", to), zap.Error(err))
				ok = false
			}
		}
		notified[ChannelEmail] = ok && len(r.Channels.EmailTo) > 0
	}

	if r.Channels.Webhook != nil && r.Channels.Webhook.URL != "" && d.webhook != nil {
		notified[ChannelWebhook] = false
		status := "DOWN"
		if res.Up {
			status = "UP"
		}
		payload := WebhookPayload{
			EventID:      uuid.NewString(),
			Alert:        message,
			Monitor:      m.Name,
			URL:          m.URL,
			Status:       status,
			ResponseTime: res.ResponseTime.Milliseconds(),
			StatusCode:   res.StatusCode,
			Timestamp:    now,
		}
		if err := d.webhook.Post(ctx, r.Channels.Webhook.URL, r.Channels.Webhook.Headers, payload); err != nil {
			d.log.Error("webhook dispatch failed",
				zap.Int64("rule_id", r.ID), zap.Int64("monitor_id", m.ID), zap.Error(err))
		} else {
			notified[ChannelWebhook] = true
		}
	}

	for _, id := range r.Channels.ChannelIDs {
		key := fmt.Sprintf("channel:%d", id)
		notified[key] = false
		if d.channels == nil {
			d.log.Warn("rule references stored channels but no channel store is wired",
				zap.Int64("rule_id", r.ID), zap.Int64("channel_id", id))
			continue
		}
		ch, err := d.channels.GetByID(ctx, id)
		if err != nil {
			d.log.Error("load channel",
				zap.Int64("rule_id", r.ID), zap.Int64("channel_id", id), zap.Error(err))
			continue
		}
		if !ch.Enabled {
			d.log.Debug("channel disabled, delivery skipped", zap.Int64("channel_id", id))
			continue
		}
		if ch.Muted(now) {
			// Skipped, not failed: the audit record shows false and no error
			// is raised.
			d.log.Debug("channel inside quiet hours, delivery skipped",
				zap.Int64("channel_id", id), zap.Time("at", now))
			continue
		}
		if err := d.deliverStored(ctx, ch, m, res, title, message, now); err != nil {
			d.log.Error("channel dispatch failed",
				zap.Int64("rule_id", r.ID), zap.Int64("channel_id", id), zap.Error(err))
			continue
		}
		notified[key] = true
	}

	return notified
}

func (d *Dispatcher) deliverStored(ctx context.Context, ch *channel.Channel, m *monitor.Monitor, res *result.CheckResult, title, message string, now time.Time) error {
	switch ch.Kind {
	case channel.KindEmail:
		if d.mail == nil {
			return fmt.Errorf("no mail sender for channel %d", ch.ID)
		}
		html, err := renderAlertEmail(title, message, m.Name, m.URL,
			res.Up, res.StatusCode, res.ResponseTime.Milliseconds(), res.ErrorMessage, res.CreatedAt)
		if err != nil {
			return err
		}
		for _, to := range ch.EmailTo {
			if err := d.mail.Send(ctx, to, title, html); err != nil {
				return err
			}
		}
		return nil

	case channel.KindWebhook:
		if d.webhook == nil {
			return fmt.Errorf("no webhook sender for channel %d", ch.ID)
		}
		status := "DOWN"
		if res.Up {
			status = "UP"
		}
		return d.webhook.Post(ctx, ch.WebhookURL, ch.WebhookHeaders, WebhookPayload{
			EventID:      uuid.NewString(),
			Alert:        message,
			Monitor:      m.Name,
			URL:          m.URL,
			Status:       status,
			ResponseTime: res.ResponseTime.Milliseconds(),
			StatusCode:   res.StatusCode,
			Timestamp:    now,
		})

	default:
		return fmt.Errorf("channel %d kind %q has no delivery path", ch.ID, ch.Kind)
	}
}
