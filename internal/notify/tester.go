package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulseguard/pulseguard/internal/domain/channel"
)

var ErrUnsupportedChannel = errors.New("channel kind has no delivery path")

// Tester exercises a channel's configured delivery path with a fixed test
// message and records the outcome on the channel.
type Tester struct {
	log      *zap.Logger
	mail     Sender
	webhook  *WebhookSender
	channels channel.Repo
	clock    func() time.Time
}

func NewTester(log *zap.Logger, mail Sender, webhook *WebhookSender, channels channel.Repo) *Tester {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tester{
		log:      log.With(zap.String("component", "notify.tester")),
		mail:     mail,
		webhook:  webhook,
		channels: channels,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

func (t *Tester) WithClock(clock func() time.Time) *Tester {
	cp := *t
	cp.clock = clock
	return &cp
}

// TestChannel sends the fixed test message and updates
// lastTestAt/lastTestSuccess regardless of outcome. The delivery error, if
// any, is returned to the caller.
func (t *Tester) TestChannel(ctx context.Context, ch *channel.Channel) error {
	now := t.clock()
	sendErr := t.deliverTest(ctx, ch, now)

	if err := t.channels.RecordTest(ctx, ch.ID, now, sendErr == nil); err != nil {
		t.log.Error("record channel test", zap.Int64("channel_id", ch.ID), zap.Error(err))
	}
	return sendErr
}

func (t *Tester) deliverTest(ctx context.Context, ch *channel.Channel, now time.Time) error {
	message := fmt.Sprintf("This is a test notification from Pulseguard (%s).", now.Format(time.RFC3339))

	switch ch.Kind {
	case channel.KindEmail:
		if t.mail == nil {
			return ErrUnsupportedChannel
		}
		html, err := renderAlertEmail("Test notification", message, ch.Name, "", true, 200, 0, "", now)
		if err != nil {
			return err
		}
		for _, to := range ch.EmailTo {
			if err := t.mail.Send(ctx, to, "Test notification", html); err != nil {
				return err
			}
		}
		return nil

	case channel.KindWebhook:
		if t.webhook == nil {
			return ErrUnsupportedChannel
		}
		return t.webhook.Post(ctx, ch.WebhookURL, ch.WebhookHeaders, WebhookPayload{
			EventID:   uuid.NewString(),
			Alert:     message,
			Monitor:   ch.Name,
			Status:    "UP",
			Timestamp: now,
		})

	default:
		// SMS and Slack are modeled but not wired into delivery.
		return ErrUnsupportedChannel
	}
}
