package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pulseguard/pulseguard/internal/domain/alert"
	"github.com/pulseguard/pulseguard/internal/domain/channel"
	"github.com/pulseguard/pulseguard/internal/domain/monitor"
	"github.com/pulseguard/pulseguard/internal/domain/result"
)

type stubChannels struct {
	rows map[int64]*channel.Channel
}

func (s *stubChannels) Create(context.Context, *channel.Channel) error { return nil }
func (s *stubChannels) GetByID(_ context.Context, id int64) (*channel.Channel, error) {
	ch, ok := s.rows[id]
	if !ok {
		return nil, errors.New("channel not found")
	}
	return ch, nil
}
func (s *stubChannels) ListByOwner(context.Context, int64) ([]*channel.Channel, error) {
	return nil, nil
}
func (s *stubChannels) RecordTest(context.Context, int64, time.Time, bool) error { return nil }

type fakeSender struct {
	sent []string // recipients
	html []string
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, _ string, html string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	f.html = append(f.html, html)
	return nil
}

func testMonitor() *monitor.Monitor {
	return &monitor.Monitor{ID: 7, Name: "checkout", URL: "https://shop.example.com/health"}
}

func downResult() *result.CheckResult {
	return &result.CheckResult{
		MonitorID:    7,
		Up:           false,
		ResponseTime: 1200 * time.Millisecond,
		ErrorMessage: "Connection refused",
		FailureKind:  result.FailureConnectionRefused,
		CreatedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDispatch_Email(t *testing.T) {
	mail := &fakeSender{}
	d := NewDispatcher(zap.NewNop(), mail, nil, nil)

	r := &alert.Rule{ID: 1, Channels: alert.Channels{Email: true, EmailTo: []string{"a@x.io", "b@x.io"}}}
	notified := d.Dispatch(context.Background(), r, testMonitor(), downResult(), "checkout is down", "checkout is DOWN. Failed 3 consecutive checks.")

	assert.True(t, notified[ChannelEmail])
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, mail.sent)
	assert.Contains(t, mail.html[0], "checkout is DOWN. Failed 3 consecutive checks.")
}

func TestDispatch_EmailFailureIsContained(t *testing.T) {
	mail := &fakeSender{err: errors.New("smtp: 554")}
	d := NewDispatcher(zap.NewNop(), mail, nil, nil)

	r := &alert.Rule{ID: 1, Channels: alert.Channels{Email: true, EmailTo: []string{"a@x.io"}}}
	notified := d.Dispatch(context.Background(), r, testMonitor(), downResult(), "t", "m")

	assert.False(t, notified[ChannelEmail], "failure is recorded, not raised")
}

func TestDispatch_Webhook(t *testing.T) {
	var gotAuth string
	var payload WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("X-Token")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(zap.NewNop(), nil, NewWebhookSender(time.Second), nil)
	r := &alert.Rule{ID: 2, Channels: alert.Channels{
		Webhook: &alert.WebhookConfig{URL: srv.URL, Headers: map[string]string{"X-Token": "s3cr3t"}},
	}}

	notified := d.Dispatch(context.Background(), r, testMonitor(), downResult(), "checkout is down", "msg")

	assert.True(t, notified[ChannelWebhook])
	assert.Equal(t, "s3cr3t", gotAuth)
	assert.Equal(t, "DOWN", payload.Status)
	assert.Equal(t, "checkout", payload.Monitor)
	assert.Equal(t, int64(1200), payload.ResponseTime)
	assert.NotEmpty(t, payload.EventID)
}

func TestDispatch_WebhookFailureDoesNotBlockEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	mail := &fakeSender{}
	d := NewDispatcher(zap.NewNop(), mail, NewWebhookSender(time.Second), nil)
	r := &alert.Rule{ID: 3, Channels: alert.Channels{
		Email:   true,
		EmailTo: []string{"ops@x.io"},
		Webhook: &alert.WebhookConfig{URL: srv.URL},
	}}

	notified := d.Dispatch(context.Background(), r, testMonitor(), downResult(), "t", "m")

	assert.False(t, notified[ChannelWebhook])
	assert.True(t, notified[ChannelEmail])
	assert.Len(t, mail.sent, 1)
}

func TestDispatch_NoChannels(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), &fakeSender{}, NewWebhookSender(time.Second), nil)
	r := &alert.Rule{ID: 4}

	notified := d.Dispatch(context.Background(), r, testMonitor(), downResult(), "t", "m")
	assert.Empty(t, notified)
}

func TestDispatch_StoredChannelDelivers(t *testing.T) {
	mail := &fakeSender{}
	channels := &stubChannels{rows: map[int64]*channel.Channel{
		5: {ID: 5, Kind: channel.KindEmail, Enabled: true, EmailTo: []string{"oncall@x.io"}},
	}}
	d := NewDispatcher(zap.NewNop(), mail, nil, channels)

	r := &alert.Rule{ID: 6, Channels: alert.Channels{ChannelIDs: []int64{5}}}
	notified := d.Dispatch(context.Background(), r, testMonitor(), downResult(), "t", "m")

	assert.True(t, notified["channel:5"])
	assert.Equal(t, []string{"oncall@x.io"}, mail.sent)
}

func TestDispatch_QuietHoursSkipStoredChannel(t *testing.T) {
	mail := &fakeSender{}
	channels := &stubChannels{rows: map[int64]*channel.Channel{
		5: {ID: 5, Kind: channel.KindEmail, Enabled: true, EmailTo: []string{"oncall@x.io"},
			QuietHours: &channel.QuietHours{Start: "22:00", End: "06:00", Timezone: "UTC"}},
	}}
	d := NewDispatcher(zap.NewNop(), mail, nil, channels).
		WithClock(func() time.Time { return time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC) })

	r := &alert.Rule{ID: 6, Channels: alert.Channels{ChannelIDs: []int64{5}}}
	notified := d.Dispatch(context.Background(), r, testMonitor(), downResult(), "t", "m")

	got, ok := notified["channel:5"]
	require.True(t, ok, "a skipped channel still shows up in the audit map")
	assert.False(t, got)
	assert.Empty(t, mail.sent, "nothing is sent inside the quiet window")
}

func TestDispatch_OutsideQuietHoursStoredChannelDelivers(t *testing.T) {
	mail := &fakeSender{}
	channels := &stubChannels{rows: map[int64]*channel.Channel{
		5: {ID: 5, Kind: channel.KindEmail, Enabled: true, EmailTo: []string{"oncall@x.io"},
			QuietHours: &channel.QuietHours{Start: "22:00", End: "06:00", Timezone: "UTC"}},
	}}
	d := NewDispatcher(zap.NewNop(), mail, nil, channels).
		WithClock(func() time.Time { return time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC) })

	r := &alert.Rule{ID: 6, Channels: alert.Channels{ChannelIDs: []int64{5}}}
	notified := d.Dispatch(context.Background(), r, testMonitor(), downResult(), "t", "m")

	assert.True(t, notified["channel:5"])
	assert.Equal(t, []string{"oncall@x.io"}, mail.sent)
}

func TestDispatch_DisabledStoredChannelSkipped(t *testing.T) {
	mail := &fakeSender{}
	channels := &stubChannels{rows: map[int64]*channel.Channel{
		5: {ID: 5, Kind: channel.KindEmail, Enabled: false, EmailTo: []string{"oncall@x.io"}},
	}}
	d := NewDispatcher(zap.NewNop(), mail, nil, channels)

	r := &alert.Rule{ID: 6, Channels: alert.Channels{ChannelIDs: []int64{5}}}
	notified := d.Dispatch(context.Background(), r, testMonitor(), downResult(), "t", "m")

	assert.False(t, notified["channel:5"])
	assert.Empty(t, mail.sent)
}

func TestDispatch_UnknownStoredChannelRecordedFalse(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), &fakeSender{}, nil, &stubChannels{rows: map[int64]*channel.Channel{}})

	r := &alert.Rule{ID: 6, Channels: alert.Channels{ChannelIDs: []int64{99}}}
	notified := d.Dispatch(context.Background(), r, testMonitor(), downResult(), "t", "m")

	got, ok := notified["channel:99"]
	require.True(t, ok)
	assert.False(t, got)
}

func TestRenderAlertEmail_EscapesUserContent(t *testing.T) {
	html, err := renderAlertEmail("title", "msg", `<script>alert(1)</script>`, "https://x.io",
		false, 0, 10, "boom & bust", time.Now())
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.True(t, strings.Contains(html, "&lt;script&gt;"))
}
