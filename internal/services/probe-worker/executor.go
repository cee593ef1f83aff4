package probe_worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/pulseguard/pulseguard/internal/domain/monitor"
	"github.com/pulseguard/pulseguard/internal/domain/result"
)

const defaultProbeTimeout = 30 * time.Second

// Executor runs a single HTTP probe against a monitor's target. A probe never
// fails as a Go error: transport problems become down results with a failure
// classification, so one flaky target cannot poison the firing.
type Executor struct {
	client    *http.Client
	userAgent string
	clock     func() time.Time
}

func NewExecutor(client *http.Client, userAgent string) *Executor {
	if userAgent == "" {
		userAgent = "pulseguard-probe/1.0"
	}
	return &Executor{
		client:    client,
		userAgent: userAgent,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

func (e *Executor) WithClock(clock func() time.Time) *Executor {
	cp := *e
	cp.clock = clock
	return &cp
}

// Execute probes the monitor once within its configured timeout and returns a
// fully classified result.
func (e *Executor) Execute(ctx context.Context, m *monitor.Monitor) *result.CheckResult {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := &result.CheckResult{
		MonitorID: m.ID,
		CreatedAt: e.clock(),
	}

	req, err := e.buildRequest(ctx, m)
	if err != nil {
		res.Up = false
		res.FailureKind = result.FailureUnknown
		res.ErrorMessage = err.Error()
		return res
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	res.ResponseTime = time.Since(start)

	if err != nil {
		res.Up = false
		res.FailureKind, res.ErrorMessage = classify(err, timeout)
		return res
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
	}()

	res.StatusCode = resp.StatusCode
	res.Up = resp.StatusCode >= 200 && resp.StatusCode < 400
	res.ResponseHeaders = flattenHeaders(resp.Header)
	return res
}

func (e *Executor) buildRequest(ctx context.Context, m *monitor.Monitor) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(m.HTTPMethod))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if m.Body != "" {
		body = strings.NewReader(m.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, normalizeURL(m.URL), body)
	if err != nil {
		return nil, fmt.Errorf("build probe request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	for k, v := range m.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// classify maps a transport error to the failure taxonomy. Order matters:
// a deadline inside a DNS lookup is still a timeout.
func classify(err error, timeout time.Duration) (result.FailureKind, string) {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return result.FailureTimeout, fmt.Sprintf("Request timed out after %dms", timeout.Milliseconds())
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return result.FailureDNS, "DNS lookup failed for URL"
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return result.FailureConnectionRefused, "Connection refused"
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return result.FailureConnectionReset, "Connection reset by peer"
	}

	msg := err.Error()
	if msg == "" {
		msg = "Unknown error"
	}
	return result.FailureUnknown, msg
}

func flattenHeaders(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}

func normalizeURL(s string) string {
	t := strings.TrimSpace(s)
	if t == "" {
		return t
	}
	if strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") {
		return t
	}
	return "http://" + t
}
