package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// Monitor name, url and error message are user-controlled; html/template
// escapes them on interpolation.
const alertEmailTmpl = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1f2937;">
  <h2>{{.Glyph}} {{.Title}}</h2>
  <p>{{.Message}}</p>
  <table cellpadding="4">
    <tr><td><b>Monitor</b></td><td>{{.MonitorName}}</td></tr>
    <tr><td><b>URL</b></td><td>{{.URL}}</td></tr>
    <tr><td><b>Status</b></td><td>{{.Status}}</td></tr>
    <tr><td><b>Status code</b></td><td>{{.StatusCode}}</td></tr>
    <tr><td><b>Response time</b></td><td>{{.ResponseTimeMs}}ms</td></tr>
    {{if .ErrorMessage}}<tr><td><b>Error</b></td><td>{{.ErrorMessage}}</td></tr>{{end}}
    <tr><td><b>Checked at</b></td><td>{{.CheckedAt}}</td></tr>
  </table>
</body>
</html>`

var alertEmail = template.Must(template.New("alert").Parse(alertEmailTmpl))

type emailData struct {
	Glyph          string
	Title          string
	Message        string
	MonitorName    string
	URL            string
	Status         string
	StatusCode     int
	ResponseTimeMs int64
	ErrorMessage   string
	CheckedAt      string
}

func renderAlertEmail(title, message, monitorName, url string, up bool, statusCode int, responseTimeMs int64, errorMessage string, at time.Time) (string, error) {
	glyph, status := "\U0001F534", "DOWN"
	if up {
		glyph, status = "✅", "UP"
	}
	var buf bytes.Buffer
	err := alertEmail.Execute(&buf, emailData{
		Glyph:          glyph,
		Title:          title,
		Message:        message,
		MonitorName:    monitorName,
		URL:            url,
		Status:         status,
		StatusCode:     statusCode,
		ResponseTimeMs: responseTimeMs,
		ErrorMessage:   errorMessage,
		CheckedAt:      at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("render alert email: %w", err)
	}
	return buf.String(), nil
}
