package probe_worker_config

import (
	"time"

	"github.com/pulseguard/pulseguard/internal/notify"
	"github.com/pulseguard/pulseguard/internal/obs"
	pginfra "github.com/pulseguard/pulseguard/internal/repository/postgres"
)

type KafkaIn struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type HTTPProbe struct {
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	FollowRedirects bool          `mapstructure:"follow_redirects"`
	VerifyTLS       bool          `mapstructure:"verify_tls"`
}

type WorkerCfg struct {
	Concurrency int    `mapstructure:"concurrency"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type WebhookCfg struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogCfg struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	Env    string `mapstructure:"env"`
	Ver    string `mapstructure:"ver"`
}

func (c LogCfg) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{Level: c.Level, Pretty: c.Pretty, App: "probe-worker", Env: c.Env, Ver: c.Ver}
}

type OTELCfg struct {
	Enable      bool    `mapstructure:"enable"`
	Endpoint    string  `mapstructure:"otlp_endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

func (c OTELCfg) AsOTELConfig() obs.OTELConfig {
	return obs.OTELConfig{Enable: c.Enable, Endpoint: c.Endpoint, ServiceName: c.ServiceName, SampleRatio: c.SampleRatio}
}

type Config struct {
	DB      pginfra.Config    `mapstructure:"db"`
	In      KafkaIn           `mapstructure:"kafka_in"`
	HTTP    HTTPProbe         `mapstructure:"http"`
	Worker  WorkerCfg         `mapstructure:"worker"`
	SMTP    notify.SMTPConfig `mapstructure:"smtp"`
	Webhook WebhookCfg        `mapstructure:"webhook"`
	Log     LogCfg            `mapstructure:"log"`
	OTEL    OTELCfg           `mapstructure:"otel"`
}
