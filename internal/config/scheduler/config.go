package scheduler_config

import (
	"time"

	"github.com/pulseguard/pulseguard/internal/obs"
	pginfra "github.com/pulseguard/pulseguard/internal/repository/postgres"
)

type KafkaCfg struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type SchedCfg struct {
	Tick        time.Duration `mapstructure:"tick"`
	BatchLimit  int           `mapstructure:"batch_limit"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
}

type LogCfg struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	Env    string `mapstructure:"env"`
	Ver    string `mapstructure:"ver"`
}

func (c LogCfg) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{Level: c.Level, Pretty: c.Pretty, App: "scheduler", Env: c.Env, Ver: c.Ver}
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
	DB    pginfra.Config `mapstructure:"db"`
	Kafka KafkaCfg       `mapstructure:"kafka"`
	Sched SchedCfg       `mapstructure:"sched"`
	Log   LogCfg         `mapstructure:"log"`
	OTEL  OTELCfg        `mapstructure:"otel"`
}
