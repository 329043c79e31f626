package config

import (
	"encoding/json"
	"os"

	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/logger"
)

type Config struct {
	Database  DatabaseConfig  `json:"database"`
	SMTP      SMTPConfig      `json:"smtp"`
	Scheduler SchedulerConfig `json:"scheduler"`
	HTTP      HTTPConfig      `json:"http"`
	Logging   LoggingConfig   `json:"logging"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	Port     int    `json:"port"`
	SSLMode  string `json:"sslmode"`
}

type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
	// AllowCleartextAuth permits sending credentials without STARTTLS.
	// Only meant for local relays that genuinely have no TLS.
	AllowCleartextAuth bool `json:"allow_cleartext_auth"`
}

type SchedulerConfig struct {
	// CronSpec must fire at least as often as the tolerance window,
	// otherwise users whose preferred minute falls between ticks are missed.
	CronSpec           string `json:"cron_spec"`
	Workers            int    `json:"workers"`
	NotifierPerSecond  int    `json:"notifier_per_second"`
	CycleTimeoutSecs   int    `json:"cycle_timeout_seconds"`
	PerUserTimeoutSecs int    `json:"per_user_timeout_seconds"`
}

type HTTPConfig struct {
	Listen string `json:"listen"`
}

type LoggingConfig struct {
	Level     string `json:"level"`
	File      string `json:"file"`
	GormLevel string `json:"gorm_level"`
}

var AppConfig Config

func LoadConfig(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		logger.Error("failed to open config file", "error", err)
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&AppConfig); err != nil {
		logger.Error("failed to decode config file", "error", err)
		return err
	}

	applyEnvOverrides(&AppConfig)
	applyDefaults(&AppConfig)
	return nil
}

// Secrets may come from the environment (loaded from .env by the binaries)
// instead of the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INKLINGS_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("INKLINGS_SMTP_PASSWORD"); v != "" {
		cfg.SMTP.Password = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Scheduler.CronSpec == "" {
		cfg.Scheduler.CronSpec = "*/5 * * * *"
	}
	if cfg.Scheduler.Workers <= 0 {
		cfg.Scheduler.Workers = 4
	}
	if cfg.Scheduler.NotifierPerSecond <= 0 {
		cfg.Scheduler.NotifierPerSecond = 2
	}
	if cfg.Scheduler.CycleTimeoutSecs <= 0 {
		cfg.Scheduler.CycleTimeoutSecs = 240
	}
	if cfg.Scheduler.PerUserTimeoutSecs <= 0 {
		cfg.Scheduler.PerUserTimeoutSecs = 30
	}
	if cfg.HTTP.Listen == "" {
		cfg.HTTP.Listen = ":8080"
	}
	if cfg.SMTP.Port <= 0 {
		cfg.SMTP.Port = 587
	}
}
