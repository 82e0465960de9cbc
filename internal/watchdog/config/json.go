package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/mkarpenko/keywarden/internal/flagx"
	"github.com/mkarpenko/keywarden/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "30s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	DatabaseDSN        string         `json:"database_dsn"`
	SecretKey          string         `json:"secret_key"`
	EnvelopePublicKey  string         `json:"envelope_public_key"`
	EnvelopePrivateKey string         `json:"envelope_private_key"`
	TickInterval       timex.Duration `json:"tick_interval"`
	RecordTimeout      timex.Duration `json:"record_timeout"`
	WarnCooldown       timex.Duration `json:"warn_cooldown"`
	GracePeriod        timex.Duration `json:"grace_period"`
	SMTPHost           string         `json:"smtp_host"`
	SMTPPort           int            `json:"smtp_port"`
	SMTPUser           string         `json:"smtp_user"`
	SMTPPassword       string         `json:"smtp_password"`
	MailFrom           string         `json:"mail_from"`
	DryRun             bool           `json:"dry_run"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; when neither
// is set, no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics: a half-applied config is worse than a
// refused start.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.EnvelopePublicKey = c.EnvelopePublicKey
	config.EnvelopePrivateKey = c.EnvelopePrivateKey
	config.TickInterval = time.Duration(c.TickInterval.Duration)
	config.RecordTimeout = time.Duration(c.RecordTimeout.Duration)
	config.WarnCooldown = time.Duration(c.WarnCooldown.Duration)
	config.GracePeriod = time.Duration(c.GracePeriod.Duration)
	config.SMTPHost = c.SMTPHost
	config.SMTPPort = c.SMTPPort
	config.SMTPUser = c.SMTPUser
	config.SMTPPassword = c.SMTPPassword
	config.MailFrom = c.MailFrom
	config.DryRun = c.DryRun
}
