package config

import (
	"time"

	"github.com/rdsops/snapshot-reconciler/internal/adapters/platform/aws"
	"github.com/rdsops/snapshot-reconciler/internal/log"
	"github.com/rdsops/snapshot-reconciler/internal/reporting/json"
	"github.com/rdsops/snapshot-reconciler/internal/reporting/text"
)

type Config struct {
	Settings SettingsConfig  `mapstructure:"settings"`
	AWS      aws.Config      `mapstructure:"aws"`
	Defaults RequestDefaults `mapstructure:"defaults"`
}

type SettingsConfig struct {
	LogLevel  log.Level  `mapstructure:"log_level"`
	LogFormat log.Format `mapstructure:"log_format"`

	// Output selects the reporter printing reconcile/facts results.
	Output string `mapstructure:"output" validate:"omitempty,oneof=text json"`

	// PollInterval is the fixed delay between status polls while waiting
	// for a snapshot to converge.
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`

	// APIRequestsPerSecond caps calls against the AWS API; 0 means the
	// limiter default.
	APIRequestsPerSecond int `mapstructure:"api_rps" validate:"gte=0,lte=100"`

	Reporter ReporterConfigs `mapstructure:"reporter_config"`
}

type ReporterConfigs struct {
	Text *text.Config `mapstructure:"text,omitempty"`
	JSON *json.Config `mapstructure:"json,omitempty"`
}

// RequestDefaults are config-file defaults merged under the per-invocation
// CLI flags. Tags stay map[string]any here because viper hands them over
// untyped; they are normalized when the request is built.
type RequestDefaults struct {
	WaitTimeout time.Duration  `mapstructure:"wait_timeout" validate:"gt=0"`
	Tags        map[string]any `mapstructure:"tags"`
}

func DefaultConfig() *Config {
	return &Config{
		Settings: SettingsConfig{
			LogLevel:             log.LevelInfo,
			LogFormat:            log.FormatText,
			Output:               text.ReporterTypeText,
			PollInterval:         5 * time.Second,
			APIRequestsPerSecond: 0,
			Reporter: ReporterConfigs{
				Text: &text.Config{NoColor: false},
			},
		},
		AWS: aws.Config{},
		Defaults: RequestDefaults{
			WaitTimeout: 300 * time.Second,
		},
	}
}
