package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from env files, environment variables and flags.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`

	Host           string        `mapstructure:"sepm_host" validate:"required,url"`
	Username       string        `mapstructure:"sepm_username" validate:"required"`
	Password       string        `mapstructure:"sepm_password" validate:"required"`
	ValidateCerts  bool          `mapstructure:"sepm_validate_certs"`
	TimeoutSeconds int64         `mapstructure:"sepm_timeout_seconds"`
	Timeout        time.Duration `mapstructure:"-"`

	ReportSinksFile string `mapstructure:"report_sinks_file"`
	ReportFormat    string `mapstructure:"report_format" validate:"oneof=json yaml text"`
}

// flagKeys maps config keys onto the CLI flags that may override them.
var flagKeys = map[string]string{
	"log_level":            "log-level",
	"sepm_host":            "host",
	"sepm_username":        "username",
	"sepm_password":        "password",
	"sepm_validate_certs":  "validate-certs",
	"sepm_timeout_seconds": "timeout",
	"report_sinks_file":    "sinks-file",
	"report_format":        "format",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from configs/.env, environment variables and, when
// fs is non-nil, any of its flags that were set explicitly.
func Load(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "sepm-epm")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("sepm_host", "")
	v.SetDefault("sepm_username", "")
	v.SetDefault("sepm_password", "")
	v.SetDefault("sepm_validate_certs", true)
	v.SetDefault("sepm_timeout_seconds", 30)
	v.SetDefault("report_sinks_file", "")
	v.SetDefault("report_format", "json")

	v.AutomaticEnv()

	if fs != nil {
		for key, name := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid sepm_timeout_seconds (must be positive seconds)")
	}
	cfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second

	if err := validate.StructPartial(cfg, "LogLevel", "ReportFormat"); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// ValidateServer checks the settings needed to reach a SEPM server.
func (c *Config) ValidateServer() error {
	if c == nil {
		return fmt.Errorf("config must not be nil")
	}
	if err := validate.StructPartial(c, "Host", "Username", "Password"); err != nil {
		return fmt.Errorf("sepm connection settings: %w", err)
	}
	return nil
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.Password != "" {
		c.Password = "***"
	}
	return c
}
