package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SEPM_HOST", "")
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.ValidateCerts {
		t.Fatalf("expected certificate validation on by default")
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("Timeout = %s", cfg.Timeout)
	}
	if cfg.ReportFormat != "json" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Setenv("SEPM_HOST", "https://sepm.example.com:8446")
	t.Setenv("SEPM_USERNAME", "env-user")
	t.Setenv("SEPM_PASSWORD", "env-pass")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("username", "", "")
	fs.Bool("validate-certs", true, "")
	fs.Int64("timeout", 30, "")
	if err := fs.Parse([]string{"--username=flag-user", "--validate-certs=false", "--timeout=5"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Host != "https://sepm.example.com:8446" {
		t.Fatalf("Host = %q", cfg.Host)
	}
	if cfg.Username != "flag-user" {
		t.Fatalf("expected flag to override env, got %q", cfg.Username)
	}
	if cfg.ValidateCerts {
		t.Fatalf("expected validate-certs=false from flag")
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("Timeout = %s", cfg.Timeout)
	}
	if err := cfg.ValidateServer(); err != nil {
		t.Fatalf("ValidateServer: %v", err)
	}
	if got := cfg.Redacted().Password; got != "***" {
		t.Fatalf("password not redacted: %q", got)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SEPM_TIMEOUT_SECONDS", "0")
	if _, err := Load(nil); err == nil {
		t.Fatalf("expected error for zero timeout")
	}

	t.Setenv("SEPM_TIMEOUT_SECONDS", "10")
	t.Setenv("REPORT_FORMAT", "xml")
	if _, err := Load(nil); err == nil || !strings.Contains(err.Error(), "ReportFormat") {
		t.Fatalf("expected report format validation error, got %v", err)
	}
}

func TestValidateServerRequiresConnectionSettings(t *testing.T) {
	cfg := &Config{Host: "not a url", Username: "u"}
	err := cfg.ValidateServer()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, field := range []string{"Host", "Password"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("expected %s in error, got %v", field, err)
		}
	}
}
