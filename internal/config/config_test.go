package config

import (
	"os"
	"testing"
	"time"
)

func TestDefaultConfigMissingRequiredFieldsFailsValidation(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error: defaults alone omit required secrets/URLs")
	}
}

func TestLoadConfig(t *testing.T) {
	yamlContent := `
listen: ":9090"
db-path: "/tmp/test.db"
object-store-base-url: "https://objects.internal/dms"
sdes-base-url: "https://sdes.internal"
allow-localhost-callbacks: true
lock-ttl: 45s
workers:
  initial-delay: 10s
  sdes-worker:
    interval: 15s
  processed-item-worker:
    interval: 20s
  failed-item-worker:
    interval: 2m
    max-failures: 8
services:
  sdes:
    information-type: "SA100"
    recipient-or-sender: "hmrc-sa"
    object-store-location-prefix: "sa-submissions/"
internal-auth:
  token: "test-token"
`
	f, err := os.CreateTemp("", "config_test_*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(yamlContent); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cfg, err := LoadConfig(f.Name())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Listen != ":9090" {
		t.Errorf("Listen: got %q", cfg.Listen)
	}
	if !cfg.AllowLocalhostCallbacks {
		t.Error("AllowLocalhostCallbacks: got false, want true")
	}
	if cfg.LockTTL != 45*time.Second {
		t.Errorf("LockTTL: got %v, want 45s", cfg.LockTTL)
	}
	if cfg.Workers.FailedItemWorker.MaxFailures != 8 {
		t.Errorf("MaxFailures: got %d, want 8", cfg.Workers.FailedItemWorker.MaxFailures)
	}
	if cfg.Workers.FailedItemWorker.Interval != 2*time.Minute {
		t.Errorf("FailedItemWorker.Interval: got %v, want 2m", cfg.Workers.FailedItemWorker.Interval)
	}
	if cfg.Services.SDES.InformationType != "SA100" {
		t.Errorf("InformationType: got %q", cfg.Services.SDES.InformationType)
	}
	if cfg.InternalAuth.Token != "test-token" {
		t.Errorf("InternalAuth.Token: got %q", cfg.InternalAuth.Token)
	}
}

func TestLoadConfigEnvOverridesTokenInFile(t *testing.T) {
	yamlContent := `
db-path: "/tmp/test.db"
object-store-base-url: "https://objects.internal/dms"
sdes-base-url: "https://sdes.internal"
services:
  sdes:
    information-type: "SA100"
    recipient-or-sender: "hmrc-sa"
internal-auth:
  token: "from-file"
`
	f, err := os.CreateTemp("", "config_test_*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	f.WriteString(yamlContent)
	f.Close()

	t.Setenv("DMS_SUBMISSION_INTERNAL_AUTH_TOKEN", "from-env")

	cfg, err := LoadConfig(f.Name())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.InternalAuth.Token != "from-env" {
		t.Errorf("InternalAuth.Token: got %q, want env override", cfg.InternalAuth.Token)
	}
}

func TestValidateRejectsMissingDBPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ObjectStoreBaseURL = "https://objects.internal"
	cfg.SDESBaseURL = "https://sdes.internal"
	cfg.Services.SDES.InformationType = "x"
	cfg.Services.SDES.RecipientOrSender = "y"
	cfg.InternalAuth.Token = "tok"
	cfg.DBPath = ""

	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for missing db-path")
	}
}
