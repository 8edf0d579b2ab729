package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ysatyam-3107/studentsync/go/internal/roomtimer"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "secret")

	config, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if config.Store.Backend != BackendMemory {
		t.Errorf("backend = %q, want memory", config.Store.Backend)
	}
	if config.expiryPolicy() != roomtimer.ExpiryAutoContinue {
		t.Errorf("policy = %q, want auto_continue", config.expiryPolicy())
	}
	if config.Timer.ResubscribeWait != 2*time.Second {
		t.Errorf("resubscribe wait = %v", config.Timer.ResubscribeWait)
	}
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
port: "9090"
store:
  backend: nats
  nats:
    url: nats://file:4222
timer:
  expiry_policy: pause
  resubscribe_wait: 5s
auth:
  token_secret: from-file
  token_ttl_hours: 2
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("NATS_URL", "nats://env:4222")
	t.Setenv("TOKEN_TTL_HOURS", "6")

	config, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if config.Port != "9090" || config.Store.Backend != BackendNATS {
		t.Errorf("config = %+v", config)
	}
	if config.Store.NATS.URL != "nats://env:4222" {
		t.Errorf("nats url = %q, env should win", config.Store.NATS.URL)
	}
	if config.Store.NATS.Bucket != "STUDYSYNC_ROOMS" {
		t.Errorf("bucket default lost: %q", config.Store.NATS.Bucket)
	}
	if config.expiryPolicy() != roomtimer.ExpiryPause || config.Timer.ResubscribeWait != 5*time.Second {
		t.Errorf("timer = %+v", config.Timer)
	}
	if config.Auth.TokenSecret != "from-file" || config.Auth.TokenTTLHours != 6 {
		t.Errorf("auth = %+v", config.Auth)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"TOKEN_SECRET": ""}},
		{"unknown backend", map[string]string{"TOKEN_SECRET": "s", "STORE_BACKEND": "redis"}},
		{"unknown policy", map[string]string{"TOKEN_SECRET": "s", "TIMER_EXPIRY_POLICY": "stop"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadConfig_PostgresFallbackIntervalMustBePositive(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "s")
	for _, interval := range []string{"0s", "-5s"} {
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := []byte("store:\n  backend: postgres\n  postgres:\n    fallback_interval: " + interval + "\n")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		if _, err := loadConfig(path); err == nil {
			t.Errorf("fallback_interval %s: expected error", interval)
		}
	}
}
