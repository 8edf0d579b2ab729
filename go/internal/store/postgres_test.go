package store

import (
	"testing"
	"time"
)

func TestPostgresConfigWithDefaults(t *testing.T) {
	def := DefaultPostgresConfig()

	got := PostgresConfig{FallbackInterval: -time.Second}.withDefaults()
	if got.FallbackInterval != def.FallbackInterval {
		t.Errorf("FallbackInterval = %v, want %v", got.FallbackInterval, def.FallbackInterval)
	}
	if got.PingInterval != def.PingInterval || got.NotifyChannel != def.NotifyChannel {
		t.Errorf("config = %+v, want defaults", got)
	}

	custom := PostgresConfig{NotifyChannel: "c", FallbackInterval: time.Second, PingInterval: 2 * time.Second}
	if got := custom.withDefaults(); got != custom {
		t.Errorf("withDefaults() = %+v, want %+v", got, custom)
	}
}
