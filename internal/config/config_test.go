package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_PATH", "TURN_TIMEOUT", "ROOM_CAPACITY", "NODE_ENV", "COOKIE_NAME"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.Port != "5175" || c.DBPath != "./data/app.db" || c.TurnTimeout != 60*time.Second || c.RoomCapacity != 10 {
		t.Errorf("defaults = %+v", c)
	}
	if c.Production || c.CookieName != "codebreaker_token" {
		t.Errorf("cookie defaults = %+v", c)
	}
}

func TestLoadOverrides(t *testing.T) {
	tests := []struct {
		name     string
		timeout  string
		capacity string
		want     time.Duration
		wantCap  int
	}{
		{"valid", "15s", "4", 15 * time.Second, 4},
		{"malformed falls back", "soon", "many", 60 * time.Second, 10},
		{"non-positive falls back", "-1s", "0", 60 * time.Second, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TURN_TIMEOUT", tt.timeout)
			t.Setenv("ROOM_CAPACITY", tt.capacity)
			t.Setenv("NODE_ENV", "production")
			c := Load()
			if c.TurnTimeout != tt.want || c.RoomCapacity != tt.wantCap || !c.Production {
				t.Errorf("Load() = %+v", c)
			}
		})
	}
}
