package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("PORT", "")
	t.Setenv("TIMER_TICK_INTERVAL", "")
	t.Setenv("ROOM_SWEEP_INTERVAL", "")
	t.Setenv("ROOM_INACTIVITY_WINDOW", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 6161 {
		t.Errorf("expected HTTPPort 6161, got %d", cfg.HTTPPort)
	}
	if cfg.TimerTickInterval != 1*time.Second {
		t.Errorf("expected TimerTickInterval 1s, got %v", cfg.TimerTickInterval)
	}
	if cfg.RoomSweepInterval != 5*time.Minute {
		t.Errorf("expected RoomSweepInterval 5m, got %v", cfg.RoomSweepInterval)
	}
	if cfg.RoomInactivityWindow != 6*time.Hour {
		t.Errorf("expected RoomInactivityWindow 6h, got %v", cfg.RoomInactivityWindow)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("PORT", "8080")
	t.Setenv("TIMER_TICK_INTERVAL", "250ms")
	t.Setenv("ROOM_INACTIVITY_WINDOW", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Errorf("expected HTTPPort 8080, got %d", cfg.HTTPPort)
	}
	if cfg.TimerTickInterval != 250*time.Millisecond {
		t.Errorf("expected TimerTickInterval 250ms, got %v", cfg.TimerTickInterval)
	}
	if cfg.RoomInactivityWindow != 30*time.Minute {
		t.Errorf("expected RoomInactivityWindow 30m, got %v", cfg.RoomInactivityWindow)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("PORT", "not-a-port")

	_, err := Load()
	if err == nil {
		t.Error("expected error for invalid PORT")
	}
}
