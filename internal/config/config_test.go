package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/example/classbook/internal/domain/booking"
)

var configEnv = []string{
	"LISTEN_ADDR", "PORT", "DATABASE_URL", "LOG_LEVEL", "CLASSBOOK_CONFIG",
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "TELEGRAM_ADMIN_CHAT_ID", "TELEGRAM_WEBHOOK_SECRET",
	"CULT_BASE_URL", "CULT_API_KEY", "CULT_ST_COOKIE", "CULT_AT_COOKIE", "FETCH_TIMEOUT", "BOOK_TIMEOUT",
	"SCHEDULE_TIME", "SCHEDULE_TZ", "SCHEDULER_AUTOSTART",
	"BOOKING_CENTERS", "BOOKING_TIMINGS", "BOOKING_SPORT_ID", "BOOKING_ENABLED",
	"OPERATOR_USER", "OPERATOR_PASSWORD_BCRYPT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if cfg.ListenAddr != ":5000" {
		t.Fatalf("ListenAddr = %q, want :5000", cfg.ListenAddr)
	}
	if cfg.Schedule.At != "22:00" || cfg.Schedule.Timezone != "Asia/Kolkata" || !cfg.Schedule.Autostart {
		t.Fatalf("Schedule = %+v", cfg.Schedule)
	}
	want := booking.Preferences{
		Centers:   []int64{1106, 1107},
		Timings:   []booking.TimeOfDay{{Hour: 8}, {Hour: 9}},
		WorkoutID: 350,
		Enabled:   true,
	}
	if !reflect.DeepEqual(cfg.Preferences, want) {
		t.Fatalf("Preferences = %+v, want %+v", cfg.Preferences, want)
	}
	if cfg.Cult.FetchTimeout != 8*time.Second || cfg.Cult.BookTimeout != 10*time.Second {
		t.Fatalf("timeouts = %v/%v", cfg.Cult.FetchTimeout, cfg.Cult.BookTimeout)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200")
	t.Setenv("BOOKING_CENTERS", " 1, 2 ,,3")
	t.Setenv("BOOKING_TIMINGS", "07:30")
	t.Setenv("BOOKING_ENABLED", "false")
	t.Setenv("FETCH_TIMEOUT", "2s")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if cfg.ListenAddr != ":8081" {
		t.Fatalf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.Telegram.ChatID != -100200 || cfg.Telegram.AdminChatID != -100200 {
		t.Fatalf("Telegram = %+v, admin should default to chat", cfg.Telegram)
	}
	if !reflect.DeepEqual(cfg.Preferences.Centers, []int64{1, 2, 3}) {
		t.Fatalf("Centers = %v", cfg.Preferences.Centers)
	}
	if len(cfg.Preferences.Timings) != 1 || cfg.Preferences.Timings[0] != (booking.TimeOfDay{Hour: 7, Minute: 30}) {
		t.Fatalf("Timings = %v", cfg.Preferences.Timings)
	}
	if cfg.Preferences.Enabled {
		t.Fatal("Enabled = true, want false")
	}
	if cfg.Cult.FetchTimeout != 2*time.Second {
		t.Fatalf("FetchTimeout = %v", cfg.Cult.FetchTimeout)
	}
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		key, val string
	}{
		{"TELEGRAM_CHAT_ID", "abc"},
		{"BOOKING_CENTERS", "1106,x"},
		{"BOOKING_TIMINGS", "8am"},
		{"BOOKING_ENABLED", "maybe"},
		{"BOOK_TIMEOUT", "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			if _, err := FromEnv(); err == nil {
				t.Fatalf("FromEnv with %s=%q: expected error", tt.key, tt.val)
			}
		})
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "classbook.yaml")
	doc := `
schedule:
  at: "21:45"
booking:
  centers: [42]
  timings: ["06:00", "18:30"]
  enabled: false
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Schedule.At != "21:45" || cfg.Schedule.Timezone != "Asia/Kolkata" {
		t.Fatalf("Schedule = %+v", cfg.Schedule)
	}
	want := booking.Preferences{
		Centers:   []int64{42},
		Timings:   []booking.TimeOfDay{{Hour: 6}, {Hour: 18, Minute: 30}},
		WorkoutID: 350,
		Enabled:   false,
	}
	if !reflect.DeepEqual(cfg.Preferences, want) {
		t.Fatalf("Preferences = %+v, want %+v", cfg.Preferences, want)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("booking:\n  centres: [1]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadRejectsEmptyPreferences(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("booking:\n  centers: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for no centers")
	}
}
