package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/classbook/internal/domain/booking"
)

type Config struct {
	ListenAddr  string
	DatabaseURL string
	LogLevel    string

	Telegram    Telegram
	Cult        Cult
	Schedule    Schedule
	Preferences booking.Preferences
	Operator    Operator
}

type Telegram struct {
	Token         string
	ChatID        int64
	AdminChatID   int64
	WebhookSecret string
}

type Cult struct {
	BaseURL      string
	APIKey       string
	STCookie     string
	ATCookie     string
	FetchTimeout time.Duration
	BookTimeout  time.Duration
}

type Schedule struct {
	At        string
	Timezone  string
	Autostart bool
}

// Operator guards the maintenance endpoints. An empty hash disables them.
type Operator struct {
	User           string
	PasswordBcrypt string
}

// Load reads the environment and then applies the YAML file at path, if any.
func Load(path string) (Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	if path == "" {
		path = os.Getenv("CLASSBOOK_CONFIG")
	}
	if path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Preferences.Validate(); err != nil {
		return Config{}, fmt.Errorf("booking preferences: %w", err)
	}
	if _, err := booking.ParseTimeOfDay(cfg.Schedule.At); err != nil {
		return Config{}, fmt.Errorf("schedule time: %w", err)
	}
	return cfg, nil
}

func FromEnv() (Config, error) {
	cfg := Config{
		ListenAddr:  getenv("LISTEN_ADDR", ":"+getenv("PORT", "5000")),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		Telegram: Telegram{
			Token:         os.Getenv("TELEGRAM_BOT_TOKEN"),
			WebhookSecret: os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
		},
		Cult: Cult{
			BaseURL:  getenv("CULT_BASE_URL", "https://www.cult.fit"),
			APIKey:   os.Getenv("CULT_API_KEY"),
			STCookie: os.Getenv("CULT_ST_COOKIE"),
			ATCookie: os.Getenv("CULT_AT_COOKIE"),
		},
		Schedule: Schedule{
			At:       getenv("SCHEDULE_TIME", "22:00"),
			Timezone: getenv("SCHEDULE_TZ", "Asia/Kolkata"),
		},
		Operator: Operator{
			User:           getenv("OPERATOR_USER", "admin"),
			PasswordBcrypt: os.Getenv("OPERATOR_PASSWORD_BCRYPT"),
		},
	}

	var errs []error
	var err error

	if cfg.Telegram.ChatID, err = envInt64("TELEGRAM_CHAT_ID", 0); err != nil {
		errs = append(errs, err)
	}
	if cfg.Telegram.AdminChatID, err = envInt64("TELEGRAM_ADMIN_CHAT_ID", cfg.Telegram.ChatID); err != nil {
		errs = append(errs, err)
	}
	if cfg.Cult.FetchTimeout, err = envDuration("FETCH_TIMEOUT", 8*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.Cult.BookTimeout, err = envDuration("BOOK_TIMEOUT", 10*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.Schedule.Autostart, err = envBool("SCHEDULER_AUTOSTART", true); err != nil {
		errs = append(errs, err)
	}
	if cfg.Preferences.Centers, err = ParseCenters(getenv("BOOKING_CENTERS", "1106,1107")); err != nil {
		errs = append(errs, fmt.Errorf("BOOKING_CENTERS: %w", err))
	}
	if cfg.Preferences.Timings, err = ParseTimings(getenv("BOOKING_TIMINGS", "08:00,09:00")); err != nil {
		errs = append(errs, fmt.Errorf("BOOKING_TIMINGS: %w", err))
	}
	if cfg.Preferences.WorkoutID, err = envInt64("BOOKING_SPORT_ID", 350); err != nil {
		errs = append(errs, err)
	}
	if cfg.Preferences.Enabled, err = envBool("BOOKING_ENABLED", true); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// ParseCenters reads a comma separated list of center ids.
func ParseCenters(s string) ([]int64, error) {
	var out []int64
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("center %q is not an integer", p)
		}
		out = append(out, id)
	}
	return out, nil
}

// ParseTimings reads a comma separated list of HH:MM times.
func ParseTimings(s string) ([]booking.TimeOfDay, error) {
	var out []booking.TimeOfDay
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		t, err := booking.ParseTimeOfDay(p)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt64(k string, def int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", k)
	}
	return n, nil
}

func envBool(k string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s", k)
	}
	return b, nil
}

func envDuration(k string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", k)
	}
	return d, nil
}
