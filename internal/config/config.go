package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	DatabaseURL string

	DisplayTZ string
	Location  *time.Location

	StorageBackend string // "disk" or "cloudinary"
	StorageDir     string
	PublicBaseURL  string

	CloudinaryCloud  string
	CloudinaryKey    string
	CloudinarySecret string

	SessionTTL      time.Duration
	AdminEmails     []string
	WeeklyStaleTime time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	LogLevel  string
	LogFormat string
}

var defaults = map[string]any{
	"port":              "8080",
	"database_url":      "",
	"display_tz":        "",
	"storage_backend":   "disk",
	"storage_dir":       "./data/photos",
	"public_base_url":   "",
	"cloudinary_cloud":  "",
	"cloudinary_key":    "",
	"cloudinary_secret": "",
	"session_ttl":       "168h",
	"admin_emails":      "",
	"weekly_stale_time": "5m",
	"read_timeout":      "15s",
	"write_timeout":     "30s",
	"log_level":         "info",
	"log_format":        "text",
}

// Load reads .env (if present), an optional config.yaml, then environment
// variables. Environment wins.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	v.AutomaticEnv()

	cfg := Config{
		Port:             v.GetString("port"),
		DatabaseURL:      v.GetString("database_url"),
		DisplayTZ:        v.GetString("display_tz"),
		StorageBackend:   strings.ToLower(v.GetString("storage_backend")),
		StorageDir:       v.GetString("storage_dir"),
		PublicBaseURL:    strings.TrimRight(v.GetString("public_base_url"), "/"),
		CloudinaryCloud:  v.GetString("cloudinary_cloud"),
		CloudinaryKey:    v.GetString("cloudinary_key"),
		CloudinarySecret: v.GetString("cloudinary_secret"),
		SessionTTL:       getDuration(v, "session_ttl"),
		AdminEmails:      splitList(v.GetString("admin_emails")),
		WeeklyStaleTime:  getDuration(v, "weekly_stale_time"),
		ReadTimeout:      getDuration(v, "read_timeout"),
		WriteTimeout:     getDuration(v, "write_timeout"),
		LogLevel:         v.GetString("log_level"),
		LogFormat:        v.GetString("log_format"),
	}

	loc := time.Local
	if cfg.DisplayTZ != "" {
		l, err := time.LoadLocation(cfg.DisplayTZ)
		if err != nil {
			return Config{}, fmt.Errorf("loading display time zone: %w", err)
		}
		loc = l
	}
	cfg.Location = loc

	switch cfg.StorageBackend {
	case "disk", "cloudinary":
	default:
		return Config{}, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	return cfg, nil
}

// IsAdmin reports whether email is listed in ADMIN_EMAILS.
func (c Config) IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range c.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

// getDuration falls back to the default when the value does not parse.
func getDuration(v *viper.Viper, key string) time.Duration {
	if d, err := time.ParseDuration(v.GetString(key)); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(defaults[key].(string))
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
