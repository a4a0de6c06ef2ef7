// Package config reads service configuration from environment variables.
// A .env file, when present, is loaded first without overriding variables
// already set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zeecrown/imager/normalizer"
)

// Encoders selectable with IMAGER_ENCODER.
const (
	EncoderLibvips = "libvips"
	EncoderWebP    = "webp"
)

// Config is the service configuration.
type Config struct {
	Addr string
	// Bucket is the storage bucket, upload endpoints are disabled when empty.
	Bucket         string
	Encoder        string
	Folders        []string
	TargetKB       int
	MaxWidth       int
	Timeout        time.Duration
	MaxUploadBytes int64
	LogLevel       slog.Level
}

// Load reads configuration. files default to ".env"; missing files are
// ignored.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading env file failed with error: %w", err)
	}

	var (
		cfg Config
		err error
	)
	cfg.Addr = getenvDefault("IMAGER_ADDR", ":8080")
	cfg.Bucket = os.Getenv("IMAGER_BUCKET")
	switch cfg.Encoder = getenvDefault("IMAGER_ENCODER", EncoderLibvips); cfg.Encoder {
	case EncoderLibvips, EncoderWebP:
	default:
		return Config{}, fmt.Errorf("invalid IMAGER_ENCODER: %q", cfg.Encoder)
	}
	cfg.Folders = splitList(getenvDefault("IMAGER_FOLDERS", "banners,product_images"))
	if len(cfg.Folders) == 0 {
		return Config{}, errors.New("IMAGER_FOLDERS must list at least one folder")
	}
	if cfg.TargetKB, err = getenvInt("IMAGER_TARGET_KB", 100); err != nil {
		return Config{}, err
	}
	if cfg.MaxWidth, err = getenvInt("IMAGER_MAX_WIDTH", 1920); err != nil {
		return Config{}, err
	}
	maxUploadMB, err := getenvInt("IMAGER_MAX_UPLOAD_MB", 32)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxUploadBytes = int64(maxUploadMB) << 20
	if cfg.Timeout, err = time.ParseDuration(getenvDefault("IMAGER_TIMEOUT", "30s")); err != nil || cfg.Timeout <= 0 {
		return Config{}, fmt.Errorf("invalid IMAGER_TIMEOUT: %q", os.Getenv("IMAGER_TIMEOUT"))
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getenvDefault("IMAGER_LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("invalid IMAGER_LOG_LEVEL: %w", err)
	}

	if err := cfg.Policy().Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Policy returns normalization policy with configured overrides.
func (c Config) Policy() normalizer.Policy {
	p := normalizer.DefaultPolicy()
	p.TargetBytes = c.TargetKB * 1024
	p.MaxWidth = c.MaxWidth
	return p
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func splitList(v string) []string {
	var res []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			res = append(res, s)
		}
	}
	return res
}
