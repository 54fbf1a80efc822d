package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	if cfg.App.LogLevel != "info" {
		t.Errorf("expected info log level, got %q", cfg.App.LogLevel)
	}
	if cfg.App.Format != "mp3" {
		t.Errorf("expected mp3 default format, got %q", cfg.App.Format)
	}
	if cfg.Job.Workers < 1 {
		t.Errorf("expected workers to be derived, got %d", cfg.Job.Workers)
	}
	if cfg.Job.MaxAttempts != 3 {
		t.Errorf("expected 3 max attempts, got %d", cfg.Job.MaxAttempts)
	}
	if cfg.Job.Timeout != 10*time.Minute {
		t.Errorf("expected 10m job timeout, got %v", cfg.Job.Timeout)
	}
	if cfg.Storage.TTL != 168*time.Hour {
		t.Errorf("expected 168h storage ttl, got %v", cfg.Storage.TTL)
	}
	if !cfg.Job.InterruptInFlight {
		t.Error("expected interrupt-in-flight to default on")
	}
	if !strings.HasSuffix(cfg.Dir.Downloads, filepath.Join("Music", "YtSongs")) {
		t.Errorf("expected downloads default under Music/YtSongs, got %q", cfg.Dir.Downloads)
	}
	if !filepath.IsAbs(cfg.Dir.Cache) {
		t.Errorf("expected absolute cache dir, got %q", cfg.Dir.Cache)
	}
	if !filepath.IsAbs(cfg.DepManager.BinsDir) {
		t.Errorf("expected absolute bins dir, got %q", cfg.DepManager.BinsDir)
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("TUNEPULL_JOB_WORKERS", "4")
	t.Setenv("TUNEPULL_JOB_MAX_ATTEMPTS", "5")
	t.Setenv("TUNEPULL_DIR_DOWNLOADS", "/tmp/music")
	t.Setenv("TUNEPULL_APP_FORMAT", "opus")
	t.Setenv("TUNEPULL_PROXY", "socks5://127.0.0.1:9050")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	if cfg.Job.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Job.Workers)
	}
	if cfg.Job.MaxAttempts != 5 {
		t.Errorf("expected 5 max attempts, got %d", cfg.Job.MaxAttempts)
	}
	if cfg.Dir.Downloads != "/tmp/music" {
		t.Errorf("expected /tmp/music, got %q", cfg.Dir.Downloads)
	}
	if cfg.App.Format != "opus" {
		t.Errorf("expected opus, got %q", cfg.App.Format)
	}
	if cfg.Proxy != "socks5://127.0.0.1:9050" {
		t.Errorf("unexpected proxy: %q", cfg.Proxy)
	}
}

func TestJobNormalize(t *testing.T) {
	t.Setenv("TUNEPULL_JOB_WORKERS", "-2")
	t.Setenv("TUNEPULL_JOB_MAX_ATTEMPTS", "0")
	t.Setenv("TUNEPULL_JOB_QUEUE_SIZE", "0")
	t.Setenv("TUNEPULL_JOB_RETRY_DELAY", "-5s")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	if cfg.Job.Workers < 1 {
		t.Errorf("expected workers to be clamped, got %d", cfg.Job.Workers)
	}
	if cfg.Job.MaxAttempts != 1 {
		t.Errorf("expected max attempts clamped to 1, got %d", cfg.Job.MaxAttempts)
	}
	if cfg.Job.QueueSize != 1 {
		t.Errorf("expected queue size clamped to 1, got %d", cfg.Job.QueueSize)
	}
	if cfg.Job.RetryDelay != 0 {
		t.Errorf("expected retry delay clamped to 0, got %v", cfg.Job.RetryDelay)
	}
}
