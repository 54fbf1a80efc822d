// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	App        App
	Job        Job
	Dir        Dir
	HTTP       HTTP
	Storage    Storage
	DepManager DepManager
	Notify     Notify

	// Proxy is an optional proxy URL passed to the download capability.
	Proxy string `env:"TUNEPULL_PROXY" envDefault:""`
}

// App holds application-wide configuration.
type App struct {
	LogLevel string `env:"TUNEPULL_APP_LOG_LEVEL" envDefault:"info"`
	// Format is the default audio output format for playlist runs.
	Format string `env:"TUNEPULL_APP_FORMAT" envDefault:"mp3"`
}

// Job holds job processing configuration.
type Job struct {
	// Workers bounds the number of jobs running simultaneously.
	// Zero or negative means "derive from available parallelism".
	Workers     int           `env:"TUNEPULL_JOB_WORKERS"      envDefault:"0"`
	MaxAttempts int           `env:"TUNEPULL_JOB_MAX_ATTEMPTS" envDefault:"3"`
	Timeout     time.Duration `env:"TUNEPULL_JOB_TIMEOUT"      envDefault:"10m"`
	QueueSize   int           `env:"TUNEPULL_JOB_QUEUE_SIZE"   envDefault:"100"`
	RetryDelay  time.Duration `env:"TUNEPULL_JOB_RETRY_DELAY"  envDefault:"1s"`

	// InterruptInFlight controls cancellation granularity: when true, cancel
	// also interrupts in-flight fetches via their context; when false, only
	// future dispatch is prevented and in-flight jobs settle naturally.
	InterruptInFlight bool `env:"TUNEPULL_JOB_INTERRUPT_IN_FLIGHT" envDefault:"true"`
}

// Dir holds directory paths for downloads and the fetcher cache.
type Dir struct {
	// Downloads is the destination directory for audio files.
	// Empty means "<home>/Music/YtSongs".
	Downloads string `env:"TUNEPULL_DIR_DOWNLOADS" envDefault:""`
	Cache     string `env:"TUNEPULL_DIR_CACHE"     envDefault:"./data/cache"` // yt-dlp cache (meta, sigs)
}

// HTTP holds HTTP server configuration.
type HTTP struct {
	Port            string        `env:"TUNEPULL_HTTP_PORT"             envDefault:":8080"`
	HandlerTimeout  time.Duration `env:"TUNEPULL_HTTP_HANDLER_TIMEOUT"  envDefault:"20s"`
	ShutdownTimeout time.Duration `env:"TUNEPULL_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Storage holds run registry configuration.
type Storage struct {
	TTL             time.Duration `env:"TUNEPULL_STORAGE_TTL"              envDefault:"168h"`
	CleanupInterval time.Duration `env:"TUNEPULL_STORAGE_CLEANUP_INTERVAL" envDefault:"1h"`
}

// Notify holds desktop notification configuration.
type Notify struct {
	Enabled bool `env:"TUNEPULL_NOTIFY_ENABLED" envDefault:"true"`
	// Method selects the notification transport: auto, notify-send, osascript, none.
	Method string `env:"TUNEPULL_NOTIFY_METHOD" envDefault:"auto"`
}

// DepManager holds binary dependency management configuration.
type DepManager struct {
	// BinsDir is the directory where binaries are stored.
	BinsDir string `env:"TUNEPULL_DEPMANAGER_BINS_DIR" envDefault:"./bins"`
	// UseSystemBinaries indicates whether to use system-installed binaries or download them.
	UseSystemBinaries bool `env:"TUNEPULL_DEPMANAGER_USE_SYSTEM_BINARIES" envDefault:"false"`

	// yt-dlp binary URLs per platform.
	YTdlpSHA256SumsURL string `env:"TUNEPULL_DEPMANAGER_YTDLP_SHA256SUMS_URL" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/SHA2-256SUMS"`      //nolint:lll
	YTdlpLinuxARM64    string `env:"TUNEPULL_DEPMANAGER_YTDLP_LINUX_ARM64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux_aarch64"` //nolint:lll
	YTdlpLinuxAMD64    string `env:"TUNEPULL_DEPMANAGER_YTDLP_LINUX_AMD64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux"`         //nolint:lll

	// ffmpeg binary URLs per platform.
	FFmpegSHA256SumsURL string `env:"TUNEPULL_DEPMANAGER_FFMPEG_SHA256SUMS_URL" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/checksums.sha256"`                        //nolint:lll
	FFmpegLinuxARM64    string `env:"TUNEPULL_DEPMANAGER_FFMPEG_LINUX_ARM64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linuxarm64-gpl.tar.xz"` //nolint:lll
	FFmpegLinuxAMD64    string `env:"TUNEPULL_DEPMANAGER_FFMPEG_LINUX_AMD64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linux64-gpl.tar.xz"`    //nolint:lll
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := &Config{}

	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Job.normalize()

	err = cfg.Dir.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set absolute paths: %w", err)
	}

	err = cfg.DepManager.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set dep manager absolute paths: %w", err)
	}

	return cfg, nil
}

func (j *Job) normalize() {
	if j.Workers <= 0 {
		j.Workers = runtime.GOMAXPROCS(0)
	}

	if j.MaxAttempts < 1 {
		j.MaxAttempts = 1
	}

	if j.QueueSize < 1 {
		j.QueueSize = 1
	}

	if j.RetryDelay < 0 {
		j.RetryDelay = 0
	}
}

// SetAbsPaths resolves the downloads default and converts all directory paths
// to absolute paths.
func (c *Dir) SetAbsPaths() error {
	var err error

	if c.Downloads == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("user home dir: %w", err)
		}

		c.Downloads = filepath.Join(home, "Music", "YtSongs")
	}

	if c.Downloads, err = filepath.Abs(c.Downloads); err != nil {
		return fmt.Errorf("downloads: %w", err)
	}

	if c.Cache, err = filepath.Abs(c.Cache); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	return nil
}

// SetAbsPaths converts the BinsDir path to an absolute path.
func (d *DepManager) SetAbsPaths() error {
	var err error
	if d.BinsDir, err = filepath.Abs(d.BinsDir); err != nil {
		return fmt.Errorf("bins dir: %w", err)
	}

	return nil
}
