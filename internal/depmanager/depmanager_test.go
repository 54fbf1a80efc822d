package depmanager

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"tunepull/internal/config"
)

func newTestManager(t *testing.T, platform string) *Manager {
	t.Helper()

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	cfg.DepManager.BinsDir = t.TempDir()

	m := New(slog.New(slog.NewTextHandler(os.Stdout, nil)), cfg)
	m.platform = platform

	return m
}

func TestParseSHASums(t *testing.T) {
	m := newTestManager(t, "linux/amd64")

	content := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef  yt-dlp_linux\n" +
		"fedcba9876543210fedcba9876543210fedcba9876543210fedcba9876543210  ffmpeg-master-latest-linux64-gpl.tar.xz\n" +
		"tooshort  broken\n" +
		"justonefield\n" +
		"\n"

	m.ParseSHASums(content)

	if len(m.shaSums) != 2 {
		t.Fatalf("expected 2 parsed sums, got %d", len(m.shaSums))
	}

	want := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	if got := m.shaSums["yt-dlp_linux"]; got != want {
		t.Errorf("unexpected sum: %q", got)
	}
}

func TestDownloadFilename(t *testing.T) {
	tests := []struct {
		platform string
		binary   BinaryName
		want     string
	}{
		{"linux/amd64", BinaryYTdlp, "yt-dlp_linux"},
		{"linux/arm64", BinaryYTdlp, "yt-dlp_linux_aarch64"},
		{"linux/amd64", BinaryFFmpeg, "ffmpeg-master-latest-linux64-gpl.tar.xz"},
		{"linux/arm64", BinaryFFmpeg, "ffmpeg-master-latest-linuxarm64-gpl.tar.xz"},
	}
	for _, tt := range tests {
		m := newTestManager(t, tt.platform)
		if got := m.downloadFilename(tt.binary); got != tt.want {
			t.Errorf("%s %s: expected %q, got %q", tt.platform, tt.binary, tt.want, got)
		}
	}
}

func TestBinaryURLSelection(t *testing.T) {
	m := newTestManager(t, "linux/arm64")

	if got := m.binaryURL(BinaryYTdlp); got != m.cfg.DepManager.YTdlpLinuxARM64 {
		t.Errorf("expected arm64 yt-dlp url, got %q", got)
	}
	if got := m.binaryURL(BinaryFFmpeg); got != m.cfg.DepManager.FFmpegLinuxARM64 {
		t.Errorf("expected arm64 ffmpeg url, got %q", got)
	}
	if got := m.binaryURL(BinaryFFprobe); got != m.cfg.DepManager.FFmpegLinuxARM64 {
		t.Errorf("expected ffprobe to share the ffmpeg archive url, got %q", got)
	}

	m = newTestManager(t, "linux/amd64")
	if got := m.binaryURL(BinaryYTdlp); got != m.cfg.DepManager.YTdlpLinuxAMD64 {
		t.Errorf("expected amd64 yt-dlp url, got %q", got)
	}
}

func TestVerify(t *testing.T) {
	m := newTestManager(t, "linux/amd64")

	path := filepath.Join(t.TempDir(), "artifact")
	payload := []byte("binary payload")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	sum := sha256.Sum256(payload)
	good := hex.EncodeToString(sum[:])

	t.Run("matching sum", func(t *testing.T) {
		m.shaSums["artifact"] = good
		if err := m.verify(path, "artifact"); err != nil {
			t.Errorf("expected verification to pass: %v", err)
		}
	})

	t.Run("mismatched sum", func(t *testing.T) {
		m.shaSums["artifact"] = "0000000000000000000000000000000000000000000000000000000000000000"
		if err := m.verify(path, "artifact"); err == nil {
			t.Error("expected a checksum mismatch error")
		}
	})

	t.Run("unknown sum is not an error", func(t *testing.T) {
		if err := m.verify(path, "unlisted"); err != nil {
			t.Errorf("expected missing sum to be tolerated: %v", err)
		}
	})
}

func TestFilesNeeded(t *testing.T) {
	m := newTestManager(t, "linux/amd64")

	files := m.filesNeeded(BinaryFFmpeg)
	if _, ok := files["ffmpeg"]; !ok {
		t.Error("expected ffmpeg in the extraction set")
	}
	if _, ok := files["ffprobe"]; !ok {
		t.Error("expected ffprobe alongside ffmpeg")
	}

	files = m.filesNeeded(BinaryYTdlp)
	if len(files) != 1 {
		t.Errorf("expected a single file for yt-dlp, got %d", len(files))
	}
}
