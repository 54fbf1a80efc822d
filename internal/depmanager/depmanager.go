// Package depmanager installs the external tool binaries the download
// capability shells out to: yt-dlp and ffmpeg.
package depmanager

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ulikunitz/xz"

	"tunepull/internal/config"
	"tunepull/internal/errs"
)

// BinaryName represents the name of a binary dependency.
type BinaryName string

const (
	BinaryYTdlp   BinaryName = "yt-dlp"
	BinaryFFmpeg  BinaryName = "ffmpeg"
	BinaryFFprobe BinaryName = "ffprobe"
)

const (
	platformLinux = "linux"
	archARM64     = "arm64"

	downloadTimeout      = 10 * time.Minute
	filePermExecutable   = 0o755
	sha256HexLength      = 64
	sha256SumsFieldCount = 2
)

// Manager installs and locates the external binaries. With system binaries
// enabled it only resolves them from PATH; otherwise it downloads per-platform
// builds into the configured bins directory and verifies them against the
// published SHA256 sums.
type Manager struct {
	log      *slog.Logger
	cfg      *config.Config
	client   *http.Client
	platform string // "os/arch"

	mu       sync.RWMutex
	shaSums  map[string]string     // download filename : sha256 hex
	binPaths map[BinaryName]string // binary name : resolved path
}

// New creates a dependency manager for the current platform.
func New(log *slog.Logger, cfg *config.Config) *Manager {
	return &Manager{
		log:      log.With(slog.String("package", "depmanager")),
		cfg:      cfg,
		client:   &http.Client{Timeout: downloadTimeout},
		platform: runtime.GOOS + "/" + runtime.GOARCH,
		shaSums:  make(map[string]string),
		binPaths: make(map[BinaryName]string),
	}
}

// EnsureAll makes every required binary available: from the system PATH when
// configured, downloaded otherwise. It also prepends the bins directory to
// PATH so the download capability finds the tools without further wiring.
func (m *Manager) EnsureAll(ctx context.Context) error {
	if m.cfg.DepManager.UseSystemBinaries {
		return m.resolveSystemBinaries()
	}

	if err := m.installAll(ctx); err != nil {
		return err
	}

	return m.prependPath()
}

// BinaryPath returns the resolved path for a binary, or empty if unresolved.
func (m *Manager) BinaryPath(name BinaryName) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.binPaths[name]
}

func (m *Manager) resolveSystemBinaries() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, binary := range []BinaryName{BinaryYTdlp, BinaryFFmpeg, BinaryFFprobe} {
		path, err := exec.LookPath(string(binary))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", errs.ErrBinaryNotFound, binary, err)
		}

		m.binPaths[binary] = path
	}

	m.log.Info("using system binaries", slog.Any("binaries", m.binPaths))

	return nil
}

func (m *Manager) installAll(ctx context.Context) error {
	log := m.log

	if err := os.MkdirAll(m.cfg.DepManager.BinsDir, filePermExecutable); err != nil {
		return fmt.Errorf("create bins directory: %w", err)
	}

	if err := m.fetchSHASums(ctx); err != nil {
		// verification degrades to best effort when the sums are unreachable
		log.WarnContext(ctx, "fetch checksums", slog.Any("error", err))
	}

	for _, binary := range []BinaryName{BinaryFFmpeg, BinaryYTdlp} {
		if m.binaryExists(binary) {
			m.setInstalledPaths(binary)
			log.DebugContext(ctx, "binary already installed", slog.String("binary", string(binary)))

			continue
		}

		if err := m.downloadAndInstall(ctx, binary); err != nil {
			return fmt.Errorf("install %s: %w", binary, err)
		}
	}

	log.InfoContext(ctx, "all binaries installed", slog.Any("binaries", m.binPaths))

	return nil
}

// prependPath puts the bins directory ahead of the existing PATH.
func (m *Manager) prependPath() error {
	path := m.cfg.DepManager.BinsDir + string(os.PathListSeparator) + os.Getenv("PATH")

	if err := os.Setenv("PATH", path); err != nil {
		return fmt.Errorf("set PATH: %w", err)
	}

	return nil
}

func (m *Manager) installedPath(name BinaryName) string {
	return filepath.Join(m.cfg.DepManager.BinsDir, string(name))
}

func (m *Manager) binaryExists(name BinaryName) bool {
	info, err := os.Stat(m.installedPath(name))

	return err == nil && info.Size() > 0
}

// setInstalledPaths records the resolved paths for a binary and the companions
// extracted alongside it.
func (m *Manager) setInstalledPaths(name BinaryName) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for target := range m.filesNeeded(name) {
		m.binPaths[BinaryName(target)] = filepath.Join(m.cfg.DepManager.BinsDir, target)
	}
}

func (m *Manager) downloadAndInstall(ctx context.Context, name BinaryName) error {
	log := m.log.With(slog.String("binary", string(name)))

	url := m.binaryURL(name)
	if url == "" {
		return fmt.Errorf("%w: no download URL for %s on %s", errs.ErrUnsupportedPlatform, name, m.platform)
	}

	log.InfoContext(ctx, "downloading binary", slog.String("url", url))

	tmpPath, err := m.download(ctx, url)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer os.Remove(tmpPath)

	if err := m.verify(tmpPath, m.downloadFilename(name)); err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	if strings.HasSuffix(url, ".tar.xz") {
		if err := m.extractTarXZ(tmpPath, m.filesNeeded(name)); err != nil {
			return fmt.Errorf("extract: %w", err)
		}
	} else {
		if err := os.Rename(tmpPath, m.installedPath(name)); err != nil {
			return fmt.Errorf("rename: %w", err)
		}
	}

	if err := m.makeExecutable(name); err != nil {
		return fmt.Errorf("make executable: %w", err)
	}

	m.setInstalledPaths(name)

	log.InfoContext(ctx, "binary installed")

	return nil
}

func (m *Manager) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp(m.cfg.DepManager.BinsDir, "download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	_, err = io.Copy(tmpFile, resp.Body)

	closeErr := tmpFile.Close()

	if err != nil {
		os.Remove(tmpFile.Name())

		return "", fmt.Errorf("write file: %w", err)
	}

	if closeErr != nil {
		os.Remove(tmpFile.Name())

		return "", fmt.Errorf("close temp file: %w", closeErr)
	}

	return tmpFile.Name(), nil
}

// verify checks the downloaded file against the published sum when one is
// known; an absent sum is not an error.
func (m *Manager) verify(path, filename string) error {
	m.mu.RLock()
	want, ok := m.shaSums[filename]
	m.mu.RUnlock()

	if !ok {
		m.log.Debug("no checksum available", slog.String("filename", filename))

		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return fmt.Errorf("hash: %w", err)
	}

	got := hex.EncodeToString(hash.Sum(nil))
	if !strings.EqualFold(got, want) {
		return fmt.Errorf("checksum mismatch for %s: got %s, want %s", filename, got, want)
	}

	return nil
}

func (m *Manager) makeExecutable(name BinaryName) error {
	for target := range m.filesNeeded(name) {
		path := filepath.Join(m.cfg.DepManager.BinsDir, target)

		if err := os.Chmod(path, filePermExecutable); err != nil {
			return fmt.Errorf("chmod %s: %w", target, err)
		}
	}

	return nil
}

func (m *Manager) fetchSHASums(ctx context.Context) error {
	urls := []string{
		m.cfg.DepManager.YTdlpSHA256SumsURL,
		m.cfg.DepManager.FFmpegSHA256SumsURL,
	}

	for _, url := range urls {
		if strings.TrimSpace(url) == "" {
			continue
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := m.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch SHA sums: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()

			return fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()

		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		m.ParseSHASums(string(body))
	}

	return nil
}

// ParseSHASums parses checksum content in the "hash  filename" format,
// ignoring malformed lines.
func (m *Manager) ParseSHASums(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for line := range strings.SplitSeq(content, "\n") {
		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) != sha256SumsFieldCount {
			continue
		}

		hash, filename := parts[0], parts[1]
		if len(hash) != sha256HexLength {
			continue
		}

		m.shaSums[filename] = hash
	}

	m.log.Debug("parsed SHA256 sums", slog.Int("count", len(m.shaSums)))
}

// downloadFilename returns the artifact name as it appears in the published
// checksum list for the current platform.
func (m *Manager) downloadFilename(name BinaryName) string {
	arm64 := m.platform == platformLinux+"/"+archARM64

	switch name {
	case BinaryYTdlp:
		if arm64 {
			return "yt-dlp_linux_aarch64"
		}

		return "yt-dlp_linux"
	case BinaryFFmpeg:
		if arm64 {
			return "ffmpeg-master-latest-linuxarm64-gpl.tar.xz"
		}

		return "ffmpeg-master-latest-linux64-gpl.tar.xz"
	}

	return string(name)
}

func (m *Manager) binaryURL(name BinaryName) string {
	cfg := m.cfg.DepManager
	arm64 := m.platform == platformLinux+"/"+archARM64

	switch name {
	case BinaryYTdlp:
		if arm64 {
			return cfg.YTdlpLinuxARM64
		}

		return cfg.YTdlpLinuxAMD64
	case BinaryFFmpeg, BinaryFFprobe:
		if arm64 {
			return cfg.FFmpegLinuxARM64
		}

		return cfg.FFmpegLinuxAMD64
	}

	return ""
}

// filesNeeded returns the files to install for a binary. The ffmpeg archive
// carries ffprobe alongside ffmpeg.
func (m *Manager) filesNeeded(name BinaryName) map[string]struct{} {
	if name == BinaryFFmpeg {
		return map[string]struct{}{"ffmpeg": {}, "ffprobe": {}}
	}

	return map[string]struct{}{string(name): {}}
}

func (m *Manager) extractTarXZ(archivePath string, targets map[string]struct{}) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	xzReader, err := xz.NewReader(file)
	if err != nil {
		return fmt.Errorf("create xz reader: %w", err)
	}

	tarReader := tar.NewReader(xzReader)
	extracted := 0

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		filename := filepath.Base(header.Name)
		if _, ok := targets[filename]; !ok {
			continue
		}

		destPath := filepath.Join(m.cfg.DepManager.BinsDir, filename)

		outFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermExecutable)
		if err != nil {
			return fmt.Errorf("create dest file: %w", err)
		}

		_, err = io.Copy(outFile, tarReader)
		outFile.Close()

		if err != nil {
			return fmt.Errorf("extract file: %w", err)
		}

		extracted++

		if extracted == len(targets) {
			return nil
		}
	}

	if extracted == 0 {
		return fmt.Errorf("no target files found in archive")
	}

	return nil
}
