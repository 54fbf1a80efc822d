package fetch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"tunepull/internal/config"
	"tunepull/internal/consts"
	"tunepull/internal/entity"
	"tunepull/internal/errs"
	"tunepull/internal/observability"
	"tunepull/pkg/calc"
	"tunepull/pkg/maths"
	"tunepull/pkg/ptr"

	"github.com/lrstanley/go-ytdlp"
)

const (
	defaultProgressFreq = 200 * time.Millisecond
	fullProgress        = 100
)

var (
	maxJSONSize = 10 * 1024 * 1024                                       // 10 MiB scanner buffer
	bufSize     = 4096                                                   // 4 KiB buffer size
	reFilepath  = regexp.MustCompile(`(?i)^[^\{\[\n].*\.[a-z0-9]{1,6}$`) // file path

	// changing this may break parseRealizedPath().
	defaultPrintAfterMove = "after_move:filepath"
)

// YTdlp is the yt-dlp backed Fetcher and Resolver.
type YTdlp struct {
	log     *slog.Logger
	cfg     *config.Config
	metrics *observability.Metrics
}

// NewYTdlp creates a new yt-dlp fetcher instance.
func NewYTdlp(log *slog.Logger, cfg *config.Config, metrics *observability.Metrics) *YTdlp {
	return &YTdlp{
		log:     log.With(slog.String("package", "fetch"), slog.String("fetcher", consts.FetcherYTdlp)),
		cfg:     cfg,
		metrics: metrics,
	}
}

// Fetch downloads the job's source, extracts the audio stream and transcodes
// it into the job's format. The realized output path is parsed from yt-dlp's
// after-move filepath print, falling back to the job's target path.
func (d *YTdlp) Fetch(ctx context.Context, job *entity.Job, progressFn ProgressFunc) (string, error) {
	if job == nil {
		return "", errs.ErrJobNil
	}

	log := d.log.With(slog.String("func", "Fetch"), "job", *job)

	ytdlpProgressFn := func(prog ytdlp.ProgressUpdate) {
		percent := calc.Progress(prog.DownloadedBytes, prog.TotalBytes)
		log.DebugContext(ctx, "ytdlp progress", slog.Int("progress", percent))

		if progressFn != nil {
			progressFn(percent)
		}
	}

	command := ytdlp.New().
		CacheDir(d.cfg.Dir.Cache).
		NoPlaylist().
		ExtractAudio().
		AudioFormat(string(job.Format)).
		AudioQuality("0").
		ProgressFunc(defaultProgressFreq, ytdlpProgressFn).
		Print(defaultPrintAfterMove).
		Output(outputTemplate(job))

	if d.cfg.Proxy != "" {
		command = command.Proxy(d.cfg.Proxy)
	}

	res, err := command.Run(ctx, job.SourceRef)
	if err != nil {
		d.recordFetch("error", classifyFetchError(err))
		log.ErrorContext(ctx, "ytdlp run", slog.Any("error", err))

		return "", fmt.Errorf("%w: %w", errs.ErrFetchFailed, err)
	}

	d.recordFetch("ok", "")

	realized := parseRealizedPath(res.Stdout)
	if realized == "" {
		realized = job.TargetPath
	}

	if progressFn != nil {
		progressFn(fullProgress)
	}

	log.InfoContext(ctx, "fetch done", slog.String("realized_path", realized))

	return realized, nil
}

// Resolve expands a playlist locator into entries using yt-dlp's flat
// playlist mode. A plain video URL resolves to a single-entry playlist.
func (d *YTdlp) Resolve(ctx context.Context, sourceRef string) (*PlaylistInfo, error) {
	log := d.log.With(slog.String("func", "Resolve"), slog.String("source_ref", sourceRef))

	res, err := ytdlp.New().
		CacheDir(d.cfg.Dir.Cache).
		FlatPlaylist().
		SkipDownload().
		PrintJSON().
		Run(ctx, sourceRef)
	if err != nil {
		log.ErrorContext(ctx, "ytdlp resolve", slog.Any("error", err))

		return nil, fmt.Errorf("%w: %w", errs.ErrResolveFailed, err)
	}

	results, err := ParseStdout(res.Stdout)
	if err != nil {
		return nil, fmt.Errorf("parse yt-dlp stdout: %w", err)
	}

	info, err := composePlaylistInfo(sourceRef, results)
	if err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "playlist resolved",
		slog.String("title", info.Title), slog.Int("entries", len(info.Entries)))

	return info, nil
}

func (d *YTdlp) recordFetch(status, errorType string) {
	if d.metrics == nil {
		return
	}

	d.metrics.RecordFetchRequest(consts.FetcherYTdlp, status)

	if errorType != "" {
		d.metrics.RecordFetchError(consts.FetcherYTdlp, errorType)
	}
}

// outputTemplate turns the job's target path into a yt-dlp output template so
// that intermediate downloads keep their native extension before transcoding.
func outputTemplate(job *entity.Job) string {
	base := strings.TrimSuffix(job.TargetPath, job.Format.Ext())

	return base + ".%(ext)s"
}

// parseRealizedPath extracts the last after-move filepath printed by yt-dlp.
func parseRealizedPath(stdout string) string {
	var realized string

	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, bufSize), maxJSONSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if reFilepath.MatchString(line) {
			realized = line
		}
	}

	return realized
}

// ResultJSON is the subset of yt-dlp's JSON output the resolver consumes.
type ResultJSON struct {
	Type          string        `json:"_type"`
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	WebpageURL    string        `json:"webpage_url"`
	PlaylistCount int           `json:"playlist_count"`
	Duration      float64       `json:"duration"`
	Entries       []EntriesJSON `json:"entries"`
}

// EntriesJSON represents an entry in a playlist result.
type EntriesJSON struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	WebpageURL string   `json:"webpage_url"`
	Duration   *float64 `json:"duration"`
}

// ParseStdout parses the line-delimited JSON stdout of yt-dlp, ignoring
// non-JSON lines such as printed file paths.
func ParseStdout(stdout string) ([]ResultJSON, error) {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, bufSize), maxJSONSize)

	var res []ResultJSON

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var r ResultJSON
		if err := json.Unmarshal([]byte(line), &r); err == nil {
			res = append(res, r)
		}
	}

	return res, nil
}

func composePlaylistInfo(sourceRef string, results []ResultJSON) (*PlaylistInfo, error) {
	if len(results) == 0 {
		return nil, errs.ErrResolveFailed
	}

	root := results[0]

	info := &PlaylistInfo{
		ID:    root.ID,
		Title: root.Title,
	}

	if root.Type == "playlist" {
		info.Entries = make([]Entry, 0, len(root.Entries))

		for _, e := range root.Entries {
			url := e.URL
			if url == "" {
				url = e.WebpageURL
			}

			info.Entries = append(info.Entries, Entry{
				ID:       e.ID,
				Title:    e.Title,
				URL:      url,
				Duration: maths.RoundFloat64ToInt(ptr.Deref(e.Duration)),
			})
		}

		return info, nil
	}

	// single video: a one-entry playlist
	url := root.WebpageURL
	if url == "" {
		url = sourceRef
	}

	info.Entries = []Entry{{
		ID:       root.ID,
		Title:    root.Title,
		URL:      url,
		Duration: maths.RoundFloat64ToInt(root.Duration),
	}}

	return info, nil
}
