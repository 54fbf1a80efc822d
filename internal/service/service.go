// Package service implements the application use cases: enqueueing playlist
// runs, querying them, and cancelling them.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tunepull/internal/config"
	"tunepull/internal/controller"
	"tunepull/internal/entity"
	"tunepull/internal/errs"
	"tunepull/internal/fetch"
	"tunepull/internal/observability"
	"tunepull/internal/skip"
	"tunepull/internal/storage"
	"tunepull/pkg/fsname"
	"tunepull/pkg/gen"
	"tunepull/pkg/urls"
)

// Playlister defines the playlist run use cases exposed to the delivery layer.
type Playlister interface {
	Enqueue(ctx context.Context, sourceRef, format string) (*entity.Playlist, error)
	GetByID(ctx context.Context, id string) (*entity.Playlist, error)
	GetAll(ctx context.Context) ([]*entity.Playlist, error)
	Cancel(ctx context.Context, id string) error
}

// Service wires playlist resolution, the run controller and the run registry
// together.
type Service struct {
	log      *slog.Logger
	cfg      *config.Config
	fetcher  fetch.Fetcher
	resolver fetch.Resolver
	store    storage.Storer
	metrics  *observability.Metrics
	sinks    []controller.EventSink

	// appCtx outlives individual requests; runs are detached from the
	// enqueueing request and live until the application shuts down.
	appCtx context.Context
}

// New creates the playlist service. Extra sinks receive run events alongside
// the built-in metrics sink.
func New(appCtx context.Context, log *slog.Logger, cfg *config.Config, fetcher fetch.Fetcher,
	resolver fetch.Resolver, store storage.Storer, metrics *observability.Metrics,
	extraSinks ...controller.EventSink,
) *Service {
	return &Service{
		log:      log.With(slog.String("package", "service")),
		cfg:      cfg,
		fetcher:  fetcher,
		resolver: resolver,
		store:    store,
		metrics:  metrics,
		sinks:    extraSinks,
		appCtx:   appCtx,
	}
}

// Enqueue resolves the playlist locator, builds its job sequence and starts a
// run. Identical locator and format map to the same run ID, so re-enqueueing
// an active run is rejected rather than duplicated.
func (s *Service) Enqueue(ctx context.Context, sourceRef, format string) (*entity.Playlist, error) {
	ref := urls.Normalize(urls.FixURL(sourceRef))
	if !urls.IsURLValid(ref) {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidURL, sourceRef)
	}

	if format == "" {
		format = s.cfg.App.Format
	}

	fmtParsed, err := entity.ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidFormat, err)
	}

	id := gen.UUIDv5(ref, string(fmtParsed))

	if run := s.store.GetRunByID(ctx, id); run != nil && !run.Controller.State().Terminal() {
		return nil, fmt.Errorf("%w: %s", errs.ErrRunAlreadyExists, id)
	}

	info, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve playlist: %w", err)
	}

	playlist := s.buildPlaylist(id, ref, fmtParsed, info)

	log := s.log.With("playlist", *playlist)

	if err := os.MkdirAll(playlist.DestinationDir, 0o755); err != nil {
		return nil, fmt.Errorf("create destination dir: %w", err)
	}

	ctl := controller.New(s.log, s.fetcher, skip.NewFilePolicy(s.log), s.runSink(), controller.Options{
		Workers:           s.cfg.Job.Workers,
		QueueSize:         s.cfg.Job.QueueSize,
		MaxAttempts:       s.cfg.Job.MaxAttempts,
		Timeout:           s.cfg.Job.Timeout,
		RetryDelay:        s.cfg.Job.RetryDelay,
		InterruptInFlight: s.cfg.Job.InterruptInFlight,
	})

	s.store.SetRun(ctx, &storage.Run{ID: id, Controller: ctl})

	if s.metrics != nil {
		s.metrics.RecordRunStarted()
	}

	// the run is bound to the application context, not the request context:
	// the HTTP request completes while the download proceeds
	if err := ctl.Start(s.appCtx, playlist); err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	log.InfoContext(ctx, "playlist run enqueued", slog.Int("jobs", len(playlist.Jobs)))

	return ctl.View(), nil
}

// GetByID returns a consistent copy of the run's playlist.
func (s *Service) GetByID(ctx context.Context, id string) (*entity.Playlist, error) {
	run := s.store.GetRunByID(ctx, id)
	if run == nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrRunNotFound, id)
	}

	return run.View(), nil
}

// GetAll returns consistent copies of all stored runs' playlists.
func (s *Service) GetAll(ctx context.Context) ([]*entity.Playlist, error) {
	runs, err := s.store.GetRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("get runs: %w", err)
	}

	playlists := make([]*entity.Playlist, 0, len(runs))
	for _, run := range runs {
		playlists = append(playlists, run.View())
	}

	return playlists, nil
}

// Cancel requests cancellation of a running playlist. It returns once the
// request is accepted; the run settles asynchronously.
func (s *Service) Cancel(ctx context.Context, id string) error {
	run := s.store.GetRunByID(ctx, id)
	if run == nil {
		return fmt.Errorf("%w: %s", errs.ErrRunNotFound, id)
	}

	if run.Controller.State() != entity.RunStateRunning {
		return fmt.Errorf("%w: %s", errs.ErrRunNotRunning, id)
	}

	run.Controller.Cancel()

	s.log.InfoContext(ctx, "playlist run cancellation requested", slog.String("run_id", id))

	return nil
}

func (s *Service) buildPlaylist(id, ref string, format entity.Format, info *fetch.PlaylistInfo) *entity.Playlist {
	now := time.Now()

	playlist := &entity.Playlist{
		ID:             id,
		SourceRef:      ref,
		Title:          info.Title,
		DestinationDir: s.cfg.Dir.Downloads,
		Format:         format,
		State:          entity.RunStateIdle,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.cfg.Storage.TTL),
	}

	playlist.Jobs = make([]*entity.Job, 0, len(info.Entries))

	for _, entry := range info.Entries {
		playlist.Jobs = append(playlist.Jobs, s.buildJob(entry, format, now))
	}

	return playlist
}

func (s *Service) buildJob(entry fetch.Entry, format entity.Format, now time.Time) *entity.Job {
	name := fsname.WithExt(entry.Title, entry.ID, format.Ext())

	return &entity.Job{
		ID:         gen.UUIDv5(entry.URL, string(format)),
		SourceRef:  entry.URL,
		Title:      entry.Title,
		TargetPath: filepath.Join(s.cfg.Dir.Downloads, name),
		Format:     format,
		State:      entity.JobStatePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *Service) runSink() controller.EventSink {
	sinks := make([]controller.EventSink, 0, len(s.sinks)+1)
	sinks = append(sinks, newMetricsSink(s.metrics))
	sinks = append(sinks, s.sinks...)

	return multiSink(sinks)
}
