// Package notify sends best-effort desktop notifications when playlist runs
// finish.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"time"

	"tunepull/internal/config"
	"tunepull/internal/entity"
)

const (
	methodAuto       = "auto"
	methodNotifySend = "notify-send"
	methodOsascript  = "osascript"
	methodNone       = "none"
)

const sendTimeout = 5 * time.Second

// Service sends desktop notifications through the platform's notification
// command. Failures are logged and swallowed; notifications never affect run
// outcomes.
type Service struct {
	log    *slog.Logger
	method string
}

// New creates the notification service. With method "auto" the transport is
// picked from the operating system; unsupported platforms get "none".
func New(log *slog.Logger, cfg config.Notify) *Service {
	method := cfg.Method
	if !cfg.Enabled {
		method = methodNone
	}

	if method == methodAuto {
		switch runtime.GOOS {
		case "darwin":
			method = methodOsascript
		case "linux":
			method = methodNotifySend
		default:
			method = methodNone
		}
	}

	return &Service{
		log:    log.With(slog.String("package", "notify")),
		method: method,
	}
}

// Send delivers a desktop notification with the given title and message.
func (s *Service) Send(ctx context.Context, title, message string) {
	if s.method == methodNone {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	var cmd *exec.Cmd

	switch s.method {
	case methodNotifySend:
		cmd = exec.CommandContext(ctx, "notify-send", title, message)
	case methodOsascript:
		script := fmt.Sprintf("display notification %q with title %q", message, title)
		cmd = exec.CommandContext(ctx, "osascript", "-e", script)
	default:
		s.log.WarnContext(ctx, "unknown notification method", slog.String("method", s.method))

		return
	}

	if err := cmd.Run(); err != nil {
		s.log.WarnContext(ctx, "send notification",
			slog.String("method", s.method), slog.Any("error", err))

		return
	}

	s.log.DebugContext(ctx, "notification sent",
		slog.String("method", s.method), slog.String("title", title))
}

// Sink adapts the notification service to run events. It reacts only to the
// terminal event and delivers asynchronously, off the commit path.
type Sink struct {
	svc *Service
}

// NewSink wraps the notification service as a run event sink.
func NewSink(svc *Service) *Sink {
	return &Sink{svc: svc}
}

func (s *Sink) OnJobUpdate(entity.Job) {}

func (s *Sink) OnProgress(entity.ProgressSnapshot) {}

func (s *Sink) OnPlaylistTerminal(state entity.RunState, snap entity.ProgressSnapshot) {
	title := "Playlist download finished"
	if state == entity.RunStateCancelled {
		title = "Playlist download cancelled"
	}

	message := fmt.Sprintf("%d succeeded, %d skipped, %d failed",
		snap.Succeeded, snap.Skipped, snap.Failed)

	go s.svc.Send(context.Background(), title, message)
}
