package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"tunepull/internal/config"
	"tunepull/internal/controller"
	"tunepull/internal/entity"
	"tunepull/internal/errs"
	"tunepull/internal/fetch"
)

func newTestStorage(t *testing.T) *storage {
	t.Helper()

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return &storage{
		log:  log,
		cfg:  cfg,
		runs: make(map[string]*Run),
	}
}

// newTerminalRun builds a run whose playlist already reached a terminal state.
func newTerminalRun(t *testing.T, id string, playlist *entity.Playlist) *Run {
	t.Helper()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctl := controller.New(log, fetch.NewMock(log), nil, nil, controller.Options{Workers: 1, MaxAttempts: 1})

	if err := ctl.Start(context.Background(), playlist); err != nil {
		t.Fatalf("start: %v", err)
	}

	<-ctl.Done()

	return &Run{ID: id, Controller: ctl}
}

func TestSetAndGetRun(t *testing.T) {
	stg := newTestStorage(t)
	ctx := t.Context()

	if got := stg.GetRunByID(ctx, "missing"); got != nil {
		t.Errorf("expected nil for missing run, got %v", got)
	}

	if _, err := stg.GetRuns(ctx); !errors.Is(err, errs.ErrNoRuns) {
		t.Errorf("expected ErrNoRuns, got %v", err)
	}

	run := newTerminalRun(t, "r1", &entity.Playlist{ID: "r1", State: entity.RunStateIdle})
	stg.SetRun(ctx, run)

	if got := stg.GetRunByID(ctx, "r1"); got != run {
		t.Errorf("expected the stored run back")
	}

	runs, err := stg.GetRuns(ctx)
	if err != nil {
		t.Fatalf("get runs: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs))
	}

	stg.DeleteRun(ctx, "r1")

	if got := stg.GetRunByID(ctx, "r1"); got != nil {
		t.Errorf("expected run to be deleted")
	}
}

func TestSetRunInvalid(t *testing.T) {
	stg := newTestStorage(t)
	ctx := t.Context()

	stg.SetRun(ctx, nil)
	stg.SetRun(ctx, &Run{})

	if _, err := stg.GetRuns(ctx); !errors.Is(err, errs.ErrNoRuns) {
		t.Errorf("expected no runs to be stored, got %v", err)
	}
}
