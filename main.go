// entry point of the application
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"tunepull/internal/config"
	"tunepull/internal/depmanager"
	"tunepull/internal/fetch"
	httprouter "tunepull/internal/infrastructure/delivery/http"
	"tunepull/internal/notify"
	"tunepull/internal/observability"
	"tunepull/internal/service"
	"tunepull/internal/storage"
	httpserver "tunepull/pkg/http/server"
	"tunepull/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		slog.Error("config new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Options{
		AddSource: true,
		Level:     cfg.App.LogLevel,
	})
	if err != nil {
		slog.WarnContext(ctx, "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	metrics := observability.New()

	depMgr := depmanager.New(log, cfg)

	log.InfoContext(ctx, "checking if yt-dlp and ffmpeg are installed. it may take some time...")

	if err := depMgr.EnsureAll(ctx); err != nil {
		log.ErrorContext(ctx, "ensure binaries", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	fetcher := fetch.NewYTdlp(log, cfg, metrics)
	storer := storage.New(ctx, log, cfg, metrics)
	notifier := notify.New(log, cfg.Notify)

	svc := service.New(ctx, log, cfg, fetcher, fetcher, storer, metrics, notify.NewSink(notifier))

	router := httprouter.New(log, svc, metrics)

	httpSrv := httpserver.New(router, httpserver.Options{
		Addr:            cfg.HTTP.Port,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})

	log.InfoContext(ctx, "tunepull started", slog.String("port", cfg.HTTP.Port))

	select {
	case <-ctx.Done():
	case err := <-httpSrv.Notify():
		log.ErrorContext(ctx, "http server", slog.Any("error", err))
	}

	err = httpSrv.Shutdown()
	if err != nil {
		log.Error(err.Error())
	}

	log.InfoContext(ctx, "tunepull shut down gracefully")
}
