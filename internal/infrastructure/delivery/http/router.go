// Package httprouter wires the HTTP API: playlist run management, readiness
// and metrics.
package httprouter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"tunepull/internal/consts"
	"tunepull/internal/errs"
	"tunepull/internal/infrastructure/delivery/http/middleware"
	"tunepull/internal/infrastructure/delivery/http/request"
	"tunepull/internal/infrastructure/delivery/http/response"
	"tunepull/internal/observability"
	"tunepull/internal/service"
)

type chain []func(http.Handler) http.Handler

func (c chain) then(h http.Handler) http.Handler {
	for _, mw := range slices.Backward(c) {
		h = mw(h)
	}
	return h
}

// Router serves the playlist API on a standard ServeMux with a global
// middleware chain.
type Router struct {
	*http.ServeMux
	log         *slog.Logger
	globalChain chain
	routeChain  chain
	isSubRouter bool
	svc         service.Playlister
	metrics     *observability.Metrics
}

// New creates the router with its global middlewares and routes.
func New(log *slog.Logger, svc service.Playlister, metrics *observability.Metrics) *Router {
	r := &Router{
		ServeMux: http.NewServeMux(),
		log:      log,
		svc:      svc,
		metrics:  metrics,
	}

	r.SetGlobalMiddlewares()
	r.SetRoutes()

	return r
}

// Use appends middlewares to the active chain.
func (r *Router) Use(middleware ...func(http.Handler) http.Handler) {
	if r.isSubRouter {
		r.routeChain = append(r.routeChain, middleware...)
	} else {
		r.globalChain = append(r.globalChain, middleware...)
	}
}

// Group runs fn against a sub-router sharing the mux and route chain.
func (r *Router) Group(fn func(r *Router)) {
	subRouter := &Router{
		isSubRouter: true,
		routeChain:  slices.Clone(r.routeChain),
		ServeMux:    r.ServeMux,
	}

	fn(subRouter)
}

// HandleFunc registers a handler function behind the route chain.
func (r *Router) HandleFunc(pattern string, h http.HandlerFunc) {
	r.Handle(pattern, h)
}

// Handle registers a handler behind the route chain.
func (r *Router) Handle(pattern string, h http.Handler) {
	r.ServeMux.Handle(pattern, r.routeChain.then(h))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.globalChain.then(r.ServeMux).ServeHTTP(w, req)
}

// SetGlobalMiddlewares installs the global middleware chain.
func (r *Router) SetGlobalMiddlewares() {
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.Logger,
		middleware.Metrics(r.metrics),
	)
}

// SetRoutes installs all routes.
func (r *Router) SetRoutes() {
	r.SetRoutesHealthcheck()
	r.SetRoutesPlaylists()
	r.SetRoutesMetrics()
}

// SetRoutesHealthcheck installs the readiness route.
func (r *Router) SetRoutesHealthcheck() {
	r.HandleFunc("GET /v1/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

// SetRoutesPlaylists installs the playlist run routes.
func (ro *Router) SetRoutesPlaylists() {
	playlistRouter := &Router{
		ServeMux: http.NewServeMux(),
	}
	playlistRouter.HandleFunc("POST /enqueue", ro.Enqueue)
	playlistRouter.HandleFunc("GET /", ro.GetRuns)
	playlistRouter.HandleFunc("GET /{id}", ro.GetRun)
	playlistRouter.HandleFunc("DELETE /{id}/cancel", ro.CancelRun)

	ro.Handle("/v1/playlists/", http.StripPrefix("/v1/playlists", playlistRouter))
}

// SetRoutesMetrics installs the Prometheus scrape route.
func (r *Router) SetRoutesMetrics() {
	r.Handle("GET /metrics", observability.Handler())
}

// Enqueue starts a playlist run from the posted locator and format.
func (ro *Router) Enqueue(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "Enqueue")
	ctx := r.Context()

	var in request.Enqueue
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, err)

		return
	}

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	}

	playlist, err := ro.svc.Enqueue(ctx, in.URL, in.Format)
	if errors.Is(err, errs.ErrRunAlreadyExists) {
		log.DebugContext(ctx, consts.RespRunAlreadyExists, slog.Any("error", err))
		response.Conflict(w, consts.RespRunAlreadyExists, err)

		return
	}
	if err != nil {
		log.ErrorContext(ctx, consts.RespRunEnqueueFail, slog.Any("error", err))
		response.InternalServerError(w, consts.RespRunEnqueueFail, nil, err)

		return
	}

	log.InfoContext(ctx, consts.RespRunEnqueued, "playlist", *playlist)

	response.Accepted(w, consts.RespRunEnqueued, playlist, nil)
}

// GetRun returns the current view of one playlist run.
func (ro *Router) GetRun(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "GetRun")

	ctx, cancel := context.WithTimeout(r.Context(), consts.DefaultHandlerTimeout)
	defer cancel()

	id := r.PathValue("id")
	if id == "" {
		log.ErrorContext(ctx, consts.RespQueryParamMissing)
		response.BadRequest(w, consts.RespQueryParamMissing, nil)

		return
	}

	playlist, err := ro.svc.GetByID(ctx, id)
	if errors.Is(err, errs.ErrRunNotFound) {
		log.DebugContext(ctx, consts.RespRunNotFound, slog.String("id", id))
		response.NotFound(w, consts.RespRunNotFound, err)

		return
	}
	if err != nil {
		log.ErrorContext(ctx, consts.RespGetRunsFail, slog.Any("error", err))
		response.InternalServerError(w, consts.RespGetRunsFail, nil, err)

		return
	}

	response.OK(w, consts.RespRunRetrieved, playlist, nil)
}

// GetRuns returns the current views of all stored playlist runs.
func (ro *Router) GetRuns(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "GetRuns")

	ctx, cancel := context.WithTimeout(r.Context(), consts.DefaultHandlerTimeout)
	defer cancel()

	playlists, err := ro.svc.GetAll(ctx)
	if errors.Is(err, errs.ErrNoRuns) {
		log.DebugContext(ctx, consts.RespNoRuns)
		response.NoContent(w)

		return
	}

	if err != nil {
		log.ErrorContext(ctx, consts.RespGetRunsFail, slog.Any("error", err))
		response.InternalServerError(w, consts.RespGetRunsFail, nil, err)

		return
	}

	response.OK(w, consts.RespRunsRetrieved, playlists, nil)
}

// CancelRun requests cancellation of a running playlist.
func (ro *Router) CancelRun(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "CancelRun")

	ctx, cancel := context.WithTimeout(r.Context(), consts.DefaultHandlerTimeout)
	defer cancel()

	id := r.PathValue("id")
	if id == "" {
		log.ErrorContext(ctx, consts.RespQueryParamMissing)
		response.BadRequest(w, consts.RespQueryParamMissing, nil)

		return
	}

	err := ro.svc.Cancel(ctx, id)
	if errors.Is(err, errs.ErrRunNotFound) {
		log.DebugContext(ctx, consts.RespRunNotFound, slog.String("id", id))
		response.NotFound(w, consts.RespRunNotFound, err)

		return
	}
	if errors.Is(err, errs.ErrRunNotRunning) {
		log.DebugContext(ctx, consts.RespRunCancelFail, slog.String("id", id))
		response.Conflict(w, consts.RespRunCancelFail, err)

		return
	}
	if err != nil {
		log.ErrorContext(ctx, consts.RespRunCancelFail, slog.Any("error", err))
		response.InternalServerError(w, consts.RespRunCancelFail, nil, err)

		return
	}

	response.Accepted(w, consts.RespRunCancelled, id, nil)
}
