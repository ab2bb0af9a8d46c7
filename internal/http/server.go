package http

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reimburse/internal/core"
	applog "reimburse/internal/log"
	"reimburse/internal/metrics"
	"reimburse/internal/middleware/ratelimit"
	"reimburse/internal/middleware/security"
	"reimburse/internal/middleware/trace"
	"reimburse/internal/presenter"
	"reimburse/internal/receipts"
	"reimburse/internal/submission"
)

// ClaimStore is the part of the claim store the API exposes.
type ClaimStore interface {
	GetAll(ctx context.Context) []core.Claim
	Get(ctx context.Context, id string) (core.Claim, bool)
	Update(ctx context.Context, id string, patch core.ClaimPatch) error
	Remove(ctx context.Context, id string) error
	ReplaceAll(ctx context.Context, items []core.Claim) error
	Clear(ctx context.Context) error
	ResetToDefault(ctx context.Context) error
}

// Deps are the collaborators a Server routes to. Metrics, Gatherer,
// Health, Limiter and IPResolver are optional.
type Deps struct {
	Claims     ClaimStore
	Presenter  *presenter.Presenter
	Sessions   *submission.Sessions
	Receipts   receipts.Store
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	Health     func(ctx context.Context) error
	Limiter    *ratelimit.Limiter
	IPResolver *security.ClientIPResolver
	Logger     *applog.Logger
}

type Server struct {
	http.Server
	deps   Deps
	logger *applog.Logger
}

// NewServer wires the router and returns a server listening on addr once
// ListenAndServe is called.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	if deps.IPResolver == nil {
		deps.IPResolver = security.NewClientIPResolver()
	}

	s := &Server{deps: deps, logger: logger}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return applog.WithLogger(context.Background(), logger)
		},
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	var observe trace.ObserveFunc
	if s.deps.Metrics != nil {
		observe = s.deps.Metrics.ObserveHTTP
	}
	tracer := trace.NewMiddleware(s.deps.IPResolver.ClientIP, s.logger, observe)

	r.Use(tracer.Handler)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(trace.RequestIDFromRequest))
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	if s.deps.Limiter != nil {
		r.Use(s.deps.Limiter.Middleware(s.deps.IPResolver.ClientIP, func(w http.ResponseWriter, r *http.Request) {
			ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, please try again later").Write(w)
		}))
	}

	r.Route("/claims", func(r chi.Router) {
		r.Get("/", s.handleListClaims)
		r.Put("/", s.handleReplaceClaims)
		r.Delete("/", s.handleClearClaims)
		r.Post("/refresh", s.handleRefreshClaims)
		r.Post("/reset", s.handleResetClaims)
		r.Get("/{id}", s.handleGetClaim)
		r.Patch("/{id}", s.handleUpdateClaim)
		r.Delete("/{id}", s.handleRemoveClaim)
	})

	r.Route("/drafts", func(r chi.Router) {
		r.Post("/", s.handleOpenDraft)
		r.Route("/{sid}", func(r chi.Router) {
			r.Get("/", s.handleGetDraft)
			r.Delete("/", s.handleCancelDraft)
			r.Post("/attachments", s.handleAddAttachment)
			r.Delete("/attachments/{aid}", s.handleRemoveAttachment)
			r.Post("/submit", s.handleSubmit)
		})
	})

	r.Post("/receipts", s.handleUploadReceipt)
	r.Get("/categories", s.handleCategories)
	r.Get("/approval-chain", s.handleApprovalChain)
	r.Get("/healthz", s.handleHealth)
	if s.deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "not_found", "no route for "+strings.TrimSpace(r.URL.Path)).Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed here").Write(w)
	})

	return r
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.InfoContext(ctx, "HTTP server shutting down", applog.FieldOperation, applog.OpShutdown)
	return s.Server.Shutdown(ctx)
}
