// Package api serves the marketplace over HTTP: technician search with
// highlighted matches, bookings, the help chat and route lookups.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
	"github.com/MohanGuptaKoduru/ServiceLink/booking"
	"github.com/MohanGuptaKoduru/ServiceLink/geo"
	"github.com/MohanGuptaKoduru/ServiceLink/search"
)

// Searcher runs searches against the technician snapshot.
type Searcher interface {
	Search(ctx context.Context, query string) (*search.Response, error)
	Refresh(ctx context.Context) error
}

// Router resolves a driving route between two addresses.
type Router interface {
	Route(ctx context.Context, fromAddress, toAddress string) (*geo.Route, error)
}

// Server holds the handlers' collaborators. Only the searcher is required;
// routes whose collaborator is missing answer 503.
type Server struct {
	searcher     Searcher
	responder    ai.Responder
	router       Router
	bookings     *booking.Service
	metrics      http.Handler
	defaultLimit int
	corsOrigin   string
	logger       *slog.Logger

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// Option configures a Server.
type Option func(*Server)

// WithResponder enables POST /api/message.
func WithResponder(r ai.Responder) Option {
	return func(s *Server) {
		s.responder = r
	}
}

// WithRouter enables POST /api/geo/route.
func WithRouter(r Router) Option {
	return func(s *Server) {
		s.router = r
	}
}

// WithBookings enables the booking routes.
func WithBookings(b *booking.Service) Option {
	return func(s *Server) {
		s.bookings = b
	}
}

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithDefaultLimit caps search results when the request has no limit.
// Zero returns every technician.
func WithDefaultLimit(n int) Option {
	return func(s *Server) {
		s.defaultLimit = n
	}
}

// WithCORSOrigin allows browser calls from origin.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) {
		s.corsOrigin = origin
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTelemetry sets the providers used by the otelhttp instrumentation.
func WithTelemetry(mp metric.MeterProvider, tp trace.TracerProvider) Option {
	return func(s *Server) {
		s.meterProvider = mp
		s.tracerProvider = tp
	}
}

// NewServer creates the API server.
func NewServer(searcher Searcher, opts ...Option) (*Server, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	s := &Server{
		searcher: searcher,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "api")
	return s, nil
}

// Handler returns the instrumented route tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/technicians/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/message", s.handleMessage)
	mux.HandleFunc("POST /api/geo/route", s.handleRoute)
	mux.HandleFunc("POST /api/bookings", s.handleBook)
	mux.HandleFunc("POST /api/bookings/{id}/complete", s.handleComplete)
	mux.HandleFunc("POST /api/bookings/{id}/cancel", s.handleCancel)
	mux.HandleFunc("POST /api/bookings/{id}/rate", s.handleRate)
	mux.HandleFunc("GET /api/customers/{id}/bookings", s.handleCustomerBookings)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	h := Chain(mux,
		Recover(s.logger),
		Logger(s.logger),
		CORS(s.corsOrigin),
	)

	var otelOpts []otelhttp.Option
	if s.meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(s.meterProvider))
	}
	if s.tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(s.tracerProvider))
	}
	return otelhttp.NewHandler(h, "servicelink", otelOpts...)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
