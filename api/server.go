// Package api exposes the settlement engine over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xraph/bulkpay"
	"github.com/xraph/bulkpay/gate"
	"github.com/xraph/bulkpay/paylist"
	"github.com/xraph/bulkpay/types"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "bulk-payment-api"

// RequestIDHeader carries the request id set by the server.
const RequestIDHeader = "X-Request-ID"

// Metrics
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkpay_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bulkpay_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

// Engine is the part of the settlement engine served over HTTP.
type Engine interface {
	Submit(ctx context.Context, in bulkpay.SubmitInput) (*paylist.List, error)
	ViewList(ctx context.Context, listID string) (*paylist.List, error)
	ViewSettled(ctx context.Context, listID string) ([]paylist.Settlement, error)
	ViewCredits(ctx context.Context, account string) (uint64, error)
	Quote(n uint64) (types.Amount, error)
	SystemIdentity() string
}

// Tracker receives lists accepted for settlement.
type Tracker interface {
	Track(listID string)
}

// Server serves the HTTP API.
type Server struct {
	engine  Engine
	gate    gate.Gate
	tracker Tracker
	logger  *slog.Logger
	version string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithTracker registers accepted lists with a payout worker.
func WithTracker(t Tracker) Option {
	return func(s *Server) { s.tracker = t }
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a Server. Submissions are accepted only when g finds a
// pending governance reference to the list.
func NewServer(engine Engine, g gate.Gate, opts ...Option) *Server {
	s := &Server{
		engine:  engine,
		gate:    g,
		logger:  slog.Default(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP handler with all routes registered.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID, s.instrument)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/submit-list", s.submitList).Methods(http.MethodPost)
	r.HandleFunc("/list/{id}", s.getList).Methods(http.MethodGet)
	r.HandleFunc("/list/{id}/transactions", s.getTransactions).Methods(http.MethodGet)
	r.HandleFunc("/list/{id}/transaction/{recipient}", s.getTransaction).Methods(http.MethodGet)
	r.HandleFunc("/credits/{account}", s.getCredits).Methods(http.MethodGet)
	r.HandleFunc("/quote/{records}", s.getQuote).Methods(http.MethodGet)

	return r
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, rid)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		httpRequestDuration.WithLabelValues(r.Method, endpoint).Observe(elapsed.Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()

		s.logger.Debug("http request",
			"request_id", w.Header().Get(RequestIDHeader),
			"method", r.Method,
			"endpoint", endpoint,
			"status", rec.status,
			"duration", elapsed,
		)
	})
}
