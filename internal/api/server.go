// Package api exposes the sequencer over HTTP: public submission and query
// endpoints, and administrator endpoints gated by JWT role.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth/v5"

	"github.com/michaelwinczuk/erc-shared-sequencer/internal/congestion"
	"github.com/michaelwinczuk/erc-shared-sequencer/internal/fees"
	"github.com/michaelwinczuk/erc-shared-sequencer/internal/sequencer"
	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/config"
	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/errors"
	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/health"
	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/logging"
	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/metrics"
)

// Server is the HTTP API server. It holds the administrator capability and
// exercises it on behalf of JWT-authenticated administrators.
type Server struct {
	config           *config.Config
	router           *chi.Mux
	sequencer        *sequencer.Sequencer
	adminCap         sequencer.Capability
	estimator        *fees.Estimator
	tracker          *congestion.Tracker
	tokenAuth        *jwtauth.JWTAuth
	server           *http.Server
	logger           *logging.Logger
	metricsCollector *metrics.Metrics
	healthRegistry   *health.Registry
}

// NewServer creates the API server. tracker may be nil when no congestion
// tracker is deployed.
func NewServer(cfg *config.Config, seq *sequencer.Sequencer, adminCap sequencer.Capability, estimator *fees.Estimator, tracker *congestion.Tracker) *Server {
	r := chi.NewRouter()
	tokenAuth := jwtauth.New("HS256", []byte(cfg.Auth.JWTSecret), nil)

	logger := logging.New(logging.Config{
		Level:       logging.LogLevel(cfg.Log.Level),
		Output:      log.Writer(),
		ServiceName: "api",
		Environment: cfg.Log.Environment,
	})

	metricsCollector := metrics.New(metrics.Config{
		Namespace:   cfg.Metrics.Namespace,
		Subsystem:   "api",
		ServiceName: "api",
	})

	healthRegistry := health.NewRegistry(logger)

	s := &Server{
		config:           cfg,
		router:           r,
		sequencer:        seq,
		adminCap:         adminCap,
		estimator:        estimator,
		tracker:          tracker,
		tokenAuth:        tokenAuth,
		logger:           logger,
		metricsCollector: metricsCollector,
		healthRegistry:   healthRegistry,
		server: &http.Server{
			Addr:    ":" + cfg.API.Port,
			Handler: r,
		},
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupHealthChecks()

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)

	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(MetricsMiddleware(s.metricsCollector, "api"))
	s.router.Use(Recoverer(s.logger, s.metricsCollector, "api"))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.API.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Use(httprate.LimitByIP(s.config.API.RateLimitPerMin, 1*time.Minute))
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	// Public routes: queries are side-effect-free and require no payment.
	s.router.Group(func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.metricsCollector.Handler().ServeHTTP)

		r.Get("/v1/metadata", s.handleGetMetadata)
		r.Post("/v1/fees/estimate", s.handleEstimate)
		r.Get("/v1/transactions/{id}", s.handleGetReceipt)
	})

	// Submission requires an authenticated caller identity.
	s.router.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(s.tokenAuth))
		r.Use(jwtauth.Authenticator)

		r.Post("/v1/transactions", s.handleSubmit)
	})

	// Admin routes require the admin role.
	s.router.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(s.tokenAuth))
		r.Use(jwtauth.Authenticator)
		r.Use(s.adminOnly)

		r.Post("/v1/admin/transactions/{id}/confirm", s.handleConfirm)
		r.Post("/v1/admin/transactions/{id}/fail", s.handleFail)
		r.Put("/v1/admin/paused", s.handleSetPaused)
		r.Post("/v1/admin/withdraw", s.handleWithdraw)
	})
}

// setupHealthChecks configures health checks for the server.
func (s *Server) setupHealthChecks() {
	s.healthRegistry.Register("api", health.ComponentChecker("api", func(ctx context.Context) error {
		return nil
	}))

	s.healthRegistry.Register("sequencer", health.ComponentChecker("sequencer", func(ctx context.Context) error {
		_, err := s.sequencer.Balance(ctx)
		return err
	}))
}

// RegisterHealthCheck adds an external dependency check (Redis, Kafka).
func (s *Server) RegisterHealthCheck(name string, checker health.Checker) {
	s.healthRegistry.Register(name, checker)
}

// Start starts the API server.
func (s *Server) Start() {
	s.logger.Info("Starting API server", "port", s.config.API.Port)

	s.metricsCollector.ServiceLastStarted.Set(float64(time.Now().Unix()))

	uptimeDone := make(chan struct{})
	s.metricsCollector.RecordUptime(uptimeDone)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Error starting server", "error", err)
		close(uptimeDone)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) {
	s.logger.Info("Shutting down API server")
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("Error during server shutdown", "error", err)
	}
	s.logger.Info("API server shutdown complete")
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Response is the standardized API response envelope.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := s.healthRegistry.RunChecks(r.Context())

	status := health.StatusUp
	for _, check := range checks {
		if check.Status == health.StatusDown {
			status = health.StatusDown
			break
		} else if check.Status == health.StatusUnknown && status != health.StatusDown {
			status = health.StatusUnknown
		}
	}

	httpStatus := http.StatusOK
	if status == health.StatusDown {
		httpStatus = http.StatusServiceUnavailable
	}

	resp := Response{
		Success: status == health.StatusUp,
		Message: "Service health status: " + string(status),
		Data: map[string]interface{}{
			"status":    status,
			"timestamp": time.Now().Unix(),
			"version":   s.config.Sequencer.Version,
			"checks":    checks,
			"system": map[string]interface{}{
				"go_version":    runtime.Version(),
				"go_goroutines": runtime.NumGoroutine(),
			},
		},
	}

	s.renderJSON(w, resp, httpStatus)
}

// handleGetMetadata returns the fixed sequencer metadata.
func (s *Server) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	md := s.sequencer.Metadata()

	resp := Response{
		Success: true,
		Data: map[string]interface{}{
			"version":                     md.Version,
			"supported_networks":          md.SupportedNetworks,
			"min_confirmation_latency_ms": md.MinConfirmationLatency.Milliseconds(),
			"max_payload_size":            md.MaxPayloadSize,
		},
	}

	s.renderJSON(w, resp, http.StatusOK)
}

// handleEstimate returns the expected submission cost for a payload.
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Payload     string `json:"payload"`
		PayloadSize int    `json:"payload_size"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.renderError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	var payload []byte
	if req.Payload != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.Payload)
		if err != nil {
			s.renderError(w, "Payload must be base64 encoded", http.StatusBadRequest)
			return
		}
		payload = decoded
	} else if req.PayloadSize > 0 {
		payload = make([]byte, req.PayloadSize)
	}

	cost := s.estimator.Estimate(r.Context(), payload)

	resp := Response{
		Success: true,
		Data: map[string]interface{}{
			"cost":         cost,
			"min_fee":      s.estimator.MinFee(),
			"payload_size": len(payload),
		},
	}

	s.renderJSON(w, resp, http.StatusOK)
}

// handleGetReceipt returns the receipt for an identifier.
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.sequencer.Get(r.Context(), id)
	if err != nil {
		s.renderDomainError(w, err)
		return
	}

	resp := Response{
		Success: true,
		Data:    rec,
	}

	s.renderJSON(w, resp, http.StatusOK)
}

// handleSubmit handles transaction submission requests.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		s.renderError(w, "Authentication error", http.StatusUnauthorized)
		return
	}

	sender, ok := claims["address"].(string)
	if !ok || sender == "" {
		s.renderError(w, "Invalid token claims", http.StatusBadRequest)
		return
	}

	var req struct {
		Payload string `json:"payload"`
		Fee     uint64 `json:"fee"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.renderError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	payload, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		s.renderError(w, "Payload must be base64 encoded", http.StatusBadRequest)
		return
	}

	id, err := s.sequencer.Submit(r.Context(), sender, payload, req.Fee)
	if err != nil {
		s.metricsCollector.RecordSubmission("rejected")
		s.renderDomainError(w, err)
		return
	}

	s.metricsCollector.RecordSubmission("accepted")
	s.metricsCollector.SubmissionFee.Observe(float64(req.Fee))
	if s.tracker != nil {
		s.tracker.Observe(r.Context())
	}
	if balance, err := s.sequencer.Balance(r.Context()); err == nil {
		s.metricsCollector.FeeBalance.Set(float64(balance))
	}

	resp := Response{
		Success: true,
		Message: "Transaction accepted",
		Data: map[string]interface{}{
			"id":     id,
			"sender": sender,
			"fee":    req.Fee,
		},
	}

	s.renderJSON(w, resp, http.StatusCreated)
}

// handleConfirm transitions a receipt to Confirmed (admin only).
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		L1TxHash string `json:"l1_tx_hash"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.L1TxHash == "" {
		s.renderError(w, "l1_tx_hash is required", http.StatusBadRequest)
		return
	}

	if err := s.sequencer.Confirm(r.Context(), s.adminCap, id, req.L1TxHash); err != nil {
		s.renderDomainError(w, err)
		return
	}

	s.metricsCollector.ReceiptTransitions.WithLabelValues("confirmed").Inc()

	resp := Response{
		Success: true,
		Message: "Receipt confirmed",
		Data: map[string]interface{}{
			"id":         id,
			"l1_tx_hash": req.L1TxHash,
		},
	}

	s.renderJSON(w, resp, http.StatusOK)
}

// handleFail transitions a receipt to Failed (admin only).
func (s *Server) handleFail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Reason string `json:"reason"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reason == "" {
		s.renderError(w, "reason is required", http.StatusBadRequest)
		return
	}

	if err := s.sequencer.Fail(r.Context(), s.adminCap, id, req.Reason); err != nil {
		s.renderDomainError(w, err)
		return
	}

	s.metricsCollector.ReceiptTransitions.WithLabelValues("failed").Inc()

	resp := Response{
		Success: true,
		Message: "Receipt failed",
		Data: map[string]interface{}{
			"id":     id,
			"reason": req.Reason,
		},
	}

	s.renderJSON(w, resp, http.StatusOK)
}

// handleSetPaused toggles the admission gate (admin only).
func (s *Server) handleSetPaused(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paused bool `json:"paused"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.renderError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := s.sequencer.SetPaused(s.adminCap, req.Paused); err != nil {
		s.renderDomainError(w, err)
		return
	}

	resp := Response{
		Success: true,
		Message: "Pause state updated",
		Data: map[string]interface{}{
			"paused": req.Paused,
		},
	}

	s.renderJSON(w, resp, http.StatusOK)
}

// handleWithdraw drains the fee balance to a destination (admin only).
func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Destination string `json:"destination"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Destination == "" {
		s.renderError(w, "destination is required", http.StatusBadRequest)
		return
	}

	amount, err := s.sequencer.Withdraw(r.Context(), s.adminCap, req.Destination)
	if err != nil {
		s.renderDomainError(w, err)
		return
	}

	s.metricsCollector.FeeBalance.Set(0)

	resp := Response{
		Success: true,
		Message: "Withdrawal complete",
		Data: map[string]interface{}{
			"destination": req.Destination,
			"amount":      amount,
		},
	}

	s.renderJSON(w, resp, http.StatusOK)
}

// adminOnly verifies the authenticated caller has the admin role.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			s.renderError(w, "Authentication error", http.StatusUnauthorized)
			return
		}

		role, ok := claims["role"].(string)
		if !ok || role != "admin" {
			s.renderError(w, "Admin access required", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// renderJSON renders a JSON response.
func (s *Server) renderJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Error encoding JSON response", "error", err)
	}
}

// renderError renders an error response.
func (s *Server) renderError(w http.ResponseWriter, message string, status int) {
	s.metricsCollector.RecordError("api", "http", strconv.Itoa(status))

	s.renderJSON(w, Response{
		Success: false,
		Error:   message,
	}, status)
}

// renderDomainError maps a domain error to its HTTP status.
func (s *Server) renderDomainError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= 500 {
		s.logger.Error("Internal error", "error", err)
		s.renderError(w, "Internal error", status)
		return
	}
	s.renderError(w, err.Error(), status)
}
