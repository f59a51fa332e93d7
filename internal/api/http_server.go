package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"schoollend/internal/config"
	"schoollend/internal/domain"
	"schoollend/internal/metrics"
	"schoollend/internal/scanner"
	"schoollend/internal/service"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// ScannerService is the pickup desk scanner as seen by the transports.
type ScannerService interface {
	Scan(ctx context.Context) (*scanner.Result, error)
	Lookup(ctx context.Context, code string) (*scanner.Result, error)
	Approve(ctx context.Context, code string) error
	Reject(ctx context.Context, code string) error
}

// Services bundles what the HTTP API serves. Ready is optional.
type Services struct {
	Catalog      domain.CatalogService
	Wizard       domain.WizardService
	Reservations domain.ReservationService
	Scanner      ScannerService
	Ready        func(ctx context.Context) error
	Now          func() time.Time
}

// HTTPServer exposes the lending API over JSON/HTTP.
type HTTPServer struct {
	cfg     config.APIConfig
	svc     Services
	server  *http.Server
	limiter *rateLimiter
	log     zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	if svc.Now == nil {
		svc.Now = time.Now
	}
	srv := &HTTPServer{
		cfg:     cfg,
		svc:     svc,
		limiter: newRateLimiter(cfg.RateLimit),
		log:     zerolog.Nop(),
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		// сканирование может ждать до scanner.timeout
		WriteTimeout: 30 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware, s.rateLimitMiddleware)
	r.NotFoundHandler = s.loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	}))
	r.MethodNotAllowedHandler = s.loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}))

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/routes", s.handleRoutes).Methods(http.MethodGet)
	v1.HandleFunc("/help", s.handleHelp).Methods(http.MethodGet)

	v1.HandleFunc("/devices", s.handleDevices).Methods(http.MethodGet)
	v1.HandleFunc("/devices/{id:[0-9]+}", s.handleDevice).Methods(http.MethodGet)
	v1.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)

	v1.HandleFunc("/wizard", s.handleWizardStart).Methods(http.MethodPost)
	wz := v1.PathPrefix("/wizard/{session}").Subrouter()
	wz.HandleFunc("", s.handleWizardGet).Methods(http.MethodGet)
	wz.HandleFunc("/device", s.handleWizardDevice).Methods(http.MethodPost)
	wz.HandleFunc("/dates/click", s.handleWizardClick).Methods(http.MethodPost)
	wz.HandleFunc("/dates/reset", s.handleWizardResetDates).Methods(http.MethodPost)
	wz.HandleFunc("/dates/confirm", s.handleWizardConfirm).Methods(http.MethodPost)
	wz.HandleFunc("/applicant", s.handleWizardSubmit).Methods(http.MethodPost)
	wz.HandleFunc("/back", s.handleWizardBack).Methods(http.MethodPost)
	wz.HandleFunc("/reset", s.handleWizardReset).Methods(http.MethodPost)

	v1.HandleFunc("/forms/validate", s.handleFormValidate).Methods(http.MethodPost)

	v1.HandleFunc("/reservations/{id}/confirmation", s.handleConfirmation).Methods(http.MethodGet)
	v1.HandleFunc("/reservations/{id}/qr.png", s.handleQRDownload).Methods(http.MethodGet)

	v1.HandleFunc("/me/reservations", s.handlePersonalList).Methods(http.MethodGet)
	v1.HandleFunc("/me/reservations/{id}/cancel", s.handlePersonalCancel).Methods(http.MethodPost)
	v1.HandleFunc("/me/reservations/{id}/extend", s.handlePersonalExtend).Methods(http.MethodPost)

	v1.HandleFunc("/admin/reservations", s.handleAdminList).Methods(http.MethodGet)
	v1.HandleFunc("/admin/reservations/export", s.handleAdminExport).Methods(http.MethodGet)
	v1.HandleFunc("/admin/stats", s.handleAdminStats).Methods(http.MethodGet)
	v1.HandleFunc("/admin/reservations/{id}/status", s.handleAdminStatus).Methods(http.MethodPost)
	v1.HandleFunc("/admin/reservations/{id}/locker", s.handleAdminLocker).Methods(http.MethodPost)

	v1.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)
	v1.HandleFunc("/scan/{code}", s.handleScanLookup).Methods(http.MethodGet)
	v1.HandleFunc("/scan/{code}/approve", s.handleScanApprove).Methods(http.MethodPost)
	v1.HandleFunc("/scan/{code}/reject", s.handleScanReject).Methods(http.MethodPost)

	origins := s.cfg.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Request-ID"}),
		handlers.ExposedHeaders([]string{"Content-Disposition"}),
		handlers.OptionStatusCode(http.StatusNoContent),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{log: s.log}),
		handlers.PrintRecoveryStack(true),
	)
	return cors(recovery(r))
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.IncHTTP(route, strconv.Itoa(recorder.status))

		event := s.log.Info()
		if recorder.status >= http.StatusInternalServerError {
			event = s.log.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *HTTPServer) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" && !s.limiter.allow(s.limiter.clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoveryLogger routes panics caught by gorilla/handlers into zerolog.
type recoveryLogger struct {
	log zerolog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error().Msg(fmt.Sprint(v...))
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeDomainError renders err with the status code it maps to.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatus(err)
	if code >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, code, "internal error")
		return
	}
	writeJSON(w, code, errorBody(err))
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", service.ErrInvalidInput, err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
