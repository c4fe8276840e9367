package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"qwesade/internal/config"
	"qwesade/internal/domain"
	"qwesade/internal/metrics"
	"qwesade/internal/models"
)

const requestIDHeader = "X-Request-ID"

// HealthCheck проверка зависимости для /healthz
type HealthCheck func(ctx context.Context) error

// Server HTTP API рядом с ботом: health, метрики, доступность слотов, webhook
type Server struct {
	cfg      config.APIConfig
	bookings domain.BookingService
	gatherer prometheus.Gatherer
	logger   *zerolog.Logger
	auth     *HTTPAuth
	mux      *http.ServeMux
	server   *http.Server

	mu     sync.RWMutex
	checks map[string]HealthCheck
}

func NewServer(cfg config.APIConfig, bookings domain.BookingService, gatherer prometheus.Gatherer, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		cfg:      cfg,
		bookings: bookings,
		gatherer: gatherer,
		logger:   logger,
		auth:     NewHTTPAuth(cfg),
		mux:      http.NewServeMux(),
		checks:   make(map[string]HealthCheck),
	}

	s.mux.HandleFunc("/ping", s.handlePing)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	s.mux.Handle("/api/v1/availability", s.auth.Wrap(http.HandlerFunc(s.handleAvailability)))
	s.mux.Handle("/api/v1/busy", s.auth.Wrap(http.HandlerFunc(s.handleBusy)))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.loggingMiddleware(s.mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return s
}

// Handle монтирует обработчик вне API-авторизации, например webhook Telegram
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// AddHealthCheck добавляет проверку в /healthz
func (s *Server) AddHealthCheck(name string, check HealthCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong"))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": overall, "checks": results})
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	if _, err := time.Parse(models.DateLayout, dateStr); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	slots, err := s.bookings.DaySchedule(r.Context(), dateStr)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	free := make([]string, 0, len(slots))
	for _, st := range slots {
		if st.Free {
			free = append(free, st.Label)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  dateStr,
		"slots": slots,
		"free":  free,
	})
}

func (s *Server) handleBusy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	monthStr := strings.TrimSpace(r.URL.Query().Get("month"))
	month, err := time.Parse("2006-01", monthStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month format; expected YYYY-MM")
		return
	}

	busy, err := s.bookings.BusyDates(r.Context(), month.Year(), month.Month())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	dates := make([]string, 0, len(busy))
	for d, ok := range busy {
		if ok {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	writeJSON(w, http.StatusOK, map[string]any{"month": monthStr, "dates": dates})
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("API request failed")
	switch {
	case errors.Is(err, models.ErrUnparseableDate):
		writeError(w, http.StatusBadRequest, "invalid date")
	case errors.Is(err, models.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		l := s.logger.With().Str("request_id", requestID).Logger()
		r = r.WithContext(l.WithContext(r.Context()))

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		endpoint := endpointLabel(r.URL.Path)
		metrics.ObserveHTTP(endpoint, recorder.status, dur)
		l.Debug().
			Str("method", r.Method).
			Str("endpoint", endpoint).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

// endpointLabel метка метрики; путь webhook содержит секрет и не пишется
func endpointLabel(path string) string {
	switch {
	case path == "/ping", path == "/healthz", path == "/metrics":
		return strings.TrimPrefix(path, "/")
	case path == "/api/v1/availability":
		return "availability"
	case path == "/api/v1/busy":
		return "busy"
	case strings.HasPrefix(path, "/webhook/"):
		return "webhook"
	default:
		return "other"
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
