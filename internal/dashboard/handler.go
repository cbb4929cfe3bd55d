package dashboard

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/vilaca/event-monitor/internal/domain"
	"github.com/vilaca/event-monitor/internal/service"
)

// Handler serves the monitor's query API over HTTP.
type Handler struct {
	renderer Renderer
	logger   Logger
	metrics  MetricsService
	cache    CacheReader
	poller   PollerStatus
	stream   EventStream
}

// Logger interface for logging operations (Interface Segregation Principle).
type Logger interface {
	Printf(format string, v ...interface{})
}

// MetricsService is the read side of the event index.
type MetricsService interface {
	AverageInterval(ref domain.EntityRef) (time.Duration, error)
	CountWithinWindow(kind string, window time.Duration) int
	CountSeries(bucket time.Duration) map[string][]service.SeriesPoint
	Kinds() []string
}

// CacheReader reads back cached events.
type CacheReader interface {
	ReadAll(ctx context.Context) ([]domain.Event, error)
}

// PollerStatus exposes the ingestion loop's progress.
type PollerStatus interface {
	State() service.PollerState
	Stats() service.PollerStats
}

// EventStream delivers newly indexed events to live subscribers.
type EventStream interface {
	Subscribe() chan domain.Event
	Unsubscribe(ch chan domain.Event)
}

// HandlerConfig holds configuration for creating a new Handler.
// Cache and Stream are optional.
type HandlerConfig struct {
	Renderer Renderer
	Logger   Logger
	Metrics  MetricsService
	Cache    CacheReader
	Poller   PollerStatus
	Stream   EventStream
}

// HealthReport is the body of the health endpoint.
type HealthReport struct {
	Status string              `json:"status"`
	Poller string              `json:"poller"`
	Stats  service.PollerStats `json:"stats"`
	Kinds  []string            `json:"kinds"`
}

// NewHandler creates a new Handler with injected dependencies.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		renderer: cfg.Renderer,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		cache:    cfg.Cache,
		poller:   cfg.Poller,
		stream:   cfg.Stream,
	}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /show_cached_events", h.handleCachedEvents)
	mux.HandleFunc("GET /avg_pr_time/{ref...}", h.handleAvgPRTime)
	mux.HandleFunc("GET /api/repositories/{id}/avg_pr_time", h.handleAvgPRTimeByID)
	mux.HandleFunc("GET /event_counts/{event_type}/{offset}", h.handleEventCounts)
	mux.HandleFunc("GET /event_counts_series", h.handleEventCountsSeries)
	mux.HandleFunc("GET /api/events/stream", h.handleEventStream)
}

// handleIndex serves the API introduction.
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to GitHub event monitoring API"})
}

// handleHealth serves the health check endpoint.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := HealthReport{Status: "ok", Kinds: h.metrics.Kinds()}
	if h.poller != nil {
		report.Poller = h.poller.State().String()
		report.Stats = h.poller.Stats()
	}

	var buf bytes.Buffer
	if err := h.renderer.RenderHealth(&buf, report); err != nil {
		h.logger.Printf("failed to render health: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf.Bytes())
}

// handleCachedEvents returns every cached event, or a notice when caching is off.
func (h *Handler) handleCachedEvents(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"message": "Caching of events is not enabled."})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	events, err := h.cache.ReadAll(ctx)
	if err != nil {
		h.logger.Printf("failed to read cached events: %v", err)
		h.writeError(w, http.StatusInternalServerError, "failed to read cached events")
		return
	}
	h.writeJSON(w, http.StatusOK, events)
}

// handleAvgPRTime resolves a repository name ("owner/repo") or numeric id.
func (h *Handler) handleAvgPRTime(w http.ResponseWriter, r *http.Request) {
	input := r.PathValue("ref")
	ref, err := domain.ParseEntityRef(input)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeAverageInterval(w, input, ref)
}

// handleAvgPRTimeByID always treats the path segment as a repository id.
func (h *Handler) handleAvgPRTimeByID(w http.ResponseWriter, r *http.Request) {
	input := r.PathValue("id")
	id, err := strconv.ParseInt(input, 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "repository id must be numeric")
		return
	}
	h.writeAverageInterval(w, input, domain.ByID(id))
}

func (h *Handler) writeAverageInterval(w http.ResponseWriter, input string, ref domain.EntityRef) {
	avg, err := h.metrics.AverageInterval(ref)
	switch {
	case errors.Is(err, domain.ErrInsufficientData):
		h.writeJSON(w, http.StatusOK, map[string]any{
			"repository": input,
			"message":    "Not enough data for calculation",
		})
	case errors.Is(err, domain.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]any{
			"repository": input,
			"message":    "Repository not found",
		})
	case err != nil:
		h.logger.Printf("failed to compute average PR time for %s: %v", input, err)
		h.writeError(w, http.StatusInternalServerError, "failed to compute average")
	default:
		h.writeJSON(w, http.StatusOK, map[string]any{
			"repository":  input,
			"avg_pr_time": avg.Seconds(),
		})
	}
}

// handleEventCounts counts events of a type within the last offset minutes.
func (h *Handler) handleEventCounts(w http.ResponseWriter, r *http.Request) {
	eventType := r.PathValue("event_type")
	offset, err := strconv.Atoi(r.PathValue("offset"))
	if err != nil || offset < 0 {
		h.writeError(w, http.StatusBadRequest, "offset must be a non-negative number of minutes")
		return
	}

	count := h.metrics.CountWithinWindow(eventType, time.Duration(offset)*time.Minute)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"event_type":  eventType,
		"event_count": count,
	})
}

// handleEventCountsSeries returns per-kind event counts bucketed in time,
// the data a chart of event activity is drawn from.
func (h *Handler) handleEventCountsSeries(w http.ResponseWriter, r *http.Request) {
	bucketMinutes := 1
	if param := r.URL.Query().Get("bucket_minutes"); param != "" {
		b, err := strconv.Atoi(param)
		if err != nil || b <= 0 {
			h.writeError(w, http.StatusBadRequest, "bucket_minutes must be a positive integer")
			return
		}
		bucketMinutes = b
	}

	series := h.metrics.CountSeries(time.Duration(bucketMinutes) * time.Minute)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"bucket_minutes": bucketMinutes,
		"series":         series,
	})
}

// writeJSON renders v before sending headers so a render failure becomes a
// clean 500 instead of a truncated body.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := h.renderer.RenderJSON(&buf, v); err != nil {
		h.logger.Printf("failed to render json: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// StdLogger adapts the standard logger to Logger.
type StdLogger struct{}

func NewStdLogger() *StdLogger {
	return &StdLogger{}
}

func (l *StdLogger) Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
}
