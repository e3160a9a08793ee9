package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tracestack/internal/clients/collector"
	"tracestack/internal/config"
	"tracestack/internal/models"
	"tracestack/internal/orchestrator"
	"tracestack/internal/render"
	"tracestack/internal/stack"
)

const maxBatchBytes = 8 << 20

// Handler holds the server dependencies
type Handler struct {
	cfg          *config.Config
	orchestrator *orchestrator.Orchestrator
	logger       *slog.Logger
}

// NewHandler creates a new handler
func NewHandler(cfg *config.Config, orch *orchestrator.Orchestrator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cfg:          cfg,
		orchestrator: orch,
		logger:       logger,
	}
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/traces", h.HandleSearchTraces)
		r.Get("/traces/{traceID}/stack", h.HandleTraceStack)
		r.Get("/traces/{traceID}/stack.svg", h.HandleTraceSVG)
		r.Get("/traces/{traceID}/spans/{spanKey}", h.HandleSpanDetail)
		r.Post("/stack", h.HandleLayoutBatch)
	})
}

// HandleTraceStack returns the layout of a stored trace
func (h *Handler) HandleTraceStack(w http.ResponseWriter, r *http.Request) {
	width, ok := h.parseWidth(w, r)
	if !ok {
		return
	}
	traceID := chi.URLParam(r, "traceID")

	layout, err := h.orchestrator.LayoutTrace(r.Context(), traceID, width)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

// HandleTraceSVG renders the layout of a stored trace as SVG
func (h *Handler) HandleTraceSVG(w http.ResponseWriter, r *http.Request) {
	width, ok := h.parseWidth(w, r)
	if !ok {
		return
	}
	traceID := chi.URLParam(r, "traceID")

	layout, err := h.orchestrator.LayoutTrace(r.Context(), traceID, width)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := render.SVG(&buf, layout); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// HandleSpanDetail returns the detail projection of one span, addressed by its "segment,id" key
func (h *Handler) HandleSpanDetail(w http.ResponseWriter, r *http.Request) {
	traceID := chi.URLParam(r, "traceID")
	raw, err := url.PathUnescape(chi.URLParam(r, "spanKey"))
	if err != nil || !strings.Contains(raw, ",") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "span key must be <segmentId>,<spanId>"})
		return
	}

	detail, err := h.orchestrator.SpanDetail(r.Context(), traceID, stack.Identity(raw))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleLayoutBatch lays out a span batch posted as a JSON array
func (h *Handler) HandleLayoutBatch(w http.ResponseWriter, r *http.Request) {
	width, ok := h.parseWidth(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBatchBytes))
	if err != nil {
		h.logger.Warn("Failed to read request body", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read request body"})
		return
	}
	defer r.Body.Close()

	var spans []models.Span
	if err := json.Unmarshal(body, &spans); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid span batch: " + err.Error()})
		return
	}

	layout, err := h.orchestrator.LayoutSpans(spans, width)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

// HandleSearchTraces lists recent traces of a service
func (h *Handler) HandleSearchTraces(w http.ResponseWriter, r *http.Request) {
	service := r.URL.Query().Get("service")
	if service == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "service is required"})
		return
	}

	lookback := time.Hour
	if v := r.URL.Query().Get("lookback"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid lookback"})
			return
		}
		lookback = d
	}

	traces, err := h.orchestrator.SearchTraces(r.Context(), service, lookback)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": service,
		"traces":  traces,
	})
}

// HandleHealth returns health status
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReady returns readiness status
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if h.orchestrator == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// parseWidth reads the optional width query parameter. Zero means the configured default.
func (h *Handler) parseWidth(w http.ResponseWriter, r *http.Request) (float64, bool) {
	v := r.URL.Query().Get("width")
	if v == "" {
		return 0, true
	}
	width, err := strconv.ParseFloat(v, 64)
	if err != nil || !stack.ValidWidth(width) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "width must be a positive number"})
		return 0, false
	}
	return width, true
}

// writeError maps engine and upstream errors onto HTTP status codes
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, stack.ErrEmptyBatch),
		errors.Is(err, stack.ErrMissingStartTime),
		errors.Is(err, stack.ErrInvalidWidth):
		status = http.StatusBadRequest
	case errors.Is(err, stack.ErrSpanNotFound),
		errors.Is(err, collector.ErrTraceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, r.Context().Err()) && r.Context().Err() != nil:
		status = http.StatusGatewayTimeout
	}

	h.logger.Warn("Request failed",
		"path", r.URL.Path,
		"status", status,
		"requestID", w.Header().Get(requestIDHeader),
		"error", err,
	)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeJSON encodes v before writing the status, so an unencodable value becomes a 500
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}
