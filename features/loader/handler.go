package loader

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"corpora/backend/internal/ingest"
	"corpora/backend/internal/middleware"
)

type Handler struct {
	service *Service
	enabled *middleware.EnabledFlag
	maxMB   int64
}

func NewHandler(service *Service, enabled *middleware.EnabledFlag, maxUploadMB int64) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &Handler{service: service, enabled: enabled, maxMB: maxUploadMB}
}

// LoadSources accepts a multipart batch. Each part is one raw document; its
// metadata travels in part headers (userId, title, type, modified, provider)
// and the part's filename is the source identity.
func (h *Handler) LoadSources(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxMB<<20)

	mr, err := r.MultipartReader()
	if err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "multipart body required", http.StatusBadRequest)
		return
	}

	var sources []ingest.Source
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.writeError(r.Context(), w, "BAD_REQUEST", "malformed multipart body", http.StatusBadRequest)
			return
		}

		content, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			h.writeError(r.Context(), w, "BAD_REQUEST", "reading part body failed", http.StatusBadRequest)
			return
		}

		sources = append(sources, ingest.Source{
			Tenant:   part.Header.Get("userId"),
			Filename: part.FileName(),
			Title:    part.Header.Get("title"),
			Type:     part.Header.Get("type"),
			Modified: part.Header.Get("modified"),
			Provider: part.Header.Get("provider"),
			Content:  content,
		})
	}

	result := h.service.LoadSources(r.Context(), sources)

	w.Header().Set("Content-Type", "application/json")
	if !result.Loaded {
		w.WriteHeader(http.StatusInternalServerError)
	}
	resp := map[string]interface{}{
		"data": map[string]interface{}{
			"batch_id": result.BatchID,
			"loaded":   result.Loaded,
			"sources":  len(sources),
		},
		"correlationId": middleware.GetCorrelationID(r.Context()),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.service.ListBatches(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	if batches == nil {
		batches = []Batch{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": batches,
		"meta": map[string]int{"count": len(batches)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// SetEnabled flips the service gate. The flag travels as a query parameter
// so the control plane can toggle it without a body.
func (h *Handler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	value, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
	if err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "enabled must be a boolean", http.StatusBadRequest)
		return
	}

	h.enabled.Set(value)
	slog.Info("service enabled flag updated", "enabled", value)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]bool{"enabled": value}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
