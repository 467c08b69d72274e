package comparison

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"doccompare/internal/adapter/engine"
	"doccompare/internal/middleware"
	"doccompare/internal/report"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeftDocID  string `json:"left_doc_id"`
		RightDocID string `json:"right_doc_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.LeftDocID == "" || req.RightDocID == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "left_doc_id and right_doc_id are required", http.StatusBadRequest)
		return
	}

	cmp, err := h.service.Compare(r.Context(), req.LeftDocID, req.RightDocID)
	if err != nil {
		switch {
		case errors.Is(err, ErrDocumentNotFound):
			h.writeError(r.Context(), w, "NOT_FOUND", err.Error(), http.StatusNotFound)
		case errors.Is(err, engine.ErrTimeout):
			h.writeError(r.Context(), w, "ENGINE_TIMEOUT", "Comparison engine timed out", http.StatusGatewayTimeout)
		case errors.Is(err, engine.ErrUnreachable):
			h.writeError(r.Context(), w, "ENGINE_UNREACHABLE", "Comparison engine unreachable", http.StatusBadGateway)
		default:
			slog.Error("comparison failed", "error", err)
			h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(cmp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cmp, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(r.Context(), w, "NOT_FOUND", "Comparison not found", http.StatusNotFound)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(cmp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cmp, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(r.Context(), w, "NOT_FOUND", "Comparison not found", http.StatusNotFound)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	if cmp.Result == nil {
		h.writeError(r.Context(), w, "NO_RESULT", "Comparison has no result to report on", http.StatusBadRequest)
		return
	}

	view := report.BuildView(cmp.ID, time.Now().UTC(), cmp.Result.Classification)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.Render(w, view); err != nil {
		slog.Error("failed to render report", "error", err, "comparison_id", id)
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
