package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"doccompare/internal/middleware"
)

type DocumentRepo interface {
	Count(ctx context.Context) (int, error)
}

type ComparisonRepo interface {
	Count(ctx context.Context) (int, error)
}

type DeadLetterRepo interface {
	Count(ctx context.Context) (int, error)
}

type Handler struct {
	documents   DocumentRepo
	comparisons ComparisonRepo
	deadLetters DeadLetterRepo
}

func NewHandler(d DocumentRepo, c ComparisonRepo, dl DeadLetterRepo) *Handler {
	return &Handler{documents: d, comparisons: c, deadLetters: dl}
}

type StatsResponse struct {
	Documents   int `json:"documents"`
	Comparisons int `json:"comparisons"`
	DeadLetters int `json:"dead_letters"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dCount, err := h.documents.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count documents", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count documents", http.StatusInternalServerError)
		return
	}

	cCount, err := h.comparisons.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count comparisons", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count comparisons", http.StatusInternalServerError)
		return
	}

	dlCount, err := h.deadLetters.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count dead letters", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count dead letters", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Documents:   dCount,
		Comparisons: cCount,
		DeadLetters: dlCount,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
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
