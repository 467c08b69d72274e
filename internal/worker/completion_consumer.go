package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nsqio/go-nsq"

	"doccompare/internal/config"
	"doccompare/internal/middleware"
)

// CompletionConsumer handles page.ready events and flips the owning document
// to completed once every page has reported in. Redelivered signals for a
// page already counted are no-ops, so the ready count never overshoots.
type CompletionConsumer struct {
	pages       PageTracker
	docs        DocumentTracker
	deadLetters DeadLetterSink
}

func NewCompletionConsumer(p PageTracker, d DocumentTracker, dl DeadLetterSink) *CompletionConsumer {
	return &CompletionConsumer{pages: p, docs: d, deadLetters: dl}
}

func (h *CompletionConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	ctx := context.Background()

	var payload PageReadyPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		slog.Error("poison pill: invalid json", "error", err, "topic", config.TopicPageReady)
		if derr := h.deadLetters.Save(ctx, config.TopicPageReady, m.Body, fmt.Sprintf("invalid json: %v", err)); derr != nil {
			return derr
		}
		return nil
	}

	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}

	// Pages are numbered from 0, so only a missing or negative page_no is
	// malformed.
	if payload.DocID == "" || payload.PageNo == nil || *payload.PageNo < 0 {
		slog.ErrorContext(ctx, "missing required fields, parking message", "doc_id", payload.DocID)
		if derr := h.deadLetters.Save(ctx, config.TopicPageReady, m.Body, "missing doc_id or page_no"); derr != nil {
			return derr
		}
		return nil
	}
	pageNo := *payload.PageNo

	applied, err := h.pages.MarkPageReady(ctx, payload.DocID, pageNo)
	if err != nil {
		return err
	}
	if !applied {
		slog.InfoContext(ctx, "page already counted, skipping", "doc_id", payload.DocID, "page_no", pageNo)
		return nil
	}

	total, err := h.docs.GetPageCount(ctx, payload.DocID)
	if err != nil {
		return err
	}
	ready, err := h.pages.CountReadyPages(ctx, payload.DocID)
	if err != nil {
		return err
	}

	if ready >= total {
		if err := h.docs.UpdateStatus(ctx, payload.DocID, "completed"); err != nil {
			return err
		}
		slog.InfoContext(ctx, "document processing completed", "doc_id", payload.DocID, "pages", total)
	}

	return nil
}
