package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/panjf2000/ants/v2"

	"doccompare/internal/config"
	"doccompare/internal/middleware"
)

const embedTimeout = 60 * time.Second

// ChunkConsumer handles page.chunked events: embed every chunk of the page
// and store the vectors. Delivery is at-least-once, so the page is processed
// at most once (tracked in document_pages) and the vector writes are made
// idempotent by deleting the page's previous chunks first.
type ChunkConsumer struct {
	embedder    Embedder
	store       VectorStore
	pages       PageTracker
	deadLetters DeadLetterSink
	pool        *ants.Pool
}

func NewChunkConsumer(e Embedder, s VectorStore, p PageTracker, dl DeadLetterSink, pool *ants.Pool) *ChunkConsumer {
	return &ChunkConsumer{
		embedder:    e,
		store:       s,
		pages:       p,
		deadLetters: dl,
		pool:        pool,
	}
}

func (h *ChunkConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	ctx := context.Background()

	var payload PageChunkedPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison pill: park it and ack so the queue keeps draining
		slog.Error("poison pill: invalid json", "error", err, "topic", config.TopicPageChunked)
		if derr := h.deadLetters.Save(ctx, config.TopicPageChunked, m.Body, fmt.Sprintf("invalid json: %v", err)); derr != nil {
			slog.Error("failed to save dead letter", "error", derr)
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
		if derr := h.deadLetters.Save(ctx, config.TopicPageChunked, m.Body, "missing doc_id or page_no"); derr != nil {
			return derr
		}
		return nil
	}
	pageNo := *payload.PageNo

	already, err := h.pages.AlreadyChunked(ctx, payload.DocID, pageNo)
	if err != nil {
		return err
	}
	if already {
		slog.InfoContext(ctx, "page already processed, skipping", "doc_id", payload.DocID, "page_no", pageNo)
		return nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	// A prior partially-failed delivery may have left some chunks behind;
	// wipe the page so the rewrite below is exact.
	if err := h.store.DeleteChunksByPage(embedCtx, payload.DocID, pageNo); err != nil {
		slog.ErrorContext(ctx, "failed to delete old chunks", "error", err, "doc_id", payload.DocID, "page_no", pageNo)
		return err
	}

	if err := h.embedAndStore(embedCtx, payload, pageNo); err != nil {
		slog.ErrorContext(ctx, "chunk processing failed", "error", err, "doc_id", payload.DocID, "page_no", pageNo)
		return err // Retry the whole page
	}

	applied, err := h.pages.MarkPageChunked(ctx, payload.DocID, pageNo)
	if err != nil {
		return err
	}
	if !applied {
		slog.InfoContext(ctx, "page marked by concurrent delivery", "doc_id", payload.DocID, "page_no", pageNo)
	}

	slog.InfoContext(ctx, "page chunks stored", "doc_id", payload.DocID, "page_no", pageNo, "chunks", len(payload.Chunks))
	return nil
}

func (h *ChunkConsumer) embedAndStore(ctx context.Context, payload PageChunkedPayload, pageNo int) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	record := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for i, c := range payload.Chunks {
		if c.Text == "" {
			continue
		}
		idx, chunk := i, c

		wg.Add(1)
		task := func() {
			defer wg.Done()

			vector, err := h.embedder.Embed(ctx, chunk.Text)
			if err != nil {
				record(fmt.Errorf("embed chunk %d: %w", idx, err))
				return
			}

			err = h.store.StoreChunk(ctx, Chunk{
				DocID:      payload.DocID,
				PageNo:     pageNo,
				ChunkIndex: chunk.Order,
				Content:    chunk.Text,
				Vector:     vector,
			})
			if err != nil {
				record(fmt.Errorf("store chunk %d: %w", idx, err))
			}
		}

		if err := h.pool.Submit(task); err != nil {
			wg.Done()
			record(err)
		}
	}

	wg.Wait()
	return firstErr
}
