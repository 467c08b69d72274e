package worker

import (
	"context"
)

// Chunk is one embedded slice of a document page.
type Chunk struct {
	DocID      string
	PageNo     int
	ChunkIndex int
	Content    string
	Vector     []float32
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	StoreChunk(ctx context.Context, chunk Chunk) error
	DeleteChunksByPage(ctx context.Context, docID string, pageNo int) error
}

// PageTracker records per-page pipeline progress. Mark methods report whether
// this call was the first for the (doc, page) pair, which is what makes the
// consumers idempotent under redelivery.
type PageTracker interface {
	AlreadyChunked(ctx context.Context, docID string, pageNo int) (bool, error)
	MarkPageChunked(ctx context.Context, docID string, pageNo int) (bool, error)
	MarkPageReady(ctx context.Context, docID string, pageNo int) (bool, error)
	CountReadyPages(ctx context.Context, docID string) (int, error)
}

type DocumentTracker interface {
	GetPageCount(ctx context.Context, docID string) (int, error)
	UpdateStatus(ctx context.Context, docID, status string) error
}

// DeadLetterSink parks messages that can never be processed so they stop
// blocking the queue.
type DeadLetterSink interface {
	Save(ctx context.Context, queue string, body []byte, cause string) error
}
