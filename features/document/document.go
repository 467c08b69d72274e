package document

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"doccompare/internal/config"
	"doccompare/internal/middleware"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ErrConflict is returned by the repository when the sha256 uniqueness
// constraint rejects an insert: another caller created the row first.
var ErrConflict = errors.New("document already exists for this content hash")

type Document struct {
	ID        string    `json:"doc_id"`
	SHA256    string    `json:"sha256"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	PageCount int       `json:"page_count"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	// Create inserts the document row and stages the ingest event in one
	// transaction. Returns ErrConflict when the hash is already taken.
	Create(ctx context.Context, doc *Document, eventTopic string, eventPayload []byte) error
	GetByHash(ctx context.Context, sha string) (*Document, error)
	Get(ctx context.Context, id string) (*Document, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]Document, error)
	Count(ctx context.Context) (int, error)
}

type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	URI(key string) string
}

type Service struct {
	repo  Repository
	blobs BlobStore
}

func NewService(repo Repository, blobs BlobStore) *Service {
	return &Service{repo: repo, blobs: blobs}
}

// Ingest deduplicates by content hash and creates the document when the
// bytes are new. The bool result reports whether a new document was created;
// repeated uploads of identical bytes resolve to the stored record with no
// new blob write and no new event.
func (s *Service) Ingest(ctx context.Context, filename string, data []byte) (*Document, bool, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.repo.GetByHash(ctx, hash)
	if err == nil {
		slog.InfoContext(ctx, "duplicate upload resolved", "doc_id", existing.ID, "sha256", hash)
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	doc := &Document{
		ID:        uuid.New().String(),
		SHA256:    hash,
		Filename:  filename,
		Size:      int64(len(data)),
		PageCount: pageCount(data),
		Status:    StatusProcessing,
		CreatedAt: time.Now().UTC(),
	}

	key := blobKey(hash)
	if err := s.blobs.Put(ctx, key, data); err != nil {
		return nil, false, fmt.Errorf("blob write failed: %w", err)
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"doc_id":         doc.ID,
		"s3_uri":         s.blobs.URI(key),
		"sha256":         hash,
		"correlation_id": middleware.GetCorrelationID(ctx),
	})

	if err := s.repo.Create(ctx, doc, config.TopicIngestPDF, payload); err != nil {
		if errors.Is(err, ErrConflict) {
			// Lost the creation race; the winner's row is authoritative and
			// its event is the only one staged.
			winner, rerr := s.repo.GetByHash(ctx, hash)
			if rerr != nil {
				return nil, false, rerr
			}
			slog.InfoContext(ctx, "lost creation race, returning winner", "doc_id", winner.ID, "sha256", hash)
			return winner, false, nil
		}
		return nil, false, err
	}

	slog.InfoContext(ctx, "document ingested", "doc_id", doc.ID, "sha256", hash, "pages", doc.PageCount)
	return doc, true, nil
}

func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	return s.repo.Get(ctx, id)
}

func blobKey(sha string) string {
	return fmt.Sprintf("pdfs/%s.pdf", sha)
}

func pageCount(data []byte) int {
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
