package comparison

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"doccompare/internal/adapter/engine"
	"doccompare/internal/report"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

var ErrDocumentNotFound = errors.New("document not found")

// persistTimeout bounds the terminal status write independently of the
// engine budget.
const persistTimeout = 10 * time.Second

// Result is the stored outcome of a completed comparison. Compliance
// aggregates are recomputed from the match list on this side of the engine
// boundary; the engine's own percentages are never persisted.
type Result struct {
	report.Classification
	ProcessingTimeMs int64 `json:"processing_time_ms"`
	TotalChunksLeft  int   `json:"total_chunks_left"`
	TotalChunksRight int   `json:"total_chunks_right"`
}

type Comparison struct {
	ID          string     `json:"comparison_id"`
	LeftDocID   string     `json:"left_doc_id"`
	RightDocID  string     `json:"right_doc_id"`
	Status      string     `json:"status"`
	Result      *Result    `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Engine interface {
	Compare(ctx context.Context, leftDocID, rightDocID string) (*engine.Result, error)
}

type Repository interface {
	Create(ctx context.Context, cmp *Comparison) error
	Get(ctx context.Context, id string) (*Comparison, error)
	// Complete and Fail only apply to rows still processing; both report
	// whether the transition was applied.
	Complete(ctx context.Context, id string, result *Result) (bool, error)
	Fail(ctx context.Context, id string, cause string) (bool, error)
	Count(ctx context.Context) (int, error)
}

type DocumentFinder interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type Service struct {
	repo    Repository
	docs    DocumentFinder
	engine  Engine
	timeout time.Duration
}

func NewService(repo Repository, docs DocumentFinder, eng Engine, timeout time.Duration) *Service {
	return &Service{repo: repo, docs: docs, engine: eng, timeout: timeout}
}

// Compare runs a synchronous comparison of two ingested documents. The run
// is detached from the caller's cancellation: once the row exists, the
// engine call and the terminal write proceed even if the client goes away,
// bounded only by the engine timeout.
func (s *Service) Compare(ctx context.Context, leftDocID, rightDocID string) (*Comparison, error) {
	for _, id := range []string{leftDocID, rightDocID} {
		exists, err := s.docs.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
		}
	}

	cmp := &Comparison{
		ID:         uuid.New().String(),
		LeftDocID:  leftDocID,
		RightDocID: rightDocID,
		Status:     StatusProcessing,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, cmp); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	// Terminal writes get their own deadline. runCtx is spent in exactly the
	// engine-timeout case, and the row must still leave processing.
	storeCtx, cancelStore := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancelStore()

	engineResult, err := s.engine.Compare(runCtx, leftDocID, rightDocID)
	if err != nil {
		if applied, ferr := s.repo.Fail(storeCtx, cmp.ID, err.Error()); ferr != nil {
			slog.ErrorContext(ctx, "failed to record comparison failure", "comparison_id", cmp.ID, "error", ferr)
		} else if !applied {
			slog.WarnContext(ctx, "comparison already terminal, failure discarded", "comparison_id", cmp.ID)
		}
		return nil, err
	}

	result := &Result{
		Classification:   report.Classify(engineResult.Matches),
		ProcessingTimeMs: engineResult.ProcessingTimeMs,
		TotalChunksLeft:  engineResult.TotalChunksLeft,
		TotalChunksRight: engineResult.TotalChunksRight,
	}

	applied, err := s.repo.Complete(storeCtx, cmp.ID, result)
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent writer already finalized the row; return the stored
		// terminal state rather than what this run computed.
		slog.WarnContext(ctx, "comparison already terminal, result discarded", "comparison_id", cmp.ID)
		return s.repo.Get(storeCtx, cmp.ID)
	}

	now := time.Now().UTC()
	cmp.Status = StatusCompleted
	cmp.Result = result
	cmp.CompletedAt = &now

	slog.InfoContext(ctx, "comparison completed",
		"comparison_id", cmp.ID,
		"compliant", result.CompliantCount,
		"non_compliant", result.NonCompliantCount,
		"engine_ms", result.ProcessingTimeMs)
	return cmp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Comparison, error) {
	return s.repo.Get(ctx, id)
}
