package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"doccompare/internal/report"
)

var (
	// ErrUnreachable wraps connection-level failures reaching the engine.
	ErrUnreachable = errors.New("comparison engine unreachable")
	// ErrTimeout wraps deadline expiry while waiting for the engine.
	ErrTimeout = errors.New("comparison engine timed out")
)

// StatusError is a non-success HTTP response from the engine.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("comparison engine returned status %d: %s", e.Code, e.Body)
}

// Result is the engine's compare response, decoded and validated at the RPC
// boundary. Classification aggregates the engine may include are recomputed
// by the caller; only the match list and chunk statistics are trusted.
type Result struct {
	LeftDocID        string         `json:"left_doc_id"`
	RightDocID       string         `json:"right_doc_id"`
	Matches          []report.Match `json:"matches"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
	TotalChunksLeft  int            `json:"total_chunks_left"`
	TotalChunksRight int            `json:"total_chunks_right"`
}

func (r *Result) validate() error {
	if r.Matches == nil {
		return fmt.Errorf("engine response missing matches")
	}
	for i, m := range r.Matches {
		if m.MatchType == "" {
			return fmt.Errorf("match %d: empty match_type", i)
		}
		if m.SimilarityScore < 0 || m.SimilarityScore > 1 {
			return fmt.Errorf("match %d: similarity_score %f out of range", i, m.SimilarityScore)
		}
	}
	return nil
}

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the external comparison engine. The overall
// deadline is enforced per call via context; the http.Client itself carries
// no timeout so the context is the single source of truth.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

type compareRequest struct {
	LeftDocID  string `json:"left_doc_id"`
	RightDocID string `json:"right_doc_id"`
}

func (c *Client) Compare(ctx context.Context, leftDocID, rightDocID string) (*Result, error) {
	body, err := json.Marshal(compareRequest{LeftDocID: leftDocID, RightDocID: rightDocID})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/compare", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		var nerr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(detail)}
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode engine response: %w", err)
	}
	if err := result.validate(); err != nil {
		return nil, fmt.Errorf("invalid engine response: %w", err)
	}

	return &result, nil
}
