package worker

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockVectorStore struct {
	mock.Mock
}

func (m *MockVectorStore) StoreChunk(ctx context.Context, chunk Chunk) error {
	args := m.Called(ctx, chunk)
	return args.Error(0)
}

func (m *MockVectorStore) DeleteChunksByPage(ctx context.Context, docID string, pageNo int) error {
	args := m.Called(ctx, docID, pageNo)
	return args.Error(0)
}

type MockPageTracker struct {
	mock.Mock
}

func (m *MockPageTracker) AlreadyChunked(ctx context.Context, docID string, pageNo int) (bool, error) {
	args := m.Called(ctx, docID, pageNo)
	return args.Bool(0), args.Error(1)
}

func (m *MockPageTracker) MarkPageChunked(ctx context.Context, docID string, pageNo int) (bool, error) {
	args := m.Called(ctx, docID, pageNo)
	return args.Bool(0), args.Error(1)
}

func (m *MockPageTracker) MarkPageReady(ctx context.Context, docID string, pageNo int) (bool, error) {
	args := m.Called(ctx, docID, pageNo)
	return args.Bool(0), args.Error(1)
}

func (m *MockPageTracker) CountReadyPages(ctx context.Context, docID string) (int, error) {
	args := m.Called(ctx, docID)
	return args.Int(0), args.Error(1)
}

type MockDocumentTracker struct {
	mock.Mock
}

func (m *MockDocumentTracker) GetPageCount(ctx context.Context, docID string) (int, error) {
	args := m.Called(ctx, docID)
	return args.Int(0), args.Error(1)
}

func (m *MockDocumentTracker) UpdateStatus(ctx context.Context, docID, status string) error {
	args := m.Called(ctx, docID, status)
	return args.Error(0)
}

type MockDeadLetterSink struct {
	mock.Mock
}

func (m *MockDeadLetterSink) Save(ctx context.Context, queue string, body []byte, cause string) error {
	args := m.Called(ctx, queue, body, cause)
	return args.Error(0)
}

func pageRef(n int) *int {
	return &n
}
