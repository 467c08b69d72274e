package weaviate

import (
	"context"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"doccompare/internal/vector"
	"doccompare/internal/worker"
)

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

func (s *Store) StoreChunk(ctx context.Context, chunk worker.Chunk) error {
	_, err := s.client.Data().Creator().
		WithClassName(vector.ClassPageChunk).
		WithProperties(map[string]interface{}{
			"content":    chunk.Content,
			"docId":      chunk.DocID,
			"pageNo":     chunk.PageNo,
			"chunkIndex": chunk.ChunkIndex,
		}).
		WithVector(chunk.Vector).
		Do(ctx)
	return err
}

// DeleteChunksByPage removes every chunk stored for one page. Consumers call
// it before re-inserting so a redelivered page.chunked event cannot leave
// duplicate chunks behind.
func (s *Store) DeleteChunksByPage(ctx context.Context, docID string, pageNo int) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassPageChunk).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithOperator(filters.And).
			WithOperands([]*filters.WhereBuilder{
				filters.Where().
					WithPath([]string{"docId"}).
					WithOperator(filters.Equal).
					WithValueString(docID),
				filters.Where().
					WithPath([]string{"pageNo"}).
					WithOperator(filters.Equal).
					WithValueInt(int64(pageNo)),
			})).
		Do(ctx)
	return err
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	return vector.EnsureSchema(ctx, vector.NewSchemaAdapter(s.client))
}
