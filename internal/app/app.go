package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"doccompare/features/comparison"
	"doccompare/features/deadletter"
	"doccompare/features/document"
	"doccompare/features/stats"
	"doccompare/internal/config"
	"doccompare/internal/middleware"
	"doccompare/internal/outbox"
	"doccompare/internal/worker"
)

// VectorStore is what the app needs from the vector database: chunk reads
// and writes for the workers plus schema setup at bootstrap.
type VectorStore interface {
	StoreChunk(ctx context.Context, chunk worker.Chunk) error
	DeleteChunksByPage(ctx context.Context, docID string, pageNo int) error
	EnsureSchema(ctx context.Context) error
}

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

type App struct {
	Handler            http.Handler
	DocumentService    *document.Service
	ChunkConsumer      *worker.ChunkConsumer
	CompletionConsumer *worker.CompletionConsumer

	cfg        *config.Config
	dispatcher *outbox.Dispatcher
	pool       *ants.Pool
}

func New(
	cfg *config.Config,
	db *sql.DB,
	blobs document.BlobStore,
	vecStore VectorStore,
	embedder worker.Embedder,
	eng comparison.Engine,
	taskPub TaskPublisher,
) (*App, error) {
	// Feature: Document
	docRepo := document.NewPostgresRepo(db)
	docService := document.NewService(docRepo, blobs)
	docHandler := document.NewHandler(docService, cfg.MaxUploadSizeMB<<20)

	// Feature: Comparison
	cmpRepo := comparison.NewPostgresRepo(db)
	cmpService := comparison.NewService(cmpRepo, docRepo, eng, time.Duration(cfg.CompareTimeoutSeconds)*time.Second)
	cmpHandler := comparison.NewHandler(cmpService)

	// Feature: Dead letters
	dlRepo := deadletter.NewPostgresRepo(db)
	dlHandler := deadletter.NewHandler(dlRepo)

	// Feature: Stats
	statsHandler := stats.NewHandler(docRepo, cmpRepo, dlRepo)

	// Outbox dispatcher
	outboxRepo := outbox.NewPostgresRepo(db)
	dispatcher := outbox.NewDispatcher(outboxRepo, taskPub,
		time.Duration(cfg.OutboxIntervalSeconds)*time.Second, cfg.OutboxBatchSize)

	// Workers
	pool, err := ants.NewPool(cfg.EmbedConcurrency)
	if err != nil {
		return nil, fmt.Errorf("worker pool error: %w", err)
	}
	chunkConsumer := worker.NewChunkConsumer(embedder, vecStore, docRepo, dlRepo, pool)
	completionConsumer := worker.NewCompletionConsumer(docRepo, docRepo, dlRepo)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /upload", middleware.CorrelationID(enableCORS(docHandler.Upload)))
	mux.Handle("GET /documents", middleware.CorrelationID(enableCORS(docHandler.List)))

	mux.Handle("POST /compare", middleware.CorrelationID(enableCORS(cmpHandler.Compare)))
	mux.Handle("GET /comparisons/{id}", middleware.CorrelationID(enableCORS(cmpHandler.Get)))
	mux.Handle("GET /comparisons/{id}/report", middleware.CorrelationID(enableCORS(cmpHandler.Report)))

	mux.Handle("GET /deadletters", middleware.CorrelationID(enableCORS(dlHandler.List)))
	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:            mux,
		DocumentService:    docService,
		ChunkConsumer:      chunkConsumer,
		CompletionConsumer: completionConsumer,
		cfg:                cfg,
		dispatcher:         dispatcher,
		pool:               pool,
	}, nil
}

// Run serves HTTP and drives the outbox dispatcher until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler: a.Handler,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.dispatcher.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")
		return srv.Shutdown(context.Background())
	})

	g.Go(func() error {
		slog.Info("server starting", "port", a.cfg.ServerPort)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	err := g.Wait()
	a.pool.Release()
	return err
}
