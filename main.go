package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nsqio/go-nsq"

	"doccompare/internal/adapter/engine"
	"doccompare/internal/adapter/gemini"
	"doccompare/internal/adapter/openai"
	"doccompare/internal/app"
	"doccompare/internal/config"
	"doccompare/internal/logger"
	"doccompare/internal/worker"
)

func main() {
	base := slog.NewJSONHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(logger.NewContextHandler(base)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.DB.Close()

	embedder, cleanup, err := buildEmbedder(ctx, cfg)
	if err != nil {
		slog.Error("failed to build embedder", "error", err, "provider", cfg.EmbeddingProvider)
		os.Exit(1)
	}
	defer cleanup()

	engineClient := engine.NewClient(cfg.EngineURL)

	a, err := app.New(cfg, deps.DB, deps.Blobs, deps.VectorStore, embedder, engineClient, deps.NSQProducer)
	if err != nil {
		slog.Error("failed to build app", "error", err)
		os.Exit(1)
	}

	chunkConsumer, err := startConsumer(cfg, config.TopicPageChunked, config.ChannelEmbedder, a.ChunkConsumer)
	if err != nil {
		slog.Error("failed to start chunk consumer", "error", err)
		os.Exit(1)
	}
	defer chunkConsumer.Stop()

	completionConsumer, err := startConsumer(cfg, config.TopicPageReady, config.ChannelCompletion, a.CompletionConsumer)
	if err != nil {
		slog.Error("failed to start completion consumer", "error", err)
		os.Exit(1)
	}
	defer completionConsumer.Stop()

	if err := a.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	deps.NSQProducer.Stop()
}

func buildEmbedder(ctx context.Context, cfg *config.Config) (worker.Embedder, func(), error) {
	switch cfg.EmbeddingProvider {
	case "gemini":
		e, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, nil, err
		}
		return e, func() { e.Close() }, nil
	case "openai":
		e, err := openai.NewEmbedder(cfg.OpenAIBaseURL, cfg.EmbeddingModel)
		if err != nil {
			return nil, nil, err
		}
		return e, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}

func startConsumer(cfg *config.Config, topic, channel string, handler nsq.Handler) (*nsq.Consumer, error) {
	consumer, err := nsq.NewConsumer(topic, channel, nsq.NewConfig())
	if err != nil {
		return nil, err
	}
	consumer.AddHandler(handler)
	if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
		return nil, err
	}
	slog.Info("NSQ consumer connected", "topic", topic, "channel", channel)
	return consumer, nil
}
