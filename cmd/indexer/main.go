package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/GoIndexer/internal/config"
	"github.com/akolanti/GoIndexer/internal/embeddings"
	"github.com/akolanti/GoIndexer/internal/embeddings/googleEmbedding"
	"github.com/akolanti/GoIndexer/internal/embeddings/openaiEmbedding"
	"github.com/akolanti/GoIndexer/internal/handlers"
	"github.com/akolanti/GoIndexer/internal/index/qdrantIndex"
	"github.com/akolanti/GoIndexer/internal/ingest"
	"github.com/akolanti/GoIndexer/internal/ingest/chunking"
	"github.com/akolanti/GoIndexer/internal/ingest/extract"
	"github.com/akolanti/GoIndexer/internal/queue"
	"github.com/akolanti/GoIndexer/internal/queue/redisQueue"
	"github.com/akolanti/GoIndexer/internal/retry"
	"github.com/akolanti/GoIndexer/internal/server"
	"github.com/akolanti/GoIndexer/internal/storage"
	"github.com/akolanti/GoIndexer/pkg/logger_i"
)

var (
	listenAddr      string
	webhookOnly     bool
	consumerWaitGrp sync.WaitGroup
)

func main() {

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.BoolVar(&webhookOnly, "webhook-only", false, "serve the webhook without consuming the queue")
	flag.Parse()

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	store, err := storage.NewLocalStore(config.StorageRootDir)
	if err != nil {
		logger.Error("Could not open blob storage root", "error", err)
		return
	}

	indexWriter := qdrantIndex.GetQdrantIndexWriter(serviceContext)
	embedder := pickEmbedder(serviceContext, logger)

	if indexWriter == nil || embedder == nil {
		logger.Error("One or more external services failed to initialize. Shutting down.")
		logger.Debug("Available services : ", "IndexWriter", indexWriter != nil, "Embedder", embedder != nil)
		return
	}

	if err := indexWriter.EnsureCollection(serviceContext); err != nil {
		logger.Error("Could not ensure index collection", "error", err)
		return
	}

	counter := chunking.NewTokenCounter()
	policy := retry.NewPolicy()

	processor := ingest.NewOrchestrator(ingest.OrchestratorConfig{
		Extractor:    extract.NewFileExtractor(store, config.MaxSourceFileSizeBytes),
		Generator:    ingest.NewGenerator(embedder, counter, policy),
		IndexWriter:  indexWriter,
		Store:        store,
		Counter:      counter,
		Policy:       policy,
		DeleteSource: config.DeleteSourceAfterIndex,
	})

	//queue consumption, optional: the webhook still works without redis
	consumerContext, stopConsumer := context.WithCancel(serviceContext)
	var enqueue func(ctx context.Context, payload []byte) error

	if !webhookOnly {
		redisQ := redisQueue.GetRedisQueue(serviceContext)
		if redisQ == nil {
			logger.Error("Redis queue is offline, continuing webhook-only")
		} else {
			enqueue = redisQ.Enqueue
			if moved, err := redisQ.RequeueOrphans(serviceContext); err != nil {
				logger.Error("Could not requeue orphaned messages", "error", err)
			} else if moved > 0 {
				logger.Info("Requeued orphaned messages from previous run", "count", moved)
			}

			consumer := queue.NewConsumer(queue.ConsumerConfig{
				Receiver:  redisQ,
				Processor: processor,
			})
			consumerWaitGrp.Add(1)
			go func() {
				defer consumerWaitGrp.Done()
				consumer.Run(consumerContext)
			}()
		}
	}

	handlers.Init(processor, store, enqueue)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		StopConsumer:     stopConsumer,
		Group:            &consumerWaitGrp,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}

// pickEmbedder prefers the OpenAI-compatible endpoint and falls back to the
// Gemini embedding API when only that key is configured.
func pickEmbedder(ctx context.Context, logger *logger_i.Logger) embeddings.Embedder {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		return openaiEmbedding.GetOpenAIEmbeddingClient(apiKey, os.Getenv("OPENAI_BASE_URL"))
	}
	if apiKey := os.Getenv("GOOGLE_API_KEY"); apiKey != "" {
		return googleEmbedding.GetGoogleEmbeddingClient(ctx, config.GoogleEmbeddingModel, apiKey)
	}
	logger.Error("No embedding API key configured, set OPENAI_API_KEY or GOOGLE_API_KEY")
	return nil
}
