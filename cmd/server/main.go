package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/metassist/kb-assistant/internal/api"
	"github.com/metassist/kb-assistant/internal/config"
	"github.com/metassist/kb-assistant/internal/core"
	"github.com/metassist/kb-assistant/internal/embed"
	"github.com/metassist/kb-assistant/internal/ingest"
	"github.com/metassist/kb-assistant/internal/intent"
	"github.com/metassist/kb-assistant/internal/llm"
	"github.com/metassist/kb-assistant/internal/logging"
	"github.com/metassist/kb-assistant/internal/metrics"
	"github.com/metassist/kb-assistant/internal/store"
	"github.com/metassist/kb-assistant/internal/vector"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ingestFlag := flag.Bool("ingest", false, "Run document ingestion and exit")
	docsFlag := flag.String("docs", "", "Docs directory for -ingest (defaults to DOCS_PATH)")
	recreateFlag := flag.Bool("recreate", false, "Recreate the vector collection during -ingest")
	limitFlag := flag.Int("limit", 0, "Max number of documents for -ingest (0 = all)")
	flag.Parse()

	conversations, err := store.NewRedis(cfg.RedisURL, time.Duration(cfg.RedisTTLSeconds)*time.Second, cfg.ChatMaxTurns)
	if err != nil {
		logger.Fatal("failed to initialize redis store", zap.Error(err))
	}
	defer conversations.Close()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 5*time.Second)
	if err := conversations.Ping(startupCtx); err != nil {
		cancelStartup()
		logger.Fatal("redis unreachable", zap.Error(err))
	}
	cancelStartup()

	index := vector.NewQdrant(cfg.QdrantURL, cfg.QdrantCollection)
	embedder := embed.NewClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDim)
	generator := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMMaxOutputTokens, time.Duration(cfg.LLMTimeoutSeconds)*time.Second)
	router := intent.NewRouter(loadClassifier(cfg.IntentModelPath, logger), logger)

	m := metrics.New()
	defer m.Close()

	retriever := core.NewRetriever(
		index,
		embedder,
		conversations,
		time.Duration(cfg.RetrieverCacheTTLSeconds)*time.Second,
		cfg.RetrieverTopK,
		logger,
	)
	pipeline := core.NewPipeline(
		conversations,
		retriever,
		router,
		generator,
		embedder,
		index,
		ingest.BuildChunks,
		m,
		logger,
		cfg.RetrieverMinScore,
	)

	if *ingestFlag {
		docsPath := *docsFlag
		if docsPath == "" {
			docsPath = cfg.DocsPath
		}
		resp, err := pipeline.Ingest(context.Background(), core.IngestRequest{
			DocsPath: docsPath,
			Recreate: *recreateFlag,
			Limit:    *limitFlag,
		})
		if err != nil {
			logger.Fatal("ingestion failed", zap.Error(err))
		}
		logger.Info("ingestion complete",
			zap.Int("chunks", resp.IndexedChunks),
			zap.String("collection", resp.Collection))
		os.Exit(0)
	}

	handler := api.NewHandler(pipeline, m, logger)
	mux := api.NewRouter(handler, cfg.CORSList(), cfg.RateLimitRPM)

	serverAddr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // generation calls can take time
		IdleTimeout:  120 * time.Second,
	}

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	if cfg.WatchDocs {
		go func() {
			err := ingest.Watch(watchCtx, cfg.DocsPath, func() {
				if _, err := pipeline.Ingest(watchCtx, core.IngestRequest{DocsPath: cfg.DocsPath}); err != nil {
					logger.Error("re-ingest after docs change failed", zap.Error(err))
				}
			}, logger)
			if err != nil && watchCtx.Err() == nil {
				logger.Error("docs watcher stopped", zap.Error(err))
			}
		}()
	}

	go func() {
		logger.Info("starting server", zap.String("addr", serverAddr), zap.String("app", cfg.AppName))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")
	cancelWatch()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}

// loadClassifier returns the learned intent fallback when the trained
// artifact is present; otherwise routing stays rule-only.
func loadClassifier(path string, logger *zap.Logger) intent.Classifier {
	if path == "" {
		return nil
	}
	model, err := intent.LoadModel(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no intent model artifact, using rule-only routing", zap.String("path", path))
		} else {
			logger.Warn("failed to load intent model, using rule-only routing", zap.String("path", path), zap.Error(err))
		}
		return nil
	}
	logger.Info("intent model loaded", zap.String("path", path))
	return model
}
