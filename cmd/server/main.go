// Package main is the entry point of the lawton engine API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/alex-lapipa/lawton-engine/internal/config"
	"github.com/alex-lapipa/lawton-engine/internal/handler"
	"github.com/alex-lapipa/lawton-engine/internal/pipeline"
	"github.com/alex-lapipa/lawton-engine/internal/repository"
	"github.com/alex-lapipa/lawton-engine/internal/retrieval"
	"github.com/alex-lapipa/lawton-engine/internal/service"
	"github.com/alex-lapipa/lawton-engine/pkg/database"
	"github.com/alex-lapipa/lawton-engine/pkg/embedding"
	"github.com/alex-lapipa/lawton-engine/pkg/es"
	"github.com/alex-lapipa/lawton-engine/pkg/kafka"
	"github.com/alex-lapipa/lawton-engine/pkg/log"
	"github.com/alex-lapipa/lawton-engine/pkg/storage"
)

const attemptCounterTTL = 24 * time.Hour

func main() {
	// 1. Config and logging. A .env file, when present, feeds the env overrides.
	_ = godotenv.Load()
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	if err := log.Init(cfg.Log); err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("logger initialized")
	if cfg.Auth.ServiceKey == "" {
		log.Warnf("auth.service_key is empty, every ingestion request will be rejected")
	}

	// 2. Stores
	database.InitMySQL(cfg.Database.MySQL.DSN, cfg.Database.MySQL.AutoMigrate)
	needRedis := cfg.Embedding.CacheTTLMinutes > 0 || cfg.Kafka.Enabled
	if needRedis {
		database.InitRedis(cfg.Database.Redis)
	}

	docRepo := repository.NewDocumentRepository(database.DB)
	chunkRepo := repository.NewChunkRepository(database.DB)

	// 3. Embedding client, optionally cached
	embeddingClient := embedding.NewClient(cfg.Embedding)
	if cfg.Embedding.CacheTTLMinutes > 0 {
		ttl := time.Duration(cfg.Embedding.CacheTTLMinutes) * time.Minute
		embeddingClient = embedding.NewCachedClient(embeddingClient, embedding.NewRedisVectorCache(database.RDB), cfg.Embedding.Model, ttl)
		log.Infof("embedding cache enabled, ttl: %s", ttl)
	}

	// 4. Retrieval backend and optional sinks
	var retriever retrieval.Retriever = retrieval.NewScanRetriever(chunkRepo, cfg.Retrieval.CandidateCap)
	var indexer service.ChunkIndexer
	if cfg.Retrieval.Backend == "elasticsearch" {
		if err := es.InitES(cfg.Elasticsearch, cfg.Embedding.Dimensions); err != nil {
			log.Fatal("failed to initialize elasticsearch", err)
		}
		indexer = es.NewChunkIndexer(es.ESClient, cfg.Elasticsearch.IndexName, cfg.Embedding.Model)
		retriever = retrieval.NewESRetriever(es.ESClient, cfg.Elasticsearch.IndexName, cfg.Retrieval.CandidateCap)
		log.Infof("retrieval backend: elasticsearch index '%s'", cfg.Elasticsearch.IndexName)
	} else {
		log.Info("retrieval backend: filtered scan")
	}

	var archive service.SourceArchiver
	if cfg.MinIO.Enabled {
		storage.InitMinIO(cfg.MinIO)
		archive = storage.NewSourceArchive(storage.MinioClient, cfg.MinIO.BucketName)
	}

	var producer *kafka.Producer
	var taskProducer service.TaskProducer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka)
		taskProducer = producer
	}

	// 5. Services
	ingestService := service.NewIngestService(docRepo, chunkRepo, embeddingClient, cfg.Chunking.MaxSize, indexer, archive, taskProducer)
	retrievalService := service.NewRetrievalService(embeddingClient, retriever, cfg.Retrieval.DefaultLimit)

	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	// 6. Background consumer and seed import
	if cfg.Kafka.Enabled {
		attempts := repository.NewAttemptRepository(database.RDB, attemptCounterTTL)
		go kafka.StartConsumer(bgCtx, cfg.Kafka, pipeline.NewProcessor(ingestService), attempts)
	}
	if cfg.Seed.Dir != "" {
		go pipeline.NewSeedImporter(docRepo, ingestService).Import(bgCtx, cfg.Seed.Dir)
	}

	// 7. HTTP
	gin.SetMode(cfg.Server.Mode)
	r := handler.NewRouter(ingestService, retrievalService, handler.RouterOptions{
		ServiceKey:   cfg.Auth.ServiceKey,
		AsyncEnabled: cfg.Kafka.Enabled,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP server shutdown failed: %v", err)
	}

	cancelBg()
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Errorf("failed to close Kafka producer: %v", err)
		}
	}
	log.Info("server stopped")
}
