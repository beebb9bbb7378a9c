package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/llm-arbiter/backend/internal/aggregate"
	"github.com/llm-arbiter/backend/internal/api/handlers"
	"github.com/llm-arbiter/backend/internal/cache/redis"
	"github.com/llm-arbiter/backend/internal/controller"
	"github.com/llm-arbiter/backend/internal/dispatch"
	"github.com/llm-arbiter/backend/internal/llm"
	"github.com/llm-arbiter/backend/internal/metrics"
	"github.com/llm-arbiter/backend/internal/middleware/ratelimit"
	"github.com/llm-arbiter/backend/internal/nli"
	"github.com/llm-arbiter/backend/internal/prompt"
	"github.com/llm-arbiter/backend/internal/semantic"
	"github.com/llm-arbiter/backend/internal/storage/sqlite"
	"github.com/llm-arbiter/backend/internal/vector"
	"github.com/llm-arbiter/backend/internal/vector/milvus"
	"github.com/llm-arbiter/backend/pkg/config"
	appLogger "github.com/llm-arbiter/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Multi-LLM Arbiter API Server")

	metrics.Init()

	store, err := sqlite.NewStore(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to open session store", zap.Error(err))
	}
	defer store.Close()

	if err := store.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var embeddingCache semantic.EmbeddingCache
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, embedding cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			embeddingCache = redisClient
		}
	}

	var embedder semantic.Embedder
	if cfg.OpenAI.APIKey != "" {
		embedder = semantic.NewRemoteEmbedder(cfg.OpenAI, embeddingCache)
	} else {
		appLogger.Warn("No OpenAI API key set, using hashed bag-of-words embeddings")
	}

	var index vector.Index
	if cfg.Milvus.Enabled {
		milvusClient, err := milvus.NewClient(cfg.Milvus.Endpoint, cfg.Milvus.CollectionName, cfg.Milvus.VectorDim, embedder)
		if err != nil {
			appLogger.Fatal("Failed to connect to Milvus", zap.Error(err))
		}
		defer milvusClient.Close()

		if err := milvusClient.EnsureCollection(context.Background()); err != nil {
			appLogger.Fatal("Failed to ensure collection", zap.Error(err))
		}
		index = milvusClient
	} else {
		appLogger.Info("Milvus disabled, using in-process vector index")
		index = vector.NewMemory(embedder)
	}

	prompts, err := prompt.Load(cfg.Arbiter.PromptRegistryPath)
	if err != nil {
		appLogger.Fatal("Failed to load prompt registry", zap.Error(err))
	}

	schema, err := dispatch.NewStructuredSchema()
	if err != nil {
		appLogger.Fatal("Failed to compile response schema", zap.Error(err))
	}

	registry := llm.NewRegistry(*cfg)
	dispatcher := dispatch.New(registry, prompts, schema, time.Duration(cfg.Arbiter.CallTimeoutSec)*time.Second)

	var nliRemote *nli.RemoteClient
	if cfg.HuggingFace.APIKey != "" {
		nliRemote = nli.NewRemoteClient(cfg.HuggingFace)
	} else {
		appLogger.Info("No HuggingFace API key set, using heuristic entailment only")
	}
	classifier := nli.NewClassifier(nliRemote)

	aggregator := aggregate.New(embedder, classifier)
	ctrl := controller.New(dispatcher, aggregator, store, index, cfg.Arbiter)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	limiter := ratelimit.New(ratelimit.Config{Logger: appLogger.GetLogger()})
	defer limiter.Stop()

	queryHandler := handlers.NewQueryHandler(ctrl, store, cfg.Arbiter)
	sessionHandler := handlers.NewSessionHandler(store, index)

	api := app.Group("/api/v1")

	api.Post("/query", limiter.Middleware(), queryHandler.HandleQuery)
	api.Post("/iterate", limiter.Middleware(), queryHandler.HandleIterate)
	api.Get("/session/:id", sessionHandler.HandleGetSession)
	api.Get("/search", sessionHandler.HandleSearch)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
