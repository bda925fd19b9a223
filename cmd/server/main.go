package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ericmjl/canvas-research/pkg/archive"
	"github.com/ericmjl/canvas-research/pkg/config"
	"github.com/ericmjl/canvas-research/pkg/database"
	"github.com/ericmjl/canvas-research/pkg/embeddings"
	"github.com/ericmjl/canvas-research/pkg/fetch"
	"github.com/ericmjl/canvas-research/pkg/llm"
	"github.com/ericmjl/canvas-research/pkg/research"
	"github.com/ericmjl/canvas-research/pkg/search"
	"github.com/ericmjl/canvas-research/pkg/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	cfg := config.Load()
	ctx := context.Background()

	completer := llm.NewClient(cfg.Model, cfg.LLMApiKey, cfg.LLMBaseURL)
	orch := research.NewOrchestrator(completer, search.NewClient(), fetch.NewClient())
	orch.Options.MinIterations = cfg.MinIterations

	// Run persistence and source archiving activate only when a
	// database is configured; the SSE endpoint works without one.
	var svc *server.Service
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}

		if cfg.GoogleApiKey != "" {
			embedder, err := embeddings.NewGoogleEmbedder(ctx, cfg.EmbeddingModel, cfg.GoogleApiKey)
			if err != nil {
				log.Fatalf("Failed to init embedder: %v", err)
			}
			arc, err := archive.New(ctx, db, embedder, archive.Config{
				Collection:   cfg.CollectionName,
				ChunkSize:    cfg.ChunkSize,
				ChunkOverlap: cfg.ChunkOverlap,
			})
			if err != nil {
				log.Fatalf("Failed to init archive: %v", err)
			}
			orch.Archive = arc
		}

		svc = server.NewService(db, orch)
	}

	handler := server.NewHandler(orch, svc)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	handler.RegisterRoutes(r)

	fmt.Printf("Server starting on port %s\n", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
