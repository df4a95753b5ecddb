package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rhysm/assetgraph/internal/assets"
	"github.com/rhysm/assetgraph/internal/config"
	"github.com/rhysm/assetgraph/internal/db"
	"github.com/rhysm/assetgraph/internal/graph"
	"github.com/rhysm/assetgraph/internal/ingestion"
	"github.com/rhysm/assetgraph/internal/middleware"
	"github.com/rhysm/assetgraph/internal/repository"

	"github.com/rs/cors"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	conn, err := db.NewConnection(ctx, cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	if err := db.RunMigrations(ctx, conn.Pool, "./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	assetRepo := repository.NewAssetRepository(conn.Pool)
	jobRepo := repository.NewIngestionJobRepository(conn.Pool)
	rowRepo := repository.NewRejectedRowRepository(conn.Pool)
	relationshipRepo := repository.NewRelationshipRepository(conn.Pool)

	ingestionSvc := ingestion.NewService(assetRepo, jobRepo, rowRepo)
	graphSvc := graph.NewService(assetRepo, relationshipRepo)
	assetSvc := assets.NewService(assetRepo)

	mux := http.NewServeMux()
	ingestion.NewHTTPHandler(ingestionSvc).Register(mux)
	graph.NewHTTPHandler(graphSvc).Register(mux)
	assets.NewHTTPHandler(assetSvc).Register(mux)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      corsHandler.Handler(middleware.LoggingMiddleware(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
