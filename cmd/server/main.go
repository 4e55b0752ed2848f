package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/farmline/backend/internal/api"
	"github.com/farmline/backend/internal/config"
	"github.com/farmline/backend/internal/db/mongodb"
	"github.com/farmline/backend/internal/db/redis"
	"github.com/farmline/backend/internal/game/manager"
	"github.com/farmline/backend/internal/game/websocket"
	"github.com/farmline/backend/internal/queue"
)

func main() {
	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize MongoDB connection with retry capabilities
	mongoClient, err := mongodb.Connect(ctx, cfg.MongoDB.URI, sugar)
	if err != nil {
		sugar.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(ctx); err != nil {
			sugar.Errorf("Failed to disconnect from MongoDB: %v", err)
		}
	}()
	sugar.Info("Connected to MongoDB")

	if err := mongodb.CreateIndexes(ctx, mongoClient, cfg.MongoDB.Database, cfg.MongoDB.GamesColl); err != nil {
		sugar.Warnf("Failed to create MongoDB indexes: %v", err)
	}

	// Initialize Redis connection with retry capabilities
	redisClient, err := redis.Connect(ctx, cfg.Redis, sugar)
	if err != nil {
		sugar.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			sugar.Errorf("Failed to close Redis connection: %v", err)
		}
	}()
	sugar.Info("Connected to Redis")

	// The event queue shares the Redis connection.
	redisQueue := queue.NewRedisQueue(redisClient, sugar)
	sugar.Info("Initialized Redis queue")

	// Game persistence
	store := mongodb.NewGameStore(
		mongoClient.Database(cfg.MongoDB.Database),
		cfg.MongoDB.GamesColl,
		cfg.MongoDB.CardColl,
		sugar,
	)

	// WebSocket hub first; the game manager is wired in below.
	hub := websocket.NewHub(ctx, sugar)
	go hub.Run()
	sugar.Info("WebSocket hub is running")

	// Game manager restores active games from the store on startup.
	gameManager := manager.NewGameManager(ctx, store, cfg.Game, sugar, hub, redisQueue)
	hub.SetGameService(gameManager)
	sugar.Info("Game manager initialized")

	// Queue worker archives state changes and keeps the lobby updated.
	worker := queue.NewWorker(redisQueue, gameManager, hub, sugar)
	worker.Start()
	sugar.Info("Queue worker started")

	// Initialize API server
	server := api.NewServer(cfg, gameManager, hub, mongoClient, redisClient, redisQueue, sugar)

	// Start the server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			sugar.Fatalf("Failed to start the server: %v", err)
		}
	}()
	sugar.Infof("Server started on port %d", cfg.Server.Port)

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	worker.Stop()
	sugar.Info("Queue worker stopped")

	sugar.Info("Shutting down server...")
	if err := server.Shutdown(ctx); err != nil {
		sugar.Fatalf("Server forced to shutdown: %v", err)
	}

	sugar.Info("Server exited properly")
}
