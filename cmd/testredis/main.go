// Command testredis smoke-tests the event queue against a live Redis:
// it enqueues a state change, drains it back, round-trips a transcript
// entry and cleans up after itself.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/farmline/backend/internal/config"
	"github.com/farmline/backend/internal/db/redis"
	"github.com/farmline/backend/internal/game/models"
	"github.com/farmline/backend/internal/queue"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if uri := os.Getenv("REDIS_URI"); uri != "" {
		cfg.Redis.URI = uri
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger, _ := zap.NewDevelopment()
	sugar := logger.Sugar()
	defer logger.Sync()

	fmt.Printf("Connecting to Redis at %s...\n", cfg.Redis.URI)
	client, err := redis.Connect(ctx, cfg.Redis, sugar)
	if err != nil {
		fmt.Printf("Failed to connect to Redis: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	q := queue.NewRedisQueue(client, sugar)
	gameID := fmt.Sprintf("smoke-%d", time.Now().UnixNano())
	defer func() {
		if err := q.ClearGameData(gameID); err != nil {
			fmt.Printf("Warning: failed to clean up smoke-test keys: %v\n", err)
		}
	}()

	change := &models.StateChange{
		GameID:    gameID,
		PlayerID:  "smoke-player",
		Summary:   []string{"queue smoke test"},
		Timestamp: time.Now(),
	}

	fmt.Println("Enqueueing a state change...")
	if err := q.EnqueueStateChange(gameID, change); err != nil {
		fmt.Printf("Failed to enqueue: %v\n", err)
		os.Exit(1)
	}

	msg, err := q.DequeueMessage(queue.QueueName(gameID))
	if err != nil {
		fmt.Printf("Failed to dequeue: %v\n", err)
		os.Exit(1)
	}
	if msg == nil || msg.Type != queue.StateChange || msg.GameID != gameID {
		fmt.Printf("Dequeued message does not match: %+v\n", msg)
		os.Exit(1)
	}
	fmt.Println("State change round-tripped through the queue.")

	fmt.Println("Appending and reading back a transcript entry...")
	if err := q.AppendTranscript(gameID, change); err != nil {
		fmt.Printf("Failed to append transcript: %v\n", err)
		os.Exit(1)
	}
	transcript, err := q.Transcript(gameID)
	if err != nil {
		fmt.Printf("Failed to read transcript: %v\n", err)
		os.Exit(1)
	}
	if len(transcript) != 1 || transcript[0].GameID != gameID {
		fmt.Printf("Transcript does not match: %+v\n", transcript)
		os.Exit(1)
	}

	fmt.Println("Redis queue smoke test passed.")
}
