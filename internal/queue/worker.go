package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MessageHandler is a function that processes a queue message
type MessageHandler func(msg *QueueMessage) error

// LobbyBroadcaster is the slice of the websocket hub the worker needs:
// fan-out of game digests to clients watching the lobby.
type LobbyBroadcaster interface {
	BroadcastToLobby(message []byte)
}

// GameDirectory answers whether a game is still live, so the worker can
// drop queues for games that no longer exist.
type GameDirectory interface {
	HasGame(gameID string) bool
}

// Worker drains the per-game event queues: state changes are archived to
// the transcript and summarized to the lobby, failures retry and then park
// in the dead-letter queue.
type Worker struct {
	queue       *RedisQueue
	directory   GameDirectory
	lobby       LobbyBroadcaster
	logger      *zap.SugaredLogger
	handlers    map[MessageType]MessageHandler
	maxAttempts int
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewWorker creates a new queue worker
func NewWorker(queue *RedisQueue, directory GameDirectory, lobby LobbyBroadcaster, logger *zap.SugaredLogger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	worker := &Worker{
		queue:       queue,
		directory:   directory,
		lobby:       lobby,
		logger:      logger,
		handlers:    make(map[MessageType]MessageHandler),
		maxAttempts: 3,
		ctx:         ctx,
		cancel:      cancel,
	}

	worker.registerDefaultHandlers()
	return worker
}

func (w *Worker) registerDefaultHandlers() {
	w.RegisterHandler(StateChange, func(msg *QueueMessage) error {
		if msg.Change == nil {
			return fmt.Errorf("state change message for %s has no payload", msg.GameID)
		}
		if err := w.queue.AppendTranscript(msg.GameID, msg.Change); err != nil {
			return err
		}
		w.broadcastDigest(msg.GameID, map[string]interface{}{
			"event":  "gameUpdated",
			"gameId": msg.GameID,
			"phase":  msg.Change.Phase,
		})
		return nil
	})

	w.RegisterHandler(GameStart, func(msg *QueueMessage) error {
		payload := map[string]interface{}{
			"event":  "gameCreated",
			"gameId": msg.GameID,
		}
		for k, v := range msg.Data {
			payload[k] = v
		}
		w.broadcastDigest(msg.GameID, payload)
		return nil
	})
}

func (w *Worker) broadcastDigest(gameID string, payload map[string]interface{}) {
	if w.lobby == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		w.logger.Errorf("Failed to marshal lobby digest for %s: %v", gameID, err)
		return
	}
	w.lobby.BroadcastToLobby(raw)
}

// RegisterHandler installs or replaces the handler for a message type.
func (w *Worker) RegisterHandler(msgType MessageType, handler MessageHandler) {
	w.handlers[msgType] = handler
}

// SetMaxAttempts overrides the retry budget per message.
func (w *Worker) SetMaxAttempts(maxAttempts int) {
	w.maxAttempts = maxAttempts
}

// Start begins processing messages in the background.
func (w *Worker) Start() {
	go w.processLoop()
	go w.runPeriodicCleanup()
	w.logger.Info("Queue worker started")
}

// Stop halts processing.
func (w *Worker) Stop() {
	w.cancel()
	w.logger.Info("Queue worker stopped")
}

func (w *Worker) processLoop() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.drainQueues()
		}
	}
}

func (w *Worker) drainQueues() {
	names, err := w.queue.EventQueueNames()
	if err != nil {
		w.logger.Errorf("Failed to list event queues: %v", err)
		return
	}
	for _, name := range names {
		for {
			msg, err := w.queue.DequeueMessage(name)
			if err != nil {
				w.logger.Errorf("Failed to dequeue from %s: %v", name, err)
				break
			}
			if msg == nil {
				break
			}
			if err := w.processMessage(name, msg); err != nil {
				w.logger.Warnw("Message processing failed", "queue", name,
					"type", msg.Type, "attempts", msg.Attempts, "error", err)
				if msg.Attempts+1 >= w.maxAttempts {
					if dlqErr := w.queue.MoveToDeadLetterQueue(name, msg); dlqErr != nil {
						w.logger.Errorf("Failed to dead-letter message from %s: %v", name, dlqErr)
					}
				} else if retryErr := w.queue.RetryMessage(name, msg); retryErr != nil {
					w.logger.Errorf("Failed to requeue message from %s: %v", name, retryErr)
				}
			}
		}
	}
}

func (w *Worker) processMessage(queueName string, msg *QueueMessage) error {
	handler, ok := w.handlers[msg.Type]
	if !ok {
		// Unknown types are dropped, not retried.
		w.logger.Warnw("No handler for message type", "queue", queueName, "type", msg.Type)
		return nil
	}
	return handler(msg)
}

// runPeriodicCleanup drops queues and transcripts for games that are gone.
func (w *Worker) runPeriodicCleanup() {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.cleanupStaleQueues()
		}
	}
}

func (w *Worker) cleanupStaleQueues() {
	if w.directory == nil {
		return
	}
	names, err := w.queue.EventQueueNames()
	if err != nil {
		w.logger.Errorf("Failed to list event queues for cleanup: %v", err)
		return
	}
	cleaned := 0
	for _, name := range names {
		gameID := gameIDFromQueueName(name)
		if gameID == "" || w.directory.HasGame(gameID) {
			continue
		}
		if err := w.queue.ClearGameData(gameID); err != nil {
			w.logger.Errorf("Failed to clear queue data for %s: %v", gameID, err)
			continue
		}
		cleaned++
	}
	if cleaned > 0 {
		w.logger.Infof("Cleared queue data for %d finished games", cleaned)
	}
}

func gameIDFromQueueName(name string) string {
	parts := strings.Split(name, ":")
	if len(parts) != 3 || parts[0] != "game" || parts[2] != "events" {
		return ""
	}
	return parts[1]
}
