// Package queue moves committed game events through Redis so fan-out and
// archival run off the action path. One list per game, with a dead-letter
// list beside it for messages that keep failing.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	redisdb "github.com/farmline/backend/internal/db/redis"
	"github.com/farmline/backend/internal/game/models"
)

// MessageType defines the type of message in the queue
type MessageType string

const (
	StateChange MessageType = "state_change"
	GameStart   MessageType = "game_start"
)

// QueueMessage represents a message in the queue
type QueueMessage struct {
	Type      MessageType            `json:"type"`
	GameID    string                 `json:"gameId"`
	PlayerID  string                 `json:"playerId,omitempty"`
	Change    *models.StateChange    `json:"change,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Attempts  int                    `json:"attempts"`
}

// RedisQueue is a Redis-backed message queue over a shared client. Every
// command runs through a circuit breaker so a dead Redis degrades to
// dropped events instead of stalled actions.
type RedisQueue struct {
	client  *redis.Client
	breaker *redisdb.CircuitBreaker
	logger  *zap.SugaredLogger
	ctx     context.Context
}

// NewRedisQueue wraps an already-connected client. The caller owns the
// client's lifecycle.
func NewRedisQueue(client *redis.Client, logger *zap.SugaredLogger) *RedisQueue {
	return &RedisQueue{
		client:  client,
		breaker: redisdb.NewCircuitBreaker(5, 10*time.Second),
		logger:  logger,
		ctx:     context.Background(),
	}
}

// QueueName returns the event queue key for a game.
func QueueName(gameID string) string {
	return fmt.Sprintf("game:%s:events", gameID)
}

func transcriptKey(gameID string) string {
	return fmt.Sprintf("game:%s:transcript", gameID)
}

// EnqueueStateChange queues one committed state change for fan-out and
// transcript archival.
func (q *RedisQueue) EnqueueStateChange(gameID string, change *models.StateChange) error {
	return q.enqueueMessage(QueueName(gameID), QueueMessage{
		Type:      StateChange,
		GameID:    gameID,
		PlayerID:  change.PlayerID,
		Change:    change,
		Timestamp: time.Now(),
	})
}

// EnqueueGameStart announces a newly created game to lobby watchers.
func (q *RedisQueue) EnqueueGameStart(gameID string, data map[string]interface{}) error {
	return q.enqueueMessage(QueueName(gameID), QueueMessage{
		Type:      GameStart,
		GameID:    gameID,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// enqueueMessage adds a message to the specified queue
func (q *RedisQueue) enqueueMessage(queueName string, msg QueueMessage) error {
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := q.push(queueName, msgJSON); err != nil {
		return fmt.Errorf("failed to push message to queue: %w", err)
	}

	q.logger.Debugw("Message enqueued", "queue", queueName, "type", msg.Type, "gameId", msg.GameID)
	return nil
}

func (q *RedisQueue) push(key string, payload []byte) error {
	return q.breaker.Do(func() error {
		return q.client.RPush(q.ctx, key, payload).Err()
	})
}

// DequeueMessage retrieves and removes the next message. Returns nil when
// the queue is empty.
func (q *RedisQueue) DequeueMessage(queueName string) (*QueueMessage, error) {
	var raw string
	empty := false
	err := q.breaker.Do(func() error {
		result, err := q.client.LPop(q.ctx, queueName).Result()
		if err == redis.Nil {
			// An empty queue is the normal case, not a Redis failure.
			empty = true
			return nil
		}
		if err != nil {
			return err
		}
		raw = result
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pop message from queue: %w", err)
	}
	if empty {
		return nil, nil
	}

	var msg QueueMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &msg, nil
}

// MoveToDeadLetterQueue parks a message that failed too many times.
func (q *RedisQueue) MoveToDeadLetterQueue(queueName string, msg *QueueMessage) error {
	msg.Attempts++
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := q.push(queueName+":dead", msgJSON); err != nil {
		return fmt.Errorf("failed to push message to dead letter queue: %w", err)
	}

	q.logger.Warnw("Message moved to dead letter queue",
		"queue", queueName, "type", msg.Type, "gameId", msg.GameID, "attempts", msg.Attempts)
	return nil
}

// RetryMessage puts a message back at the end of its queue.
func (q *RedisQueue) RetryMessage(queueName string, msg *QueueMessage) error {
	msg.Attempts++
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := q.push(queueName, msgJSON); err != nil {
		return fmt.Errorf("failed to push message to queue for retry: %w", err)
	}
	return nil
}

// AppendTranscript archives a state change summary onto the game's
// transcript list for replay.
func (q *RedisQueue) AppendTranscript(gameID string, change *models.StateChange) error {
	entry, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript entry: %w", err)
	}
	if err := q.push(transcriptKey(gameID), entry); err != nil {
		return fmt.Errorf("failed to append transcript entry: %w", err)
	}
	return nil
}

// Transcript returns a game's archived state-change log in order.
func (q *RedisQueue) Transcript(gameID string) ([]*models.StateChange, error) {
	var entries []string
	err := q.breaker.Do(func() error {
		var err error
		entries, err = q.client.LRange(q.ctx, transcriptKey(gameID), 0, -1).Result()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	changes := make([]*models.StateChange, 0, len(entries))
	for _, raw := range entries {
		var c models.StateChange
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			q.logger.Errorf("Skipping bad transcript entry for %s: %v", gameID, err)
			continue
		}
		changes = append(changes, &c)
	}
	return changes, nil
}

// EventQueueNames lists every per-game event queue currently in Redis.
func (q *RedisQueue) EventQueueNames() ([]string, error) {
	var names []string
	err := q.breaker.Do(func() error {
		var err error
		names, err = q.client.Keys(q.ctx, "game:*:events").Result()
		return err
	})
	return names, err
}

// ClearGameData removes a finished game's queue, dead letters and
// transcript.
func (q *RedisQueue) ClearGameData(gameID string) error {
	keys := []string{
		QueueName(gameID),
		QueueName(gameID) + ":dead",
		transcriptKey(gameID),
	}
	return q.breaker.Do(func() error {
		return q.client.Del(q.ctx, keys...).Err()
	})
}
