package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Queue is a FIFO outbox stored in a Redis list.
type Queue struct {
	client *redis.Client
	key    string
}

func NewQueue(client *redis.Client, key string) *Queue {
	return &Queue{client: client, key: key}
}

// Enqueue appends msg to the outbox.
func (q *Queue) Enqueue(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode mail: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue mail: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next message. It returns nil, nil
// when the wait times out.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Message, error) {
	res, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BLPOP replies with [key, value]
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BLPOP reply of length %d", len(res))
	}

	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		return nil, fmt.Errorf("failed to decode mail: %w", err)
	}
	return &msg, nil
}

// Source yields queued messages.
type Source interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*Message, error)
}

// Worker drains the queue into a sender until its context is cancelled.
type Worker struct {
	queue  Source
	sender Sender
	logger *zap.Logger
	wait   time.Duration
}

func NewWorker(queue Source, sender Sender, logger *zap.Logger) *Worker {
	return &Worker{queue: queue, sender: sender, logger: logger, wait: 5 * time.Second}
}

// Run pops and sends messages. Failed deliveries are logged and dropped.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("Mail worker started")
	for {
		if ctx.Err() != nil {
			w.logger.Info("Mail worker stopped")
			return
		}

		msg, err := w.queue.Dequeue(ctx, w.wait)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("Failed to pop mail from queue", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue
		}

		if err := w.sender.Send(*msg); err != nil {
			w.logger.Error("Mail delivery failed", zap.String("to", msg.To), zap.Error(err))
			continue
		}
		w.logger.Info("Mail delivered", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	}
}
