package redisQueue

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/akolanti/GoIndexer/internal/config"
	"github.com/akolanti/GoIndexer/internal/domain/docModel"
	"github.com/akolanti/GoIndexer/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	instance *Queue
	once     sync.Once
	logger   *logger_i.Logger
)

// Queue is a reliable list queue: pending holds undelivered payloads,
// processing holds the ones currently borrowed by a consumer. A payload only
// ever lives in one of the two lists.
type Queue struct {
	client        *redis.Client
	pendingKey    string
	processingKey string
	deadKey       string
	deliveriesKey string
	maxDeliveries int
}

func GetRedisQueue(ctx context.Context) *Queue {
	once.Do(func() {
		logger = logger_i.NewLogger("RedisQueue")

		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = config.RedisAddr
		}
		client := redis.NewClient(&redis.Options{
			Addr:                  addr,
			Password:              config.RedisPassword,
			DB:                    config.RedisQueueDB,
			ContextTimeoutEnabled: true,
			ReadTimeout:           30 * time.Second,
			WriteTimeout:          30 * time.Second,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Error("Redis is offline: ", "error", err.Error())
			return
		}

		instance = newQueue(client)
		logger.Info("Redis queue init successfully", "addr", addr)
	})
	//if init failed every caller keeps getting nil
	return instance
}

// NewTestQueue is only for _test.go files.
func NewTestQueue(client *redis.Client) *Queue {
	if logger == nil {
		logger = logger_i.NewLogger("RedisQueue")
	}
	return newQueue(client)
}

func newQueue(client *redis.Client) *Queue {
	return &Queue{
		client:        client,
		pendingKey:    config.QueuePendingKey,
		processingKey: config.QueueProcessingKey,
		deadKey:       config.QueueDeadKey,
		deliveriesKey: config.QueueDeliveriesKey,
		maxDeliveries: config.QueueMaxDeliveries,
	}
}

// Enqueue pushes a raw payload for later processing. Used by the webhook
// handler and by tests.
func (q *Queue) Enqueue(ctx context.Context, payload []byte) error {
	return q.client.RPush(ctx, q.pendingKey, string(payload)).Err()
}

// Receive borrows up to max payloads by moving them pending -> processing.
// With wait > 0 it blocks up to wait for the first payload, then drains the
// rest without blocking. With wait <= 0 it is a single non-blocking pass.
func (q *Queue) Receive(ctx context.Context, max int, wait time.Duration) ([]docModel.QueueMessage, error) {
	if max <= 0 {
		max = config.QueueBatchSize
	}
	messages := make([]docModel.QueueMessage, 0, max)

	if wait > 0 {
		payload, err := q.client.BLMove(ctx, q.pendingKey, q.processingKey, "LEFT", "RIGHT", wait).Result()
		if err == redis.Nil {
			return messages, nil
		}
		if err != nil {
			return messages, err
		}
		messages = append(messages, q.received(ctx, payload))
	}

	for len(messages) < max {
		payload, err := q.client.LMove(ctx, q.pendingKey, q.processingKey, "LEFT", "RIGHT").Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return messages, err
		}
		messages = append(messages, q.received(ctx, payload))
	}
	return messages, nil
}

func (q *Queue) received(ctx context.Context, payload string) docModel.QueueMessage {
	deliveries, err := q.client.HIncrBy(ctx, q.deliveriesKey, payload, 1).Result()
	if err != nil {
		logger.Error("Could not track delivery count", "error", err)
		deliveries = 1
	}
	return docModel.QueueMessage{
		Id:         uuid.NewString(),
		Body:       []byte(payload),
		Token:      payload, //the token is the payload itself, LREM needs it verbatim
		Received:   time.Now(),
		Deliveries: int(deliveries),
	}
}

// Complete acknowledges the message: it leaves the processing list for good.
func (q *Queue) Complete(ctx context.Context, msg docModel.QueueMessage) error {
	if msg.Token == "" {
		return docModel.ErrMissingToken
	}
	if err := q.client.LRem(ctx, q.processingKey, 1, msg.Token).Err(); err != nil {
		return err
	}
	return q.client.HDel(ctx, q.deliveriesKey, msg.Token).Err()
}

// Abandon releases the message for redelivery. Once a payload has been
// delivered too many times it goes to the dead letter list instead so a
// poison message cannot loop forever.
func (q *Queue) Abandon(ctx context.Context, msg docModel.QueueMessage) error {
	if msg.Token == "" {
		return docModel.ErrMissingToken
	}
	if err := q.client.LRem(ctx, q.processingKey, 1, msg.Token).Err(); err != nil {
		return err
	}
	if msg.Deliveries >= q.maxDeliveries {
		logger.Warn("Message exceeded max deliveries, dead lettering", "deliveries", msg.Deliveries)
		if err := q.client.RPush(ctx, q.deadKey, msg.Token).Err(); err != nil {
			return err
		}
		return q.client.HDel(ctx, q.deliveriesKey, msg.Token).Err()
	}
	return q.client.RPush(ctx, q.pendingKey, msg.Token).Err()
}

// RequeueOrphans moves everything left in processing back to pending. Run at
// startup so messages stranded by a crash become deliverable again.
func (q *Queue) RequeueOrphans(ctx context.Context) (int, error) {
	moved := 0
	for {
		_, err := q.client.LMove(ctx, q.processingKey, q.pendingKey, "LEFT", "RIGHT").Result()
		if err == redis.Nil {
			return moved, nil
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
}

func (q *Queue) PendingCount(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.pendingKey).Result()
}

func (q *Queue) Close() error {
	return q.client.Close()
}
