package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/GoIndexer/internal/config"
	"github.com/akolanti/GoIndexer/internal/domain/docModel"
	"github.com/akolanti/GoIndexer/internal/ingest"
	"github.com/akolanti/GoIndexer/internal/metrics"
	"github.com/akolanti/GoIndexer/pkg/logger_i"
)

// Consumer is the long-running receive loop: pull a batch, fan the messages
// out to a bounded number of goroutines, settle each one from its outcome.
type Consumer struct {
	receiver    Receiver
	processor   ingest.Processor
	batchSize   int
	receiveWait time.Duration
	concurrency int
	errorSleep  time.Duration
	logger      *logger_i.Logger

	mu   sync.Mutex
	stop context.CancelFunc
}

type ConsumerConfig struct {
	Receiver    Receiver
	Processor   ingest.Processor
	BatchSize   int
	ReceiveWait time.Duration
	Concurrency int
	ErrorSleep  time.Duration
}

func NewConsumer(cfg ConsumerConfig) *Consumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = config.QueueBatchSize
	}
	if cfg.ReceiveWait <= 0 {
		cfg.ReceiveWait = config.QueueReceiveWait
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = config.MessageConcurrency
	}
	if cfg.ErrorSleep <= 0 {
		cfg.ErrorSleep = config.ReceiveErrorSleep
	}
	return &Consumer{
		receiver:    cfg.Receiver,
		processor:   cfg.Processor,
		batchSize:   cfg.BatchSize,
		receiveWait: cfg.ReceiveWait,
		concurrency: cfg.Concurrency,
		errorSleep:  cfg.ErrorSleep,
		logger:      logger_i.NewLogger("QueueConsumer"),
	}
}

// Run blocks until ctx is cancelled, then waits for in-flight messages to
// settle before returning.
func (c *Consumer) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.stop = cancel
	c.mu.Unlock()
	defer cancel()

	c.logger.Info("Queue consumer started", "batchSize", c.batchSize, "concurrency", c.concurrency)

	slots := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup

	for ctx.Err() == nil {
		messages, err := c.receiver.Receive(ctx, c.batchSize, c.receiveWait)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			c.logger.Error("Receive failed, backing off", "error", err)
			c.sleep(ctx, c.errorSleep)
			continue
		}
		if len(messages) == 0 {
			continue
		}
		metrics.IncrementMessagesReceived(len(messages))

		for _, msg := range messages {
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				//shutting down mid batch, release still-unprocessed messages
				if abandonErr := c.receiver.Abandon(context.WithoutCancel(ctx), msg); abandonErr != nil {
					c.logger.Error("Could not release message during shutdown", "error", abandonErr)
				}
				continue
			}
			wg.Add(1)
			msg := msg
			go func() {
				defer wg.Done()
				defer func() { <-slots }()
				c.handleOne(ctx, msg)
			}()
		}
	}

	wg.Wait()
	c.logger.Info("Queue consumer stopped")
}

// Stop asks the receive loop to wind down. In-flight messages still settle;
// Run returns once they have.
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		c.stop()
	}
}

// handleOne settles exactly once: terminal outcomes complete the message,
// everything else abandons it for redelivery. Malformed payloads complete,
// redelivery cannot fix them.
func (c *Consumer) handleOne(ctx context.Context, msg docModel.QueueMessage) {
	//in-flight messages run to completion even during shutdown, otherwise a
	//message could end up neither completed nor abandoned
	settleCtx := context.WithoutCancel(ctx)

	ref, err := ParseMessage(msg.Body)
	if err != nil {
		c.logger.Error("Malformed queue message, completing without processing", "error", err, "body", truncateForLog(msg.Body))
		c.complete(settleCtx, msg)
		return
	}

	attemptCtx, cancel := context.WithTimeout(settleCtx, config.ProcessAttemptTimeout)
	outcome := c.processor.Process(attemptCtx, ref)
	cancel()

	if outcome.Terminal() {
		c.complete(settleCtx, msg)
		return
	}
	c.logger.Warn("Abandoning message for redelivery", "ref", ref.String(), "kind", outcome.Kind, "deliveries", msg.Deliveries)
	if err := c.receiver.Abandon(settleCtx, msg); err != nil {
		c.logger.Error("Abandon failed", "ref", ref.String(), "error", err)
		return
	}
	metrics.IncrementMessagesAbandoned()
}

func (c *Consumer) complete(ctx context.Context, msg docModel.QueueMessage) {
	if err := c.receiver.Complete(ctx, msg); err != nil {
		c.logger.Error("Complete failed, message will be redelivered", "error", err)
		return
	}
	metrics.IncrementMessagesCompleted()
}

func (c *Consumer) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

type blobEvent struct {
	Data struct {
		Url string `json:"url"`
	} `json:"data"`
}

// ParseMessage accepts both payload shapes the queue carries: the direct
// {"container_name","blob_name"} form the webhook enqueues, and storage event
// envelopes (single object or array) whose data.url points at the blob.
func ParseMessage(body []byte) (docModel.SourceReference, error) {
	var ref docModel.SourceReference

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ref, fmt.Errorf("empty message body")
	}

	if err := json.Unmarshal(trimmed, &ref); err == nil && ref.Container != "" && ref.Blob != "" {
		return ref, nil
	}

	var events []blobEvent
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return ref, fmt.Errorf("decoding event array: %w", err)
		}
	} else {
		var single blobEvent
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return ref, fmt.Errorf("decoding event: %w", err)
		}
		events = []blobEvent{single}
	}

	for _, ev := range events {
		if ev.Data.Url == "" {
			continue
		}
		return refFromURL(ev.Data.Url)
	}
	return ref, fmt.Errorf("message carries no blob reference")
}

// refFromURL splits a blob url path into container and object:
// https://host/container/dir/file.pdf -> {container, dir/file.pdf}.
func refFromURL(raw string) (docModel.SourceReference, error) {
	var ref docModel.SourceReference
	u, err := url.Parse(raw)
	if err != nil {
		return ref, fmt.Errorf("parsing blob url %q: %w", raw, err)
	}
	path := strings.TrimPrefix(u.Path, "/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ref, fmt.Errorf("blob url %q has no container/object path", raw)
	}
	return docModel.SourceReference{Container: parts[0], Blob: parts[1]}, nil
}

func truncateForLog(body []byte) string {
	const max = 200
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
