package queue

import (
	"context"
	"time"

	"github.com/akolanti/GoIndexer/internal/domain/docModel"
)

// Receiver is the borrow/ack surface of the work queue. A received message
// stays invisible to other consumers until it is completed or abandoned.
type Receiver interface {
	Receive(ctx context.Context, max int, wait time.Duration) ([]docModel.QueueMessage, error)
	Complete(ctx context.Context, msg docModel.QueueMessage) error
	Abandon(ctx context.Context, msg docModel.QueueMessage) error
	Close() error
}
