package redisQueue

import (
	"context"
	"testing"

	"github.com/akolanti/GoIndexer/internal/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewTestQueue(client), mr
}

func TestEnqueueReceiveRoundtrip(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	payload := `{"container_name":"documents","blob_name":"a.pdf"}`
	if err := q.Enqueue(ctx, []byte(payload)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	messages, err := q.Receive(ctx, 10, 0)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(messages))
	}
	if string(messages[0].Body) != payload {
		t.Errorf("Body mismatch: %s", messages[0].Body)
	}
	if messages[0].Token == "" {
		t.Error("Message is missing its completion token")
	}
	if messages[0].Deliveries != 1 {
		t.Errorf("Expected delivery count 1, got %d", messages[0].Deliveries)
	}
}

func TestReceiveMovesToProcessing(t *testing.T) {
	q, mr := testQueue(t)
	ctx := context.Background()

	_ = q.Enqueue(ctx, []byte("payload-1"))
	_ = q.Enqueue(ctx, []byte("payload-2"))

	messages, err := q.Receive(ctx, 10, 0)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}

	// received messages are invisible to other consumers
	if pending, _ := mr.List(config.QueuePendingKey); len(pending) != 0 {
		t.Errorf("Pending list should be drained, has %v", pending)
	}
	if processing, _ := mr.List(config.QueueProcessingKey); len(processing) != 2 {
		t.Errorf("Processing list should hold both messages, has %v", processing)
	}
}

func TestReceiveHonorsBatchLimit(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = q.Enqueue(ctx, []byte{byte('a' + i)})
	}

	messages, err := q.Receive(ctx, 3, 0)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if len(messages) != 3 {
		t.Errorf("Expected 3 messages, got %d", len(messages))
	}
}

func TestReceiveEmptyQueue(t *testing.T) {
	q, _ := testQueue(t)

	messages, err := q.Receive(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("Receive on empty queue failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("Expected no messages, got %d", len(messages))
	}
}

func TestCompleteRemovesMessage(t *testing.T) {
	q, mr := testQueue(t)
	ctx := context.Background()

	_ = q.Enqueue(ctx, []byte("done-with-this"))
	messages, _ := q.Receive(ctx, 1, 0)

	if err := q.Complete(ctx, messages[0]); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if processing, _ := mr.List(config.QueueProcessingKey); len(processing) != 0 {
		t.Errorf("Processing list should be empty, has %v", processing)
	}
	if pending, _ := mr.List(config.QueuePendingKey); len(pending) != 0 {
		t.Errorf("Completed message must not reappear, pending has %v", pending)
	}
}

func TestAbandonRedelivers(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	_ = q.Enqueue(ctx, []byte("flaky"))
	messages, _ := q.Receive(ctx, 1, 0)

	if err := q.Abandon(ctx, messages[0]); err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}

	again, err := q.Receive(ctx, 1, 0)
	if err != nil {
		t.Fatalf("Receive after abandon failed: %v", err)
	}
	if len(again) != 1 {
		t.Fatalf("Expected the abandoned message back, got %d messages", len(again))
	}
	if again[0].Deliveries != 2 {
		t.Errorf("Expected delivery count 2 after redelivery, got %d", again[0].Deliveries)
	}
}

func TestAbandonDeadLettersPoisonMessages(t *testing.T) {
	q, mr := testQueue(t)
	ctx := context.Background()

	_ = q.Enqueue(ctx, []byte("poison"))

	// bounce it until the delivery cap
	for i := 0; i < config.QueueMaxDeliveries; i++ {
		messages, err := q.Receive(ctx, 1, 0)
		if err != nil || len(messages) != 1 {
			t.Fatalf("Receive round %d failed: %v (%d messages)", i, err, len(messages))
		}
		if err := q.Abandon(ctx, messages[0]); err != nil {
			t.Fatalf("Abandon round %d failed: %v", i, err)
		}
	}

	if pending, _ := mr.List(config.QueuePendingKey); len(pending) != 0 {
		t.Errorf("Poison message must not be redelivered, pending has %v", pending)
	}
	dead, _ := mr.List(config.QueueDeadKey)
	if len(dead) != 1 || dead[0] != "poison" {
		t.Errorf("Expected the message in the dead letter list, got %v", dead)
	}
}

func TestSettleWithoutToken(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	_ = q.Enqueue(ctx, []byte("payload"))
	messages, _ := q.Receive(ctx, 1, 0)

	broken := messages[0]
	broken.Token = ""

	if err := q.Complete(ctx, broken); err == nil {
		t.Error("Complete without a token must fail")
	}
	if err := q.Abandon(ctx, broken); err == nil {
		t.Error("Abandon without a token must fail")
	}
}

func TestRequeueOrphans(t *testing.T) {
	q, mr := testQueue(t)
	ctx := context.Background()

	_ = q.Enqueue(ctx, []byte("orphan-1"))
	_ = q.Enqueue(ctx, []byte("orphan-2"))
	if _, err := q.Receive(ctx, 10, 0); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	// simulate a crash: nothing was settled, both sit in processing
	moved, err := q.RequeueOrphans(ctx)
	if err != nil {
		t.Fatalf("RequeueOrphans failed: %v", err)
	}
	if moved != 2 {
		t.Errorf("Expected 2 orphans moved, got %d", moved)
	}
	if pending, _ := mr.List(config.QueuePendingKey); len(pending) != 2 {
		t.Errorf("Expected both orphans back in pending, got %v", pending)
	}
}

func TestPendingCount(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	_ = q.Enqueue(ctx, []byte("one"))
	_ = q.Enqueue(ctx, []byte("two"))

	n, err := q.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 pending, got %d", n)
	}
}
