package worker

import (
	"context"
	"log"
	"time"

	"retail-order-service/internal/broker"
	"retail-order-service/internal/service"
)

// SnapshotWorker pumps one Kafka topic into a snapshot consumer. Ordering
// within an aggregate key is the broker's partitioning responsibility; the
// worker processes its partition stream sequentially.
type SnapshotWorker struct {
	name     string
	consumer *broker.Consumer
	handler  broker.MessageHandler
}

// NewSnapshotWorker creates a worker for one replicated aggregate kind
func NewSnapshotWorker(name string, consumer *broker.Consumer, handler broker.MessageHandler) *SnapshotWorker {
	return &SnapshotWorker{name: name, consumer: consumer, handler: handler}
}

// Start starts the worker
func (w *SnapshotWorker) Start(ctx context.Context) error {
	log.Printf("Starting %s snapshot worker...", w.name)
	return w.consumer.StartConsuming(ctx, w.handler)
}

// Stop stops the worker
func (w *SnapshotWorker) Stop() error {
	log.Printf("Stopping %s snapshot worker...", w.name)
	return w.consumer.Close()
}

// RetryWorker drives the retry sweep on a fixed interval. The sweep itself
// lives in service.RetryService so tests invoke it directly; this loop only
// supplies the timer.
type RetryWorker struct {
	retries  *service.RetryService
	interval time.Duration
}

// NewRetryWorker creates a new retry worker
func NewRetryWorker(retries *service.RetryService, interval time.Duration) *RetryWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &RetryWorker{retries: retries, interval: interval}
}

// Start runs the sweep loop until the context is cancelled
func (w *RetryWorker) Start(ctx context.Context) {
	log.Printf("Starting retry worker, interval=%s", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Retry worker stopped")
			return
		case <-ticker.C:
			w.retries.ProcessRetries(ctx)
		}
	}
}
