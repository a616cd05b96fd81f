package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Publisher hands a message body to a broker topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, body []byte) error
}

// Handler consumes one message body. A non-nil error triggers a retry.
type Handler func(ctx context.Context, body []byte) error

// InMemoryQueue is an in-process broker with per-subscriber retry. It is
// used for local development and tests in place of RabbitMQ.
type InMemoryQueue struct {
	MaxRetries int
	Backoff    time.Duration

	mu       sync.Mutex
	handlers map[string][]Handler
	inflight sync.WaitGroup
	logger   *zap.Logger
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(logger *zap.Logger) *InMemoryQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryQueue{
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
		handlers:   make(map[string][]Handler),
		logger:     logger.With(zap.String("component", "inmemory_queue")),
	}
}

// job wraps a message body with retry info
type job struct {
	topic      string
	body       []byte
	retryCount int
}

// Publish delivers body to every subscriber of topic in the background.
func (q *InMemoryQueue) Publish(ctx context.Context, topic string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	handlers := append([]Handler(nil), q.handlers[topic]...)
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	payload := append([]byte(nil), body...)
	detached := context.WithoutCancel(ctx)
	for _, handler := range handlers {
		q.inflight.Add(1)
		go q.processJob(detached, handler, job{topic: topic, body: payload})
	}
	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(ctx context.Context, handler Handler, j job) {
	defer q.inflight.Done()

	for {
		err := handler(ctx, j.body)
		if err == nil {
			return
		}

		j.retryCount++
		if j.retryCount > q.MaxRetries {
			q.logger.Warn("message permanently failed",
				zap.String("topic", j.topic),
				zap.Int("attempts", j.retryCount),
				zap.Error(err))
			return
		}
		q.logger.Debug("message handler failed, retrying",
			zap.String("topic", j.topic),
			zap.Int("attempt", j.retryCount),
			zap.Error(err))

		// Linear backoff before retry
		time.Sleep(time.Duration(j.retryCount) * q.Backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
}

// Drain blocks until every published message has been handled or dropped.
func (q *InMemoryQueue) Drain() {
	q.inflight.Wait()
}

var _ Publisher = (*InMemoryQueue)(nil)
