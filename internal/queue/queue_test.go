package queue

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueue_DeliversToEverySubscriber(t *testing.T) {
	q := NewInMemoryQueue(nil)

	var mu sync.Mutex
	got := map[string][]string{}
	for _, name := range []string{"a", "b"} {
		name := name
		q.Subscribe("outbound", func(_ context.Context, body []byte) error {
			mu.Lock()
			defer mu.Unlock()
			got[name] = append(got[name], string(body))
			return nil
		})
	}

	require.NoError(t, q.Publish(context.Background(), "outbound", []byte(`{"id":1}`)))
	q.Drain()

	assert.Equal(t, map[string][]string{"a": {`{"id":1}`}, "b": {`{"id":1}`}}, got)
}

func TestInMemoryQueue_NoSubscribers(t *testing.T) {
	q := NewInMemoryQueue(nil)
	assert.Error(t, q.Publish(context.Background(), "nobody", []byte("x")))
}

func TestInMemoryQueue_RetriesThenGivesUp(t *testing.T) {
	q := NewInMemoryQueue(nil)
	q.MaxRetries = 2
	q.Backoff = time.Millisecond

	var calls atomic.Int32
	q.Subscribe("flaky", func(context.Context, []byte) error {
		calls.Add(1)
		return errors.New("down")
	})

	require.NoError(t, q.Publish(context.Background(), "flaky", []byte("x")))
	q.Drain()
	assert.Equal(t, int32(3), calls.Load())
}

func TestInMemoryQueue_HandlerOutlivesPublishContext(t *testing.T) {
	q := NewInMemoryQueue(nil)
	q.Backoff = time.Millisecond

	var calls atomic.Int32
	q.Subscribe("slow", func(ctx context.Context, _ []byte) error {
		if calls.Add(1) == 1 {
			return errors.New("first attempt fails")
		}
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Publish(ctx, "slow", []byte("x")))
	cancel()
	q.Drain()
	assert.Equal(t, int32(2), calls.Load())
}

func TestInMemoryQueue_CanceledPublish(t *testing.T) {
	q := NewInMemoryQueue(nil)
	q.Subscribe("t", func(context.Context, []byte) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Publish(ctx, "t", []byte("x")), context.Canceled)
}

func TestAMQPPublisher_Publish(t *testing.T) {
	url := os.Getenv("OUTREACH_TEST_AMQP_URL")
	if url == "" {
		t.Skip("OUTREACH_TEST_AMQP_URL not set")
	}
	p, err := DialAMQP(url, nil)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Publish(context.Background(), "outreach_test", []byte(`{"ok":true}`)))
	require.NoError(t, p.Publish(context.Background(), "outreach_test", []byte(`{"ok":true}`)))
}
