package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinInfluence/pkg/logger"
)

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type flakyHandler struct {
	mu       sync.Mutex
	failures int
	calls    int
	err      error
}

func (h *flakyHandler) Topic() string { return "requests" }

func (h *flakyHandler) Handle(context.Context, []byte, []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.calls <= h.failures {
		return h.err
	}
	return nil
}

func newTestConsumer(t *testing.T, h MessageHandler, r *fakeReader, dlq *fakeWriter) *Consumer {
	t.Helper()
	c, err := NewConsumer(logger.Nop(),
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
	)
	require.NoError(t, err)
	c.RegisterHandler(h)
	c.readers[h.Topic()] = r
	if dlq != nil {
		c.cfg.DLQTopic = "requests.dlq"
		c.dlq = dlq
	}
	return c
}

func TestProcessRetriesThenCommits(t *testing.T) {
	h := &flakyHandler{failures: 2, err: errors.New("transient")}
	r := &fakeReader{}
	c := newTestConsumer(t, h, r, nil)

	c.process(context.Background(), kafka.Message{Topic: "requests", Value: []byte("{}")})
	assert.Equal(t, 3, h.calls)
	assert.Equal(t, 1, r.commits())
}

func TestProcessDeadLettersAfterRetries(t *testing.T) {
	h := &flakyHandler{failures: 100, err: errors.New("still broken")}
	r := &fakeReader{}
	dlq := &fakeWriter{}
	c := newTestConsumer(t, h, r, dlq)

	c.process(context.Background(), kafka.Message{Topic: "requests", Key: []byte("k"), Value: []byte("payload")})
	assert.Equal(t, 3, h.calls, "first attempt plus RetryMax retries")
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "requests.dlq", dlq.msgs[0].Topic)
	assert.Equal(t, []byte("payload"), dlq.msgs[0].Value)
	assert.Equal(t, 1, r.commits())
}

func TestPermanentErrorsSkipRetries(t *testing.T) {
	h := &flakyHandler{failures: 100, err: Permanent(errors.New("bad json"))}
	r := &fakeReader{}
	dlq := &fakeWriter{}
	c := newTestConsumer(t, h, r, dlq)

	c.process(context.Background(), kafka.Message{Topic: "requests"})
	assert.Equal(t, 1, h.calls)
	assert.Len(t, dlq.msgs, 1)
}

func TestFailedDeadLetterLeavesOffset(t *testing.T) {
	h := &flakyHandler{failures: 100, err: Permanent(errors.New("bad"))}
	r := &fakeReader{}
	c := newTestConsumer(t, h, r, &fakeWriter{err: errors.New("broker down")})

	c.process(context.Background(), kafka.Message{Topic: "requests"})
	assert.Zero(t, r.commits())
}

func TestStartStop(t *testing.T) {
	h := &flakyHandler{}
	r := &fakeReader{queue: []kafka.Message{
		{Topic: "requests", Offset: 1},
		{Topic: "requests", Offset: 2},
	}}
	c := newTestConsumer(t, h, r, nil)
	require.NoError(t, c.Start())

	assert.Eventually(t, func() bool { return r.commits() == 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt < 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer(logger.Nop())
	assert.Error(t, err)
}
