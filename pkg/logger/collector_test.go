package logger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
	done     chan struct{}
}

func newCapture() *capturePublisher {
	return &capturePublisher{done: make(chan struct{}, 8)}
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	p.mu.Unlock()
	p.done <- struct{}{}
	return nil
}

func (p *capturePublisher) wait(t *testing.T) {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("no batch published")
	}
}

func TestCollectorAggregatesRepeats(t *testing.T) {
	pub := newCapture()
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, Topic: "logs", Publisher: pub})

	fields := map[string]interface{}{"symbol": "AAPL"}
	c.AddLog("error", "fetch failed", fields, "svc.go:10")
	c.AddLog("error", "fetch failed", map[string]interface{}{"symbol": "AAPL"}, "svc.go:10")
	c.AddLog("error", "fetch failed", map[string]interface{}{"symbol": "MSFT"}, "svc.go:10")
	assert.Equal(t, 2, c.Pending())

	c.Close()
	pub.wait(t)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.payloads, 1)
	assert.Equal(t, "logs", pub.topics[0])

	var batch []AggregatedLogEntry
	require.NoError(t, json.Unmarshal(pub.payloads[0], &batch))
	require.Len(t, batch, 2)
	counts := map[string]int{}
	for _, e := range batch {
		counts[e.Fields["symbol"].(string)] = e.Count
	}
	assert.Equal(t, map[string]int{"AAPL": 2, "MSFT": 1}, counts)
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := newCapture()
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Topic: "logs", Publisher: pub})
	defer c.Close()

	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")
	pub.wait(t)
	assert.Zero(t, c.Pending())
}

func TestLoggerFeedsCollector(t *testing.T) {
	pub := newCapture()
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Topic: "logs", Publisher: pub})

	l.Info("not collected")
	l.Error("boom", Error(errors.New("upstream")), String("symbol", "NVDA"))
	require.Equal(t, 1, l.collector.Pending())

	l.RemoveCollector()
	pub.wait(t)

	var batch []AggregatedLogEntry
	require.NoError(t, json.Unmarshal(pub.payloads[0], &batch))
	require.Len(t, batch, 1)
	assert.Equal(t, "boom", batch[0].Message)
	assert.Equal(t, "upstream", batch[0].Fields["error"])
	assert.Equal(t, "NVDA", batch[0].Fields["symbol"])
}
