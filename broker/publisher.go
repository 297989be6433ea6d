// Package broker publishes replayed quotations to the downstream
// Kafka event bus.
package broker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"quotation-replay/metrics"
)

// One topic per symbol class; the partition key is always the wind
// code, which pins per-symbol ordering to a single partition.
const (
	TopicIndex = "quotation-index"
	TopicStock = "quotation-stock"
)

// Backoff schedule for transient publish failures. Three retries after
// the initial attempt, just over one second total.
var retryBackoffs = []time.Duration{50 * time.Millisecond, 200 * time.Millisecond, 800 * time.Millisecond}

// messageWriter is the slice of kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher wraps a kafka writer with the engine's retry policy
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a publisher for the given bootstrap brokers
func NewPublisher(brokers []string) *Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{}, // partition by message key (wind code)
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: writer}
}

// CheckConnectivity dials the first reachable bootstrap broker. Used
// at startup so a dead broker fails fast instead of on first publish.
func CheckConnectivity(ctx context.Context, brokers []string) error {
	var lastErr error
	for _, addr := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close()
		return nil
	}
	return fmt.Errorf("no kafka broker reachable: %w", lastErr)
}

// Publish sends one record to topic under the given partition key,
// retrying transient failures with exponential backoff. An error
// return means the retry budget is exhausted and the caller should
// drop the record.
func (p *Publisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = p.writer.WriteMessages(ctx, msg)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("publish to %s: %w", topic, lastErr)
		}
		if attempt >= len(retryBackoffs) {
			break
		}

		metrics.IncPublishRetry()
		log.Printf("⚠️  Publish to %s failed (attempt %d), retrying in %v: %v",
			topic, attempt+1, retryBackoffs[attempt], lastErr)
		select {
		case <-ctx.Done():
			return fmt.Errorf("publish to %s: %w", topic, lastErr)
		case <-time.After(retryBackoffs[attempt]):
		}
	}
	return fmt.Errorf("publish to %s exhausted retries: %w", topic, lastErr)
}

// Close flushes and closes the underlying writer
func (p *Publisher) Close() error {
	if w, ok := p.writer.(*kafka.Writer); ok {
		log.Println("📡 Closing kafka writer...")
		return w.Close()
	}
	return nil
}
