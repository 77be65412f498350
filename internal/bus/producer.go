package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer publishes verification and alert events. The interface lets
// the in-memory stub stand in when no broker is configured and in unit
// tests.
type Producer interface {
	// PublishJSON marshals value and publishes it synchronously under key.
	PublishJSON(ctx context.Context, topic, key string, value interface{}) error
	// Flush delivers buffered records; returns 0 on success, 1 on error.
	Flush(timeout time.Duration) int
	// Close flushes and releases the underlying client.
	Close()
}

// KafkaProducer publishes through franz-go. All publishes wait for every
// in-sync replica, so an acknowledged verification is a durable one.
type KafkaProducer struct {
	client     *kgo.Client
	instanceID string

	mu     sync.RWMutex
	closed bool
}

// NewProducer connects to the given brokers. instanceID names this
// process in the client ID and record headers.
func NewProducer(brokers []string, instanceID string) (*KafkaProducer, error) {
	if instanceID == "" {
		instanceID = "sentinel-producer"
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(instanceID),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	log.Info().Strs("brokers", brokers).Str("instance_id", instanceID).
		Msg("kafka producer connected")

	return &KafkaProducer{client: client, instanceID: instanceID}, nil
}

func (p *KafkaProducer) PublishJSON(ctx context.Context, topic, key string, value interface{}) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return fmt.Errorf("producer is closed")
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	rec := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Headers: []kgo.RecordHeader{
			{Key: "producer", Value: []byte(p.instanceID)},
			{Key: "event_id", Value: []byte(uuid.New().String())},
		},
		Timestamp: time.Now(),
	}

	results := p.client.ProduceSync(ctx, rec)
	if err := results.FirstErr(); err != nil {
		log.Error().Err(err).Str("topic", topic).Str("key", key).
			Msg("event publish failed")
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	delivered := results[0].Record
	log.Debug().Str("topic", delivered.Topic).
		Int32("partition", delivered.Partition).
		Int64("offset", delivered.Offset).
		Msg("event published")
	return nil
}

func (p *KafkaProducer) Flush(timeout time.Duration) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		log.Error().Err(err).Msg("producer flush failed")
		return 1
	}
	return 0
}

func (p *KafkaProducer) Close() {
	p.mu.Lock()
	already := p.closed
	p.closed = true
	p.mu.Unlock()
	if already {
		return
	}
	p.client.Close()
	log.Info().Msg("kafka producer closed")
}

// StubMessage is one event captured by the StubProducer.
type StubMessage struct {
	Topic string
	Key   string
	Value []byte
}

// StubProducer keeps published events in memory. It backs test assertions
// and log-only deployments without a broker.
type StubProducer struct {
	mu       sync.Mutex
	messages []StubMessage
}

func NewStubProducer() *StubProducer {
	return &StubProducer{messages: make([]StubMessage, 0, 64)}
}

func (p *StubProducer) PublishJSON(_ context.Context, topic, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.messages = append(p.messages, StubMessage{Topic: topic, Key: key, Value: data})
	p.mu.Unlock()
	return nil
}

func (p *StubProducer) Flush(time.Duration) int { return 0 }

func (p *StubProducer) Close() {}

// Messages copies out everything captured so far.
func (p *StubProducer) Messages() []StubMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]StubMessage, len(p.messages))
	copy(out, p.messages)
	return out
}
