package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/fefejiro/peacepad/pkg/metrics"
	"github.com/fefejiro/peacepad/pkg/tracing"
)

// Producer publishes messages to Kafka
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	config ProducerConfig
}

// NewProducer creates a new Kafka producer
func NewProducer(config ProducerConfig, logger ectologger.Logger) (*Producer, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	var compression kafka.Compression
	switch config.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "snappy":
		compression = kafka.Snappy
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	default:
		compression = 0 // No compression
	}

	// NOTE: Do not set Topic on the Writer when you need to publish to multiple topics.
	// When Topic is set on Writer, individual messages cannot specify their own topic.
	// We leave Topic empty here so that each message can specify its destination topic.
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Balancer:               &kafka.Hash{}, // Hash by key for partition affinity
		BatchSize:              config.BatchSize,
		BatchTimeout:           config.BatchTimeout,
		MaxAttempts:            config.MaxAttempts,
		WriteTimeout:           config.WriteTimeout,
		Async:                  config.Async,
		Compression:            compression,
		RequiredAcks:           kafka.RequiredAcks(config.RequiredAcks),
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		config: config,
	}, nil
}

// Publish publishes a message to the default topic
func (p *Producer) Publish(ctx context.Context, key string, headers MessageHeaders, value []byte) error {
	return p.PublishToTopic(ctx, p.config.Topic, key, headers, value)
}

// PublishToTopic publishes a message to a specific topic
func (p *Producer) PublishToTopic(ctx context.Context, topic string, key string, headers MessageHeaders, value []byte) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishToTopic")
	defer span.End()

	if headers.TraceParent == "" {
		headers.TraceParent = tracing.GetTraceParent(ctx)
	}

	kafkaHeaders := make([]kafka.Header, 0)
	for _, h := range headers.ToKafkaHeaders() {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: h.Key, Value: h.Value})
	}

	kafkaMsg := kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   value,
		Headers: kafkaHeaders,
		Time:    time.Now().UTC(),
	}

	start := time.Now()
	err := p.writer.WriteMessages(ctx, kafkaMsg)
	if err != nil {
		metrics.RecordKafkaPublish(topic, "error", time.Since(start).Seconds())
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to publish message to %s", topic)
		return fmt.Errorf("failed to publish message: %w", err)
	}
	metrics.RecordKafkaPublish(topic, "ok", time.Since(start).Seconds())

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"topic":      topic,
		"event_type": headers.EventType,
	}).Debug("Published message")

	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close producer: %w", err)
	}
	p.logger.Info("Kafka producer closed")
	return nil
}

// Stats returns producer statistics
func (p *Producer) Stats() kafka.WriterStats {
	return p.writer.Stats()
}
