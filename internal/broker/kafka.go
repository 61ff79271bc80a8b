package broker

import (
	"context"
	"fmt"

	kafka "github.com/segmentio/kafka-go"

	"github.com/instrument-daq/frame-pipeline/internal/telemetry"
)

// KafkaConsumer is the production Consumer backing the live broker.
type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, topic, groupID string) *KafkaConsumer {
	return &KafkaConsumer{reader: kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})}
}

func (c *KafkaConsumer) Consume(ctx context.Context) (Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("kafka fetch: %w", err)
	}
	span := make(telemetry.Span, len(msg.Headers))
	for _, h := range msg.Headers {
		span[h.Key] = h.Value
	}
	return Message{
		Topic:     msg.Topic,
		Key:       string(msg.Key),
		Value:     msg.Value,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Span:      span,
	}, nil
}

// Commit acknowledges delivery only after the message has been fully
// handled on the consume side.
func (c *KafkaConsumer) Commit(ctx context.Context, m Message) error {
	return c.reader.CommitMessages(ctx, kafka.Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
	})
}

func (c *KafkaConsumer) Close() error { return c.reader.Close() }

// KafkaProducer is the production Producer counterpart.
type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	return &KafkaProducer{writer: &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}}
}

func (p *KafkaProducer) Produce(ctx context.Context, topic, key string, value []byte, span telemetry.Span) error {
	headers := make([]kafka.Header, 0, len(span))
	for k, v := range span {
		headers = append(headers, kafka.Header{Key: k, Value: v})
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   value,
		Headers: headers,
	})
}

func (p *KafkaProducer) Close() error { return p.writer.Close() }
