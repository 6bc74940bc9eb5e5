package pkg

import (
	"context"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// EventTypeHeader carries the activity type so consumers can filter without decoding.
const EventTypeHeader = "event-type"

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaProducer publishes activity events drained from the outbox.
type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(cfg KafkaConfig) *KafkaProducer {
	return &KafkaProducer{writer: &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           20 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// Publish 同一 key 落在同一分区，保证单个用户的事件有序；同步写，失败交给 outbox 重试
func (p *KafkaProducer) Publish(ctx context.Context, key, eventType string, payload []byte) error {
	return p.writer.WriteMessages(ctx, EventMessage(key, eventType, payload))
}

func EventMessage(key, eventType string, payload []byte) kafka.Message {
	return kafka.Message{
		Key:     []byte(key),
		Value:   payload,
		Headers: []kafka.Header{{Key: EventTypeHeader, Value: []byte(eventType)}},
	}
}

func MakeKeyFromID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
