package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	kafkautils "github.com/nimeshabuddhika/checkout-service/pkg/kafka"
	eventviews "github.com/nimeshabuddhika/checkout-service/pkg/views"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/configs"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/internal/observability"
	"go.uber.org/zap"
)

// EventPublisher hands order state changes to downstream consumers.
// Publishing is best effort: callers log failures and carry on.
type EventPublisher interface {
	Publish(ctx context.Context, event eventviews.PaymentEvent) error
	Close()
}

type KafkaEventPublisher struct {
	logger   *zap.Logger
	producer *kafka.Producer
	topic    string
}

// NewKafkaEventPublisher makes sure the payment topic exists and opens an idempotent producer.
func NewKafkaEventPublisher(ctx context.Context, logger *zap.Logger, cnf *configs.Config) (*KafkaEventPublisher, error) {
	topicConfig := kafkautils.KafkaConfig{
		BootstrapServers: cnf.KafkaBrokers,
		Topics: []kafkautils.TopicConfig{
			{
				Topic:             cnf.KafkaPaymentTopic,
				NumPartitions:     int(cnf.KafkaPartition),
				ReplicationFactor: 1,
				Config: map[string]string{
					"cleanup.policy": "delete",
					"retention.ms":   fmt.Sprintf("%d", cnf.KafkaRetention.Milliseconds()),
				},
			},
		},
	}
	if err := kafkautils.InitKafkaTopics(ctx, logger, topicConfig); err != nil {
		return nil, fmt.Errorf("initialize kafka topics: %w", err)
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  cnf.KafkaBrokers,
		"acks":               "all",
		"enable.idempotence": "true",
		"retries":            "1",
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	logger.Info("kafka producer created successfully", zap.String("brokers", cnf.KafkaBrokers))
	go handleDeliveryReports(logger, p)

	return &KafkaEventPublisher{
		logger:   logger,
		producer: p,
		topic:    cnf.KafkaPaymentTopic,
	}, nil
}

func (k *KafkaEventPublisher) Publish(_ context.Context, event eventviews.PaymentEvent) error {
	msg, err := newPaymentMessage(k.topic, event)
	if err != nil {
		observability.EventsPublished.WithLabelValues(string(event.Type), observability.ResultError).Inc()
		return err
	}
	// Delivery results arrive on the events channel, see handleDeliveryReports.
	if err = k.producer.Produce(msg, nil); err != nil {
		observability.EventsPublished.WithLabelValues(string(event.Type), observability.ResultError).Inc()
		return err
	}
	observability.EventsPublished.WithLabelValues(string(event.Type), observability.ResultOK).Inc()
	return nil
}

// Close flushes queued events for up to five seconds before closing the producer.
func (k *KafkaEventPublisher) Close() {
	if remaining := k.producer.Flush(5000); remaining > 0 {
		k.logger.Warn("kafka producer closed with undelivered events", zap.Int("remaining", remaining))
	}
	k.producer.Close()
}

// newPaymentMessage keys by session id; the producer's key hash keeps every event of one checkout
// on the same partition, whatever partition count an existing topic was created with.
func newPaymentMessage(topic string, event eventviews.PaymentEvent) (*kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode payment event: %w", err)
	}
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(event.SessionID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "trace-id", Value: []byte(event.TraceID)},
		},
	}, nil
}

func handleDeliveryReports(logger *zap.Logger, p *kafka.Producer) {
	for e := range p.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				logger.Error("failed to publish payment event", zap.ByteString("key", ev.Key), zap.Error(ev.TopicPartition.Error))
			}
		}
	}
}

// NoopEventPublisher is used when no broker is configured.
type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(context.Context, eventviews.PaymentEvent) error { return nil }
func (NoopEventPublisher) Close() {}
