package pubsub

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Publisher is the outbound event publishing port. Delivery is
// fire-and-forget; callers must not rely on it for state transitions.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, headers map[string]string, message []byte)
	Close()
}

type confluentKafkaPublisher struct {
	logger   *logrus.Logger
	producer *kafka.Producer
}

func PublisherFromConfluentKafkaProducer(logger *logrus.Logger, producer *kafka.Producer) Publisher {
	p := &confluentKafkaPublisher{
		logger:   logger,
		producer: producer,
	}

	go p.watchDeliveryReports()

	return p
}

func (p *confluentKafkaPublisher) watchDeliveryReports() {
	for e := range p.producer.Events() {
		m, ok := e.(*kafka.Message)
		if !ok {
			continue
		}
		if m.TopicPartition.Error != nil {
			p.logger.WithError(m.TopicPartition.Error).WithField("topic", *m.TopicPartition.Topic).Error("message delivery failed")
		}
	}
}

// Publish enqueues the message onto the producer's buffer. Failures are
// logged and dropped.
func (p *confluentKafkaPublisher) Publish(ctx context.Context, topic string, key string, headers map[string]string, message []byte) {
	kafkaHeaders := make([]kafka.Header, 0, len(headers)+1)
	kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: "message_id", Value: []byte(uuid.NewString())})
	for k, v := range headers {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: k, Value: []byte(v)})
	}

	err := p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Headers:        kafkaHeaders,
		Value:          message,
	}, nil)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithField("topic", topic).Error("unable to produce message")
	}
}

func (p *confluentKafkaPublisher) Close() {
	p.producer.Flush(5000)
	p.producer.Close()
}
