package kafka

import (
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/membertown/mt-allocation/config"
	"github.com/membertown/mt-allocation/pkg/applogger"
)

// NewProducer builds a confluent kafka producer from configuration.
func NewProducer() *kafka.Producer {
	c := config.Get()
	logger := applogger.GetLogrus()

	cm := &kafka.ConfigMap{
		"bootstrap.servers": c.Kafka.BootstrapServers,
		"acks":              "all",
	}

	if c.Kafka.SASLUsername != "" {
		cm.SetKey("security.protocol", "SASL_SSL")
		cm.SetKey("sasl.mechanisms", "PLAIN")
		cm.SetKey("sasl.username", c.Kafka.SASLUsername)
		cm.SetKey("sasl.password", c.Kafka.SASLPassword)
	}

	producer, err := kafka.NewProducer(cm)
	if err != nil {
		logger.WithError(err).Fatal("unable to create kafka producer")
	}

	return producer
}
