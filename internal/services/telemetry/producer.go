package telemetry

import (
	"context"
	"time"

	"github.com/iwtcode/cableRobot/internal/config"
	"github.com/iwtcode/cableRobot/internal/interfaces"
	"github.com/iwtcode/cableRobot/internal/middleware/logging"

	"github.com/segmentio/kafka-go"
)

type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer создает продюсера Kafka. При выключенной публикации
// сообщения только пишутся в отладочный лог.
func NewKafkaProducer(cfg *config.AppConfig, logger *logging.Logger) (interfaces.KafkaService, error) {
	if !cfg.Kafka.Enable {
		return &logProducer{logger: logger.WithPrefix("TELEMETRY")}, nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Broker),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaProducer{writer: writer}, nil
}

// Produce отправляет сообщение в Kafka
func (p *KafkaProducer) Produce(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx,
		kafka.Message{
			Key:   key,
			Value: value,
		},
	)
}

// Close закрывает соединение с Kafka
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

type logProducer struct {
	logger *logging.Logger
}

func (p *logProducer) Produce(_ context.Context, key, value []byte) error {
	p.logger.Debug("Telemetry message", "key", string(key), "size", len(value))
	return nil
}

func (p *logProducer) Close() error { return nil }
