package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/iwtcode/cableRobot/internal/interfaces"
	"github.com/iwtcode/cableRobot/internal/middleware/logging"
	"github.com/iwtcode/cableRobot/models"
)

// StatusKey - ключ сообщений с состоянием актуаторов.
const StatusKey = "actuators"

// StatusSource - источник снимков состояния.
type StatusSource interface {
	ActuatorsStatus() []models.ActuatorStatus
}

// StatusMessage - публикуемый снимок: записи ACTUATOR_STATUS в порядке полей Fields.
type StatusMessage struct {
	Kind      string   `json:"kind"`
	Fields    []string `json:"fields"`
	Records   [][]any  `json:"records"`
	Timestamp int64    `json:"timestamp"` // [мс]
}

type activeStream struct {
	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
}

// StatusStreamer периодически публикует состояние всех актуаторов.
type StatusStreamer struct {
	source   StatusSource
	producer interfaces.KafkaService
	logger   *logging.Logger

	mu     sync.Mutex
	active *activeStream
}

func NewStatusStreamer(source StatusSource, producer interfaces.KafkaService, logger *logging.Logger) *StatusStreamer {
	return &StatusStreamer{
		source:   source,
		producer: producer,
		logger:   logger.WithPrefix("STREAMER"),
	}
}

func (s *StatusStreamer) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

func (s *StatusStreamer) StartStreaming(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid streaming interval %s", interval)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return fmt.Errorf("status streaming already running")
	}

	stream := &activeStream{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	s.active = stream

	stream.wg.Add(1)
	go func() {
		defer stream.wg.Done()
		s.logger.Info("Starting status streaming", "interval", interval)
		defer s.logger.Info("Status streaming stopped")

		for {
			select {
			case <-stream.done:
				return
			case now := <-stream.ticker.C:
				if err := s.publish(now); err != nil {
					s.logger.Error("Failed to publish actuator status", "error", err)
				}
			}
		}
	}()
	return nil
}

func (s *StatusStreamer) StopStreaming() error {
	s.mu.Lock()
	stream := s.active
	s.active = nil
	s.mu.Unlock()

	if stream == nil {
		return nil
	}
	stream.ticker.Stop()
	close(stream.done)
	stream.wg.Wait()
	return nil
}

func (s *StatusStreamer) publish(now time.Time) error {
	statuses := s.source.ActuatorsStatus()
	msg := StatusMessage{
		Kind:      models.ActuatorRecord.String(),
		Fields:    models.RecordFields(models.ActuatorRecord),
		Records:   make([][]any, len(statuses)),
		Timestamp: now.UnixMilli(),
	}
	for i, st := range statuses {
		msg.Records[i] = st.Record(models.ActuatorRecord)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("serialize status: %w", err)
	}
	return s.producer.Produce(context.Background(), []byte(StatusKey), payload)
}
