package telemetry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/iwtcode/cableRobot/homing"
	"github.com/iwtcode/cableRobot/internal/interfaces"
	"github.com/iwtcode/cableRobot/internal/middleware/logging"
	"github.com/iwtcode/cableRobot/models"
)

// HomingKey - ключ сообщений о событиях хоминга.
const HomingKey = "homing"

// HomingEvent - событие процедуры хоминга в Kafka.
type HomingEvent struct {
	Type      string                 `json:"type"`
	From      string                 `json:"from,omitempty"`
	To        string                 `json:"to,omitempty"`
	Progress  *int                   `json:"progress,omitempty"`
	Message   string                 `json:"message,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	Result    *models.HomingHomeData `json:"result,omitempty"`
	Timestamp int64                  `json:"timestamp"` // [мс]
}

// HomingNotifier публикует события хоминга в Kafka из собственной горутины,
// не задерживая автомат. При переполнении очереди события отбрасываются.
type HomingNotifier struct {
	producer interfaces.KafkaService
	logger   *logging.Logger
	events   chan HomingEvent
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

var _ homing.Notifier = (*HomingNotifier)(nil)

func NewHomingNotifier(producer interfaces.KafkaService, logger *logging.Logger) *HomingNotifier {
	n := &HomingNotifier{
		producer: producer,
		logger:   logger.WithPrefix("HOMING_EVENTS"),
		events:   make(chan HomingEvent, 256),
		done:     make(chan struct{}),
	}
	n.wg.Add(1)
	go n.loop()
	return n
}

func (n *HomingNotifier) StateChanged(from, to homing.State) {
	n.post(HomingEvent{Type: "state", From: from.String(), To: to.String()})
}

func (n *HomingNotifier) Progress(percent int) {
	n.post(HomingEvent{Type: "progress", Progress: &percent})
}

func (n *HomingNotifier) Message(msg string) {
	n.post(HomingEvent{Type: "message", Message: msg})
}

func (n *HomingNotifier) AcquisitionComplete(sessionID string) {
	n.post(HomingEvent{Type: "acquisition_complete", SessionID: sessionID})
}

func (n *HomingNotifier) HomingComplete(data models.HomingHomeData) {
	n.post(HomingEvent{Type: "homing_complete", Result: &data})
}

// Close дожидается отправки уже поставленных событий.
func (n *HomingNotifier) Close() error {
	n.once.Do(func() { close(n.done) })
	n.wg.Wait()
	return nil
}

func (n *HomingNotifier) post(ev HomingEvent) {
	ev.Timestamp = time.Now().UnixMilli()
	select {
	case <-n.done:
		return
	default:
	}
	select {
	case n.events <- ev:
	default:
		n.logger.Warn("Homing event queue is full, event dropped", "type", ev.Type)
	}
}

func (n *HomingNotifier) loop() {
	defer n.wg.Done()
	for {
		select {
		case ev := <-n.events:
			n.send(ev)
		case <-n.done:
			for {
				select {
				case ev := <-n.events:
					n.send(ev)
				default:
					return
				}
			}
		}
	}
}

func (n *HomingNotifier) send(ev HomingEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		n.logger.Error("Failed to serialize homing event", "type", ev.Type, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.producer.Produce(ctx, []byte(HomingKey), payload); err != nil {
		n.logger.Error("Failed to send homing event to Kafka", "type", ev.Type, "error", err)
	}
}
