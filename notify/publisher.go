package notify

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/dailyyoga/savekit/logger"
	"github.com/dailyyoga/savekit/save"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HeaderKind carries the event kind so consumers can filter without decoding.
const HeaderKind = "savekit-kind"

type eventMessage struct {
	ID string `json:"id"`
	save.Event
}

// Publisher turns slot events into kafka messages keyed by
// subsystem/user/slot, so every event of a slot lands on one partition.
type Publisher struct {
	log      logger.Logger
	producer Producer
	topic    string
}

var _ save.Observer = (*Publisher)(nil)

// NewPublisher returns a Publisher writing to topic.
func NewPublisher(log logger.Logger, producer Producer, topic string) (*Publisher, error) {
	if producer == nil {
		return nil, ErrInvalidConfig("producer is required")
	}
	if topic == "" {
		return nil, ErrInvalidConfig("topic is required")
	}
	return &Publisher{log: log, producer: producer, topic: topic}, nil
}

// Observe publishes ev. Failures are logged and never reach the subsystem.
func (p *Publisher) Observe(ev save.Event) {
	value, err := json.Marshal(eventMessage{ID: uuid.NewString(), Event: ev})
	if err != nil {
		p.log.Error("failed to encode slot event", zap.String("slot", ev.Slot), zap.Error(ErrPublish(err)))
		return
	}

	msg := &Message{
		Topic:   p.topic,
		Key:     []byte(EventKey(ev.Subsystem, ev.UserIndex, ev.Slot)),
		Value:   value,
		Headers: map[string]string{HeaderKind: string(ev.Kind)},
	}
	if err := p.producer.Produce(context.Background(), msg); err != nil {
		p.log.Warn("failed to publish slot event",
			zap.String("subsystem", ev.Subsystem),
			zap.String("slot", ev.Slot),
			zap.String("kind", string(ev.Kind)),
			zap.Error(err),
		)
	}
}

// EventKey is the partition key of a slot.
func EventKey(subsystem string, userIndex int, slot string) string {
	return subsystem + "/" + strconv.Itoa(userIndex) + "/" + slot
}
