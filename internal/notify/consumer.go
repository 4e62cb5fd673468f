package notify

import (
	"encoding/json"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// Consumer drains the notifications topic and hands each event to a delivery
// callback. The callback stands in for the actual messenger integration.
type Consumer struct {
	deliver func(Event)
	log     *zap.Logger
}

func NewConsumer(deliver func(Event), log *zap.Logger) *Consumer {
	return &Consumer{
		deliver: deliver,
		log:     log.Named("consumer"),
	}
}

// Setup runs at the start of every session, including the new sessions the
// consume loop enters after each rebalance, so it must stay re-runnable.
func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			var event Event
			if err := json.Unmarshal(message.Value, &event); err != nil {
				consumer.log.Error("unmarshal event", zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}

			consumer.deliver(event)

			consumer.log.Debug("event claimed",
				zap.String("kind", string(event.Kind)),
				zap.Time("timestamp", message.Timestamp),
				zap.String("topic", message.Topic))
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
