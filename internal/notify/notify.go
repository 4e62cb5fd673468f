package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/libranova/library-service/pkg/kafka"
)

type EventKind string

const (
	BorrowingCreated  EventKind = "borrowing.created"
	BorrowingReturned EventKind = "borrowing.returned"
	FineIssued        EventKind = "fine.issued"
	FineWaived        EventKind = "fine.waived"
	PaymentConfirmed  EventKind = "payment.confirmed"
	PaymentRefunded   EventKind = "payment.refunded"
	PaymentsExpired   EventKind = "payments.expired"
)

type Event struct {
	Kind    EventKind   `json:"kind"`
	At      time.Time   `json:"at"`
	Payload interface{} `json:"payload"`
}

// Sink delivers lifecycle events to the notification collaborator.
// Emit is fire-and-forget: delivery failures are logged and swallowed so they
// can never roll back the operation that produced the event.
type Sink interface {
	Emit(ctx context.Context, kind EventKind, payload interface{})
}

type kafkaSink struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

func NewKafkaSink(producer sarama.SyncProducer, log *zap.Logger) Sink {
	return &kafkaSink{
		producer: producer,
		topic:    kafka.NotificationsTopic,
		log:      log.Named("notify"),
	}
}

func (s *kafkaSink) Emit(_ context.Context, kind EventKind, payload interface{}) {
	data, err := json.Marshal(Event{Kind: kind, At: time.Now().UTC(), Payload: payload})
	if err != nil {
		s.log.Warn("emit marshal", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	msg := &sarama.ProducerMessage{Topic: s.topic, Value: sarama.StringEncoder(data)}
	if _, _, err = s.producer.SendMessage(msg); err != nil {
		s.log.Warn("emit send", zap.String("kind", string(kind)), zap.Error(err))
	}
}

type nopSink struct{}

// NewNopSink is for wiring where no broker is available (tests, local runs).
func NewNopSink() Sink {
	return nopSink{}
}

func (nopSink) Emit(context.Context, EventKind, interface{}) {}
