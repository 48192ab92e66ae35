// Package events publishes ledger domain events. Publishing is fire-and-forget:
// callers never fail an operation because an event could not be delivered.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	IncomeCredited      = "income.credited"
	InvestmentCreated   = "investment.created"
	WithdrawalRequested = "withdrawal.requested"
	WithdrawalApproved  = "withdrawal.approved"
	WithdrawalRejected  = "withdrawal.rejected"
	ProfitBatchFinished = "profit.batch"
	DepositCredited     = "deposit.credited"
	TransferCompleted   = "transfer.completed"
)

// Event is the envelope written to the topic.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	UserID    uuid.UUID `json:"user_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// New builds an event stamped with a fresh id.
func New(eventType string, userID uuid.UUID, payload any) Event {
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		UserID:    userID,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaPublisher writes events through an async kafka-go writer keyed by user.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	logger := zap.L().Named("kafka")
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			MaxAttempts:  3,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			Compression:  kafka.Snappy,
			Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
				logger.Debug(fmt.Sprintf(msg, args...))
			}),
			ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
				logger.Warn(fmt.Sprintf(msg, args...))
			}),
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					logger.Warn("event delivery failed", zap.Int("messages", len(messages)), zap.Error(err))
				}
			},
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) {
	value, err := json.Marshal(e)
	if err != nil {
		zap.L().Warn("marshal event", zap.String("type", e.Type), zap.Error(err))
		return
	}
	msg := kafka.Message{
		Key:   []byte(e.UserID.String()),
		Value: value,
		Time:  e.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		zap.L().Warn("publish event", zap.String("type", e.Type), zap.Error(err))
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Types returns the type of every recorded event in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
