package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

// KafkaPublisher writes one message per event to the topic named after the
// event type. Messages are keyed by appointment id so every event of one
// appointment lands on the same partition.
type KafkaPublisher struct {
	w           messageWriter
	brokers     []string
	topicPrefix string
	log         *slog.Logger
}

func NewKafkaPublisher(cfg KafkaConfig, log *slog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &KafkaPublisher{
		w:           w,
		brokers:     cfg.Brokers,
		topicPrefix: cfg.TopicPrefix,
		log:         log.With(slog.String("component", "events")),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev AppointmentEvent) error {
	msg, err := p.message(ctx, ev)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	p.log.Debug("event published",
		slog.String("event_id", ev.EventID),
		slog.String("event_type", string(ev.Type)),
		slog.String("topic", msg.Topic),
	)
	return nil
}

func (p *KafkaPublisher) message(ctx context.Context, ev AppointmentEvent) (kafka.Message, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	msg := kafka.Message{
		Topic: p.topicPrefix + string(ev.Type),
		Key:   []byte(ev.Appointment.ID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(ev.EventID)},
			{Key: HeaderEventType, Value: []byte(ev.Type)},
		},
	}
	msg.Headers = injectTraceHeaders(ctx, msg.Headers)
	return msg, nil
}

// Ping dials the first broker.
func (p *KafkaPublisher) Ping(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return errors.New("kafka brokers not configured")
	}
	dialer := kafka.Dialer{Timeout: 2 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return err
	}
	_ = conn.Close()
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// SplitBrokers parses a comma separated broker list.
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
