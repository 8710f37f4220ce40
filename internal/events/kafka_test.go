package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"salon/backend/internal/domain"
)

type fakeWriter struct {
	writeFn func(ctx context.Context, msgs ...kafka.Message) error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.writeFn == nil {
		panic("WriteMessages not configured")
	}
	return f.writeFn(ctx, msgs...)
}

func (f *fakeWriter) Close() error { return nil }

func newTestPublisher(w messageWriter, prefix string) *KafkaPublisher {
	return &KafkaPublisher{
		w:           w,
		topicPrefix: prefix,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestKafkaPublisher_Message(t *testing.T) {
	var got []kafka.Message
	p := newTestPublisher(&fakeWriter{
		writeFn: func(ctx context.Context, msgs ...kafka.Message) error {
			got = append(got, msgs...)
			return nil
		},
	}, "salon.")

	appt := domain.Appointment{
		ID:              uuid.New(),
		StaffID:         uuid.New(),
		StartTime:       time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Status:          domain.StatusScheduled,
	}
	ev := NewAppointmentEvent(AppointmentCreated, appt, nil, appt.StartTime)

	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("messages = %d, want 1", len(got))
	}
	msg := got[0]

	if msg.Topic != "salon.appointment.created.v1" {
		t.Fatalf("topic = %q", msg.Topic)
	}
	if string(msg.Key) != appt.ID.String() {
		t.Fatalf("key = %q, want appointment id", msg.Key)
	}
	if v := headerValue(msg.Headers, HeaderEventID); v != ev.EventID {
		t.Fatalf("event_id header = %q, want %q", v, ev.EventID)
	}
	if v := headerValue(msg.Headers, HeaderEventType); v != string(AppointmentCreated) {
		t.Fatalf("event_type header = %q", v)
	}

	var decoded AppointmentEvent
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("payload decode: %v", err)
	}
	if decoded.Appointment.ID != appt.ID || decoded.Previous != nil {
		t.Fatalf("payload = %+v", decoded)
	}
}

func TestKafkaPublisher_InjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	var got kafka.Message
	p := newTestPublisher(&fakeWriter{
		writeFn: func(ctx context.Context, msgs ...kafka.Message) error {
			got = msgs[0]
			return nil
		},
	}, "")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	ev := NewAppointmentEvent(AppointmentDeleted, domain.Appointment{ID: uuid.New()}, nil, time.Now())
	if err := p.Publish(ctx, ev); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if headerValue(got.Headers, "traceparent") == "" {
		t.Fatalf("expected traceparent header, got %+v", got.Headers)
	}
	if headerValue(got.Headers, HeaderEventID) == "" {
		t.Fatalf("trace injection must keep existing headers")
	}
}

func TestKafkaPublisher_WrapsWriteError(t *testing.T) {
	boom := errors.New("leader not available")
	p := newTestPublisher(&fakeWriter{
		writeFn: func(ctx context.Context, msgs ...kafka.Message) error { return boom },
	}, "")

	err := p.Publish(context.Background(), NewAppointmentEvent(AppointmentUpdated, domain.Appointment{}, &domain.Appointment{}, time.Now()))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" a:9092, ,b:9092 ")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("SplitBrokers = %v", got)
	}
	if SplitBrokers("") != nil {
		t.Fatalf("empty input should yield nil")
	}
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
