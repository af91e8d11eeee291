package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"attendance-tracker/backend/internal/telemetry"
)

type captureWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (c *captureWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("write without deadline")
	}
	c.msgs = append(c.msgs, msgs...)
	return c.err
}

func (c *captureWriter) Close() error {
	c.closed = true
	return nil
}

func TestNewKafkaProducer_DisabledWithoutBrokersOrTopic(t *testing.T) {
	p, err := NewKafkaProducer(nil, "attendance-events")
	if err != nil || p != nil {
		t.Errorf("no brokers: p=%v err=%v, want nil,nil", p, err)
	}
	p, err = NewKafkaProducer([]string{"localhost:9092"}, "")
	if err != nil || p != nil {
		t.Errorf("no topic: p=%v err=%v, want nil,nil", p, err)
	}
}

func TestKafkaProducer_NilSafe(t *testing.T) {
	var p *KafkaProducer
	if err := p.Emit(context.Background(), &telemetry.Event{EventType: telemetry.EventClockIn}); err != nil {
		t.Errorf("nil Emit: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}

func TestKafkaProducer_Emit(t *testing.T) {
	w := &captureWriter{}
	p := &KafkaProducer{writer: w, topic: "attendance-events"}
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ev := &telemetry.Event{
		UserID:    "user-1",
		StoreID:   "store-1",
		SessionID: "sess-1",
		EventType: telemetry.EventClockIn,
		Source:    "attendance",
		Metadata:  json.RawMessage(`{"withinGeofence":true}`),
		CreatedAt: at,
	}
	if err := p.Emit(context.Background(), ev); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "user-1" {
		t.Errorf("key = %q, want user-1", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != telemetry.EventClockIn {
		t.Errorf("headers = %+v", msg.Headers)
	}
	var decoded telemetry.Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if decoded.StoreID != "store-1" || !decoded.CreatedAt.Equal(at) {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestKafkaProducer_EmitError(t *testing.T) {
	w := &captureWriter{err: errors.New("leader not available")}
	p := &KafkaProducer{writer: w, topic: "attendance-events"}
	if err := p.Emit(context.Background(), &telemetry.Event{EventType: telemetry.EventClockOut}); err == nil {
		t.Fatal("Emit should return writer error")
	}
	if err := p.Close(); err != nil || !w.closed {
		t.Errorf("Close: err=%v closed=%v", err, w.closed)
	}
}
