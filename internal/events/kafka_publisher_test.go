package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/studiodesk/support-tickets/internal/config"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherForwardsDispatchedEvents(t *testing.T) {
	writer := &recordingWriter{}
	publisher := NewKafkaPublisherWithWriter(writer, zap.NewNop())
	dispatcher := NewInMemoryDispatcher()
	publisher.Register(dispatcher)

	err := dispatcher.Publish(context.Background(), Event{ID: "e1", Type: EventTicketCreated, TicketID: "t1"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(writer.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != "t1" {
		t.Fatalf("expected ticket id key, got %q", msg.Key)
	}
	var decoded Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Type != EventTicketCreated || decoded.ID != "e1" {
		t.Fatalf("unexpected event %+v", decoded)
	}
}

func TestKafkaPublisherSurfacesWriteErrors(t *testing.T) {
	boom := errors.New("broker down")
	publisher := NewKafkaPublisherWithWriter(&recordingWriter{err: boom}, zap.NewNop())
	dispatcher := NewInMemoryDispatcher()
	publisher.Register(dispatcher)
	calls := 0
	dispatcher.Subscribe(EventTicketClosed, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventTicketClosed, TicketID: "t1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected broker error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("other handlers must still run")
	}
}

func TestKafkaPublisherClose(t *testing.T) {
	writer := &recordingWriter{}
	publisher := NewKafkaPublisherWithWriter(writer, zap.NewNop())
	if err := publisher.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !writer.closed {
		t.Fatalf("writer not closed")
	}
	if err := publisher.Handle(context.Background(), Event{Type: EventTicketCreated}); !errors.Is(err, ErrPublisherClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	var nilPublisher *KafkaPublisher
	if err := nilPublisher.Close(); err != nil {
		t.Fatalf("nil publisher close: %v", err)
	}
}

func TestKafkaWriterDoesNotBlockPublishers(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	writer := newKafkaWriter(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "ticket-events"}, zap.New(core))
	if !writer.Async {
		t.Fatalf("writer must be async")
	}
	if writer.Topic != "ticket-events" || writer.RequiredAcks != kafka.RequireAll {
		t.Fatalf("unexpected writer %+v", writer)
	}

	writer.Completion([]kafka.Message{{Key: []byte("t1")}}, nil)
	if logs.Len() != 0 {
		t.Fatalf("successful delivery logged a warning")
	}
	writer.Completion([]kafka.Message{{Key: []byte("t1")}, {Key: []byte("t2")}}, errors.New("broker down"))
	if logs.FilterMessage("kafka delivery failed").Len() != 2 {
		t.Fatalf("expected one warning per failed message, got %d", logs.Len())
	}
}
