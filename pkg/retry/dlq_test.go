package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingProducer struct {
	topic   string
	key     string
	data    interface{}
	headers map[string]string
	err     error
}

func (p *recordingProducer) ProduceJSON(ctx context.Context, topic, key string, data interface{}, headers map[string]string) error {
	p.topic, p.key, p.data, p.headers = topic, key, data, headers
	return p.err
}

func TestKafkaDLQPublisher_PublishToDLQ(t *testing.T) {
	producer := &recordingProducer{}
	pub := NewKafkaDLQPublisher(producer, "incident-worker")

	msg := &DLQMessage{ID: "evt-1", OriginalTopic: "checkout-events", OriginalKey: "bk-1", Error: "db down", Attempts: 4}
	if err := pub.PublishToDLQ(context.Background(), msg); err != nil {
		t.Fatalf("PublishToDLQ failed: %v", err)
	}

	if producer.topic != "checkout-events.dlq" {
		t.Errorf("topic = %s, want checkout-events.dlq", producer.topic)
	}
	if producer.key != "bk-1" {
		t.Errorf("key = %s, want bk-1", producer.key)
	}
	if producer.headers["attempts"] != "4" {
		t.Errorf("attempts header = %s, want 4", producer.headers["attempts"])
	}
	if msg.Source != "incident-worker" || msg.MovedToDLQAt.IsZero() {
		t.Errorf("source/moved_to_dlq_at not stamped: %+v", msg)
	}
}

func TestKafkaDLQPublisher_NilMessage(t *testing.T) {
	pub := NewKafkaDLQPublisher(&recordingProducer{}, "x")
	if err := pub.PublishToDLQ(context.Background(), nil); err == nil {
		t.Error("Expected error for nil message")
	}
}

func TestDLQHandler_ProcessWithDLQ_Success(t *testing.T) {
	producer := &recordingProducer{}
	h := NewDLQHandler(NewKafkaDLQPublisher(producer, "x"), fastConfig(2), nil)

	err := h.ProcessWithDLQ(context.Background(), &MessageContext{Topic: "t"}, func(ctx context.Context) error {
		return nil
	})

	if err != nil {
		t.Fatalf("Expected nil, got %v", err)
	}
	if producer.topic != "" {
		t.Error("Nothing should be published on success")
	}
}

func TestDLQHandler_ProcessWithDLQ_AllRetriesFail(t *testing.T) {
	producer := &recordingProducer{}
	var parked *DLQMessage
	h := NewDLQHandler(NewKafkaDLQPublisher(producer, "x"), fastConfig(2), func(msg *DLQMessage) { parked = msg })

	errDB := errors.New("db unavailable")
	err := h.ProcessWithDLQ(context.Background(), &MessageContext{ID: "m1", Topic: "checkout-events", Key: "k"}, func(ctx context.Context) error {
		return errDB
	})

	if !errors.Is(err, errDB) {
		t.Fatalf("err = %v, want db unavailable", err)
	}
	if parked == nil || parked.Attempts != 3 || parked.Error != "db unavailable" {
		t.Fatalf("unexpected parked message: %+v", parked)
	}
	if producer.topic != "checkout-events.dlq" {
		t.Errorf("topic = %s", producer.topic)
	}
}

func TestDLQHandler_ProcessWithDLQ_PublishFails(t *testing.T) {
	producer := &recordingProducer{err: errors.New("broker down")}
	h := NewDLQHandler(NewKafkaDLQPublisher(producer, "x"), &Config{MaxRetries: 0, InitialInterval: time.Millisecond}, nil)

	err := h.ProcessWithDLQ(context.Background(), &MessageContext{Topic: "t"}, func(ctx context.Context) error {
		return Permanent(errors.New("bad payload"))
	})

	if err == nil {
		t.Fatal("Expected error when DLQ publish fails")
	}
}
