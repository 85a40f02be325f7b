package notify

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
)

// TestKafka_RoundTrip needs a broker, e.g. SAVEKIT_KAFKA_BROKERS=localhost:9092.
func TestKafka_RoundTrip(t *testing.T) {
	brokers := os.Getenv("SAVEKIT_KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("SAVEKIT_KAFKA_BROKERS not set")
	}
	log := zaptest.NewLogger(t)
	topic := "savekit-test-" + uuid.NewString()[:8]

	cfg := (&Config{
		Brokers:           strings.Split(brokers, ","),
		EventsTopic:       topic,
		InvalidationTopic: topic,
		GroupID:           "savekit-test-" + uuid.NewString()[:8],
		Consumer:          &ConsumerConfig{AutoOffsetReset: "earliest"},
	}).MergeDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	prod, err := NewProducer(log, cfg.Producer, true)
	if err != nil {
		t.Fatalf("NewProducer failed: %v", err)
	}
	defer prod.Close()
	cons, err := NewConsumer(log, cfg.Consumer, false)
	if err != nil {
		t.Fatalf("NewConsumer failed: %v", err)
	}
	defer cons.Close()

	got := make(chan *Message, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := cons.Start(ctx, func(_ context.Context, msg *Message) error {
		select {
		case got <- msg:
		default:
		}
		return nil
	}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := prod.Produce(ctx, &Message{Topic: topic, Key: []byte("k"), Value: []byte(`{"a":1}`), Headers: map[string]string{"h": "v"}}); err != nil {
		t.Fatalf("Produce failed: %v", err)
	}

	select {
	case msg := <-got:
		if string(msg.Value) != `{"a":1}` || msg.Headers["h"] != "v" {
			t.Errorf("unexpected message: %+v", msg)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}
