package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"ridebud/internal/types"
)

func TestMessageFor_Key(t *testing.T) {
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		event   Event
		wantKey string
	}{
		{name: "ride event keyed by ride", event: Event{Type: RideJoined, RideID: "r1", JourneyID: "j1", At: at}, wantKey: "r1"},
		{name: "journey-only event keyed by journey", event: Event{Type: JourneyCancelled, JourneyID: "j2", At: at}, wantKey: "j2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := messageFor(tt.event)
			if err != nil {
				t.Fatalf("messageFor: %v", err)
			}
			if string(msg.Key) != tt.wantKey {
				t.Fatalf("key = %q, want %q", msg.Key, tt.wantKey)
			}
			var got Event
			if err := json.Unmarshal(msg.Value, &got); err != nil {
				t.Fatalf("decode value: %v", err)
			}
			if got.Type != tt.event.Type || got.JourneyID != tt.event.JourneyID {
				t.Fatalf("value = %+v", got)
			}
		})
	}
}

func TestMessageFor_AffectedIDs(t *testing.T) {
	msg, err := messageFor(Event{Type: RideCompleted, RideID: "r1", Affected: []types.ID{"j2", "j3"}})
	if err != nil {
		t.Fatalf("messageFor: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(msg.Value, &raw); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	ids, ok := raw["affected_journey_ids"].([]any)
	if !ok || len(ids) != 2 {
		t.Fatalf("affected_journey_ids = %v", raw["affected_journey_ids"])
	}
}

func TestKafkaPublisher_UnreachableBroker(t *testing.T) {
	pub := &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP("127.0.0.1:1"),
		Topic:        "ridebud.rides",
		MaxAttempts:  1,
		BatchTimeout: 10 * time.Millisecond,
	}}
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pub.Publish(ctx, Event{Type: RideOffered, RideID: "r1"}); err == nil {
		t.Fatal("expected an error publishing to an unreachable broker")
	}
}

func TestKafkaPublisher_CloseWithoutWriter(t *testing.T) {
	if err := (&KafkaPublisher{}).Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.Publish(context.Background(), Event{Type: RideLeft}); err != nil {
		t.Fatalf("publish: %v", err)
	}
}
