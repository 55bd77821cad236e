package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func testEvent(eventType string) Event {
	return Event{
		Timestamp:  time.Unix(1_700_000_000, 0).UTC(),
		EventType:  eventType,
		Subject:    "otp",
		Identifier: "alice@example.com",
		IP:         "198.51.100.7",
		Stage:      "email",
		Allowed:    false,
		Metadata:   map[string]string{"message": "limited"},
	}
}

func TestChannelSink_Delivers(t *testing.T) {
	sink := NewChannelSink(4)
	sink.Emit(context.Background(), testEvent("rate_limit_denied"))

	select {
	case got := <-sink.Events():
		if got.EventType != "rate_limit_denied" || got.Identifier != "alice@example.com" {
			t.Fatalf("unexpected event: %+v", got)
		}
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestChannelSink_FullBufferHonorsContext(t *testing.T) {
	sink := NewChannelSink(1)
	sink.Emit(context.Background(), testEvent("first"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Buffer is full and the context is done; Emit must return, not block.
	sink.Emit(ctx, testEvent("second"))

	got := <-sink.Events()
	if got.EventType != "first" {
		t.Fatalf("EventType = %q, want %q", got.EventType, "first")
	}
}

func TestJSONWriterSink_OneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), testEvent("rate_limit_denied"))
	sink.Emit(context.Background(), Event{
		Timestamp: time.Unix(1_700_000_100, 0).UTC(),
		EventType: "rate_limit_policy_miss",
		Subject:   "kyc",
		Allowed:   true,
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("first line is not JSON: %v", err)
	}
	if first["event_type"] != "rate_limit_denied" || first["stage"] != "email" {
		t.Fatalf("first line = %v", first)
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("second line is not JSON: %v", err)
	}
	if second["allowed"] != true {
		t.Fatalf("second line allowed = %v, want true", second["allowed"])
	}
	// Empty optional fields are omitted entirely.
	if _, ok := second["ip"]; ok {
		t.Fatalf("second line should omit empty ip: %v", second)
	}
	if _, ok := second["metadata"]; ok {
		t.Fatalf("second line should omit empty metadata: %v", second)
	}
}

func TestJSONWriterSink_NilWriterSafe(t *testing.T) {
	sink := NewJSONWriterSink(nil)
	sink.Emit(context.Background(), testEvent("rate_limit_denied"))
}
