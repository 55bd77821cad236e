package audit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// blockingSink parks every Emit until gate is closed. started is closed on
// the first Emit so tests can wait for the worker to be busy.
type blockingSink struct {
	started chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func newBlockingSink() *blockingSink {
	return &blockingSink{
		started: make(chan struct{}),
		gate:    make(chan struct{}),
	}
}

func (s *blockingSink) Emit(context.Context, Event) {
	s.once.Do(func() { close(s.started) })
	<-s.gate
}

func TestDispatcher_DisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NewChannelSink(1))
	if d != nil {
		t.Fatal("disabled dispatcher should be nil")
	}

	// All methods must be safe on the nil dispatcher.
	d.Emit(context.Background(), testEvent("rate_limit_denied"))
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reports drops")
	}
	d.Close()
}

func TestDispatcher_ForwardsToSink(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4, DropIfFull: false}, sink)
	defer d.Close()

	d.Emit(context.Background(), testEvent("rate_limit_denied"))

	select {
	case got := <-sink.Events():
		if got.EventType != "rate_limit_denied" || got.Subject != "otp" {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the sink")
	}
}

func TestDispatcher_NilSinkFallsBackToNoOp(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, nil)
	defer d.Close()

	d.Emit(context.Background(), testEvent("rate_limit_denied"))
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	sink := newBlockingSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// First event: picked up by the worker, which blocks inside the sink.
	d.Emit(context.Background(), testEvent("first"))
	<-sink.started

	// Second event fills the buffer; the third has nowhere to go.
	d.Emit(context.Background(), testEvent("second"))
	d.Emit(context.Background(), testEvent("third"))

	if got := d.Dropped(); got != 1 {
		t.Fatalf("Dropped = %d, want 1", got)
	}

	close(sink.gate)
	d.Close()
}

func TestDispatcher_CloseDrainsBuffer(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8, DropIfFull: false}, sink)

	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), testEvent("rate_limit_denied"))
	}
	d.Close()

	// Close waits for the worker, which flushes everything still queued.
	got := 0
	for {
		select {
		case <-sink.Events():
			got++
		default:
			if got != 3 {
				t.Fatalf("drained %d events, want 3", got)
			}
			return
		}
	}
}

func TestDispatcher_EmitAfterClose(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8, DropIfFull: true}, sink)
	d.Close()

	d.Emit(context.Background(), testEvent("rate_limit_denied"))

	select {
	case got := <-sink.Events():
		t.Fatalf("event delivered after close: %+v", got)
	default:
	}
}

func TestDispatcher_CloseIdempotent(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, NewChannelSink(1))
	d.Close()
	d.Close()
}
