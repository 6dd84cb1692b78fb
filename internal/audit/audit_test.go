package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

func TestNewEventAssignsIDAndTimestamp(t *testing.T) {
	a := NewEvent(EventFailureRecorded, "10.0.0.1")
	b := NewEvent(EventFailureRecorded, "10.0.0.1")

	if _, err := uuid.Parse(a.ID); err != nil {
		t.Fatalf("expected uuid ID, got %q: %v", a.ID, err)
	}
	if a.ID == b.ID {
		t.Fatal("expected distinct event IDs")
	}
	if a.Timestamp.IsZero() || a.Timestamp.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", a.Timestamp)
	}
	if a.EventType != EventFailureRecorded || a.Identifier != "10.0.0.1" {
		t.Fatalf("unexpected event %+v", a)
	}
}

func TestDispatcherDisabledReturnsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &countingSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	// nil receiver is safe
	d.Emit(context.Background(), Event{})
	d.Close()
	if d.Dropped() != 0 || d.Delivered() != 0 {
		t.Fatal("expected zero counters on nil dispatcher")
	}
}

func TestDispatcherDeliversOnClose(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 64}, sink)

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), NewEvent(EventFailureRecorded, "x"))
	}
	d.Close()

	if got := sink.count.Load(); got != 50 {
		t.Fatalf("expected 50 delivered events, got %d", got)
	}
	if d.Delivered() != 50 {
		t.Fatalf("expected Delivered 50, got %d", d.Delivered())
	}
}

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// One event is held by the sink, one fills the buffer, the rest drop.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "e"})
	}

	deadline := time.Now().Add(time.Second)
	for d.Dropped() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events with full buffer")
	}

	close(sink.gate)
	d.Close()
}

func TestDispatcherBlockingRespectsContext(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: false}, sink)

	d.Emit(context.Background(), Event{})
	d.Emit(context.Background(), Event{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	d.Emit(ctx, Event{})
	if time.Since(start) > time.Second {
		t.Fatal("expected blocked Emit to return on context deadline")
	}
	if d.Dropped() != 0 {
		t.Fatal("blocking mode must not count drops")
	}

	close(sink.gate)
	d.Close()
}

func TestDispatcherEmitAfterCloseIsIgnored(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	d.Close()
	d.Emit(context.Background(), Event{})
	d.Close()

	if sink.count.Load() != 0 {
		t.Fatal("expected no delivery after close")
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	ev := NewEvent(EventIdentifierBanned, "2001:db8::1")
	ev.Attempts = 10
	ev.Outcome = "banned"
	ev.BanDuration = "24 hours"
	sink.Emit(context.Background(), ev)

	line := strings.TrimSpace(buf.String())
	var got map[string]any
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("invalid JSON line %q: %v", line, err)
	}
	if got["event_type"] != EventIdentifierBanned || got["identifier"] != "2001:db8::1" {
		t.Fatalf("unexpected payload %v", got)
	}
	if got["ban_duration"] != "24 hours" || got["attempts"] != float64(10) {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestSlogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	sink := NewSlogSink(logger)

	ev := NewEvent(EventChallengeRequired, "10.1.1.1")
	ev.Attempts = 3
	ev.Metadata = map[string]string{"source": "test"}
	sink.Emit(context.Background(), ev)

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid slog output %q: %v", buf.String(), err)
	}
	if got["msg"] != "audit" || got["event_type"] != EventChallengeRequired {
		t.Fatalf("unexpected record %v", got)
	}
	if got["meta.source"] != "test" || got["audit_id"] != ev.ID {
		t.Fatalf("unexpected record %v", got)
	}
}
