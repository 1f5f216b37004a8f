package sessionguard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

type blockingSink struct {
	release chan struct{}
	seen    chan AuditEvent
}

func (s *blockingSink) Emit(ctx context.Context, event AuditEvent) {
	<-s.release
	s.seen <- event
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: AuditLogin})
	}
	d.Close()

	for i := 0; i < 5; i++ {
		select {
		case <-sink.Events():
		default:
			t.Fatalf("event %d not delivered before Close returned", i)
		}
	}
}

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{}), seen: make(chan AuditEvent, 8)}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	defer close(sink.release)

	// One event occupies the goroutine, one fills the buffer, the rest drop.
	for i := 0; i < 6; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: AuditLogin})
	}

	// Emit races the consumer goroutine pulling the first event, so at
	// least 3 of the 6 must drop even in the most favorable interleaving.
	if dropped := d.Dropped(); dropped < 3 {
		t.Fatalf("expected drops under a full buffer, got %d", dropped)
	}
}

func TestDispatcherEmitAfterClose(t *testing.T) {
	sink := NewChannelSink(4)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 4}, sink)
	d.Close()
	d.Close() // idempotent

	d.Emit(context.Background(), AuditEvent{EventType: AuditLogin})

	select {
	case <-sink.Events():
		t.Fatal("event delivered after Close")
	default:
	}
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("disabled audit config should yield a nil dispatcher")
	}
	d.Emit(context.Background(), AuditEvent{}) // nil-safe
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		EventType: AuditReplayDetected,
		IP:        "10.0.0.1",
	})

	line := strings.TrimSpace(buf.String())
	var decoded AuditEvent
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("output is not one JSON object per line: %v", err)
	}
	if decoded.EventType != AuditReplayDetected || decoded.IP != "10.0.0.1" {
		t.Fatalf("unexpected decoded event %+v", decoded)
	}
}

func TestEngineAuditsReplay(t *testing.T) {
	sink := NewChannelSink(32)

	cfg := engineTestConfig()
	cfg.Audit = AuditConfig{Enabled: true, BufferSize: 32}

	_, rdb := newTestRedis(t)
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(newFakeUserProvider()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ctx := clientContext()
	_, refresh, err := engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, _, err := engine.Refresh(ctx, refresh); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if _, _, err := engine.Refresh(ctx, refresh); !errors.Is(err, ErrReplayedCredential) {
		t.Fatalf("expected replay, got %v", err)
	}

	engine.Close() // drains

	var types []string
	for {
		select {
		case ev := <-sink.Events():
			types = append(types, ev.EventType)
			if ev.Timestamp.IsZero() {
				t.Fatal("audit event missing timestamp")
			}
		default:
			if !containsString(types, AuditLogin) || !containsString(types, AuditRefresh) || !containsString(types, AuditReplayDetected) {
				t.Fatalf("missing expected audit events, saw %v", types)
			}
			return
		}
	}
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
