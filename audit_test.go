package tenantAuth

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAuditLoginEvents(t *testing.T) {
	store := newMockStore()
	seedTenant(t, store)
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false

	sink := NewChannelSink(16)
	engine, _, done := newTestEngine(t, cfg, store, func(b *Builder) {
		b.WithAuditSink(sink)
	})
	defer done()

	_, err := engine.Login(context.Background(), LoginRequest{Username: "jane.doe", Password: "wrong"}, RequestMetadata{
		RemoteAddr: "192.0.2.10:1234",
		RequestID:  "req-1",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	res := mustLogin(t, engine, "jane.doe")

	failure := nextEvent(t, sink)
	if failure.EventType != auditEventLoginFailure || failure.Success {
		t.Fatalf("expected login failure event, got %+v", failure)
	}
	if failure.IP != "192.0.2.10" || failure.RequestID != "req-1" || failure.Error != "invalid_credentials" {
		t.Fatalf("unexpected failure event: %+v", failure)
	}
	if failure.Metadata["reason"] != "password_mismatch" {
		t.Fatalf("unexpected reason %q", failure.Metadata["reason"])
	}

	success := nextEvent(t, sink)
	if success.EventType != auditEventLoginSuccess || !success.Success {
		t.Fatalf("expected login success event, got %+v", success)
	}
	if success.SessionID != res.SessionHandle || success.TenantID != "ent-1" || success.UserID != "acc-emp" {
		t.Fatalf("unexpected success event: %+v", success)
	}
}

func TestAuditNeverCarriesPasswords(t *testing.T) {
	store := newMockStore()
	seedTenant(t, store)
	cfg := testConfig()
	cfg.Audit.Enabled = true

	var buf bytes.Buffer
	engine, _, done := newTestEngine(t, cfg, store, func(b *Builder) {
		b.WithAuditSink(NewJSONWriterSink(&buf))
	})

	_, _ = engine.Login(context.Background(), LoginRequest{Username: "jane.doe", Password: "hunter2-secret"}, RequestMetadata{})
	mustLogin(t, engine, "jane.doe")
	done()

	out := buf.String()
	if strings.Contains(out, "hunter2-secret") || strings.Contains(out, "correct-horse") || strings.Contains(out, "$2a$") {
		t.Fatalf("audit output leaked secrets:\n%s", out)
	}
	if !strings.Contains(out, auditEventLoginSuccess) {
		t.Fatalf("expected flushed events on Close, got:\n%s", out)
	}
}

func nextEvent(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()
	select {
	case event := <-sink.Events():
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
		return AuditEvent{}
	}
}

type gateSink struct {
	release chan struct{}
}

func (s gateSink) Emit(context.Context, AuditEvent) { <-s.release }

func TestAuditDropsAreCounted(t *testing.T) {
	store := newMockStore()
	seedTenant(t, store)
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 1
	cfg.Audit.DropIfFull = true
	cfg.Metrics.Enabled = true

	sink := gateSink{release: make(chan struct{})}
	engine, _, done := newTestEngine(t, cfg, store, func(b *Builder) {
		b.WithAuditSink(sink).WithMetricsRegistry(prometheus.NewRegistry())
	})
	defer done()
	defer close(sink.release)

	for i := 0; i < 4; i++ {
		mustLogin(t, engine, "jane.doe")
	}

	dropped := engine.AuditDropped()
	if dropped == 0 {
		t.Fatal("expected dropped audit events with a stalled sink")
	}
	if got := testutil.ToFloat64(engine.Metrics().counters[MetricAuditDropped]); got != float64(dropped) {
		t.Fatalf("audit_dropped counter %v, dispatcher reports %d", got, dropped)
	}
}

func TestAuditTimestampsUseEngineClock(t *testing.T) {
	store := newMockStore()
	seedTenant(t, store)
	cfg := testConfig()
	cfg.Audit.Enabled = true

	fixed := time.Now().Add(-3 * time.Hour).Truncate(time.Second)
	sink := NewChannelSink(4)
	engine, _, done := newTestEngine(t, cfg, store, func(b *Builder) {
		b.WithAuditSink(sink).WithClock(func() time.Time { return fixed })
	})
	defer done()

	mustLogin(t, engine, "jane.doe")
	ev := nextEvent(t, sink)
	if !ev.Timestamp.Equal(fixed) {
		t.Fatalf("expected timestamp %v, got %v", fixed, ev.Timestamp)
	}
}
