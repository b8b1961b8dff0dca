package tenantAuth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/tenantAuth/internal"
	"github.com/MrEthical07/tenantAuth/session"
)

func TestValidateSessionRoundTrip(t *testing.T) {
	store := newMockStore()
	seedTenant(t, store)
	engine, _, done := newTestEngine(t, testConfig(), store)
	defer done()

	res := mustLogin(t, engine, "jane.doe")

	v, err := engine.ValidateSession(context.Background(), res.SessionHandle)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if !v.SessionValid || v.StatusCode != 200 || v.Message != MessageSessionValid {
		t.Fatalf("expected valid session, got %+v", v)
	}

	got, want := v.Session, res.Session
	if got.UserID != want.UserID || got.Username != want.Username || got.Email != want.Email ||
		got.Phone != want.Phone || got.EntityType != want.EntityType || got.Tenant != want.Tenant {
		t.Fatalf("identity drifted: got %+v want %+v", got, want)
	}
	if !got.IssuedAt.Equal(want.IssuedAt) || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("timestamps drifted: got %v/%v want %v/%v", got.IssuedAt, got.ExpiresAt, want.IssuedAt, want.ExpiresAt)
	}
}

func TestValidateSessionRejectsUnknownHandles(t *testing.T) {
	store := newMockStore()
	engine, _, done := newTestEngine(t, testConfig(), store)
	defer done()

	id, err := internal.NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID failed: %v", err)
	}

	for _, handle := range []string{"", "garbage", "!!!!!!!!!!!!!!!!!!!!!!", id.String()} {
		v, err := engine.ValidateSession(context.Background(), handle)
		if err != nil {
			t.Fatalf("ValidateSession(%q) failed: %v", handle, err)
		}
		if v.SessionValid || v.StatusCode != 403 || v.Message != MessageSessionInvalid {
			t.Fatalf("ValidateSession(%q): expected 403 invalid, got %+v", handle, v)
		}
		if !errors.Is(v.Err, ErrSessionInvalid) {
			t.Fatalf("expected ErrSessionInvalid, got %v", v.Err)
		}
	}
}

func TestLogoutDestroysSessionAndIsIdempotent(t *testing.T) {
	store := newMockStore()
	seedTenant(t, store)
	engine, _, done := newTestEngine(t, testConfig(), store)
	defer done()

	ctx := context.Background()
	res := mustLogin(t, engine, "jane.doe")

	for i := 0; i < 2; i++ {
		v, err := engine.Logout(ctx, res.SessionHandle)
		if err != nil {
			t.Fatalf("Logout #%d failed: %v", i+1, err)
		}
		if v.StatusCode != 200 || v.Message != MessageLogoutSuccessful {
			t.Fatalf("Logout #%d: got %+v", i+1, v)
		}
	}

	v, err := engine.ValidateSession(ctx, res.SessionHandle)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if v.SessionValid {
		t.Fatal("session resurrected after logout")
	}
	if _, ok := store.ended[res.SessionHandle]; !ok {
		t.Fatal("expected durable session to be closed")
	}

	if v, err := engine.Logout(ctx, "never-issued"); err != nil || v.StatusCode != 200 {
		t.Fatalf("Logout of unknown handle: %+v err=%v", v, err)
	}
}

func TestValidateSessionEnforcesAbsoluteExpiry(t *testing.T) {
	store := newMockStore()
	seedTenant(t, store)

	now := time.Now()
	clock := func() time.Time { return now }

	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = false
	memory := session.NewMemoryStore()
	engine, _, done := newTestEngine(t, cfg, store, func(b *Builder) {
		b.WithRedis(nil).WithSessionStore(memory).WithClock(func() time.Time { return clock() })
	})
	defer done()

	res := mustLogin(t, engine, "jane.doe")

	clock = func() time.Time { return now.Add(cfg.Session.Lifetime - time.Second) }
	v, err := engine.ValidateSession(context.Background(), res.SessionHandle)
	if err != nil || !v.SessionValid {
		t.Fatalf("expected session valid just before expiry, got %+v err=%v", v, err)
	}

	clock = func() time.Time { return now.Add(cfg.Session.Lifetime) }
	v, err = engine.ValidateSession(context.Background(), res.SessionHandle)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if v.SessionValid || v.StatusCode != 403 {
		t.Fatalf("expected expired session to be invalid, got %+v", v)
	}
	if memory.Len() != 0 {
		t.Fatalf("expected expired session removed, %d left", memory.Len())
	}

	clock = func() time.Time { return now }
	v, _ = engine.ValidateSession(context.Background(), res.SessionHandle)
	if v.SessionValid {
		t.Fatal("expired session came back")
	}
}

func TestSessionStoresShareEngineClock(t *testing.T) {
	past := time.Now().Add(-24 * time.Hour)
	clock := func() time.Time { return past }

	for name, opt := range map[string]func(*Builder){
		"redis":  func(b *Builder) { b.WithClock(clock) },
		"memory": func(b *Builder) { b.WithRedis(nil).WithSessionStore(session.NewMemoryStore()).WithClock(clock) },
	} {
		t.Run(name, func(t *testing.T) {
			store := newMockStore()
			seedTenant(t, store)
			cfg := testConfig()
			cfg.Security.EnableLoginThrottle = false
			engine, _, done := newTestEngine(t, cfg, store, opt)
			defer done()

			res := mustLogin(t, engine, "jane.doe")
			v, err := engine.ValidateSession(context.Background(), res.SessionHandle)
			if err != nil || !v.SessionValid {
				t.Fatalf("session issued on the engine clock must validate on it, got %+v err=%v", v, err)
			}
		})
	}
}

func TestValidateSessionRequiresIdentityAttributes(t *testing.T) {
	store := newMockStore()
	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = false
	memory := session.NewMemoryStore()
	engine, _, done := newTestEngine(t, cfg, store, func(b *Builder) {
		b.WithRedis(nil).WithSessionStore(memory)
	})
	defer done()

	now := time.Now()
	cases := map[string]*session.Session{
		"no username":         {UserID: "u1", EntityType: "101"},
		"unknown entity type": {UserID: "u1", Username: "a", EntityType: "SuperAdmin"},
		"employee no tenant":  {UserID: "u1", Username: "a", EntityType: "102"},
	}
	for name, sess := range cases {
		id, err := internal.NewSessionID()
		if err != nil {
			t.Fatalf("NewSessionID failed: %v", err)
		}
		sess.SessionID = id.String()
		sess.CreatedAt = now.Unix()
		sess.ExpiresAt = now.Add(time.Hour).Unix()
		if err := memory.Save(context.Background(), sess, time.Hour); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		v, err := engine.ValidateSession(context.Background(), sess.SessionID)
		if err != nil {
			t.Fatalf("%s: ValidateSession failed: %v", name, err)
		}
		if v.SessionValid {
			t.Fatalf("%s: expected invalid session", name)
		}
	}
}

func TestLogoutAll(t *testing.T) {
	store := newMockStore()
	seedTenant(t, store)
	engine, _, done := newTestEngine(t, testConfig(), store)
	defer done()

	ctx := context.Background()
	a := mustLogin(t, engine, "jane.doe")
	b := mustLogin(t, engine, "jane@example.com")
	other := mustLogin(t, engine, "org.admin")

	n, err := engine.LogoutAll(ctx, "acc-emp")
	if err != nil {
		t.Fatalf("LogoutAll failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 sessions removed, got %d", n)
	}

	for _, handle := range []string{a.SessionHandle, b.SessionHandle} {
		v, _ := engine.ValidateSession(ctx, handle)
		if v.SessionValid {
			t.Fatalf("session %s survived LogoutAll", handle)
		}
	}
	if v, _ := engine.ValidateSession(ctx, other.SessionHandle); !v.SessionValid {
		t.Fatal("LogoutAll removed another user's session")
	}

	store.mu.Lock()
	_, endedA := store.ended[a.SessionHandle]
	_, endedB := store.ended[b.SessionHandle]
	_, endedOther := store.ended[other.SessionHandle]
	store.mu.Unlock()
	if !endedA || !endedB {
		t.Fatal("LogoutAll left durable session records open")
	}
	if endedOther {
		t.Fatal("LogoutAll closed another user's durable record")
	}

	if _, err := engine.LogoutAll(ctx, ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestValidateSessionStoreOutage(t *testing.T) {
	store := newMockStore()
	seedTenant(t, store)
	engine, mr, done := newTestEngine(t, testConfig(), store)
	defer done()

	res := mustLogin(t, engine, "jane.doe")
	mr.Close()

	if _, err := engine.ValidateSession(context.Background(), res.SessionHandle); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := engine.Logout(context.Background(), res.SessionHandle); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
