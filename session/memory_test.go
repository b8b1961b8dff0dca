package session

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	sess := liveSession("sid-m")
	if err := m.Save(ctx, sess, time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	// mutating the caller's copy must not leak into the store
	sess.Username = "mallory"
	got, err := m.Get(ctx, "sid-m")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Username != "jane.doe" {
		t.Fatalf("store aliased caller session: %q", got.Username)
	}

	if err := m.Delete(ctx, "sid-m"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.Delete(ctx, "sid-m"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := m.Get(ctx, "sid-m"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreLazyExpiry(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	m.SetClock(func() time.Time { return now })

	sess := liveSession("sid-exp")
	sess.CreatedAt = now.Unix()
	sess.ExpiresAt = now.Add(30 * time.Minute).Unix()
	if err := m.Save(ctx, sess, 30*time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	now = now.Add(29 * time.Minute)
	if _, err := m.Get(ctx, "sid-exp"); err != nil {
		t.Fatalf("expected session valid before expiry: %v", err)
	}

	now = now.Add(time.Minute)
	if _, err := m.Get(ctx, "sid-exp"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry at the 30 minute mark, got %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("expected expired entry to be dropped, len=%d", m.Len())
	}
}

func TestMemoryStoreDeleteAllForUser(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := m.Save(ctx, liveSession(id), time.Minute); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	other := liveSession("c")
	other.UserID = "u-9"
	if err := m.Save(ctx, other, time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	removed, err := m.DeleteAllForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("DeleteAllForUser: %v", err)
	}
	sort.Strings(removed)
	if len(removed) != 2 || removed[0] != "a" || removed[1] != "b" || m.Len() != 1 {
		t.Fatalf("expected a and b removed and 1 left, got %v removed, %d left", removed, m.Len())
	}
}
