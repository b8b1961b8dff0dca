package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionStoreTest(t *testing.T) (*Store, *redis.Client, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "tas")
	return store, rdb, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func liveSession(id string) *Session {
	s := sampleSession()
	now := time.Now()
	s.SessionID = id
	s.CreatedAt = now.Unix()
	s.ExpiresAt = now.Add(30 * time.Minute).Unix()
	return s
}

func TestStoreSaveGet(t *testing.T) {
	store, _, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	sess := liveSession("sid-1")
	if err := store.Save(ctx, sess, 30*time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(ctx, "sid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if *got != *sess {
		t.Fatalf("stored session differs:\n got %+v\nwant %+v", got, sess)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreTTLEviction(t *testing.T) {
	store, _, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, liveSession("sid-ttl"), time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "sid-ttl"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after ttl, got %v", err)
	}
}

func TestStoreEnforcesAbsoluteExpiry(t *testing.T) {
	store, rdb, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	sess := liveSession("sid-old")
	sess.ExpiresAt = time.Now().Add(-time.Second).Unix()
	// Redis would keep it for an hour; the stored expiry must still win.
	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := store.Get(ctx, "sid-old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be rejected, got %v", err)
	}
	exists, err := rdb.Exists(ctx, store.key("sid-old")).Result()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists != 0 {
		t.Fatal("expected expired session key to be removed")
	}
}

func TestStoreDeleteIdempotentCounterAndIndex(t *testing.T) {
	store, rdb, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()
	sess := liveSession("sid-del")

	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.Delete(ctx, sess.SessionID); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
	}

	count, err := store.TenantSessionCount(ctx, sess.TenantID)
	if err != nil {
		t.Fatalf("tenant count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected tenant count 0, got %d", count)
	}

	members, err := rdb.SMembers(ctx, store.userKey(sess.UserID)).Result()
	if err != nil {
		t.Fatalf("smembers: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected no user index members, got %v", members)
	}
}

func TestStoreDeleteCorruptBlob(t *testing.T) {
	store, rdb, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := rdb.Set(ctx, store.key("sid-bad"), []byte("bad"), time.Hour).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.Get(ctx, "sid-bad"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if err := store.Delete(ctx, "sid-bad"); err != nil {
		t.Fatalf("delete corrupt: %v", err)
	}
	if _, err := store.Get(ctx, "sid-bad"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected key gone, got %v", err)
	}
}

func TestStoreDeleteAllForUser(t *testing.T) {
	store, _, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.Save(ctx, liveSession(fmt.Sprintf("sid-%d", i)), time.Hour); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	other := liveSession("sid-other")
	other.UserID = "u-2"
	if err := store.Save(ctx, other, time.Hour); err != nil {
		t.Fatalf("save other: %v", err)
	}

	removed, err := store.DeleteAllForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("DeleteAllForUser: %v", err)
	}
	sort.Strings(removed)
	if len(removed) != 3 || removed[0] != "sid-0" || removed[2] != "sid-2" {
		t.Fatalf("expected sid-0..sid-2 removed, got %v", removed)
	}
	for i := 0; i < 3; i++ {
		if _, err := store.Get(ctx, fmt.Sprintf("sid-%d", i)); !errors.Is(err, ErrNotFound) {
			t.Fatalf("sid-%d should be gone, got %v", i, err)
		}
	}
	if _, err := store.Get(ctx, "sid-other"); err != nil {
		t.Fatalf("other user's session must survive: %v", err)
	}

	count, err := store.TenantSessionCount(ctx, "t-1")
	if err != nil {
		t.Fatalf("tenant count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected tenant count 1, got %d", count)
	}
}

func TestStoreDeleteAllForUserSkipsEvictedKeys(t *testing.T) {
	store, _, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	for _, id := range []string{"sid-live", "sid-gone"} {
		if err := store.Save(ctx, liveSession(id), time.Hour); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	mr.Del(store.key("sid-gone"))

	removed, err := store.DeleteAllForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("DeleteAllForUser: %v", err)
	}
	if len(removed) != 1 || removed[0] != "sid-live" {
		t.Fatalf("expected only sid-live reported, got %v", removed)
	}
}

func TestStoreExpiryUsesInjectedClock(t *testing.T) {
	store, _, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	past := time.Unix(1600000000, 0)
	now := past
	store.SetClock(func() time.Time { return now })

	sess := liveSession("sid-clock")
	sess.CreatedAt = past.Unix()
	sess.ExpiresAt = past.Add(30 * time.Minute).Unix()
	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := store.Get(ctx, "sid-clock"); err != nil {
		t.Fatalf("expected session valid on the store clock: %v", err)
	}

	now = past.Add(30 * time.Minute)
	if _, err := store.Get(ctx, "sid-clock"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry on the store clock, got %v", err)
	}
}

func TestTenantCounterNeverNegativeUnderConcurrentOps(t *testing.T) {
	store, _, _, done := newSessionStoreTest(t)
	defer done()

	ctx := context.Background()
	const (
		sessionsN = 24
		workers   = 16
		rounds    = 50
	)

	for i := 0; i < sessionsN; i++ {
		if err := store.Save(ctx, liveSession(fmt.Sprintf("sid-%d", i)), time.Hour); err != nil {
			t.Fatalf("save session %d failed: %v", i, err)
		}
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func(workerID int) {
			defer wg.Done()
			<-start

			for r := 0; r < rounds; r++ {
				sid := fmt.Sprintf("sid-%d", (workerID+r)%sessionsN)
				if (workerID+r)%4 == 0 {
					if _, err := store.DeleteAllForUser(ctx, "u-1"); err != nil {
						t.Errorf("delete-all failed: %v", err)
					}
					continue
				}
				if err := store.Delete(ctx, sid); err != nil {
					t.Errorf("delete failed: %v", err)
				}
			}
		}(w)
	}

	close(start)
	wg.Wait()

	count, err := store.TenantSessionCount(ctx, "t-1")
	if err != nil {
		t.Fatalf("TenantSessionCount failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected counter to settle at 0, got %d", count)
	}
}

func TestStoreRedisDown(t *testing.T) {
	store, _, mr, done := newSessionStoreTest(t)
	defer done()
	mr.Close()

	if _, err := store.Get(context.Background(), "sid"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Ping(context.Background()); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ping failure, got %v", err)
	}
}
