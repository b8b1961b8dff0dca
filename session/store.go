package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned for unknown, destroyed, or expired handles.
var ErrNotFound = errors.New("session not found")

// ErrRedisUnavailable wraps Redis transport failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// KEYS: session, user index, tenant counter. ARGV: session id.
const deleteSessionScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
  local count = tonumber(redis.call("GET", KEYS[3]) or "0")
  if count > 1 then
    redis.call("DECR", KEYS[3])
  elseif count == 1 then
    redis.call("DEL", KEYS[3])
  end
end
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store keeps live sessions in Redis. Each session is one key whose TTL
// matches its absolute expiry; a per-user set indexes handles for
// logout-all, and a per-tenant counter tracks live sessions.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewStore creates a Store using prefix as the key namespace.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "tas"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

// SetClock replaces time.Now for expiry checks. Call it before the store is
// shared.
func (s *Store) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

func (s *Store) tenantCountKey(tenantID string) string {
	return s.prefix + ":t:" + normalizeTenantID(tenantID) + ":count"
}

func normalizeTenantID(tenantID string) string {
	if tenantID == "" {
		return "0"
	}
	return tenantID
}

// Save writes sess with the given TTL and indexes it under its user.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("session ttl must be > 0")
	}
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	sessionKey := s.key(sess.SessionID)
	userKey := s.userKey(sess.UserID)
	countKey := s.tenantCountKey(sess.TenantID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey, data, ttl)
		pipe.SAdd(ctx, userKey, sess.SessionID)
		pipe.Expire(ctx, userKey, ttl)
		pipe.Incr(ctx, countKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get loads a session. A session whose ExpiresAt has passed is removed and
// reported as ErrNotFound even if Redis has not evicted it yet.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID

	if sess.Expired(s.now().Unix()) {
		if _, err := s.deleteSessionAndIndex(ctx, sess.TenantID, sess.UserID, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	return sess, nil
}

// Delete removes a session. Unknown handles are a no-op.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		// Unreadable blob: drop the key, there is no index entry to find.
		if delErr := s.redis.Del(ctx, key).Err(); delErr != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, delErr)
		}
		return nil
	}

	_, err = s.deleteSessionAndIndex(ctx, sess.TenantID, sess.UserID, sessionID)
	return err
}

// DeleteAllForUser removes every indexed session of userID and returns the
// handles of the live sessions it destroyed.
//
// Not atomic: a session saved between the index read and the deletes
// survives this call.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.ActiveSessionIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	removed := make([]string, 0, len(ids))
	for _, sid := range ids {
		data, err := s.redis.Get(ctx, s.key(sid)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				if err := s.redis.SRem(ctx, s.userKey(userID), sid).Err(); err != nil {
					return removed, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
				}
				continue
			}
			return removed, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}

		tenantID := ""
		if sess, decErr := Decode(data); decErr == nil {
			tenantID = sess.TenantID
		}
		existed, err := s.deleteSessionAndIndex(ctx, tenantID, userID, sid)
		if err != nil {
			return removed, err
		}
		if existed {
			removed = append(removed, sid)
		}
	}

	return removed, nil
}

// ActiveSessionIDs returns the handles indexed for userID. Entries whose key
// already expired may still be listed.
func (s *Store) ActiveSessionIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// TenantSessionCount returns the tracked live-session counter for a tenant.
// Sessions that expire through Redis TTL are not subtracted, so the value is
// an upper bound.
func (s *Store) TenantSessionCount(ctx context.Context, tenantID string) (int, error) {
	count, err := s.redis.Get(ctx, s.tenantCountKey(tenantID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// Ping returns a point-in-time availability check and its latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

// deleteSessionAndIndex reports whether the session key still existed.
func (s *Store) deleteSessionAndIndex(ctx context.Context, tenantID, userID, sessionID string) (bool, error) {
	keys := []string{s.key(sessionID), s.userKey(userID), s.tenantCountKey(tenantID)}

	existed, err := deleteSessionLua.Run(ctx, s.redis, keys, sessionID).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return existed == 1, nil
}
