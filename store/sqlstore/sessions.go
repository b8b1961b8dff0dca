package sqlstore

import (
	"context"
	"time"

	tenantAuth "github.com/MrEthical07/tenantAuth"
)

func (s *Store) RecordSession(ctx context.Context, rec tenantAuth.SessionRecord) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		insert into sessions (id, account_id, ip_address, user_agent, payload, last_activity, expires_at)
		values (?, ?, ?, ?, ?, ?, ?)
	`), rec.ID, rec.AccountID, rec.IPAddress, rec.UserAgent, rec.Payload, rec.LastActivity, rec.ExpiresAt)
	return mapError(err)
}

// EndSession marks the durable row as ended by pulling expires_at back to
// endedAt. Unknown ids are ignored.
func (s *Store) EndSession(ctx context.Context, sessionID string, endedAt time.Time) error {
	ts := endedAt.Unix()
	_, err := s.db.ExecContext(ctx, s.rebind(`
		update sessions
		set last_activity = ?, expires_at = case when expires_at > ? then ? else expires_at end
		where id = ?
	`), ts, ts, ts, sessionID)
	return mapError(err)
}

// GetSessionRecord loads one durable session row.
func (s *Store) GetSessionRecord(ctx context.Context, sessionID string) (*tenantAuth.SessionRecord, error) {
	var rec tenantAuth.SessionRecord
	err := s.db.QueryRowContext(ctx, s.rebind(`
		select id, account_id, ip_address, user_agent, payload, last_activity, expires_at
		from sessions where id = ?
	`), sessionID).Scan(&rec.ID, &rec.AccountID, &rec.IPAddress, &rec.UserAgent, &rec.Payload, &rec.LastActivity, &rec.ExpiresAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &rec, nil
}

// PruneSessions deletes durable rows that expired before cutoff and returns
// how many were removed.
func (s *Store) PruneSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`delete from sessions where expires_at < ?`), cutoff.Unix())
	if err != nil {
		return 0, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(err)
	}
	return n, nil
}
