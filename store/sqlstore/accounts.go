package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	tenantAuth "github.com/MrEthical07/tenantAuth"
)

const accountColumns = `id, first_name, last_name, username, email, phone, password_hash,
	entity_type, status, entity_id, role_binding_id, policy,
	created_by, created_at, updated_by, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*tenantAuth.Account, error) {
	var (
		a                                 tenantAuth.Account
		email, phone, entityID, bindingID sql.NullString
		entityType, status                string
		createdAt, updatedAt              int64
	)
	err := row.Scan(
		&a.ID, &a.FirstName, &a.LastName, &a.Username, &email, &phone, &a.PasswordHash,
		&entityType, &status, &entityID, &bindingID, &a.Policy,
		&a.CreatedBy, &createdAt, &a.UpdatedBy, &updatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	a.Email = email.String
	a.Phone = phone.String
	a.EntityID = entityID.String
	a.RoleBindingID = bindingID.String
	a.EntityType = tenantAuth.EntityType(entityType)
	a.Status = tenantAuth.AccountStatus(status)
	a.CreatedAt = fromUnix(createdAt)
	a.UpdatedAt = fromUnix(updatedAt)
	return &a, nil
}

// FindAccount matches identifier against username, email, and phone, in
// that order of preference.
func (s *Store) FindAccount(ctx context.Context, identifier string) (*tenantAuth.Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, tenantAuth.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, s.rebind(`
		select `+accountColumns+`
		from accounts
		where username = ? or email = ? or phone = ?
		order by case when username = ? then 0 when email = ? then 1 else 2 end
		limit 1
	`), identifier, identifier, identifier, identifier, identifier)
	return scanAccount(row)
}

// GetAccount loads an account by id.
func (s *Store) GetAccount(ctx context.Context, id string) (*tenantAuth.Account, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`select `+accountColumns+` from accounts where id = ?`), id)
	return scanAccount(row)
}

func (s *Store) UpdatePasswordHash(ctx context.Context, accountID, hash string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		update accounts set password_hash = ?, updated_at = ? where id = ?
	`), hash, time.Now().Unix(), accountID)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return tenantAuth.ErrNotFound
	}
	return nil
}

// SetAccountStatus activates or deactivates an account. Inactive accounts
// cannot log in.
func (s *Store) SetAccountStatus(ctx context.Context, accountID string, status tenantAuth.AccountStatus, updatedBy string) error {
	if status != tenantAuth.AccountActive && status != tenantAuth.AccountInactive {
		return fmt.Errorf("%w: unknown status %q", tenantAuth.ErrInvalidRequest, status)
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`
		update accounts set status = ?, updated_by = ?, updated_at = ? where id = ?
	`), string(status), updatedBy, time.Now().Unix(), accountID)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return tenantAuth.ErrNotFound
	}
	return nil
}

func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, `select 1 from accounts where username = ?`, username)
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `select 1 from accounts where email = ?`, email)
}

func (s *Store) PhoneExists(ctx context.Context, phone string) (bool, error) {
	return s.exists(ctx, `select 1 from accounts where phone = ?`, phone)
}

func (s *Store) exists(ctx context.Context, query string, arg string) (bool, error) {
	if arg == "" {
		return false, nil
	}
	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(query+` limit 1`), arg).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapError(err)
	}
	return true, nil
}

func insertAccount(ctx context.Context, ex execer, rebind func(string) string, a *tenantAuth.Account) error {
	_, err := ex.ExecContext(ctx, rebind(`
		insert into accounts (`+accountColumns+`)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		a.ID, a.FirstName, a.LastName, a.Username, nullIfEmpty(a.Email), nullIfEmpty(a.Phone), a.PasswordHash,
		string(a.EntityType), string(a.Status), nullIfEmpty(a.EntityID), nullIfEmpty(a.RoleBindingID), a.Policy,
		a.CreatedBy, unix(a.CreatedAt), a.UpdatedBy, unix(a.UpdatedAt),
	)
	return mapError(err)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
