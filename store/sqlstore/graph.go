package sqlstore

import (
	"context"
	"errors"
	"fmt"

	tenantAuth "github.com/MrEthical07/tenantAuth"
)

func (s *Store) GetEntity(ctx context.Context, id string) (*tenantAuth.Entity, error) {
	var (
		e                    tenantAuth.Entity
		entityType           string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		select id, name, description, type, policy, created_by, created_at, updated_by, updated_at
		from entities where id = ?
	`), id).Scan(&e.ID, &e.Name, &e.Description, &entityType, &e.Policy, &e.CreatedBy, &createdAt, &e.UpdatedBy, &updatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	e.Type = tenantAuth.EntityType(entityType)
	e.CreatedAt = fromUnix(createdAt)
	e.UpdatedAt = fromUnix(updatedAt)
	return &e, nil
}

func (s *Store) GetRole(ctx context.Context, id string) (*tenantAuth.Role, error) {
	var (
		r                    tenantAuth.Role
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		select id, name, description, created_by, created_at, updated_by, updated_at
		from roles where id = ?
	`), id).Scan(&r.ID, &r.Name, &r.Description, &r.CreatedBy, &createdAt, &r.UpdatedBy, &updatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	r.CreatedAt = fromUnix(createdAt)
	r.UpdatedAt = fromUnix(updatedAt)
	return &r, nil
}

func (s *Store) GetRoleBinding(ctx context.Context, id string) (*tenantAuth.RoleBinding, error) {
	var (
		b                    tenantAuth.RoleBinding
		status               string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		select id, entity_id, role_id, name, description, status, policy,
			created_by, created_at, updated_by, updated_at
		from entity_role_bindings where id = ?
	`), id).Scan(&b.ID, &b.EntityID, &b.RoleID, &b.Name, &b.Description, &status, &b.Policy,
		&b.CreatedBy, &createdAt, &b.UpdatedBy, &updatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	b.Status = tenantAuth.AccountStatus(status)
	b.CreatedAt = fromUnix(createdAt)
	b.UpdatedAt = fromUnix(updatedAt)
	return &b, nil
}

func (s *Store) CreateEntity(ctx context.Context, e *tenantAuth.Entity) error {
	if e == nil {
		return fmt.Errorf("%w: nil entity", tenantAuth.ErrInvalidRequest)
	}
	return insertEntity(ctx, s.db, s.rebind, e)
}

func (s *Store) CreateRole(ctx context.Context, r *tenantAuth.Role) error {
	if r == nil {
		return fmt.Errorf("%w: nil role", tenantAuth.ErrInvalidRequest)
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		insert into roles (id, name, description, created_by, created_at, updated_by, updated_at)
		values (?, ?, ?, ?, ?, ?, ?)
	`), r.ID, r.Name, r.Description, r.CreatedBy, unix(r.CreatedAt), r.UpdatedBy, unix(r.UpdatedAt))
	return mapError(err)
}

func (s *Store) CreateRoleBinding(ctx context.Context, b *tenantAuth.RoleBinding) error {
	if b == nil {
		return fmt.Errorf("%w: nil role binding", tenantAuth.ErrInvalidRequest)
	}
	return insertRoleBinding(ctx, s.db, s.rebind, b)
}

// Provision writes the entity (when present), the role binding (when
// present), and the account in one transaction.
func (s *Store) Provision(ctx context.Context, plan tenantAuth.ProvisionPlan) error {
	if plan.Account == nil {
		return fmt.Errorf("%w: provision plan has no account", tenantAuth.ErrInvalidRequest)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	defer func() { _ = tx.Rollback() }()

	if plan.Entity != nil {
		if err := insertEntity(ctx, tx, s.rebind, plan.Entity); err != nil {
			return err
		}
	}
	if plan.Binding != nil {
		if err := insertRoleBinding(ctx, tx, s.rebind, plan.Binding); err != nil {
			return err
		}
	}
	if err := insertAccount(ctx, tx, s.rebind, plan.Account); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

// ListEntityAccounts returns the accounts of one entity ordered by username.
func (s *Store) ListEntityAccounts(ctx context.Context, entityID string) ([]tenantAuth.Account, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		select `+accountColumns+`
		from accounts where entity_id = ?
		order by username
	`), entityID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []tenantAuth.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func insertEntity(ctx context.Context, ex execer, rebind func(string) string, e *tenantAuth.Entity) error {
	_, err := ex.ExecContext(ctx, rebind(`
		insert into entities (id, name, description, type, policy, created_by, created_at, updated_by, updated_at)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), e.ID, e.Name, e.Description, string(e.Type), e.Policy, e.CreatedBy, unix(e.CreatedAt), e.UpdatedBy, unix(e.UpdatedAt))
	return mapError(err)
}

func insertRoleBinding(ctx context.Context, ex execer, rebind func(string) string, b *tenantAuth.RoleBinding) error {
	_, err := ex.ExecContext(ctx, rebind(`
		insert into entity_role_bindings (id, entity_id, role_id, name, description, status, policy,
			created_by, created_at, updated_by, updated_at)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), b.ID, b.EntityID, b.RoleID, b.Name, b.Description, string(b.Status), b.Policy,
		b.CreatedBy, unix(b.CreatedAt), b.UpdatedBy, unix(b.UpdatedAt))
	err = mapError(err)
	if errors.Is(err, tenantAuth.ErrNotFound) {
		return fmt.Errorf("%w: entity %q or role %q", tenantAuth.ErrNotFound, b.EntityID, b.RoleID)
	}
	return err
}
