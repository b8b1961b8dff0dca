package tenantAuth

import (
	"context"
	"time"

	"github.com/MrEthical07/tenantAuth/session"
)

// AccountStore is the credential store consulted at login.
//
// FindAccount matches identifier against username, email, or phone and
// returns ErrNotFound when nothing matches. Any other error is treated as a
// store outage.
type AccountStore interface {
	FindAccount(ctx context.Context, identifier string) (*Account, error)
	UpdatePasswordHash(ctx context.Context, accountID, hash string) error
}

// AccountDirectory is the optional account administration surface of an
// AccountStore. Engine.SetAccountStatus and Engine.EntityMembers require it.
type AccountDirectory interface {
	GetAccount(ctx context.Context, id string) (*Account, error)
	SetAccountStatus(ctx context.Context, accountID string, status AccountStatus, updatedBy string) error
	ListEntityAccounts(ctx context.Context, entityID string) ([]Account, error)
}

// ProvisionPlan is the set of rows written by one provisioning call. Entity
// is nil when the binding targets an existing entity. Binding is nil for
// tenant-less accounts.
type ProvisionPlan struct {
	Entity  *Entity
	Binding *RoleBinding
	Account *Account
}

// TenantGraph stores entities, roles, and role bindings.
//
// Provision must write every row of the plan in a single transaction: either
// all rows are visible afterwards or none are. A duplicate username must be
// reported as ErrUsernameTaken so the caller can retry with the next suffix.
type TenantGraph interface {
	GetEntity(ctx context.Context, id string) (*Entity, error)
	GetRole(ctx context.Context, id string) (*Role, error)
	GetRoleBinding(ctx context.Context, id string) (*RoleBinding, error)

	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	PhoneExists(ctx context.Context, phone string) (bool, error)

	CreateEntity(ctx context.Context, e *Entity) error
	CreateRole(ctx context.Context, r *Role) error
	CreateRoleBinding(ctx context.Context, b *RoleBinding) error
	Provision(ctx context.Context, plan ProvisionPlan) error
}

// SessionRecorder persists durable session rows alongside live sessions.
type SessionRecorder interface {
	RecordSession(ctx context.Context, rec SessionRecord) error
	EndSession(ctx context.Context, sessionID string, endedAt time.Time) error
}

// SessionStore holds live sessions. session.Store (Redis) and
// session.MemoryStore both satisfy it.
type SessionStore interface {
	Save(ctx context.Context, sess *session.Session, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*session.Session, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteAllForUser(ctx context.Context, userID string) ([]string, error)
}
