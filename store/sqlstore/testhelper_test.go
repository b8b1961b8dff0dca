package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tenantAuth "github.com/MrEthical07/tenantAuth"
	"github.com/stretchr/testify/require"
)

// openTestStore opens a migrated SQLite store in t.TempDir().
func openTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	store, err := Open(ctx, DialectSQLite, filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(ctx))
	return store
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedOrganization(t *testing.T, store *Store) (*tenantAuth.Entity, *tenantAuth.RoleBinding, *tenantAuth.Account) {
	t.Helper()
	ctx := context.Background()

	role := &tenantAuth.Role{ID: "role-1", Name: "Manager", Description: "Runs the floor", CreatedAt: testNow, UpdatedAt: testNow}
	require.NoError(t, store.CreateRole(ctx, role))

	entity := &tenantAuth.Entity{
		ID:        "ent-1",
		Name:      "Acme",
		Type:      tenantAuth.EntityTypeOrganizationAdmin,
		Policy:    "0000000000000001",
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	binding := &tenantAuth.RoleBinding{
		ID:        "bind-1",
		EntityID:  entity.ID,
		RoleID:    role.ID,
		Name:      role.Name,
		Status:    tenantAuth.AccountActive,
		Policy:    "0000000000000002",
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	account := &tenantAuth.Account{
		ID:            "acc-1",
		FirstName:     "Jane",
		LastName:      "Doe",
		Username:      "jane.doe",
		Email:         "jane@example.com",
		Phone:         "+15550000001",
		PasswordHash:  "$2a$04$placeholder",
		EntityType:    tenantAuth.EntityTypeOrganizationAdmin,
		Status:        tenantAuth.AccountActive,
		EntityID:      entity.ID,
		RoleBindingID: binding.ID,
		Policy:        "0000000000000003",
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
	require.NoError(t, store.Provision(ctx, tenantAuth.ProvisionPlan{Entity: entity, Binding: binding, Account: account}))
	return entity, binding, account
}
