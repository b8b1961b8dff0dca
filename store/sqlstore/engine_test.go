package sqlstore

import (
	"context"
	"testing"

	tenantAuth "github.com/MrEthical07/tenantAuth"
	"github.com/MrEthical07/tenantAuth/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestEngine(t *testing.T, store *Store) *tenantAuth.Engine {
	t.Helper()

	cfg := tenantAuth.DefaultConfig()
	cfg.Password.Cost = bcrypt.MinCost
	cfg.Security.EnableLoginThrottle = false

	engine, err := tenantAuth.New().
		WithConfig(cfg).
		WithSessionStore(session.NewMemoryStore()).
		WithAccountStore(store).
		WithTenantGraph(store).
		WithSessionRecorder(store).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine
}

func TestEngineProvisionAndLoginOnSQLite(t *testing.T) {
	store := openTestStore(t)
	engine := newTestEngine(t, store)
	ctx := context.Background()

	role, err := engine.CreateRole(ctx, "Manager", "Runs the floor", "acc-root")
	require.NoError(t, err)

	org, err := engine.ProvisionOrganization(ctx, tenantAuth.ProvisionOrganizationRequest{
		EntityName: "Acme",
		EntityType: tenantAuth.EntityTypeOrganizationAdmin,
		RoleID:     role.ID,
		Person: tenantAuth.PersonDetails{
			FirstName: "Wile",
			LastName:  "Coyote",
			Email:     "wile@acme.example",
			Phone:     "+15550001111",
		},
	}, "acc-root")
	require.NoError(t, err)
	assert.Equal(t, "wile.coyote", org.Username)
	assert.Len(t, org.Policy, 16)

	login, err := engine.Login(ctx, tenantAuth.LoginRequest{Email: "wile@acme.example", Password: org.Password}, tenantAuth.RequestMetadata{
		RemoteAddr: "192.0.2.7:5000",
		UserAgent:  "test",
	})
	require.NoError(t, err)
	require.True(t, login.Succeeded(), "login failed: %+v", login)
	assert.Equal(t, org.EntityID, login.Session.TenantID())

	rec, err := store.GetSessionRecord(ctx, login.SessionHandle)
	require.NoError(t, err)
	assert.Equal(t, org.AccountID, rec.AccountID)
	assert.Equal(t, "192.0.2.7", rec.IPAddress)

	verdict, err := engine.RequireOrganizationAdmin(ctx, login.SessionHandle)
	require.NoError(t, err)
	assert.True(t, verdict.Allowed())

	employee, err := engine.AddEmployee(ctx, verdict.Session, tenantAuth.AddEmployeeRequest{
		RoleID: role.ID,
		Person: tenantAuth.PersonDetails{
			FirstName: "Wile",
			LastName:  "Coyote",
			Email:     "wile2@acme.example",
			Phone:     "+15550002222",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "wile.coyote1", employee.Username)
	assert.Equal(t, org.EntityID, employee.EntityID)

	_, err = engine.AddEmployee(ctx, verdict.Session, tenantAuth.AddEmployeeRequest{
		RoleID: role.ID,
		Person: tenantAuth.PersonDetails{FirstName: "Road", LastName: "Runner", Email: "wile2@acme.example", Phone: "+15550003333"},
	})
	assert.ErrorIs(t, err, tenantAuth.ErrEmailTaken)

	accounts, err := store.ListEntityAccounts(ctx, org.EntityID)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	out, err := engine.Logout(ctx, login.SessionHandle)
	require.NoError(t, err)
	assert.Equal(t, 200, out.StatusCode)

	rec, err = store.GetSessionRecord(ctx, login.SessionHandle)
	require.NoError(t, err)
	assert.LessOrEqual(t, rec.ExpiresAt, rec.LastActivity)
}
