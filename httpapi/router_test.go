package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	tenantAuth "github.com/MrEthical07/tenantAuth"
	"github.com/MrEthical07/tenantAuth/middleware"
	"github.com/MrEthical07/tenantAuth/session"
	"github.com/MrEthical07/tenantAuth/store/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const rootPassword = "S3cret-pass!"

type testServer struct {
	engine  *tenantAuth.Engine
	store   *sqlstore.Store
	handler http.Handler
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	ctx := context.Background()

	store, err := sqlstore.Open(ctx, sqlstore.DialectSQLite, filepath.Join(t.TempDir(), "auth.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	cfg := tenantAuth.DefaultConfig()
	cfg.Password.Cost = bcrypt.MinCost
	cfg.Security.EnableLoginThrottle = false
	cfg.Metrics.Enabled = true

	engine, err := tenantAuth.New().
		WithConfig(cfg).
		WithSessionStore(session.NewMemoryStore()).
		WithAccountStore(store).
		WithTenantGraph(store).
		WithSessionRecorder(store).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	handler, err := NewRouter(engine, opts)
	require.NoError(t, err)

	_, err = engine.ProvisionSuperAdmin(ctx, tenantAuth.PersonDetails{
		FirstName: "Root",
		LastName:  "Admin",
		Email:     "root@platform.example",
		Phone:     "+15550000000",
	}, rootPassword, "bootstrap")
	require.NoError(t, err)

	return &testServer{engine: engine, store: store, handler: handler}
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.10:40000"
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/login", map[string]string{"username": username, "password": password}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == "JSESSIONID" {
			return &http.Cookie{Name: c.Name, Value: c.Value}
		}
	}
	t.Fatal("login did not set the session cookie")
	return nil
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestLoginSetsCookieAndBody(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "root@platform.example", "password": rootPassword}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	setCookie := rec.Header().Get("Set-Cookie")
	for _, part := range []string{"JSESSIONID=", "Path=/", "HttpOnly", "Secure", "SameSite=Strict"} {
		assert.Contains(t, setCookie, part)
	}
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	body := decodeBody[middleware.LoginResponse](t, rec)
	assert.Equal(t, tenantAuth.MessageLoginSuccessful, body.Message)
	assert.Equal(t, "root.admin", body.Username)
	assert.Equal(t, "101", body.EntityType)
	assert.NotEmpty(t, body.SessionKey)
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := s.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "root.admin", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Get("Set-Cookie"))
	body := decodeBody[middleware.LoginResponse](t, rec)
	assert.Equal(t, tenantAuth.MessageInvalidCredentials, body.Message)
	assert.Empty(t, body.SessionKey)

	rec = s.do(t, http.MethodPost, "/auth/login", `{"username":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", `{"user":"root.admin"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginRateLimitedPerIP(t *testing.T) {
	s := newTestServer(t, Options{LoginRateLimit: middleware.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}})

	for i := 0; i < 2; i++ {
		rec := s.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "root.admin", "password": "nope"}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "root.admin", "password": rootPassword}, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestValidateAndLogout(t *testing.T) {
	s := newTestServer(t, Options{})
	cookie := s.login(t, "root.admin", rootPassword)

	rec := s.do(t, http.MethodPost, "/auth/validate-session", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[middleware.SessionResponse](t, rec)
	assert.True(t, body.SessionValid)
	assert.Equal(t, tenantAuth.MessageSessionValid, body.Message)
	assert.Equal(t, "root.admin", body.Username)
	assert.Empty(t, body.EntityID)

	rec = s.do(t, http.MethodPost, "/auth/validate-employee-session", nil, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	denied := decodeBody[middleware.SessionResponse](t, rec)
	assert.Equal(t, tenantAuth.MessageNotEmployee, denied.Message)
	assert.False(t, denied.SessionValid)
	assert.Equal(t, http.StatusForbidden, denied.StatusCode)

	rec = s.do(t, http.MethodPost, "/auth/logout", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
	assert.Contains(t, rec.Body.String(), tenantAuth.MessageLogoutSuccessful)

	rec = s.do(t, http.MethodPost, "/auth/validate-session", nil, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, tenantAuth.MessageSessionInvalid, decodeBody[middleware.SessionResponse](t, rec).Message)

	// Logout stays idempotent for destroyed and absent sessions.
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/auth/logout", nil, cookie).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/auth/logout", nil, nil).Code)
}

func TestLogoutAll(t *testing.T) {
	s := newTestServer(t, Options{})
	first := s.login(t, "root.admin", rootPassword)
	second := s.login(t, "root.admin", rootPassword)

	rec := s.do(t, http.MethodPost, "/auth/logout-all", nil, first)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, float64(2), body["sessions"])

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/auth/validate-session", nil, second).Code)
}

func TestProvisioningFlow(t *testing.T) {
	s := newTestServer(t, Options{})
	ctx := context.Background()
	root := s.login(t, "root.admin", rootPassword)

	rec := s.do(t, http.MethodGet, "/admin/dashboard", nil, root)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the SuperAdmin Dashboard", rec.Body.String())

	role, err := s.engine.CreateRole(ctx, "Staff", "Floor staff", "bootstrap")
	require.NoError(t, err)

	rec = s.do(t, http.MethodPost, "/organization/create", map[string]any{
		"entityName":        "Acme",
		"entityDescription": "Anvils",
		"entityType":        "OrganizationAdmin",
		"roleId":            role.ID,
		"person": map[string]string{
			"firstName": "Wile",
			"lastName":  "Coyote",
			"email":     "wile@acme.example",
			"phone":     "+15550001111",
		},
	}, root)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	org := decodeBody[ProvisionResponse](t, rec)
	assert.Equal(t, "wile.coyote", org.Username)
	assert.NotEmpty(t, org.Password)
	assert.NotEmpty(t, org.EntityID)

	admin := s.login(t, org.Username, org.Password)
	rec = s.do(t, http.MethodGet, "/admin/dashboard", nil, admin)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, tenantAuth.MessageNotSuperAdmin, decodeBody[middleware.SessionResponse](t, rec).Message)

	// Organization admins are not employees; the add-employee route is
	// reserved for Employee sessions.
	employeeReq := map[string]any{
		"roleId": role.ID,
		"person": map[string]string{
			"firstName": "Road",
			"lastName":  "Runner",
			"email":     "road@acme.example",
			"phone":     "+15550002222",
		},
	}
	rec = s.do(t, http.MethodPost, "/manage-employees/add-employee", employeeReq, admin)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminVerdict, err := s.engine.RequireOrganizationAdmin(ctx, admin.Value)
	require.NoError(t, err)
	emp, err := s.engine.AddEmployee(ctx, adminVerdict.Session, tenantAuth.AddEmployeeRequest{
		RoleID: role.ID,
		Person: tenantAuth.PersonDetails{FirstName: "Marvin", LastName: "Martian", Email: "marvin@acme.example", Phone: "+15550003333"},
	})
	require.NoError(t, err)

	employee := s.login(t, emp.Username, emp.Password)
	rec = s.do(t, http.MethodPost, "/manage-employees/add-employee", employeeReq, employee)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decodeBody[ProvisionResponse](t, rec)
	assert.Equal(t, "road.runner", added.Username)
	assert.Equal(t, org.EntityID, added.EntityID)

	rec = s.do(t, http.MethodPost, "/manage-employees/add-employee", employeeReq, employee)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email is already registered")

	accounts, err := s.store.ListEntityAccounts(ctx, org.EntityID)
	require.NoError(t, err)
	assert.Len(t, accounts, 3)
}

func TestCreateOrganizationValidation(t *testing.T) {
	s := newTestServer(t, Options{})
	root := s.login(t, "root.admin", rootPassword)

	rec := s.do(t, http.MethodPost, "/organization/create", map[string]any{
		"entityName": "Acme",
		"entityType": "103",
		"roleId":     "missing-role",
		"person": map[string]string{
			"firstName": "Wile",
			"lastName":  "Coyote",
			"email":     "wile@acme.example",
			"phone":     "+15550001111",
		},
	}, root)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/organization/create", map[string]any{
		"entityName": "Acme",
		"entityType": "103",
		"roleId":     "r",
		"person":     map[string]string{"firstName": "W", "lastName": "Coyote", "email": "bad", "phone": "1"},
	}, root)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/organization/create", map[string]any{"entityName": "Acme"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMetricsAndHealth(t *testing.T) {
	s := newTestServer(t, Options{})
	s.login(t, "root.admin", rootPassword)

	rec := s.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, `tenantauth_events_total{event="login_success"} 1`)
	assert.Contains(t, out, `tenantauth_http_requests_total{method="POST",route="/auth/login",status="200"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, Options{AllowedOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestNewRouterRequiresEngine(t *testing.T) {
	_, err := NewRouter(nil, Options{})
	assert.ErrorIs(t, err, tenantAuth.ErrEngineNotReady)
}
