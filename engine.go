package tenantAuth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/tenantAuth/internal"
	internalaudit "github.com/MrEthical07/tenantAuth/internal/audit"
	"github.com/MrEthical07/tenantAuth/internal/rate"
	"github.com/MrEthical07/tenantAuth/password"
	"github.com/MrEthical07/tenantAuth/session"
)

// Engine verifies credentials, issues and validates sessions, and answers
// entity-type authorization checks.
//
// An Engine is built once with Builder and is safe for concurrent use. It
// holds no locks of its own; all shared state lives in the injected stores.
type Engine struct {
	config    Config
	accounts  AccountStore
	directory AccountDirectory
	graph     TenantGraph
	recorder  SessionRecorder
	sessions  SessionStore
	limiter   *rate.Limiter
	hasher    *password.Bcrypt
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
	dummyHash string
}

// Close flushes pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns the number of audit events dropped because the
// buffer was full or the caller's context ended first.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return e.config
}

// HashPassword hashes raw with the configured bcrypt cost.
func (e *Engine) HashPassword(raw string) (string, error) {
	if e == nil || e.hasher == nil {
		return "", ErrEngineNotReady
	}
	return e.hasher.Hash(raw)
}

// Login verifies the credentials in req and, on success, opens a new session.
//
// Every credential failure yields the same 401 result regardless of cause.
// A throttled identifier yields 429. Only store outages are returned as an
// error.
func (e *Engine) Login(ctx context.Context, req LoginRequest, meta RequestMetadata) (*LoginResult, error) {
	if e == nil || e.accounts == nil || e.sessions == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		e.metrics.ObserveLogin(time.Since(start))
	}()

	ip := meta.ClientIP()
	ctx = WithClientIP(ctx, ip)
	if meta.RequestID != "" {
		ctx = WithRequestID(ctx, meta.RequestID)
	}
	identifier := req.Identifier()

	if e.limiter != nil && identifier != "" {
		if err := e.limiter.CheckLogin(ctx, identifier, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				return e.loginRateLimited(ctx, identifier), nil
			}
			return nil, storeError(err)
		}
	}

	if identifier == "" || req.Password == "" {
		return e.loginFailed(ctx, identifier, ip, "", "empty_input"), nil
	}

	account, err := e.findAccount(ctx, req.Identifiers())
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, storeError(err)
		}
		// Burn a hash comparison so unknown identifiers cost the same as
		// wrong passwords.
		_, _ = e.hasher.Verify(req.Password, e.dummyHash)
		return e.loginFailed(ctx, identifier, ip, "", "account_not_found"), nil
	}

	ok, err := e.hasher.Verify(req.Password, account.PasswordHash)
	if err != nil {
		e.logger.WarnContext(ctx, "tenantAuth: stored password hash unreadable", "account_id", account.ID, "error", err)
		return e.loginFailed(ctx, identifier, ip, account.ID, "hash_invalid"), nil
	}
	if !ok {
		return e.loginFailed(ctx, identifier, ip, account.ID, "password_mismatch"), nil
	}
	if account.Status != AccountActive {
		return e.loginFailed(ctx, identifier, ip, account.ID, "account_inactive"), nil
	}
	if !account.EntityType.Known() {
		return e.loginFailed(ctx, identifier, ip, account.ID, "entity_type_unknown"), nil
	}

	tenant, err := e.resolveTenant(ctx, account)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return e.loginFailed(ctx, identifier, ip, account.ID, "tenant_missing"), nil
		}
		return nil, storeError(err)
	}

	sessionID, err := internal.NewSessionID()
	if err != nil {
		return nil, fmt.Errorf("tenantAuth: generate session id: %w", err)
	}
	handle := sessionID.String()

	now := e.now()
	lifetime := e.config.Session.Lifetime
	sess := &session.Session{
		SessionID:  handle,
		UserID:     account.ID,
		Username:   account.Username,
		Email:      account.Email,
		Phone:      account.Phone,
		EntityType: string(account.EntityType),
		IPAddress:  ip,
		UserAgent:  meta.UserAgent,
		CreatedAt:  now.Unix(),
		ExpiresAt:  now.Add(lifetime).Unix(),
	}
	if t, ok := tenant.(Tenant); ok {
		sess.HasTenant = true
		sess.TenantID = t.ID
		sess.TenantName = t.Name
		sess.TenantDescription = t.Description
		sess.TenantPolicy = t.Policy
	}

	if err := e.sessions.Save(ctx, sess, lifetime); err != nil {
		return nil, storeError(err)
	}

	sc := sessionContextFrom(sess)

	if e.recorder != nil {
		rec := SessionRecord{
			ID:           handle,
			AccountID:    account.ID,
			IPAddress:    ip,
			UserAgent:    meta.UserAgent,
			Payload:      sessionPayload(sc),
			LastActivity: now.Unix(),
			ExpiresAt:    sess.ExpiresAt,
		}
		if err := e.recorder.RecordSession(ctx, rec); err != nil {
			// A live session without its durable row must not survive.
			if delErr := e.sessions.Delete(ctx, handle); delErr != nil {
				e.logger.WarnContext(ctx, "tenantAuth: rollback live session failed", "error", delErr)
			}
			return nil, storeError(err)
		}
	}

	if e.limiter != nil {
		if err := e.limiter.ResetLogin(ctx, identifier, ip); err != nil {
			e.logger.WarnContext(ctx, "tenantAuth: reset login throttle failed", "error", err)
		}
	}

	e.maybeUpgradePassword(ctx, account, req.Password)

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, account.ID, sc.TenantID(), handle, nil, func() map[string]string {
		return map[string]string{
			"entity_type": string(account.EntityType),
		}
	})

	return &LoginResult{
		StatusCode:    http.StatusOK,
		Message:       MessageLoginSuccessful,
		SessionHandle: handle,
		Session:       sc,
	}, nil
}

// findAccount returns the account named by the first identifier that
// matches one.
func (e *Engine) findAccount(ctx context.Context, identifiers []string) (*Account, error) {
	for _, id := range identifiers {
		account, err := e.accounts.FindAccount(ctx, id)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func (e *Engine) loginFailed(ctx context.Context, identifier, ip, userID, reason string) *LoginResult {
	if e.limiter != nil && identifier != "" {
		// Crossing the budget here is reported on the next attempt.
		if err := e.limiter.IncrementLogin(ctx, identifier, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
			e.logger.WarnContext(ctx, "tenantAuth: login throttle unavailable", "error", err)
		}
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, "", "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
			"reason":     reason,
		}
	})

	return &LoginResult{
		StatusCode: http.StatusUnauthorized,
		Message:    MessageInvalidCredentials,
		Err:        ErrInvalidCredentials,
	}
}

func (e *Engine) loginRateLimited(ctx context.Context, identifier string) *LoginResult {
	e.metricInc(MetricLoginRateLimited)
	e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", "", ErrLoginRateLimited, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
		}
	})
	e.emitRateLimit(ctx, "login", identifier)

	return &LoginResult{
		StatusCode: http.StatusTooManyRequests,
		Message:    MessageLoginRateLimited,
		Err:        ErrLoginRateLimited,
	}
}

// SuperAdmins never carry a tenant; everyone else must reference an
// existing entity.
func (e *Engine) resolveTenant(ctx context.Context, account *Account) (TenantContext, error) {
	if account.EntityType == EntityTypeSuperAdmin {
		return NoTenant{}, nil
	}
	if account.Tenantless() || e.graph == nil {
		return nil, ErrNotFound
	}

	entity, err := e.graph.GetEntity(ctx, account.EntityID)
	if err != nil {
		return nil, err
	}

	return Tenant{
		ID:          entity.ID,
		Name:        entity.Name,
		Description: entity.Description,
		Policy:      entity.Policy,
	}, nil
}

func (e *Engine) maybeUpgradePassword(ctx context.Context, account *Account, raw string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	needs, err := e.hasher.NeedsUpgrade(account.PasswordHash)
	if err != nil || !needs {
		return
	}

	hash, err := e.hasher.Hash(raw)
	if err != nil {
		e.logger.WarnContext(ctx, "tenantAuth: password upgrade hash failed", "account_id", account.ID, "error", err)
		return
	}
	if err := e.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		e.logger.WarnContext(ctx, "tenantAuth: password upgrade store failed", "account_id", account.ID, "error", err)
		return
	}

	e.metricInc(MetricPasswordUpgraded)
	e.emitAudit(ctx, auditEventPasswordUpgraded, true, account.ID, "", "", nil, nil)
}

// ValidateSession reports whether handle names a live, unexpired session.
func (e *Engine) ValidateSession(ctx context.Context, handle string) (*Verdict, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	sc, verdict, err := e.loadSession(ctx, handle)
	if err != nil || verdict != nil {
		return verdict, err
	}

	e.metricInc(MetricSessionValidated)

	return &Verdict{
		StatusCode:   http.StatusOK,
		Message:      MessageSessionValid,
		SessionValid: true,
		Session:      sc,
	}, nil
}

// loadSession returns either the session context, an invalid-session
// verdict, or a store error.
func (e *Engine) loadSession(ctx context.Context, handle string) (*SessionContext, *Verdict, error) {
	if !internal.WellFormedSessionID(handle) {
		return nil, e.sessionInvalid(ctx, handle, "malformed_handle"), nil
	}

	sess, err := e.sessions.Get(ctx, handle)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			return nil, e.sessionInvalid(ctx, handle, "not_found"), nil
		case errors.Is(err, session.ErrCorrupt):
			e.logger.WarnContext(ctx, "tenantAuth: corrupt session blob", "error", err)
			return nil, e.sessionInvalid(ctx, handle, "corrupt"), nil
		default:
			return nil, nil, storeError(err)
		}
	}

	if !sessionComplete(sess) {
		return nil, e.sessionInvalid(ctx, handle, "missing_attributes"), nil
	}

	if sess.Expired(e.now().Unix()) {
		if err := e.sessions.Delete(ctx, handle); err != nil {
			e.logger.WarnContext(ctx, "tenantAuth: expired session cleanup failed", "error", err)
		}
		return nil, e.sessionInvalid(ctx, handle, "expired"), nil
	}

	return sessionContextFrom(sess), nil, nil
}

func (e *Engine) sessionInvalid(ctx context.Context, handle, reason string) *Verdict {
	e.metricInc(MetricSessionRejected)
	e.emitAudit(ctx, auditEventSessionInvalid, false, "", "", "", ErrSessionInvalid, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})

	return &Verdict{
		StatusCode: http.StatusForbidden,
		Message:    MessageSessionInvalid,
		Err:        ErrSessionInvalid,
	}
}

// Logout destroys the session named by handle. Unknown and already
// destroyed handles succeed with the same result.
func (e *Engine) Logout(ctx context.Context, handle string) (*Verdict, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	if internal.WellFormedSessionID(handle) {
		var userID, tenantID string
		if sess, err := e.sessions.Get(ctx, handle); err == nil {
			userID = sess.UserID
			tenantID = sess.TenantID
		} else if errors.Is(err, session.ErrRedisUnavailable) {
			return nil, storeError(err)
		}

		if err := e.sessions.Delete(ctx, handle); err != nil {
			return nil, storeError(err)
		}

		if userID != "" {
			if e.recorder != nil {
				if err := e.recorder.EndSession(ctx, handle, e.now()); err != nil {
					e.logger.WarnContext(ctx, "tenantAuth: close durable session failed", "error", err)
				}
			}
			e.metricInc(MetricSessionInvalidated)
			e.emitAudit(ctx, auditEventLogoutSession, true, userID, tenantID, handle, nil, nil)
		}
	}

	return &Verdict{
		StatusCode: http.StatusOK,
		Message:    MessageLogoutSuccessful,
	}, nil
}

// LogoutAll destroys every live session of userID and returns how many were
// removed.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	if userID == "" {
		return 0, ErrInvalidRequest
	}

	removed, err := e.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, storeError(err)
	}
	n := len(removed)

	if e.recorder != nil {
		endedAt := e.now()
		for _, handle := range removed {
			if err := e.recorder.EndSession(ctx, handle, endedAt); err != nil {
				e.logger.WarnContext(ctx, "tenantAuth: close durable session failed", "error", err)
			}
		}
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, "", "", nil, func() map[string]string {
		return map[string]string{
			"sessions": fmt.Sprint(n),
		}
	})

	return n, nil
}

func sessionComplete(sess *session.Session) bool {
	if sess == nil || sess.UserID == "" || sess.Username == "" {
		return false
	}
	t := EntityType(sess.EntityType)
	if !t.Known() {
		return false
	}
	if t != EntityTypeSuperAdmin && !sess.HasTenant {
		return false
	}
	return true
}

func sessionContextFrom(sess *session.Session) *SessionContext {
	sc := &SessionContext{
		UserID:     sess.UserID,
		Username:   sess.Username,
		Email:      sess.Email,
		Phone:      sess.Phone,
		EntityType: EntityType(sess.EntityType),
		Tenant:     NoTenant{},
		IssuedAt:   time.Unix(sess.CreatedAt, 0).UTC(),
		ExpiresAt:  time.Unix(sess.ExpiresAt, 0).UTC(),
	}
	if sess.HasTenant {
		sc.Tenant = Tenant{
			ID:          sess.TenantID,
			Name:        sess.TenantName,
			Description: sess.TenantDescription,
			Policy:      sess.TenantPolicy,
		}
	}
	return sc
}

type sessionPayloadJSON struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	EntityType string `json:"entity_type"`
	TenantID   string `json:"tenant_id,omitempty"`
}

func sessionPayload(sc *SessionContext) string {
	data, err := json.Marshal(sessionPayloadJSON{
		UserID:     sc.UserID,
		Username:   sc.Username,
		EntityType: string(sc.EntityType),
		TenantID:   sc.TenantID(),
	})
	if err != nil {
		return ""
	}
	return string(data)
}

func storeError(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
