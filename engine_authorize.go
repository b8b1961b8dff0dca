package tenantAuth

import (
	"context"
	"net/http"
)

// RequireRole validates handle and checks that the session's entity type
// is exactly required. Invalid sessions get the 403 session verdict; a valid
// session of another type gets a 403 with the denial message of required and
// SessionValid false, since callers gate on that flag. An unknown required
// type is always denied.
func (e *Engine) RequireRole(ctx context.Context, handle string, required EntityType) (*Verdict, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	sc, verdict, err := e.loadSession(ctx, handle)
	if err != nil || verdict != nil {
		return verdict, err
	}

	if !required.Known() || sc.EntityType != required {
		e.metricInc(MetricAccessDenied)
		e.emitAudit(ctx, auditEventAccessDenied, false, sc.UserID, sc.TenantID(), "", ErrAccessDenied, func() map[string]string {
			return map[string]string{
				"required":    string(required),
				"entity_type": string(sc.EntityType),
			}
		})
		return &Verdict{
			StatusCode: http.StatusForbidden,
			Message:    required.deniedMessage(),
			Err:        ErrAccessDenied,
		}, nil
	}

	e.metricInc(MetricAccessGranted)

	return &Verdict{
		StatusCode:   http.StatusOK,
		Message:      MessageAccessGranted,
		SessionValid: true,
		Session:      sc,
	}, nil
}

// RequireSuperAdmin is RequireRole with EntityTypeSuperAdmin.
func (e *Engine) RequireSuperAdmin(ctx context.Context, handle string) (*Verdict, error) {
	return e.RequireRole(ctx, handle, EntityTypeSuperAdmin)
}

// RequireEmployee is RequireRole with EntityTypeEmployee.
func (e *Engine) RequireEmployee(ctx context.Context, handle string) (*Verdict, error) {
	return e.RequireRole(ctx, handle, EntityTypeEmployee)
}

// RequireOrganizationAdmin is RequireRole with EntityTypeOrganizationAdmin.
func (e *Engine) RequireOrganizationAdmin(ctx context.Context, handle string) (*Verdict, error) {
	return e.RequireRole(ctx, handle, EntityTypeOrganizationAdmin)
}
