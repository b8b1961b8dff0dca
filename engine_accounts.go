package tenantAuth

import (
	"context"
	"fmt"
	"strings"
)

// EntityMember is one account of an entity together with the name of the
// role it is bound to. RoleName is empty for accounts without a binding.
type EntityMember struct {
	Account  Account
	RoleName string
}

// SetAccountStatus activates or deactivates accountID. Deactivation also
// destroys every live session of the account; the number destroyed is
// returned. Login already refuses inactive accounts.
func (e *Engine) SetAccountStatus(ctx context.Context, accountID string, status AccountStatus, updatedBy string) (int, error) {
	if e == nil || e.directory == nil {
		return 0, ErrEngineNotReady
	}
	if strings.TrimSpace(accountID) == "" {
		return 0, fmt.Errorf("%w: account id is required", ErrInvalidRequest)
	}
	if status != AccountActive && status != AccountInactive {
		return 0, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}

	account, err := e.directory.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if err := e.directory.SetAccountStatus(ctx, account.ID, status, updatedBy); err != nil {
		return 0, err
	}

	e.metricInc(MetricAccountStatusChanged)
	e.emitAudit(ctx, auditEventAccountStatus, true, updatedBy, account.EntityID, "", nil, func() map[string]string {
		return map[string]string{
			"account_id": account.ID,
			"from":       string(account.Status),
			"to":         string(status),
		}
	})

	if status != AccountInactive {
		return 0, nil
	}
	return e.LogoutAll(ctx, account.ID)
}

// EntityMembers lists the accounts of entityID ordered by username, with the
// snapshotted role name of each account's binding.
func (e *Engine) EntityMembers(ctx context.Context, entityID string) ([]EntityMember, error) {
	if e == nil || e.directory == nil || e.graph == nil {
		return nil, ErrEngineNotReady
	}
	if _, err := e.graph.GetEntity(ctx, entityID); err != nil {
		return nil, err
	}

	accounts, err := e.directory.ListEntityAccounts(ctx, entityID)
	if err != nil {
		return nil, err
	}

	members := make([]EntityMember, 0, len(accounts))
	for _, a := range accounts {
		m := EntityMember{Account: a}
		m.Account.PasswordHash = ""
		if a.RoleBindingID != "" {
			binding, err := e.graph.GetRoleBinding(ctx, a.RoleBindingID)
			if err != nil {
				return nil, err
			}
			m.RoleName = binding.Name
		}
		members = append(members, m)
	}
	return members, nil
}
