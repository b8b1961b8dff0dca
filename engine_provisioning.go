package tenantAuth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/MrEthical07/tenantAuth/identity"
	"github.com/MrEthical07/tenantAuth/password"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// PersonDetails identifies the human behind a provisioned account.
type PersonDetails struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func (p PersonDetails) validate() error {
	if utf8.RuneCountInString(strings.TrimSpace(p.FirstName)) < 2 {
		return fmt.Errorf("%w: first name must be at least 2 characters", ErrInvalidRequest)
	}
	if utf8.RuneCountInString(strings.TrimSpace(p.LastName)) < 2 {
		return fmt.Errorf("%w: last name must be at least 2 characters", ErrInvalidRequest)
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return fmt.Errorf("%w: invalid email format", ErrInvalidRequest)
	}
	if !phonePattern.MatchString(p.Phone) {
		return fmt.Errorf("%w: invalid phone number format", ErrInvalidRequest)
	}
	return nil
}

// ProvisionOrganizationRequest creates a tenant entity and its first account.
type ProvisionOrganizationRequest struct {
	EntityName        string        `json:"entityName"`
	EntityDescription string        `json:"entityDescription"`
	EntityType        EntityType    `json:"entityType"`
	RoleID            string        `json:"roleId"`
	Person            PersonDetails `json:"person"`
}

// AddEmployeeRequest adds an account to the acting session's tenant.
type AddEmployeeRequest struct {
	RoleID     string        `json:"roleId"`
	EntityType EntityType    `json:"entityType"`
	Person     PersonDetails `json:"person"`
}

// ProvisionedAccount is returned by the provisioning calls. Password holds
// the generated plaintext exactly once; it is never stored.
type ProvisionedAccount struct {
	AccountID     string
	Username      string
	Password      string
	EntityID      string
	RoleBindingID string
	Policy        string
}

// CreateEntity stores a new tenant entity with a fresh policy number.
func (e *Engine) CreateEntity(ctx context.Context, name, description string, entityType EntityType, createdBy string) (*Entity, error) {
	if e == nil || e.graph == nil {
		return nil, ErrEngineNotReady
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: entity name is required", ErrInvalidRequest)
	}
	if !entityType.Known() {
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrInvalidRequest, entityType)
	}

	entity, err := e.newEntity(name, description, entityType, createdBy)
	if err != nil {
		return nil, err
	}
	if err := e.graph.CreateEntity(ctx, entity); err != nil {
		return nil, e.provisioningFailed(ctx, createdBy, "create_entity", err)
	}

	e.emitAudit(ctx, auditEventEntityCreated, true, createdBy, entity.ID, "", nil, nil)
	return entity, nil
}

// CreateRole stores a tenant-independent role template.
func (e *Engine) CreateRole(ctx context.Context, name, description, createdBy string) (*Role, error) {
	if e == nil || e.graph == nil {
		return nil, ErrEngineNotReady
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrInvalidRequest)
	}

	now := e.now().UTC()
	role := &Role{
		ID:          identity.NewID(),
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedBy:   createdBy,
		UpdatedAt:   now,
	}
	if err := e.graph.CreateRole(ctx, role); err != nil {
		return nil, e.provisioningFailed(ctx, createdBy, "create_role", err)
	}

	e.emitAudit(ctx, auditEventRoleCreated, true, createdBy, "", "", nil, func() map[string]string {
		return map[string]string{"role_id": role.ID}
	})
	return role, nil
}

// CreateRoleBinding binds roleID to entityID. The role's name and
// description are snapshotted onto the binding.
func (e *Engine) CreateRoleBinding(ctx context.Context, entityID, roleID, createdBy string) (*RoleBinding, error) {
	if e == nil || e.graph == nil {
		return nil, ErrEngineNotReady
	}

	entity, err := e.graph.GetEntity(ctx, entityID)
	if err != nil {
		return nil, e.provisioningFailed(ctx, createdBy, "create_role_binding", err)
	}
	role, err := e.graph.GetRole(ctx, roleID)
	if err != nil {
		return nil, e.provisioningFailed(ctx, createdBy, "create_role_binding", err)
	}

	binding, err := e.newRoleBinding(entity.ID, role, createdBy)
	if err != nil {
		return nil, err
	}
	if err := e.graph.CreateRoleBinding(ctx, binding); err != nil {
		return nil, e.provisioningFailed(ctx, createdBy, "create_role_binding", err)
	}

	e.emitAudit(ctx, auditEventRoleBindingCreated, true, createdBy, entity.ID, "", nil, func() map[string]string {
		return map[string]string{"role_binding_id": binding.ID}
	})
	return binding, nil
}

// ProvisionOrganization creates an entity, a role binding snapshotting
// req.RoleID, and an account with a generated username and password. All
// three rows are written atomically.
func (e *Engine) ProvisionOrganization(ctx context.Context, req ProvisionOrganizationRequest, createdBy string) (*ProvisionedAccount, error) {
	if e == nil || e.graph == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}
	if strings.TrimSpace(req.EntityName) == "" {
		return nil, fmt.Errorf("%w: entity name is required", ErrInvalidRequest)
	}
	if !req.EntityType.Known() || req.EntityType == EntityTypeSuperAdmin {
		return nil, fmt.Errorf("%w: invalid entity type %q", ErrInvalidRequest, req.EntityType)
	}
	if err := req.Person.validate(); err != nil {
		return nil, err
	}

	role, err := e.graph.GetRole(ctx, req.RoleID)
	if err != nil {
		return nil, e.provisioningFailed(ctx, createdBy, "provision_organization", err)
	}

	entity, err := e.newEntity(req.EntityName, req.EntityDescription, req.EntityType, createdBy)
	if err != nil {
		return nil, err
	}
	binding, err := e.newRoleBinding(entity.ID, role, createdBy)
	if err != nil {
		return nil, err
	}

	return e.provisionAccount(ctx, ProvisionPlan{Entity: entity, Binding: binding}, req.Person, req.EntityType, "", createdBy)
}

// AddEmployee provisions an account inside the tenant of actor. Duplicate
// email or phone numbers are rejected before anything is written.
func (e *Engine) AddEmployee(ctx context.Context, actor *SessionContext, req AddEmployeeRequest) (*ProvisionedAccount, error) {
	if e == nil || e.graph == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}
	tenantID := actor.TenantID()
	if tenantID == "" {
		return nil, fmt.Errorf("%w: acting session has no tenant", ErrInvalidRequest)
	}
	entityType := req.EntityType
	if entityType == "" {
		entityType = EntityTypeEmployee
	}
	if !entityType.Known() || entityType == EntityTypeSuperAdmin {
		return nil, fmt.Errorf("%w: invalid entity type %q", ErrInvalidRequest, entityType)
	}
	if err := req.Person.validate(); err != nil {
		return nil, err
	}

	taken, err := e.graph.EmailExists(ctx, req.Person.Email)
	if err != nil {
		return nil, e.provisioningFailed(ctx, actor.UserID, "add_employee", err)
	}
	if taken {
		return nil, e.provisioningFailed(ctx, actor.UserID, "add_employee", ErrEmailTaken)
	}
	taken, err = e.graph.PhoneExists(ctx, req.Person.Phone)
	if err != nil {
		return nil, e.provisioningFailed(ctx, actor.UserID, "add_employee", err)
	}
	if taken {
		return nil, e.provisioningFailed(ctx, actor.UserID, "add_employee", ErrPhoneTaken)
	}

	entity, err := e.graph.GetEntity(ctx, tenantID)
	if err != nil {
		return nil, e.provisioningFailed(ctx, actor.UserID, "add_employee", err)
	}
	role, err := e.graph.GetRole(ctx, req.RoleID)
	if err != nil {
		return nil, e.provisioningFailed(ctx, actor.UserID, "add_employee", err)
	}

	binding, err := e.newRoleBinding(entity.ID, role, actor.UserID)
	if err != nil {
		return nil, err
	}

	return e.provisionAccount(ctx, ProvisionPlan{Binding: binding}, req.Person, entityType, "", actor.UserID)
}

// ProvisionSuperAdmin creates a tenant-less SuperAdmin account. An empty
// rawPassword is replaced by a generated one.
func (e *Engine) ProvisionSuperAdmin(ctx context.Context, person PersonDetails, rawPassword, createdBy string) (*ProvisionedAccount, error) {
	if e == nil || e.graph == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}
	if err := person.validate(); err != nil {
		return nil, err
	}

	return e.provisionAccount(ctx, ProvisionPlan{}, person, EntityTypeSuperAdmin, rawPassword, createdBy)
}

// provisionAccount fills plan.Account and writes the plan, retrying with the
// next username suffix when a concurrent writer claims the candidate first.
func (e *Engine) provisionAccount(
	ctx context.Context,
	plan ProvisionPlan,
	person PersonDetails,
	entityType EntityType,
	rawPassword string,
	createdBy string,
) (*ProvisionedAccount, error) {
	if rawPassword == "" {
		generated, err := password.GenerateSecurePassword()
		if err != nil {
			return nil, err
		}
		rawPassword = generated
	}
	hash, err := e.hasher.Hash(rawPassword)
	if err != nil {
		return nil, err
	}
	policy, err := identity.GeneratePolicyNumber()
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	account := &Account{
		ID:           identity.NewID(),
		FirstName:    strings.TrimSpace(person.FirstName),
		LastName:     strings.TrimSpace(person.LastName),
		Email:        person.Email,
		Phone:        person.Phone,
		PasswordHash: hash,
		EntityType:   entityType,
		Status:       AccountActive,
		Policy:       policy,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedBy:    createdBy,
		UpdatedAt:    now,
	}
	if plan.Binding != nil {
		account.EntityID = plan.Binding.EntityID
		account.RoleBindingID = plan.Binding.ID
	}
	plan.Account = account

	if err := validatePlan(plan); err != nil {
		return nil, e.provisioningFailed(ctx, createdBy, "provision", err)
	}

	base := identity.GenerateUsername(account.FirstName, account.LastName)
	attempts := e.config.Provisioning.MaxUsernameAttempts
	err = ErrUsernameTaken
	for i := 0; i < attempts && errors.Is(err, ErrUsernameTaken); i++ {
		account.Username, err = identity.EnsureUnique(ctx, base, e.graph.UsernameExists)
		if err != nil {
			break
		}
		err = e.graph.Provision(ctx, plan)
	}
	if err != nil {
		return nil, e.provisioningFailed(ctx, createdBy, "provision", err)
	}

	e.metricInc(MetricAccountProvisioned)
	e.emitAudit(ctx, auditEventAccountProvisioned, true, account.ID, account.EntityID, "", nil, func() map[string]string {
		return map[string]string{
			"entity_type": string(entityType),
			"created_by":  createdBy,
		}
	})

	return &ProvisionedAccount{
		AccountID:     account.ID,
		Username:      account.Username,
		Password:      rawPassword,
		EntityID:      account.EntityID,
		RoleBindingID: account.RoleBindingID,
		Policy:        account.Policy,
	}, nil
}

func validatePlan(plan ProvisionPlan) error {
	if plan.Account == nil {
		return fmt.Errorf("%w: account is required", ErrInvalidRequest)
	}
	if plan.Binding == nil {
		if plan.Account.EntityType != EntityTypeSuperAdmin {
			return fmt.Errorf("%w: non-SuperAdmin account requires a role binding", ErrInvalidRequest)
		}
		return nil
	}
	if plan.Binding.EntityID != plan.Account.EntityID {
		return ErrCrossTenantBinding
	}
	if plan.Entity != nil && plan.Entity.ID != plan.Binding.EntityID {
		return ErrCrossTenantBinding
	}
	return nil
}

func (e *Engine) newEntity(name, description string, entityType EntityType, createdBy string) (*Entity, error) {
	policy, err := identity.GeneratePolicyNumber()
	if err != nil {
		return nil, err
	}
	now := e.now().UTC()
	return &Entity{
		ID:          identity.NewID(),
		Name:        name,
		Description: description,
		Type:        entityType,
		Policy:      policy,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedBy:   createdBy,
		UpdatedAt:   now,
	}, nil
}

func (e *Engine) newRoleBinding(entityID string, role *Role, createdBy string) (*RoleBinding, error) {
	policy, err := identity.GeneratePolicyNumber()
	if err != nil {
		return nil, err
	}
	now := e.now().UTC()
	return &RoleBinding{
		ID:          identity.NewID(),
		EntityID:    entityID,
		RoleID:      role.ID,
		Name:        role.Name,
		Description: role.Description,
		Status:      AccountActive,
		Policy:      policy,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedBy:   createdBy,
		UpdatedAt:   now,
	}, nil
}

func (e *Engine) provisioningFailed(ctx context.Context, actorID, operation string, err error) error {
	e.metricInc(MetricProvisioningFailure)
	e.emitAudit(ctx, auditEventProvisioningFailure, false, actorID, "", "", err, func() map[string]string {
		return map[string]string{"operation": operation}
	})
	return err
}

// VerdictForError maps a provisioning error to a response. Unrecognized
// errors become a generic 500 so internal details do not leak.
func VerdictForError(err error) *Verdict {
	switch {
	case err == nil:
		return &Verdict{StatusCode: http.StatusOK, Message: "OK"}
	case errors.Is(err, ErrNotFound):
		return &Verdict{StatusCode: http.StatusNotFound, Message: "Resource not found.", Err: err}
	case errors.Is(err, ErrEmailTaken):
		return &Verdict{StatusCode: http.StatusConflict, Message: "Error: Email is already registered!", Err: err}
	case errors.Is(err, ErrPhoneTaken):
		return &Verdict{StatusCode: http.StatusConflict, Message: "Error: Phone number is already in use!", Err: err}
	case errors.Is(err, ErrConflict):
		return &Verdict{StatusCode: http.StatusConflict, Message: "Resource already exists.", Err: err}
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrCrossTenantBinding):
		return &Verdict{StatusCode: http.StatusBadRequest, Message: "Invalid request.", Err: err}
	case errors.Is(err, ErrAccessDenied):
		return &Verdict{StatusCode: http.StatusForbidden, Message: MessageAccessDenied, Err: err}
	case errors.Is(err, ErrSessionInvalid):
		return &Verdict{StatusCode: http.StatusForbidden, Message: MessageSessionInvalid, Err: err}
	default:
		return &Verdict{StatusCode: http.StatusInternalServerError, Message: "Internal server error.", Err: err}
	}
}
