package tenantAuth

import (
	"net"
	"slices"
	"strings"
	"time"
)

// EntityType is the closed set of principal kinds. Values are the numeric
// codes persisted on accounts and entities; comparisons are exact.
type EntityType string

const (
	// EntityTypeSuperAdmin is a platform operator. SuperAdmins have no tenant.
	EntityTypeSuperAdmin EntityType = "101"
	// EntityTypeEmployee is a member of a tenant organization.
	EntityTypeEmployee EntityType = "102"
	// EntityTypeOrganizationAdmin administers a single tenant organization.
	EntityTypeOrganizationAdmin EntityType = "103"
)

// Known reports whether t is one of the three defined codes.
func (t EntityType) Known() bool {
	switch t {
	case EntityTypeSuperAdmin, EntityTypeEmployee, EntityTypeOrganizationAdmin:
		return true
	default:
		return false
	}
}

// Name returns the human label for t, or "Unknown".
func (t EntityType) Name() string {
	switch t {
	case EntityTypeSuperAdmin:
		return "SuperAdmin"
	case EntityTypeEmployee:
		return "Employee"
	case EntityTypeOrganizationAdmin:
		return "OrganizationAdmin"
	default:
		return "Unknown"
	}
}

func (t EntityType) deniedMessage() string {
	switch t {
	case EntityTypeSuperAdmin:
		return MessageNotSuperAdmin
	case EntityTypeEmployee:
		return MessageNotEmployee
	case EntityTypeOrganizationAdmin:
		return MessageNotOrganizationAdmin
	default:
		return MessageAccessDenied
	}
}

// ParseEntityType accepts a persisted code ("101") or a label
// ("SuperAdmin"). Labels must match exactly.
func ParseEntityType(s string) (EntityType, bool) {
	t := EntityType(s)
	if t.Known() {
		return t, true
	}
	for _, candidate := range []EntityType{EntityTypeSuperAdmin, EntityTypeEmployee, EntityTypeOrganizationAdmin} {
		if candidate.Name() == s {
			return candidate, true
		}
	}
	return "", false
}

// UnmarshalText accepts a code or a label. Unknown values are kept verbatim
// so request validation can reject them.
func (t *EntityType) UnmarshalText(b []byte) error {
	if parsed, ok := ParseEntityType(string(b)); ok {
		*t = parsed
		return nil
	}
	*t = EntityType(b)
	return nil
}

// Response messages returned to callers. They are part of the public
// contract and must not vary with the failure cause.
const (
	MessageLoginSuccessful      = "Login successful"
	MessageInvalidCredentials   = "Invalid credentials"
	MessageLoginRateLimited     = "Too many login attempts, try again later."
	MessageSessionValid         = "Session is valid."
	MessageSessionInvalid       = "Session has expired or is invalid."
	MessageLogoutSuccessful     = "Logout successful, session destroyed."
	MessageNotSuperAdmin        = "Access Denied: User is not a SuperAdmin."
	MessageNotEmployee          = "Access Denied: Only Employee Have the Access To The Api."
	MessageNotOrganizationAdmin = "Access Denied: User is not an Organization admin."
	MessageAccessDenied         = "Access Denied."
	MessageAccessGranted        = "Access granted."
)

// AccountStatus is the lifecycle state of an account or role binding.
type AccountStatus string

const (
	AccountActive   AccountStatus = "ACTIVE"
	AccountInactive AccountStatus = "INACTIVE"
)

// Account is one credential-store row. PasswordHash is a bcrypt hash; the
// plaintext never reaches this type.
type Account struct {
	ID            string
	FirstName     string
	LastName      string
	Username      string
	Email         string
	Phone         string
	PasswordHash  string
	EntityType    EntityType
	Status        AccountStatus
	EntityID      string
	RoleBindingID string
	Policy        string

	CreatedBy string
	CreatedAt time.Time
	UpdatedBy string
	UpdatedAt time.Time
}

// Tenantless reports whether the account belongs to no entity.
func (a *Account) Tenantless() bool {
	return a.EntityID == ""
}

// Entity is a tenant organization.
type Entity struct {
	ID          string
	Name        string
	Description string
	Type        EntityType
	Policy      string

	CreatedBy string
	CreatedAt time.Time
	UpdatedBy string
	UpdatedAt time.Time
}

// Role is a tenant-independent role template.
type Role struct {
	ID          string
	Name        string
	Description string

	CreatedBy string
	CreatedAt time.Time
	UpdatedBy string
	UpdatedAt time.Time
}

// RoleBinding attaches a Role to an Entity. Name and Description are
// copied from the role at creation and do not follow later role edits.
type RoleBinding struct {
	ID          string
	EntityID    string
	RoleID      string
	Name        string
	Description string
	Status      AccountStatus
	Policy      string

	CreatedBy string
	CreatedAt time.Time
	UpdatedBy string
	UpdatedAt time.Time
}

// SessionRecord is the durable audit row written next to each live session.
// LastActivity and ExpiresAt are unix seconds.
type SessionRecord struct {
	ID           string
	AccountID    string
	IPAddress    string
	UserAgent    string
	Payload      string
	LastActivity int64
	ExpiresAt    int64
}

// TenantContext is either NoTenant or Tenant.
type TenantContext interface {
	tenantContext()
}

// NoTenant marks a principal outside every organization.
type NoTenant struct{}

// Tenant is the organization snapshot attached to a session at login.
type Tenant struct {
	ID          string
	Name        string
	Description string
	Policy      string
}

func (NoTenant) tenantContext() {}
func (Tenant) tenantContext()   {}

// SessionContext is the identity and tenant snapshot carried by a live
// session. It is built once at login and never mutated afterwards.
type SessionContext struct {
	UserID     string
	Username   string
	Email      string
	Phone      string
	EntityType EntityType
	Tenant     TenantContext
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// TenantID returns the tenant id, or "" for tenant-less sessions.
func (s *SessionContext) TenantID() string {
	if s == nil {
		return ""
	}
	if t, ok := s.Tenant.(Tenant); ok {
		return t.ID
	}
	return ""
}

// LoginRequest carries up to three identifiers and the raw password. Each
// non-empty identifier is tried in the order username, email, phone and the
// first one naming an account wins.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Identifier returns the primary identifier. Throttling and audit events
// are keyed on it.
func (r LoginRequest) Identifier() string {
	if ids := r.Identifiers(); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// Identifiers returns the distinct non-empty identifiers in lookup order.
func (r LoginRequest) Identifiers() []string {
	var ids []string
	for _, v := range []string{r.Username, r.Email, r.Phone} {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(ids, v) {
			continue
		}
		ids = append(ids, v)
	}
	return ids
}

// RequestMetadata describes the transport a request arrived on.
type RequestMetadata struct {
	ForwardedFor string
	RemoteAddr   string
	UserAgent    string
	RequestID    string
}

// ClientIP returns the first X-Forwarded-For entry, or the remote address
// without its port.
func (m RequestMetadata) ClientIP() string {
	if m.ForwardedFor != "" {
		first, _, _ := strings.Cut(m.ForwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	addr := strings.TrimSpace(m.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// LoginResult is the outcome of Engine.Login. Domain failures are reported
// here with Err set; only infrastructure failures surface as a Go error.
type LoginResult struct {
	StatusCode    int
	Message       string
	SessionHandle string
	Session       *SessionContext
	Err           error
}

// Succeeded reports whether a session was established.
func (r *LoginResult) Succeeded() bool {
	return r != nil && r.SessionHandle != "" && r.Err == nil
}

// Verdict is the outcome of session validation or authorization.
type Verdict struct {
	StatusCode   int
	Message      string
	SessionValid bool
	Session      *SessionContext
	Err          error
}

// Allowed reports whether the request may proceed.
func (v *Verdict) Allowed() bool {
	return v != nil && v.Err == nil && v.StatusCode >= 200 && v.StatusCode < 300
}
