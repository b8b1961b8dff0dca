package session

// Session is the live server-side record behind a session handle. Every
// identity and tenant field is written once at login and never mutated.
type Session struct {
	SessionID string

	UserID     string
	Username   string
	Email      string
	Phone      string
	EntityType string

	// HasTenant is false for tenant-less principals; the Tenant* fields are
	// then empty.
	HasTenant         bool
	TenantID          string
	TenantName        string
	TenantDescription string
	TenantPolicy      string

	IPAddress string
	UserAgent string

	CreatedAt int64
	ExpiresAt int64
}

// Expired reports whether the absolute expiry has passed at unix time now.
func (s *Session) Expired(now int64) bool {
	return now >= s.ExpiresAt
}

// Clone returns an independent copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
