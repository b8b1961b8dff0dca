package tenantAuth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is the single outcome for every failed login.
	// Unknown accounts, wrong passwords, inactive accounts, and empty input all
	// map to it so callers cannot learn which identifiers exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionInvalid covers absent, malformed, destroyed, and expired handles.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrAccessDenied is returned when a valid session lacks the required entity type.
	ErrAccessDenied = errors.New("access denied")
	// ErrNotFound reports a missing account, entity, role, or role binding.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a uniqueness violation in the credential store.
	ErrConflict = errors.New("conflict")
	// ErrUsernameTaken wraps ErrConflict for the username column.
	ErrUsernameTaken = fmt.Errorf("%w: username already exists", ErrConflict)
	// ErrEmailTaken wraps ErrConflict for the email column.
	ErrEmailTaken = fmt.Errorf("%w: email already exists", ErrConflict)
	// ErrPhoneTaken wraps ErrConflict for the phone column.
	ErrPhoneTaken = fmt.Errorf("%w: phone already exists", ErrConflict)
	// ErrInvalidRequest reports malformed provisioning input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrLoginRateLimited is returned when the login throttle is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrStoreUnavailable wraps connectivity failures of any backing store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEngineNotReady is returned by methods called on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrCrossTenantBinding is returned when an account would be bound to a
	// role binding that belongs to another entity.
	ErrCrossTenantBinding = errors.New("role binding belongs to another entity")
)
