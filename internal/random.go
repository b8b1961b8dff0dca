package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// SessionID is a 128-bit random session handle.
type SessionID [16]byte

// NewSessionID draws a fresh handle from crypto/rand.
func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) String() string {
	// base64url, no padding, 22 chars
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// ParseSessionID decodes a handle produced by SessionID.String.
func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// WellFormedSessionID reports whether s could have come from NewSessionID.
func WellFormedSessionID(s string) bool {
	_, err := ParseSessionID(s)
	return err == nil
}
