package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// CurrentSchemaVersion is the leading byte of every encoded session.
const CurrentSchemaVersion = 1

const flagHasTenant byte = 1 << 0

// ErrCorrupt is returned for blobs that cannot be decoded.
var ErrCorrupt = errors.New("session blob corrupt")

// Encode serialises s as:
//
//	version(1) flags(1) strings(11 x [u16 len][bytes]) createdAt(i64) expiresAt(i64)
//
// SessionID is not encoded; it is the storage key.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(CurrentSchemaVersion)

	var flags byte
	if s.HasTenant {
		flags |= flagHasTenant
	}
	buf.WriteByte(flags)

	for _, field := range []struct {
		name  string
		value string
	}{
		{"userID", s.UserID},
		{"username", s.Username},
		{"email", s.Email},
		{"phone", s.Phone},
		{"entityType", s.EntityType},
		{"tenantID", s.TenantID},
		{"tenantName", s.TenantName},
		{"tenantDescription", s.TenantDescription},
		{"tenantPolicy", s.TenantPolicy},
		{"ipAddress", s.IPAddress},
		{"userAgent", s.UserAgent},
	} {
		if err := writeString(&buf, field.value); err != nil {
			return nil, fmt.Errorf("%s: %w", field.name, err)
		}
	}

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a blob produced by Encode. Trailing bytes are rejected.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, ErrCorrupt
	}
	if version != CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: unknown version %d", ErrCorrupt, version)
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, ErrCorrupt
	}

	s := &Session{HasTenant: flags&flagHasTenant != 0}

	for _, dst := range []*string{
		&s.UserID,
		&s.Username,
		&s.Email,
		&s.Phone,
		&s.EntityType,
		&s.TenantID,
		&s.TenantName,
		&s.TenantDescription,
		&s.TenantPolicy,
		&s.IPAddress,
		&s.UserAgent,
	} {
		v, err := readString(reader)
		if err != nil {
			return nil, ErrCorrupt
		}
		*dst = v
	}

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, ErrCorrupt
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, ErrCorrupt
	}
	if reader.Len() != 0 {
		return nil, fmt.Errorf("%w: trailing bytes", ErrCorrupt)
	}

	return s, nil
}

func writeString(buf *bytes.Buffer, v string) error {
	if len(v) > math.MaxUint16 {
		return errors.New("value too long")
	}
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(len(v)))
	buf.Write(n[:])
	buf.WriteString(v)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n [2]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return "", err
	}
	size := int(binary.BigEndian.Uint16(n[:]))
	if size > r.Len() {
		return "", io.ErrUnexpectedEOF
	}
	b := make([]byte, size)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
