package identity

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
)

const policyModulus = 10_000_000_000_000_000

// GeneratePolicyNumber draws a uniform non-negative 63-bit value and formats
// it with FormatPolicyNumber.
//
// Policy numbers are display identifiers; no collision check is made.
func GeneratePolicyNumber() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	v := binary.BigEndian.Uint64(buf[:]) & math.MaxInt64
	return FormatPolicyNumber(v), nil
}

// FormatPolicyNumber renders v as exactly 16 zero-padded ASCII digits. Values
// of 10^16 and above keep their low 16 decimal digits.
func FormatPolicyNumber(v uint64) string {
	return fmt.Sprintf("%016d", v%policyModulus)
}
