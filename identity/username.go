package identity

import (
	"context"
	"strconv"
	"strings"
	"unicode"
)

// ExistsFunc reports whether a username is already taken.
type ExistsFunc func(ctx context.Context, username string) (bool, error)

// GenerateUsername builds "first.last" in lower case with every whitespace
// rune removed.
func GenerateUsername(first, last string) string {
	raw := strings.ToLower(first + "." + last)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}

// EnsureUnique returns base when it is free, otherwise base1, base2, ... up to
// the first candidate exists reports as free.
//
// The check-then-use sequence is racy under concurrent provisioning; callers
// must rely on a store uniqueness constraint and retry on conflict.
func EnsureUnique(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	candidate := base
	for suffix := 1; ; suffix++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(suffix)
	}
}
