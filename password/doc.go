// Package password implements bcrypt hashing and verification for stored
// credentials.
//
// # Output format
//
// Hashes use the modular crypt format produced by golang.org/x/crypto/bcrypt:
//
//	$2a$<cost>$<22-char salt><31-char hash>
//
// [Bcrypt.NeedsUpgrade] reports hashes created with a lower work factor so the
// Engine can re-hash on the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other tenantAuth package.
//   - Log plaintext passwords.
package password
