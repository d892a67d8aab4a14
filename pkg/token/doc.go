// Package token generates and verifies API key credentials.
//
// Key format:
//
//   - ID: sbk-<26 char ULID-like base32>, public, safe to log
//   - Secret: sbk_<43 chars Base64 RawURL>, shown once, masked in logs
//
// Secrets are stored as Argon2id hashes in PHC string form:
//
//	$argon2id$v=19$m=16384,t=2,p=2$<salt>$<hash>
//
// Verification re-derives the hash with the parameters encoded in the
// string and compares in constant time.
package token
