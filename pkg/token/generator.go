package token

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"strings"
)

// DefaultLength is the default token length in bytes.
const DefaultLength = 32

const (
	// KeyIDPrefix starts every API key ID.
	KeyIDPrefix = "sbk-"
	// SecretPrefix starts every API key secret.
	SecretPrefix = "sbk_"
)

var idEncoding = base32.NewEncoding("0123456789abcdefghjkmnpqrstvwxyz").WithPadding(base32.NoPadding)

// Generate generates a cryptographically secure random token.
//
// The returned token is Base64 RawURL encoded for safe URL transmission.
func Generate() (string, error) {
	return GenerateWithLength(DefaultLength)
}

// GenerateWithLength generates a token with the specified byte length.
func GenerateWithLength(length int) (string, error) {
	bytes, err := GenerateBytes(length)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// GenerateBytes generates random bytes.
func GenerateBytes(length int) ([]byte, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return nil, err
	}
	return bytes, nil
}

// NewKey generates an API key ID and its plaintext secret.
func NewKey() (id, secret string, err error) {
	raw, err := GenerateBytes(16)
	if err != nil {
		return "", "", err
	}
	body, err := Generate()
	if err != nil {
		return "", "", err
	}
	return KeyIDPrefix + idEncoding.EncodeToString(raw), SecretPrefix + body, nil
}

// IsKeyID reports whether s looks like an API key ID.
func IsKeyID(s string) bool {
	if !strings.HasPrefix(s, KeyIDPrefix) {
		return false
	}
	_, err := idEncoding.DecodeString(s[len(KeyIDPrefix):])
	return err == nil && len(s) > len(KeyIDPrefix)
}
