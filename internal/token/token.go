// Package token implements the credential scheme shared by the users and
// library services: deterministic per-user capability tokens derived from a
// shared secret, the static inter-service credential, and bearer header
// parsing. Everything here is pure - no storage, no network.
package token

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Scheme derives and verifies user capability tokens. The secret acts as the
// UUIDv5 namespace, so the same (secret, identifier) pair always yields the
// same token and either service can recompute it without a session store.
type Scheme struct {
	namespace uuid.UUID
	secret    string
}

// NewScheme builds a Scheme from the configured shared secret. The secret
// must be a UUID string; it doubles as the inter-service credential.
func NewScheme(secret string) (*Scheme, error) {
	namespace, err := uuid.Parse(secret)
	if err != nil {
		return nil, fmt.Errorf("shared secret must be a valid UUID: %w", err)
	}
	return &Scheme{namespace: namespace, secret: secret}, nil
}

// DeriveUserToken returns the capability token for an identifier. Tokens are
// not stored independently of the user record and cannot be revoked without
// rotating the secret.
func (s *Scheme) DeriveUserToken(identifier uuid.UUID) string {
	return uuid.NewSHA1(s.namespace, []byte(identifier.String())).String()
}

// Verify reports whether token is the capability token for identifier. It
// recomputes the derivation and compares in constant time, failing closed on
// any malformed input.
func (s *Scheme) Verify(token string, identifier uuid.UUID) bool {
	if token == "" {
		return false
	}
	expected := s.DeriveUserToken(identifier)
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

// IsServiceCredential reports whether token is the static inter-service
// credential. A well-formed user token must never pass this check.
func (s *Scheme) IsServiceCredential(token string) bool {
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.secret)) == 1
}

// ExtractBearer parses an Authorization header value of the exact form
// "Bearer <token>". Any other scheme, a missing value, or extra parts yields
// ok=false, pushing the caller onto the unauthorized path.
func ExtractBearer(headerValue string) (string, bool) {
	if headerValue == "" {
		return "", false
	}
	parts := strings.Fields(headerValue)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// JoinCompound builds the "{identifier}.{token}" form used on cross-service
// calls so the recipient can recover the identifier without a lookup.
func JoinCompound(identifier uuid.UUID, token string) string {
	return identifier.String() + "." + token
}

// SplitCompound parses a compound token. Both halves must be UUID-shaped;
// anything else yields ok=false.
func SplitCompound(s string) (uuid.UUID, string, bool) {
	left, right, found := strings.Cut(s, ".")
	if !found {
		return uuid.Nil, "", false
	}
	identifier, err := uuid.Parse(left)
	if err != nil {
		return uuid.Nil, "", false
	}
	if _, err := uuid.Parse(right); err != nil {
		return uuid.Nil, "", false
	}
	return identifier, right, true
}
