package filecat

import (
	"fmt"
	"strings"
)

// Authenticator types stored per user. Each holds an ordered list of
// secrets; password authenticators keep exactly one.
const (
	AuthPassword = "password"
	AuthX509     = "x509"
)

// DefaultPasswordAlg names the hash algorithm assumed when a stored
// password secret arrives without the "$<algo>:" prefix. Hashing itself
// happens upstream; the engine only stores and compares encoded secrets.
const DefaultPasswordAlg = "sha512"

// Authenticator is one user's secrets of a given type.
type Authenticator struct {
	Type    string
	Secrets []string
}

// NewAuthenticator builds an authenticator, failing on unknown types.
func NewAuthenticator(typ string, secrets []string) (*Authenticator, error) {
	switch typ {
	case AuthPassword, AuthX509:
		return &Authenticator{Type: typ, Secrets: append([]string(nil), secrets...)}, nil
	default:
		return nil, fmt.Errorf("filecat: unknown authenticator type %q", typ)
	}
}

// SetSecret replaces all secrets with one. Password secrets are
// normalized to the $<algo>:<hash> encoding on the way in.
func (a *Authenticator) SetSecret(secret string) {
	if a.Type == AuthPassword {
		secret = FormatPasswordSecret(secret)
	}
	a.Secrets = []string{secret}
}

// AddSecret appends a secret if not already present. Password
// authenticators hold a single secret; use SetSecret for those.
func (a *Authenticator) AddSecret(secret string) error {
	if a.Type == AuthPassword {
		return fmt.Errorf("filecat: cannot add secret to a password authenticator, use SetSecret")
	}
	for _, s := range a.Secrets {
		if s == secret {
			return nil
		}
	}
	a.Secrets = append(a.Secrets, secret)
	return nil
}

// VerifySecret reports whether the presented secret matches. Passwords
// compare the unpacked hash; other types compare the raw secret list.
func (a *Authenticator) VerifySecret(secret string) bool {
	if a.Type == AuthPassword {
		if len(a.Secrets) == 0 {
			return false
		}
		return UnpackPasswordSecret(a.Secrets[0]) == UnpackPasswordSecret(secret)
	}
	for _, s := range a.Secrets {
		if s == secret {
			return true
		}
	}
	return false
}

// FormatPasswordSecret encodes a hashed password as $<algo>:<hash>.
// Already-encoded values pass through unchanged.
func FormatPasswordSecret(hashed string) string {
	if strings.HasPrefix(hashed, "$") && strings.Contains(hashed, ":") {
		return hashed
	}
	return "$" + DefaultPasswordAlg + ":" + hashed
}

// UnpackPasswordSecret strips the $<algo>: prefix from a stored secret.
// A bare value is returned as-is.
func UnpackPasswordSecret(secret string) string {
	if strings.HasPrefix(secret, "$") {
		if _, hash, ok := strings.Cut(secret[1:], ":"); ok {
			return hash
		}
	}
	return secret
}

// SetPassword installs (or replaces) the user's password authenticator
// with the given pre-hashed password.
func (u *User) SetPassword(hashed string) {
	if u.Authenticators == nil {
		u.Authenticators = map[string]*Authenticator{}
	}
	a, ok := u.Authenticators[AuthPassword]
	if !ok {
		a = &Authenticator{Type: AuthPassword}
		u.Authenticators[AuthPassword] = a
	}
	a.SetSecret(hashed)
}

// VerifyPassword checks a pre-hashed password against the stored secret.
// The second return value explains a failure.
func (u *User) VerifyPassword(hashed string) (bool, string) {
	a, ok := u.Authenticators[AuthPassword]
	if !ok {
		return false, "no password found"
	}
	if !a.VerifySecret(hashed) {
		return false, "password mismatch"
	}
	return true, "OK"
}
