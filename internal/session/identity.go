// Package session holds the identity and mutable settings for one hosted
// chat session. A process hosts exactly one session; the code and admin
// password are generated at startup and live until the process exits.
package session

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Alphabets for generated credentials. Ambiguous glyphs (I, O, 0, 1 and
// their lowercase forms) are excluded so codes survive being read aloud
// or retyped from a projector.
const (
	codeAlphabet     = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	passwordAlphabet = "abcdefghjklmnpqrstuvwxyz23456789"
)

// CodeLength is the number of characters in a session code.
const CodeLength = 6

// PasswordLength is the number of characters in an admin password.
const PasswordLength = 8

// Identity is the immutable identity of one session: the participant
// session code and the admin password. Regenerated only by restart.
type Identity struct {
	// code is the join code shown to the operator, uppercase.
	code string

	// adminPassword is kept in memory for one-time operator display.
	adminPassword string

	// adminHash is the bcrypt hash used for admin-auth comparisons.
	adminHash []byte
}

// NewIdentity generates a fresh session code and admin password using
// crypto/rand. The admin password is immediately hashed with bcrypt;
// the plaintext is retained only so the operator can be shown it once
// at startup.
func NewIdentity() (*Identity, error) {
	code, err := randomString(codeAlphabet, CodeLength)
	if err != nil {
		return nil, fmt.Errorf("generate session code: %w", err)
	}

	password, err := randomString(passwordAlphabet, PasswordLength)
	if err != nil {
		return nil, fmt.Errorf("generate admin password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}

	return &Identity{
		code:          code,
		adminPassword: password,
		adminHash:     hash,
	}, nil
}

// Code returns the session code participants type to join.
func (id *Identity) Code() string {
	return id.code
}

// AdminPassword returns the plaintext admin password for operator display.
func (id *Identity) AdminPassword() string {
	return id.adminPassword
}

// CheckCode reports whether the provided code matches the session code.
// Comparison is case-insensitive and ignores surrounding whitespace,
// matching how people retype codes from a screen.
func (id *Identity) CheckCode(code string) bool {
	return strings.EqualFold(strings.TrimSpace(code), id.code)
}

// CheckAdminPassword reports whether the provided password matches the
// admin password. The comparison goes through bcrypt, so timing does not
// leak how much of the password was correct.
func (id *Identity) CheckAdminPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(id.adminHash, []byte(password)) == nil
}

// randomString draws length characters uniformly from alphabet using
// crypto/rand. rand.Int is used per character to avoid modulo bias.
func randomString(alphabet string, length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}
