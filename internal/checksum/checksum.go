// Package checksum issues and verifies the form tokens that bind a form
// payload to its identifying fields.
package checksum

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Fields identify the form a token is issued for.
type Fields struct {
	Type     string `json:"type"`
	TypeID   string `json:"typeId"`
	FormID   string `json:"formId"`
	FormName string `json:"formName"`
}

// Signer issues and verifies tokens with a server-side secret.
type Signer struct {
	secret []byte
	cost   int
}

// New returns a Signer. A cost outside bcrypt's range falls back to
// bcrypt.DefaultCost.
func New(secret string, cost int) *Signer {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Signer{secret: []byte(secret), cost: cost}
}

// Sign returns a salted token for f.
func (s *Signer) Sign(f Fields) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(s.key(f), s.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether token was issued for f with this signer's secret.
func (s *Signer) Verify(token string, f Fields) bool {
	if token == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(token), s.key(f))
	return err == nil
}

// ErrMismatch is returned by Check when a token does not match.
var ErrMismatch = errors.New("checksum: token mismatch")

func (s *Signer) Check(token string, f Fields) error {
	if !s.Verify(token, f) {
		return ErrMismatch
	}
	return nil
}

// key is the keyed digest of the fields. The hex form stays within
// bcrypt's 72 byte input limit whatever the field lengths.
func (s *Signer) key(f Fields) []byte {
	mac := hmac.New(sha256.New, s.secret)
	for _, part := range []string{f.Type, f.TypeID, f.FormID, f.FormName} {
		mac.Write([]byte(part))
		mac.Write([]byte{0})
	}
	sum := mac.Sum(nil)
	out := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(out, sum)
	return out
}
