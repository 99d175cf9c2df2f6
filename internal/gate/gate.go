// Package gate implements the console access gate: a shared access code
// exchanged for a short-lived unlock token. It keeps casual visitors out of an
// internal tool; it is a deterrent, not an authentication system.
package gate

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const issuer = "ops-console"

var (
	// ErrInvalidCode is returned when the submitted access code is wrong
	ErrInvalidCode = errors.New("invalid access code")
	// ErrInvalidToken is returned when an unlock token fails verification
	ErrInvalidToken = errors.New("invalid unlock token")
)

// Gate issues and verifies unlock tokens
type Gate struct {
	accessCode string
	secret     []byte
	window     time.Duration
	now        func() time.Time
}

// New creates a gate. window controls how long an unlock lasts.
func New(accessCode, secret string, window time.Duration) *Gate {
	return &Gate{
		accessCode: accessCode,
		secret:     []byte(secret),
		window:     window,
		now:        time.Now,
	}
}

// Window returns the unlock validity period
func (g *Gate) Window() time.Duration {
	return g.window
}

// Unlock exchanges an access code for a signed unlock token
func (g *Gate) Unlock(code string) (string, time.Time, error) {
	if subtle.ConstantTimeCompare([]byte(code), []byte(g.accessCode)) != 1 {
		return "", time.Time{}, ErrInvalidCode
	}

	now := g.now()
	expiresAt := now.Add(g.window)

	token, err := jwt.NewBuilder().
		Issuer(issuer).
		IssuedAt(now).
		Expiration(expiresAt).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build unlock token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, g.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign unlock token: %w", err)
	}

	return string(signed), expiresAt, nil
}

// Verify checks an unlock token's signature and expiry
func (g *Gate) Verify(tokenString string) error {
	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, g.secret),
		jwt.WithValidate(true),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if token.Issuer() != issuer {
		return fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	}

	return nil
}
