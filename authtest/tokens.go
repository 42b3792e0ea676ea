package authtest

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "eduauth-authtest"

// Claims is the payload of an issued bearer token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens. Revoke rotates the key so
// every token issued before it stops verifying.
type Tokens struct {
	mu  sync.RWMutex
	key []byte
	ttl time.Duration
}

func NewTokens(ttl time.Duration) (*Tokens, error) {
	if ttl <= 0 {
		return nil, errors.New("token ttl must be > 0")
	}
	t := &Tokens{ttl: ttl}
	if err := t.Revoke(); err != nil {
		return nil, err
	}
	return t, nil
}

// Issue signs a token for userID.
func (t *Tokens) Issue(userID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    tokenIssuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	t.mu.RLock()
	key := t.key
	t.mu.RUnlock()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns its claims.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	t.mu.RLock()
	key := t.key
	t.mu.RUnlock()

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithIssuedAt(),
	)
	token, err := parser.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// Revoke rotates the signing key.
func (t *Tokens) Revoke() error {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return err
	}
	t.mu.Lock()
	t.key = key
	t.mu.Unlock()
	return nil
}
