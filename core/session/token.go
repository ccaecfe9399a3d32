// Package session issues and validates the bearer tokens that keep a user logged in
// across restarts.
package session

import (
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"

	"github.com/saber-pedagogico/saber/core/school"
)

// DefaultTTL is the lifetime of a session token.
const DefaultTTL = 24 * time.Hour

// ErrInvalidToken is returned for malformed, tampered and expired tokens alike.
var ErrInvalidToken = errors.New("invalid session token")

// Claims are the identity claims carried by a session token.
type Claims struct {
	jwt.StandardClaims
	Email string      `json:"email"`
	Role  school.Role `json:"role"`
}

// Codec encodes and decodes session tokens.
// With an empty key tokens are unsigned ("alg": "none"): they can be decoded by
// anyone and forged by anyone.
type Codec struct {
	key    []byte
	ttl    time.Duration
	issuer string

	Now func() time.Time // mockable
}

func NewCodec(secretKey, issuer string, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{
		key:    []byte(secretKey),
		ttl:    ttl,
		issuer: issuer,
		Now:    time.Now,
	}
}

func (c *Codec) Signed() bool { return len(c.key) > 0 }

func (c *Codec) TTL() time.Duration { return c.ttl }

// CreateToken returns a token for usr expiring TTL from now.
// Every token carries a unique id, so that it can be revoked on its own.
func (c *Codec) CreateToken(usr school.User) (string, error) {
	now := c.Now()
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   usr.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(c.ttl).Unix(),
		},
		Email: usr.Email,
		Role:  usr.Role,
	}

	if !c.Signed() {
		return jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// VerifyToken decodes token and checks it has not expired (exp <= now is expired).
func (c *Codec) VerifyToken(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	// expiry is checked against c.Now below
	parser := jwt.Parser{SkipClaimsValidation: true}
	claims := new(Claims)
	if _, err := parser.ParseWithClaims(token, claims, c.keyFunc); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ExpiresAt <= c.Now().Unix() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RevocationKey identifies claims in a revocation list. Tokens issued without
// an id fall back to the raw token.
func RevocationKey(token string, claims *Claims) string {
	if claims.Id != "" {
		return claims.Id
	}
	return token
}

func (c *Codec) keyFunc(token *jwt.Token) (interface{}, error) {
	if !c.Signed() {
		if token.Method != jwt.SigningMethodNone {
			return nil, ErrInvalidToken
		}
		return jwt.UnsafeAllowNoneSignatureType, nil
	}
	// refuse "none" and asymmetric algorithms
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidToken
	}
	return c.key, nil
}
