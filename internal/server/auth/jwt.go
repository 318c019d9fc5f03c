// Package auth holds the credential primitives of the server: password
// hashing, JWT issuing and validation, bearer token extraction and the
// principal carried in request contexts.
package auth

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var reservedClaims = []string{"sub", "iat", "exp", "nbf", "jti", "iss", "aud"}

// Token is the decoded content of a valid access token.
type Token struct {
	ID        string
	Subject   string
	Claims    map[string]any
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenIssuer interface {
	Issue(subject string, claims map[string]any, ttl time.Duration) (string, error)
}

// TokenValidator returns common.ErrInvalidSignature for anything that is not
// a well-formed token signed with our key, and common.ErrTokenExpired for a
// genuine token past its exp.
type TokenValidator interface {
	Validate(token string) (*Token, error)
}

// TokenManager issues and validates HS256 tokens with a shared secret.
type TokenManager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

type TokenOption func(*TokenManager)

// WithIssuer sets the iss claim on issued tokens and requires it on
// validation.
func WithIssuer(issuer string) TokenOption {
	return func(m *TokenManager) { m.issuer = issuer }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) { m.now = now }
}

func NewTokenManager(secret []byte, opts ...TokenOption) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: token secret must not be empty", common.ErrorValidation)
	}

	m := &TokenManager{secret: append([]byte(nil), secret...), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue signs a token for subject. Extra claims are copied as is, except
// that registered names are always set by the manager.
func (m *TokenManager) Issue(subject string, claims map[string]any, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: token subject must not be empty", common.ErrorValidation)
	}
	if ttl <= 0 {
		return "", fmt.Errorf("%w: token ttl must be positive", common.ErrorValidation)
	}

	now := m.now()
	mc := jwt.MapClaims{}
	maps.Copy(mc, claims)
	for _, name := range reservedClaims {
		delete(mc, name)
	}

	mc["sub"] = subject
	mc["iat"] = now.Unix()
	mc["exp"] = now.Add(ttl).Unix()
	mc["jti"] = uuid.NewString()
	if m.issuer != "" {
		mc["iss"] = m.issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) Validate(tokenString string) (*Token, error) {
	if tokenString == "" {
		return nil, common.ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	mc := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, mc, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidSignature, err)
	}

	return decodeClaims(mc)
}

func decodeClaims(mc jwt.MapClaims) (*Token, error) {
	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject", common.ErrInvalidSignature)
	}

	tok := &Token{Subject: sub, Claims: make(map[string]any)}
	if exp, _ := mc.GetExpirationTime(); exp != nil {
		tok.ExpiresAt = exp.Time
	}
	if iat, _ := mc.GetIssuedAt(); iat != nil {
		tok.IssuedAt = iat.Time
	}
	if jti, ok := mc["jti"].(string); ok {
		tok.ID = jti
	}

	maps.Copy(tok.Claims, mc)
	for _, name := range reservedClaims {
		delete(tok.Claims, name)
	}
	return tok, nil
}
