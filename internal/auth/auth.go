// Package auth issues and verifies bearer tokens and checks role membership.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"eventhub/internal/domain"
)

var (
	errMissingAuthorization = errors.New("authorization header is required")
	errBadAuthorization     = errors.New("authorization header must be a bearer token")
)

// Identity is the authenticated caller carried by a valid token.
type Identity struct {
	UserID int64       `json:"id"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
}

type claims struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 tokens with a shared secret.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	m := &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "eventhub",
		now:    time.Now,
	}
	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	)
	return m, nil
}

// Issue signs a token for identity and returns it with its expiry.
func (m *TokenManager) Issue(identity Identity) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: identity.Email,
		Role:  identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.UserID, 10),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Authenticate verifies token and returns the identity it carries. Every
// failure is reported as domain.ErrUnauthorized.
func (m *TokenManager) Authenticate(token string) (Identity, error) {
	var c claims
	_, err := m.parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Identity{}, fmt.Errorf("%w: invalid subject", domain.ErrUnauthorized)
	}
	if !c.Role.Valid() {
		return Identity{}, fmt.Errorf("%w: invalid role", domain.ErrUnauthorized)
	}
	return Identity{UserID: id, Email: c.Email, Role: c.Role}, nil
}

// Authorize passes identity through when it holds one of allowed and fails
// with domain.ErrForbidden otherwise.
func Authorize(identity Identity, allowed ...domain.Role) (Identity, error) {
	if slices.Contains(allowed, identity.Role) {
		return identity, nil
	}
	return Identity{}, fmt.Errorf("%w: role %s is not permitted", domain.ErrForbidden, identity.Role)
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthorized, errMissingAuthorization)
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthorized, errBadAuthorization)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthorized, errBadAuthorization)
	}
	return token, nil
}
