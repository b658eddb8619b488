package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tutorhub/internal/principal"
)

var (
	ErrMissingToken   = errors.New("missing token")
	ErrMalformedToken = errors.New("malformed token")
	ErrExpiredToken   = errors.New("expired token")
)

// DefaultTTL is the lifetime of a session token when none is configured.
const DefaultTTL = 24 * time.Hour

// Claims represents JWT payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Token is a signed session token.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Issuer signs and verifies HS256 session tokens. Verification never touches a store.
type Issuer struct {
	issuer string
	key    []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer for the given signing key.
func NewIssuer(issuer, key string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{issuer: issuer, key: []byte(key), ttl: ttl, now: time.Now}
}

// Issue issues a signed token carrying the principal id and role.
func (i *Issuer) Issue(id principal.Identity) (Token, error) {
	if id.ID == "" {
		return Token{}, errors.New("principal id required")
	}
	now := i.now()
	exp := now.Add(i.ttl)
	claims := Claims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

// Verify validates a raw token and returns the identity it carries.
func (i *Issuer) Verify(tokenStr string) (principal.Identity, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return principal.Identity{}, ErrMissingToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return i.key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return principal.Identity{}, ErrExpiredToken
		}
		return principal.Identity{}, ErrMalformedToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return principal.Identity{}, ErrMalformedToken
	}
	role, err := principal.ParseRole(claims.Role)
	if err != nil {
		return principal.Identity{}, ErrMalformedToken
	}
	return principal.Identity{ID: claims.Subject, Role: role}, nil
}

// VerifyHeader accepts either a raw token or the "Bearer <token>" form. The raw value is tried
// first, then the value with the bearer prefix removed. A bare scheme counts as no token.
func (i *Issuer) VerifyHeader(header string) (principal.Identity, error) {
	header = strings.TrimSpace(header)
	if header == "" || strings.EqualFold(header, "bearer") {
		return principal.Identity{}, ErrMissingToken
	}
	candidates := []string{header}
	if len(header) > len("bearer ") && strings.EqualFold(header[:len("bearer ")], "bearer ") {
		candidates = append(candidates, header[len("bearer "):])
	}

	failure := ErrMalformedToken
	for _, c := range candidates {
		id, err := i.Verify(c)
		if err == nil {
			return id, nil
		}
		if errors.Is(err, ErrExpiredToken) {
			failure = ErrExpiredToken
		}
	}
	return principal.Identity{}, failure
}
