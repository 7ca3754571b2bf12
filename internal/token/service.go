// Package token issues and verifies the signed session tokens (access and
// refresh) carried by API clients.
package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hwsystem/hwsystem/internal/identity"
)

// Type discriminates access tokens from refresh tokens. An operation must be
// presented the matching type: API calls take access tokens, the refresh flow
// takes refresh tokens.
type Type string

// Token types.
const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Verification errors.
var (
	ErrExpired          = errors.New("token: expired")
	ErrInvalidSignature = errors.New("token: invalid signature")
	ErrWrongType        = errors.New("token: wrong token type")
	ErrMalformed        = errors.New("token: malformed")
)

// Claims is the payload signed into every token. Immutable once signed.
type Claims struct {
	Role      identity.GlobalRole `json:"role"`
	TokenType Type                `json:"token_type"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrMalformed)
	}
	return id, nil
}

// Config holds signing material and expiry policy.
type Config struct {
	Secret             []byte
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	RefreshRememberTTL time.Duration
}

// Default token lifetimes.
const (
	DefaultAccessTTL          = 15 * time.Minute
	DefaultRefreshTTL         = 7 * 24 * time.Hour
	DefaultRefreshRememberTTL = 30 * 24 * time.Hour
)

// MinSecretLen is the minimum accepted signing key length.
const MinSecretLen = 32

var placeholderSecrets = map[string]struct{}{
	"change-me":                 {},
	"changeme":                  {},
	"secret":                    {},
	"your-secret-key":           {},
	"please-change-this-secret": {},
}

// ValidateSecret rejects signing keys that are too short or known
// placeholder values. The process must refuse to start on violation.
func ValidateSecret(secret string) error {
	if _, ok := placeholderSecrets[strings.ToLower(secret)]; ok {
		return errors.New("token: signing secret is a known placeholder value")
	}
	if len(secret) < MinSecretLen {
		return fmt.Errorf("token: signing secret must be at least %d characters", MinSecretLen)
	}
	return nil
}

// RoleSource yields the current global role for a user, independent of any
// role claim embedded in a token.
type RoleSource interface {
	CurrentRole(ctx context.Context, userID int64) (identity.GlobalRole, error)
}

// Pair is the result of issuing a session.
type Pair struct {
	AccessToken  string
	RefreshToken string
	// AccessExpiresIn is the access token lifetime in seconds, for the
	// login response body.
	AccessExpiresIn int64
	// RefreshTTL is the lifetime selected for the refresh token, for the
	// cookie Max-Age.
	RefreshTTL time.Duration
}

// Service signs and verifies session tokens. Stateless; safe for concurrent
// use.
type Service struct {
	config Config
	now    func() time.Time
}

// NewService constructs a Service, applying default lifetimes where the
// config leaves them zero.
func NewService(cfg Config) (*Service, error) {
	if err := ValidateSecret(string(cfg.Secret)); err != nil {
		return nil, err
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.RefreshRememberTTL <= 0 {
		cfg.RefreshRememberTTL = DefaultRefreshRememberTTL
	}
	return &Service{config: cfg, now: time.Now}, nil
}

// Issue creates a signed access/refresh pair for the user. The refresh
// lifetime is extended when rememberMe is set.
func (s *Service) Issue(userID int64, role identity.GlobalRole, rememberMe bool) (Pair, error) {
	refreshTTL := s.config.RefreshTTL
	if rememberMe {
		refreshTTL = s.config.RefreshRememberTTL
	}

	access, err := s.sign(userID, role, TypeAccess, s.config.AccessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.sign(userID, role, TypeRefresh, refreshTTL)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresIn: int64(s.config.AccessTTL.Seconds()),
		RefreshTTL:      refreshTTL,
	}, nil
}

// Verify checks signature, expiry, and token type. It fails with ErrExpired,
// ErrInvalidSignature, ErrWrongType, or ErrMalformed.
func (s *Service) Verify(tokenString string, expected Type) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return s.config.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSignature
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	if claims.TokenType != expected {
		return Claims{}, ErrWrongType
	}
	return claims, nil
}

// Refresh verifies a refresh token and issues a new access token. The global
// role is re-read from roles rather than trusted from the stale refresh
// claim, so a role change takes effect on the next refresh. The refresh token
// itself stays valid until its own expiry; no rotation on use.
func (s *Service) Refresh(ctx context.Context, refreshToken string, roles RoleSource) (string, error) {
	claims, err := s.Verify(refreshToken, TypeRefresh)
	if err != nil {
		return "", err
	}
	userID, err := claims.UserID()
	if err != nil {
		return "", err
	}
	role, err := roles.CurrentRole(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.sign(userID, role, TypeAccess, s.config.AccessTTL)
}

// AccessTTL reports the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration {
	return s.config.AccessTTL
}

func (s *Service) sign(userID int64, role identity.GlobalRole, tokenType Type, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}
