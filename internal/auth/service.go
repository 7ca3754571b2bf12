package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hwsystem/hwsystem/internal/identity"
	"github.com/hwsystem/hwsystem/internal/platform/httpx"
	"github.com/hwsystem/hwsystem/internal/token"
)

// ErrInvalidCredentials covers unknown logins, wrong passwords, and disabled
// accounts alike, so a login response never reveals whether a username
// exists.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Service wraps the credential and session flows.
type Service struct {
	repo       Repository
	tokens     *token.Service
	identities *identity.Cache
	passwords  PasswordVerifier
	logger     *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, tokens *token.Service, identities *identity.Cache, passwords PasswordVerifier, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		tokens:     tokens,
		identities: identities,
		passwords:  passwords,
		logger:     logger,
	}
}

// LoginResult carries everything the login endpoint responds with. The
// refresh token travels only in the cookie.
type LoginResult struct {
	User            *User
	AccessToken     string
	RefreshToken    string
	AccessExpiresIn int64
	RefreshTTL      time.Duration
}

// Login validates credentials and issues a token pair. The refresh lifetime
// is extended when rememberMe is set. A session audit row records the login.
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string, rememberMe bool, ip, userAgent string) (*LoginResult, error) {
	user, err := s.authenticate(ctx, usernameOrEmail, password)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.Issue(user.ID, user.Role, rememberMe)
	if err != nil {
		return nil, fmt.Errorf("auth: issue tokens: %w", err)
	}

	if err := s.repo.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("touch last login", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	session := Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(pair.RefreshTTL),
		IP:        ip,
		UserAgent: userAgent,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		s.logger.Warn("register session", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}

	return &LoginResult{
		User:            user,
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		AccessExpiresIn: pair.AccessExpiresIn,
		RefreshTTL:      pair.RefreshTTL,
	}, nil
}

// Register creates a new account with the default role. Username and email
// collisions surface as httpx.ErrDuplicate.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	return s.repo.CreateUser(ctx, username, email, hash)
}

// Refresh exchanges a valid refresh token for a new access token carrying
// the user's current global role.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return s.tokens.Refresh(ctx, refreshToken, s.identities)
}

// Logout removes the user's session audit rows. The cookie clearing happens
// at the HTTP layer regardless of the outcome here.
func (s *Service) Logout(ctx context.Context, userID int64) {
	if err := s.repo.DeleteSessionsForUser(ctx, userID); err != nil {
		s.logger.Warn("remove sessions", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

// AccessExpirySeconds reports the access token lifetime for response bodies.
func (s *Service) AccessExpirySeconds() int64 {
	return int64(s.tokens.AccessTTL().Seconds())
}

func (s *Service) authenticate(ctx context.Context, usernameOrEmail, password string) (*User, error) {
	user, err := s.repo.FindByLogin(ctx, usernameOrEmail)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.passwords.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if user.Status != identity.StatusActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
