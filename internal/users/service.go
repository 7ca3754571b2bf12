package users

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hwsystem/hwsystem/internal/identity"
	"github.com/hwsystem/hwsystem/internal/platform/httpx"
)

// Service orchestrates user management operations.
type Service struct {
	repo       Repository
	identities *identity.Cache
	logger     *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, identities *identity.Cache, logger *slog.Logger) *Service {
	return &Service{repo: repo, identities: identities, logger: logger}
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

// ChangeRole updates a user's global role and invalidates their cached
// principal. Requests in flight before the invalidation may still see the
// old role; requests after it see the new one.
func (s *Service) ChangeRole(ctx context.Context, id int64, role identity.GlobalRole) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, role)
	}
	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		return err
	}
	if err := s.identities.Invalidate(ctx, id); err != nil {
		s.logger.Warn("invalidate principal", slog.Int64("user_id", id), slog.Any("error", err))
	}
	return nil
}

// ChangeStatus updates a user's account status and invalidates their cached
// principal, so suspensions take effect within one resolution cycle.
func (s *Service) ChangeStatus(ctx context.Context, id int64, status identity.Status) error {
	switch status {
	case identity.StatusActive, identity.StatusSuspended, identity.StatusBanned:
	default:
		return fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	if err := s.identities.Invalidate(ctx, id); err != nil {
		s.logger.Warn("invalidate principal", slog.Int64("user_id", id), slog.Any("error", err))
	}
	return nil
}
