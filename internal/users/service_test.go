package users_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hwsystem/hwsystem/internal/identity"
	"github.com/hwsystem/hwsystem/internal/platform/cache"
	"github.com/hwsystem/hwsystem/internal/platform/httpx"
	"github.com/hwsystem/hwsystem/internal/users"
	_ "github.com/hwsystem/hwsystem/testing"
)

type stubUsersRepo struct {
	users map[int64]*users.User
}

func (r *stubUsersRepo) GetUser(ctx context.Context, id int64) (*users.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return user, nil
}

func (r *stubUsersRepo) UpdateRole(ctx context.Context, id int64, role identity.GlobalRole) error {
	user, ok := r.users[id]
	if !ok {
		return httpx.ErrNotFound
	}
	user.Role = role
	return nil
}

func (r *stubUsersRepo) UpdateStatus(ctx context.Context, id int64, status identity.Status) error {
	user, ok := r.users[id]
	if !ok {
		return httpx.ErrNotFound
	}
	user.Status = status
	return nil
}

type repoBackedIdentityStore struct {
	repo *stubUsersRepo
}

func (s repoBackedIdentityStore) GetPrincipal(ctx context.Context, userID int64) (identity.Principal, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return identity.Principal{}, err
	}
	return identity.Principal{ID: user.ID, Role: user.Role, Status: user.Status}, nil
}

func newFixture(t *testing.T) (*users.Service, *stubUsersRepo, *identity.Cache) {
	t.Helper()
	repo := &stubUsersRepo{users: map[int64]*users.User{
		1: {ID: 1, Username: "alice", Role: identity.RoleUser, Status: identity.StatusActive},
	}}
	backend, err := cache.NewLocalCache(64)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	identities := identity.NewCache(repoBackedIdentityStore{repo}, backend, time.Hour, logger)
	return users.NewService(repo, identities, logger), repo, identities
}

func TestChangeRoleInvalidatesIdentityCache(t *testing.T) {
	service, _, identities := newFixture(t)
	ctx := context.Background()

	// Prime the cache with the old role.
	principal, err := identities.Resolve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, identity.RoleUser, principal.Role)

	require.NoError(t, service.ChangeRole(ctx, 1, identity.RoleTeacher))

	principal, err = identities.Resolve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, identity.RoleTeacher, principal.Role)
}

func TestChangeStatusInvalidatesIdentityCache(t *testing.T) {
	service, _, identities := newFixture(t)
	ctx := context.Background()

	_, err := identities.Resolve(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, service.ChangeStatus(ctx, 1, identity.StatusBanned))

	principal, err := identities.Resolve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, identity.StatusBanned, principal.Status)
	require.False(t, principal.Active())
}

func TestChangeRoleRejectsUnknownRole(t *testing.T) {
	service, repo, _ := newFixture(t)

	err := service.ChangeRole(context.Background(), 1, identity.GlobalRole("superuser"))
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Equal(t, identity.RoleUser, repo.users[1].Role)
}

func TestChangeStatusRejectsUnknownStatus(t *testing.T) {
	service, repo, _ := newFixture(t)

	err := service.ChangeStatus(context.Background(), 1, identity.Status("paused"))
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Equal(t, identity.StatusActive, repo.users[1].Status)
}

func TestChangeRoleUnknownUser(t *testing.T) {
	service, _, _ := newFixture(t)

	err := service.ChangeRole(context.Background(), 404, identity.RoleTeacher)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestGetUser(t *testing.T) {
	service, _, _ := newFixture(t)

	user, err := service.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)

	_, err = service.Get(context.Background(), 404)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}
