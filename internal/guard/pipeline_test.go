package guard_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/hwsystem/hwsystem/internal/classroom"
	"github.com/hwsystem/hwsystem/internal/guard"
	"github.com/hwsystem/hwsystem/internal/identity"
	"github.com/hwsystem/hwsystem/internal/platform/cache"
	"github.com/hwsystem/hwsystem/internal/platform/httpx"
	"github.com/hwsystem/hwsystem/internal/ratelimit"
	"github.com/hwsystem/hwsystem/internal/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubIdentityStore struct {
	principals map[int64]identity.Principal
	err        error
}

func (s *stubIdentityStore) GetPrincipal(ctx context.Context, userID int64) (identity.Principal, error) {
	if s.err != nil {
		return identity.Principal{}, s.err
	}
	principal, ok := s.principals[userID]
	if !ok {
		return identity.Principal{}, httpx.ErrNotFound
	}
	return principal, nil
}

func newAuthn(t *testing.T, store identity.Store) (*guard.Authenticator, *token.Service) {
	t.Helper()
	tokens, err := token.NewService(token.Config{Secret: []byte(testSecret)})
	require.NoError(t, err)
	backend, err := cache.NewLocalCache(64)
	require.NoError(t, err)
	identities := identity.NewCache(store, backend, time.Hour, discardLogger())
	return guard.NewAuthenticator(tokens, identities, discardLogger()), tokens
}

func accessToken(t *testing.T, tokens *token.Service, userID int64, role identity.GlobalRole) string {
	t.Helper()
	pair, err := tokens.Issue(userID, role, false)
	require.NoError(t, err)
	return pair.AccessToken
}

func serveChain(chain func(http.Handler) http.Handler, req *http.Request) (*httptest.ResponseRecorder, *http.Request) {
	var handled *http.Request
	handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handled = r
		w.WriteHeader(http.StatusOK)
	}))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res, handled
}

func TestAuthenticatorAttachesPrincipal(t *testing.T) {
	store := &stubIdentityStore{principals: map[int64]identity.Principal{
		1: {ID: 1, Role: identity.RoleTeacher, Status: identity.StatusActive},
	}}
	authn, tokens := newAuthn(t, store)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, tokens, 1, identity.RoleTeacher))

	res, handled := serveChain(guard.Chain(authn.Guard()), req)
	require.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, handled)

	principal, ok := guard.PrincipalFromContext(handled.Context())
	require.True(t, ok)
	require.Equal(t, int64(1), principal.ID)
	require.Equal(t, identity.RoleTeacher, principal.Role)
}

func TestAuthenticatorRejectsMissingHeader(t *testing.T) {
	authn, _ := newAuthn(t, &stubIdentityStore{})

	res, handled := serveChain(guard.Chain(authn.Guard()), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Nil(t, handled)
	require.Equal(t, httpx.CodeUnauthenticated, decodeEnvelope(t, res).Code)
}

func TestAuthenticatorRejectsGarbageToken(t *testing.T) {
	authn, _ := newAuthn(t, &stubIdentityStore{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")

	res, handled := serveChain(guard.Chain(authn.Guard()), req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Nil(t, handled)
	require.Equal(t, "invalid token", decodeEnvelope(t, res).Message)
}

func TestAuthenticatorRejectsRefreshToken(t *testing.T) {
	store := &stubIdentityStore{principals: map[int64]identity.Principal{
		1: {ID: 1, Role: identity.RoleUser, Status: identity.StatusActive},
	}}
	authn, tokens := newAuthn(t, store)

	pair, err := tokens.Issue(1, identity.RoleUser, false)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)

	res, _ := serveChain(guard.Chain(authn.Guard()), req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Equal(t, "wrong token type", decodeEnvelope(t, res).Message)
}

func TestAuthenticatorRejectsUnknownAndInactiveAlike(t *testing.T) {
	store := &stubIdentityStore{principals: map[int64]identity.Principal{
		2: {ID: 2, Role: identity.RoleUser, Status: identity.StatusSuspended},
	}}
	authn, tokens := newAuthn(t, store)

	for _, userID := range []int64{2, 404} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+accessToken(t, tokens, userID, identity.RoleUser))

		res, handled := serveChain(guard.Chain(authn.Guard()), req)
		require.Equal(t, http.StatusUnauthorized, res.Code)
		require.Nil(t, handled)
		require.Equal(t, "unauthorized", decodeEnvelope(t, res).Message)
	}
}

func TestAuthenticatorReportsStoreOutageAsUnavailable(t *testing.T) {
	store := &stubIdentityStore{err: httpx.ErrUnavailable}
	authn, tokens := newAuthn(t, store)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, tokens, 1, identity.RoleUser))

	res, handled := serveChain(guard.Chain(authn.Guard()), req)
	require.Equal(t, http.StatusServiceUnavailable, res.Code)
	require.Nil(t, handled)
	require.Equal(t, httpx.CodeInternal, decodeEnvelope(t, res).Code)
}

func TestRequireRole(t *testing.T) {
	store := &stubIdentityStore{principals: map[int64]identity.Principal{
		1: {ID: 1, Role: identity.RoleUser, Status: identity.StatusActive},
		2: {ID: 2, Role: identity.RoleAdmin, Status: identity.StatusActive},
	}}
	authn, tokens := newAuthn(t, store)
	chain := guard.Chain(authn.Guard(), guard.RequireRole(identity.RoleAdmin))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, tokens, 1, identity.RoleUser))
	res, handled := serveChain(chain, req)
	require.Equal(t, http.StatusForbidden, res.Code)
	require.Nil(t, handled)
	require.Equal(t, httpx.CodeForbidden, decodeEnvelope(t, res).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, tokens, 2, identity.RoleAdmin))
	res, handled = serveChain(chain, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, handled)
}

func TestRequireRoleWithoutPrincipal(t *testing.T) {
	res, handled := serveChain(guard.Chain(guard.RequireRole(identity.RoleAdmin)),
		httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Nil(t, handled)
}

type classRoleFixture struct {
	authn  *guard.Authenticator
	tokens *token.Service
	guard  *guard.ClassRoleGuard
}

func newClassRoleFixture(t *testing.T, identities *stubIdentityStore, memberships *stubMembershipStore) classRoleFixture {
	t.Helper()
	authn, tokens := newAuthn(t, identities)
	backend, err := cache.NewLocalCache(64)
	require.NoError(t, err)
	resolver := classroom.NewResolver(memberships, backend, time.Minute, discardLogger())
	return classRoleFixture{
		authn:  authn,
		tokens: tokens,
		guard:  guard.NewClassRoleGuard(resolver, discardLogger()),
	}
}

type stubMembershipStore struct {
	memberships map[int64]classroom.Membership
	err         error
}

func (s *stubMembershipStore) GetMembership(ctx context.Context, classID, userID int64) (classroom.Membership, error) {
	if s.err != nil {
		return classroom.Membership{}, s.err
	}
	m, ok := s.memberships[userID]
	if !ok || m.ClassID != classID {
		return classroom.Membership{}, classroom.ErrNotMember
	}
	return m, nil
}

func (f classRoleFixture) serve(t *testing.T, path string, userID int64, role identity.GlobalRole, allowed ...classroom.Role) (*httptest.ResponseRecorder, classroom.Membership, bool) {
	t.Helper()
	router := chi.NewRouter()
	var membership classroom.Membership
	var hasMembership bool
	router.With(guard.Chain(f.authn.Guard(), f.guard.Require(allowed...))).
		Get("/classes/{class_id}/roster", func(w http.ResponseWriter, r *http.Request) {
			membership, hasMembership = guard.MembershipFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, f.tokens, userID, role))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res, membership, hasMembership
}

func TestClassRoleGuardAllowsMember(t *testing.T) {
	fixture := newClassRoleFixture(t,
		&stubIdentityStore{principals: map[int64]identity.Principal{
			1: {ID: 1, Role: identity.RoleUser, Status: identity.StatusActive},
		}},
		&stubMembershipStore{memberships: map[int64]classroom.Membership{
			1: {ClassID: 10, UserID: 1, Role: classroom.RoleStudent},
		}})

	res, membership, ok := fixture.serve(t, "/classes/10/roster", 1, identity.RoleUser,
		classroom.RoleStudent, classroom.RoleClassRepresentative)
	require.Equal(t, http.StatusOK, res.Code)
	require.True(t, ok)
	require.Equal(t, classroom.RoleStudent, membership.Role)
	require.Equal(t, int64(10), membership.ClassID)
}

func TestClassRoleGuardDeniesNonMember(t *testing.T) {
	fixture := newClassRoleFixture(t,
		&stubIdentityStore{principals: map[int64]identity.Principal{
			1: {ID: 1, Role: identity.RoleUser, Status: identity.StatusActive},
		}},
		&stubMembershipStore{})

	res, _, _ := fixture.serve(t, "/classes/10/roster", 1, identity.RoleUser, classroom.RoleStudent)
	require.Equal(t, http.StatusForbidden, res.Code)
	require.Equal(t, httpx.CodeClassForbidden, decodeEnvelope(t, res).Code)
}

func TestClassRoleGuardDeniesRoleOutsideAllowSet(t *testing.T) {
	fixture := newClassRoleFixture(t,
		&stubIdentityStore{principals: map[int64]identity.Principal{
			1: {ID: 1, Role: identity.RoleUser, Status: identity.StatusActive},
		}},
		&stubMembershipStore{memberships: map[int64]classroom.Membership{
			1: {ClassID: 10, UserID: 1, Role: classroom.RoleStudent},
		}})

	res, _, _ := fixture.serve(t, "/classes/10/roster", 1, identity.RoleUser, classroom.RoleTeacher)
	require.Equal(t, http.StatusForbidden, res.Code)
	require.Equal(t, httpx.CodeClassForbidden, decodeEnvelope(t, res).Code)
}

func TestClassRoleGuardAdminBypass(t *testing.T) {
	fixture := newClassRoleFixture(t,
		&stubIdentityStore{principals: map[int64]identity.Principal{
			9: {ID: 9, Role: identity.RoleAdmin, Status: identity.StatusActive},
		}},
		&stubMembershipStore{})

	res, _, hasMembership := fixture.serve(t, "/classes/10/roster", 9, identity.RoleAdmin, classroom.RoleTeacher)
	require.Equal(t, http.StatusOK, res.Code)
	require.False(t, hasMembership)
}

func TestClassRoleGuardInvalidClassID(t *testing.T) {
	fixture := newClassRoleFixture(t,
		&stubIdentityStore{principals: map[int64]identity.Principal{
			1: {ID: 1, Role: identity.RoleUser, Status: identity.StatusActive},
		}},
		&stubMembershipStore{})

	res, _, _ := fixture.serve(t, "/classes/zero/roster", 1, identity.RoleUser, classroom.RoleStudent)
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, httpx.CodeValidation, decodeEnvelope(t, res).Code)
}

func TestClassRoleGuardStoreOutage(t *testing.T) {
	fixture := newClassRoleFixture(t,
		&stubIdentityStore{principals: map[int64]identity.Principal{
			1: {ID: 1, Role: identity.RoleUser, Status: identity.StatusActive},
		}},
		&stubMembershipStore{err: httpx.ErrUnavailable})

	res, _, _ := fixture.serve(t, "/classes/10/roster", 1, identity.RoleUser, classroom.RoleStudent)
	require.Equal(t, http.StatusServiceUnavailable, res.Code)
	require.Equal(t, httpx.CodeInternal, decodeEnvelope(t, res).Code)
}

type stubLimiter struct {
	result ratelimit.Result
	err    error
	keys   []string
}

func (s *stubLimiter) Check(ctx context.Context, key string, window time.Duration, max int) (ratelimit.Result, error) {
	s.keys = append(s.keys, key)
	return s.result, s.err
}

func TestRateLimitGuardAllows(t *testing.T) {
	limiter := &stubLimiter{result: ratelimit.Result{Allowed: true, Limit: 5, Remaining: 4}}
	limits := guard.NewRateLimitGuard(limiter, discardLogger())

	res, handled := serveChain(guard.Chain(limits.Limit(ratelimit.Login)),
		httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, handled)
	require.Equal(t, []string{"login:ip:192.0.2.1"}, limiter.keys)
}

func TestRateLimitGuardDeniesWithHeaders(t *testing.T) {
	limiter := &stubLimiter{result: ratelimit.Result{Limit: 5, RetryAfter: 30 * time.Second}}
	limits := guard.NewRateLimitGuard(limiter, discardLogger())

	res, handled := serveChain(guard.Chain(limits.Limit(ratelimit.Login)),
		httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusTooManyRequests, res.Code)
	require.Nil(t, handled)
	require.Equal(t, "30", res.Header().Get("Retry-After"))
	require.Equal(t, "5", res.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", res.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, httpx.CodeRateLimited, decodeEnvelope(t, res).Code)
}

func TestRateLimitGuardKeysByUserWhenAuthenticated(t *testing.T) {
	limiter := &stubLimiter{result: ratelimit.Result{Allowed: true, Limit: 100, Remaining: 99}}
	limits := guard.NewRateLimitGuard(limiter, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(guard.ContextWithPrincipal(req.Context(),
		identity.Principal{ID: 7, Role: identity.RoleUser, Status: identity.StatusActive}))

	res, _ := serveChain(guard.Chain(limits.Limit(ratelimit.API)), req)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, []string{"api:user:7"}, limiter.keys)
}

func TestRateLimitGuardFailsClosed(t *testing.T) {
	limiter := &stubLimiter{err: errors.New("connection refused")}
	limits := guard.NewRateLimitGuard(limiter, discardLogger())

	res, handled := serveChain(guard.Chain(limits.Limit(ratelimit.Login)),
		httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusServiceUnavailable, res.Code)
	require.Nil(t, handled)
	require.Equal(t, httpx.CodeInternal, decodeEnvelope(t, res).Code)
}
