package identity_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rekam/internal/identity"
	"rekam/internal/identity/store"
	id "rekam/pkg/domain"
	dErrors "rekam/pkg/domain-errors"
	"rekam/pkg/platform/sentinel"
	"rekam/pkg/requestcontext"
)

type countingStore struct {
	*store.InMemoryProfileStore
	calls atomic.Int32
	err   error
}

func (c *countingStore) FindByID(ctx context.Context, userID id.UserID) (*identity.Profile, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.InMemoryProfileStore.FindByID(ctx, userID)
}

type mapCache struct {
	mu       sync.Mutex
	profiles map[id.UserID]identity.Profile
}

func (m *mapCache) Get(_ context.Context, userID id.UserID) (*identity.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (m *mapCache) Set(_ context.Context, p *identity.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = *p
	return nil
}

type ResolverSuite struct {
	suite.Suite
	profiles *countingStore
	cache    *mapCache
	resolver *identity.Resolver
	userID   id.UserID
	ctx      context.Context
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.profiles = &countingStore{InMemoryProfileStore: store.NewInMemoryProfileStore()}
	s.cache = &mapCache{profiles: map[id.UserID]identity.Profile{}}
	s.resolver = identity.NewResolver(s.profiles,
		identity.WithCache(s.cache),
		identity.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.userID = id.UserID(uuid.New())
	s.ctx = requestcontext.WithUserID(context.Background(), s.userID)
	s.Require().NoError(s.profiles.Upsert(context.Background(), &identity.Profile{
		UserID: s.userID,
		Name:   " Budi ",
		NIK:    "1111111111111111",
		Role:   "ADMIN",
	}))
}

func (s *ResolverSuite) TestCurrentActor() {
	s.Run("resolves profile into actor", func() {
		actor, err := s.resolver.CurrentActor(s.ctx)
		s.Require().NoError(err)
		s.Equal(s.userID, actor.ID)
		s.Equal(identity.RoleAdmin, actor.Role)
		s.Equal("Budi", actor.Name)
		s.Equal("1111111111111111", actor.NIK)
		s.True(actor.IsPrivileged())
	})

	s.Run("unauthenticated context", func() {
		_, err := s.resolver.CurrentActor(context.Background())
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("missing profile is unauthorized", func() {
		ctx := requestcontext.WithUserID(context.Background(), id.UserID(uuid.New()))
		_, err := s.resolver.CurrentActor(ctx)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("store failure is internal", func() {
		s.profiles.err = errors.New("connection refused")
		defer func() { s.profiles.err = nil }()
		ctx := requestcontext.WithUserID(context.Background(), id.UserID(uuid.New()))
		_, err := s.resolver.CurrentActor(ctx)
		s.True(dErrors.Is(err, dErrors.CodeInternal))
	})
}

func (s *ResolverSuite) TestProfileIsCached() {
	_, err := s.resolver.CurrentActor(s.ctx)
	s.Require().NoError(err)
	_, err = s.resolver.CurrentActor(s.ctx)
	s.Require().NoError(err)

	s.Equal(int32(1), s.profiles.calls.Load())
}

func (s *ResolverSuite) TestActorInContextIsReused() {
	ctx := identity.WithActor(s.ctx, identity.Actor{ID: s.userID, Role: identity.RoleSuperuser})
	actor, err := s.resolver.CurrentActor(ctx)
	s.Require().NoError(err)
	s.Equal(identity.RoleSuperuser, actor.Role)
	s.Equal(int32(0), s.profiles.calls.Load())
}

func (s *ResolverSuite) TestMiddleware() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.Run("attaches actor", func() {
		var got identity.Actor
		h := identity.Middleware(s.resolver, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = identity.ActorFromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(s.ctx)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		s.Equal(http.StatusOK, rec.Code)
		s.Equal(s.userID, got.ID)
	})

	s.Run("rejects unknown profile", func() {
		h := identity.Middleware(s.resolver, logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			s.Fail("handler must not run")
		}))
		ctx := requestcontext.WithUserID(context.Background(), id.UserID(uuid.New()))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func TestParseRole(t *testing.T) {
	cases := map[string]identity.Role{
		"admin":      identity.RoleAdmin,
		" Superuser": identity.RoleSuperuser,
		"user":       identity.RoleUser,
		"operator":   identity.RoleUser,
		"":           identity.RoleUser,
	}
	for in, want := range cases {
		if got := identity.ParseRole(in); got != want {
			t.Errorf("ParseRole(%q) = %q, want %q", in, got, want)
		}
	}
}
