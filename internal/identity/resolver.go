package identity

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/singleflight"

	id "rekam/pkg/domain"
	dErrors "rekam/pkg/domain-errors"
	"rekam/pkg/platform/sentinel"
	"rekam/pkg/requestcontext"
)

// ProfileStore loads stored profiles. Missing profiles return sentinel.ErrNotFound.
type ProfileStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*Profile, error)
}

// ProfileCache is a read-through cache in front of the ProfileStore.
// Misses return sentinel.ErrNotFound.
type ProfileCache interface {
	Get(ctx context.Context, userID id.UserID) (*Profile, error)
	Set(ctx context.Context, profile *Profile) error
}

// Resolver answers "who is calling" for the submission workflow.
type Resolver struct {
	profiles ProfileStore
	cache    ProfileCache
	logger   *slog.Logger
	group    singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache puts a cache in front of the profile store.
func WithCache(cache ProfileCache) Option {
	return func(r *Resolver) {
		r.cache = cache
	}
}

// WithLogger sets the logger used for cache failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver builds a Resolver over profiles.
func NewResolver(profiles ProfileStore, opts ...Option) *Resolver {
	r := &Resolver{
		profiles: profiles,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CurrentActor returns the actor for the authenticated user in ctx.
// An actor already attached by Middleware is reused.
func (r *Resolver) CurrentActor(ctx context.Context) (Actor, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return Actor{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if actor, ok := ActorFromContext(ctx); ok && actor.ID == userID {
		return actor, nil
	}
	return r.Resolve(ctx, userID)
}

// Resolve loads the actor for userID, consulting the cache first.
// Concurrent loads for the same user share one store round trip.
func (r *Resolver) Resolve(ctx context.Context, userID id.UserID) (Actor, error) {
	if r.cache != nil {
		profile, err := r.cache.Get(ctx, userID)
		if err == nil {
			return ActorFromProfile(profile), nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			r.logger.WarnContext(ctx, "profile cache read failed",
				"error", err,
				"user_id", userID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}

	v, err, _ := r.group.Do(userID.String(), func() (any, error) {
		profile, err := r.profiles.FindByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			if err := r.cache.Set(ctx, profile); err != nil {
				r.logger.WarnContext(ctx, "profile cache write failed",
					"error", err,
					"user_id", userID.String(),
				)
			}
		}
		return profile, nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Actor{}, dErrors.New(dErrors.CodeUnauthorized, "no profile for authenticated user")
		}
		return Actor{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return ActorFromProfile(v.(*Profile)), nil
}
