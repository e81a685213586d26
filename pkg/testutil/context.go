package testutil

import (
	"net/http"

	"rekam/internal/identity"
	id "rekam/pkg/domain"
	"rekam/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context, as RequireAuth would.
// Invalid IDs are silently ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
}

// WithActor adds the authenticated user and resolved actor to the request
// context, the state after RequireAuth and identity.Middleware.
func WithActor(req *http.Request, actor identity.Actor) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), actor.ID)
	return req.WithContext(identity.WithActor(ctx, actor))
}

// ActorMiddleware injects actor into every request, standing in for the auth stack.
func ActorMiddleware(actor identity.Actor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, WithActor(r, actor))
		})
	}
}
