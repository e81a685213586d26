package identity

import (
	"log/slog"
	"net/http"

	"rekam/pkg/platform/httputil"
	"rekam/pkg/requestcontext"
)

// Middleware resolves the actor once per request and stores it in the context.
// It must run after auth.RequireAuth.
func Middleware(resolver *Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor, err := resolver.CurrentActor(ctx)
			if err != nil {
				logger.WarnContext(ctx, "failed to resolve actor",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(ctx, actor)))
		})
	}
}
