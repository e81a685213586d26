// Package requestcontext carries request-scoped values (caller id, request id,
// client metadata, request time) without depending on net/http.
//
// Middleware writes them; services and the audit publisher read them. Tests
// inject them directly, e.g. requestcontext.WithTime(ctx, fixed).
package requestcontext

import (
	"context"
	"time"

	id "rekam/pkg/domain"
)

type ctxKey int

const (
	keyUserID ctxKey = iota
	keyClientIP
	keyUserAgent
	keyRequestID
	keyRequestTime
)

// UserID returns the authenticated caller, or the nil id when unauthenticated.
func UserID(ctx context.Context) id.UserID {
	userID, _ := ctx.Value(keyUserID).(id.UserID)
	return userID
}

func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(keyClientIP).(string)
	return ip
}

// UserAgent returns the summarised user agent ("Firefox 128.0 on Linux"),
// not the raw header.
func UserAgent(ctx context.Context) string {
	ua, _ := ctx.Value(keyUserAgent).(string)
	return ua
}

func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, keyClientIP, clientIP)
	return context.WithValue(ctx, keyUserAgent, userAgent)
}

func RequestID(ctx context.Context) string {
	reqID, _ := ctx.Value(keyRequestID).(string)
	return reqID
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// Now returns the time pinned for this request. Outside a request it falls
// back to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(keyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, keyRequestTime, t)
}
