// Package requestcontext carries request-scoped values (account, client,
// request ID, clock) through context so services never import net/http.
//
// Middleware fills them in; tests set them directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "stoop/pkg/domain"
)

type scopeKey struct{}

// scope is stored by value; every With* call stores an updated copy so a
// derived context never changes what its parent sees.
type scope struct {
	accountID id.AccountID
	clientIP  string
	userAgent string
	requestID string
	now       time.Time
}

func load(ctx context.Context) scope {
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

func with(ctx context.Context, update func(*scope)) context.Context {
	s := load(ctx)
	update(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// AccountID is the account bound to the onboarding token, or the nil ID.
func AccountID(ctx context.Context) id.AccountID {
	return load(ctx).accountID
}

func WithAccountID(ctx context.Context, accountID id.AccountID) context.Context {
	return with(ctx, func(s *scope) { s.accountID = accountID })
}

func ClientIP(ctx context.Context) string {
	return load(ctx).clientIP
}

func UserAgent(ctx context.Context) string {
	return load(ctx).userAgent
}

// WithClientMetadata records where the request came from. Audit events and
// the per-IP send throttle read these.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	return with(ctx, func(s *scope) {
		s.clientIP = clientIP
		s.userAgent = userAgent
	})
}

func RequestID(ctx context.Context) string {
	return load(ctx).requestID
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return with(ctx, func(s *scope) { s.requestID = requestID })
}

// Now is the request's pinned time, or time.Now when none was pinned.
func Now(ctx context.Context) time.Time {
	if t := load(ctx).now; !t.IsZero() {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return with(ctx, func(s *scope) { s.now = t })
}
