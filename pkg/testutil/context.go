package testutil

import (
	"context"
	"time"

	"stoop/pkg/requestcontext"
)

// RequestContext builds the context the HTTP middleware chain would hand a
// service: a pinned clock, a request ID and the caller's address.
func RequestContext(now time.Time, clientIP string) context.Context {
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "test-"+now.Format("150405.000"))
	return requestcontext.WithClientMetadata(ctx, clientIP, "stoop-test/1.0")
}
