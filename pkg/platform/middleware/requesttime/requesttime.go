// Package requesttime pins a single "now" per request so that every timestamp
// written while handling it agrees.
package requesttime

import (
	"net/http"
	"time"

	"stoop/pkg/requestcontext"
)

// New pins now() in UTC, truncated to the microsecond precision Postgres
// keeps, so a timestamp read back from the accounts table equals the one the
// step wrote.
func New(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pinned := now().UTC().Truncate(time.Microsecond)
			next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), pinned)))
		})
	}
}

// Middleware pins the wall clock.
var Middleware = New(time.Now)
