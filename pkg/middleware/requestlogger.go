package middleware

import (
	"log/slog"
	"net/http"

	"github.com/peakline/catalog-search/pkg/logger"
)

// RequestLogger builds a request-scoped logger carrying correlation_id,
// user_id, session_id, and trace IDs, and stores it in the request context
// for handlers to retrieve with logger.FromContext. Mount it after
// RequestLogging, which generates the correlation ID this reads.
//
// The service runs behind a gateway that terminates auth, so identity arrives
// as plain headers: X-User-ID for the authenticated user, X-Session-ID for
// the client session used in experiment assignment.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if userID := r.Header.Get("X-User-ID"); userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}
			if sessionID := r.Header.Get("X-Session-ID"); sessionID != "" {
				ctx = logger.WithSessionID(ctx, sessionID)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
