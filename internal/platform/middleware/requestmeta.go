package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"admissio/pkg/requestcontext"
)

// RequestMeta stamps each request with a correlation ID and pins the
// request time, so every operation within one request observes a single
// instant (registration-window checks included).
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
