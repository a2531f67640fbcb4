package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/goteo-dev/goteo/shared/logger"
)

const RequestIdHeader = "X-Request-Id"

// RequestId tags every request with an id, reusing the caller's one when it
// is a valid uuid, and stores a request scoped logger carrying it.
func RequestId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIdHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIdHeader, id)

		l := logger.Log.With("requestId", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), l)))
	})
}
