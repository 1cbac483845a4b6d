package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/luhive/luhive-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// Inbound ids are echoed only when they look like an id; anything else could
// be used to forge log lines.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)

// RequestID tags the request, its log context and the response with an id.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if !requestIDPattern.MatchString(reqID) {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			if logg != nil {
				r = r.WithContext(logg.WithRequestID(r.Context(), reqID))
			}
			next.ServeHTTP(w, r)
		})
	}
}
