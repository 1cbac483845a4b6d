package middleware

import (
	"net/http"
	"strings"

	"github.com/luhive/luhive-backend/api/responses"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
	"github.com/luhive/luhive-backend/pkg/logger"
	"github.com/luhive/luhive-backend/pkg/security"
)

// SharedSecret admits requests whose bearer token equals secret. An empty
// secret rejects every request.
func SharedSecret(secret string, logg *logger.Logger) func(http.Handler) http.Handler {
	expected := strings.TrimSpace(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := bearerToken(r.Header.Get("Authorization"))
			if expected == "" || provided == "" || !security.SecretsEqual(provided, expected) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid dispatch secret"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
