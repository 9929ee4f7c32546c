package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/crew-attendance/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

// AuthRequired rejects requests without a verified access token. Refresh and
// SSE tokens carry a different type claim and are refused here.
func AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Unauthorized(w, err.Error())
			return
		}
		if token == nil {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		tokenType, ok := claims["type"].(string)
		if !ok || tokenType != "access" {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}
		if crewID, ok := claims["crew_id"].(string); !ok || crewID == "" {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		next.ServeHTTP(w, r)
	})
}
