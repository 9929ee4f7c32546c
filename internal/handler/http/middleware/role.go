package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/crew"
	"github.com/cmlabs-hris/crew-attendance/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

// RequireSupervisor requires supervisor or admin role
func RequireSupervisor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.HandleError(w, crew.ErrSupervisorAccessRequired)
			return
		}

		role, ok := claims["role"].(string)
		if !ok || !crew.IsSupervisorRole(role) {
			response.HandleError(w, crew.ErrSupervisorAccessRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}
