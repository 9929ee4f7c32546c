package http

import (
	"net/http"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/crew-attendance/internal/handler/http/response"
)

type AuthHandler interface {
	Token(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
}

type AuthHandlerImpl struct {
	authService auth.AuthService
}

func NewAuthHandler(authService auth.AuthService) AuthHandler {
	return &AuthHandlerImpl{
		authService: authService,
	}
}

// Token is the OAuth2 token endpoint. It accepts the password and
// refresh_token grants as a form-encoded body.
func (a *AuthHandlerImpl) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		response.BadRequest(w, "Invalid form body", nil)
		return
	}

	req := auth.TokenRequest{
		GrantType:    r.PostForm.Get("grant_type"),
		Username:     r.PostForm.Get("username"),
		Password:     r.PostForm.Get("password"),
		RefreshToken: r.PostForm.Get("refresh_token"),
		ClientID:     r.PostForm.Get("client_id"),
	}
	if req.ClientID == "" {
		req.ClientID, _, _ = r.BasicAuth()
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	session := auth.SessionTrackingRequest{
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}

	tokens, err := a.authService.Token(r.Context(), req, session)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Raw(w, http.StatusOK, tokens)
}

// Logout revokes the presented refresh token.
func (a *AuthHandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	var req auth.LogoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	if err := a.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Logged out successfully", nil)
}
