package auth

import "github.com/cmlabs-hris/crew-attendance/internal/pkg/validator"

const (
	GrantPassword     = "password"
	GrantRefreshToken = "refresh_token"
)

// TokenRequest is the form body of the OAuth2 token endpoint.
type TokenRequest struct {
	GrantType    string
	Username     string
	Password     string
	RefreshToken string
	ClientID     string
}

func (r *TokenRequest) Validate() error {
	var errs validator.ValidationErrors

	switch r.GrantType {
	case GrantPassword:
		if validator.IsEmpty(r.Username) {
			errs = append(errs, validator.ValidationError{
				Field:   "username",
				Message: "username is required",
			})
		} else if !validator.IsValidEmail(r.Username) {
			errs = append(errs, validator.ValidationError{
				Field:   "username",
				Message: "username must be a valid email address",
			})
		}
		if validator.IsEmpty(r.Password) {
			errs = append(errs, validator.ValidationError{
				Field:   "password",
				Message: "password is required",
			})
		} else if len(r.Password) > 255 {
			errs = append(errs, validator.ValidationError{
				Field:   "password",
				Message: "password must not exceed 255 characters",
			})
		}
	case GrantRefreshToken:
		if validator.IsEmpty(r.RefreshToken) {
			errs = append(errs, validator.ValidationError{
				Field:   "refresh_token",
				Message: "refresh_token is required",
			})
		}
	case "":
		errs = append(errs, validator.ValidationError{
			Field:   "grant_type",
			Message: "grant_type is required",
		})
	default:
		return ErrUnsupportedGrant
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *LogoutRequest) Validate() error {
	if validator.IsEmpty(r.RefreshToken) {
		return validator.ValidationErrors{{
			Field:   "refresh_token",
			Message: "refresh_token is required",
		}}
	}
	return nil
}

type SessionTrackingRequest struct {
	UserAgent string
	IPAddress string
}

// TokenResponse follows the OAuth2 access token response shape.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Role         string `json:"role,omitempty"`
	CrewID       string `json:"crew_id,omitempty"`
}
