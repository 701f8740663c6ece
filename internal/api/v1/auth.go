package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/widgetboard/internal/auth"
	"github.com/gosuda/widgetboard/internal/domain"
)

type LoginInput struct {
	Body struct {
		CompanyID uuid.UUID `json:"company_id" doc:"Company to sign in to"`
		Email     string    `json:"email" minLength:"3" maxLength:"254" doc:"User email"`
		Password  string    `json:"password" minLength:"1" maxLength:"128" doc:"Password"` //nolint:gosec // G117: login credential DTO
	}
}

type LoginOutput struct {
	Body struct {
		AccessToken  string `json:"access_token"`  //nolint:gosec // G117: auth response DTO
		RefreshToken string `json:"refresh_token"` //nolint:gosec // G117: auth response DTO
	}
}

type RefreshInput struct {
	Body struct {
		RefreshToken string `json:"refresh_token" minLength:"1" doc:"Refresh token"` //nolint:gosec // G117: token refresh DTO
	}
}

type RefreshOutput struct {
	Body struct {
		AccessToken string `json:"access_token"` //nolint:gosec // G117: auth response DTO
	}
}

type SetPasswordInput struct {
	Body struct {
		Token    string `json:"token" minLength:"1" doc:"Token from the set-password link"`
		Password string `json:"password" minLength:"8" maxLength:"128" doc:"New password"` //nolint:gosec // G117: credential DTO
	}
}

func RegisterAuthRoutes(api huma.API, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Login with email and password",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
		pair, err := authSvc.Login(ctx, input.Body.CompanyID, input.Body.Email, input.Body.Password)
		if err != nil {
			// Membership failures look like bad credentials so companies
			// cannot be probed for users.
			if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, domain.ErrForbidden) {
				return nil, huma.Error401Unauthorized("invalid email or password")
			}
			return nil, huma.Error500InternalServerError("login failed", err)
		}

		out := &LoginOutput{}
		out.Body.AccessToken = pair.AccessToken
		out.Body.RefreshToken = pair.RefreshToken
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refresh-token",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Refresh access token",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *RefreshInput) (*RefreshOutput, error) {
		accessToken, err := authSvc.RefreshToken(ctx, input.Body.RefreshToken)
		if err != nil {
			return nil, huma.Error401Unauthorized("invalid or expired refresh token")
		}

		out := &RefreshOutput{}
		out.Body.AccessToken = accessToken
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-password",
		Method:      http.MethodPost,
		Path:        "/auth/password",
		Summary:     "Set a password from an emailed link",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *SetPasswordInput) (*struct{}, error) {
		err := authSvc.SetPassword(ctx, input.Body.Token, input.Body.Password)
		switch {
		case err == nil:
			return nil, nil
		case errors.Is(err, auth.ErrInvalidToken):
			return nil, huma.Error401Unauthorized("invalid, expired or used link")
		case errors.Is(err, auth.ErrWeakPassword):
			return nil, huma.Error422UnprocessableEntity(err.Error())
		default:
			return nil, huma.Error500InternalServerError("failed to set password", err)
		}
	})
}
