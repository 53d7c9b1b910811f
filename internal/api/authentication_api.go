package api

import (
	"context"
	"encoding/json"
	"finance-tracker-client/internal/model"
	"net/http"
)

// AuthenticationAPI : эндпоинты /user/* и /validation-rule/all
type AuthenticationAPI struct {
	client *Client
}

func NewAuthenticationAPI(client *Client) *AuthenticationAPI {
	return &AuthenticationAPI{client: client}
}

func (a *AuthenticationAPI) Register(ctx context.Context, request model.RegisterRequest) error {
	_, err := call[json.RawMessage](ctx, a.client, http.MethodPost, "/user/register", nil, request)
	return err
}

func (a *AuthenticationAPI) Authenticate(ctx context.Context, username, password string) (*model.Tokens, error) {
	return a.tokens(ctx, http.MethodPost, "/user/authenticate", model.AuthenticateRequest{
		Username: username,
		Password: password,
	})
}

// RefreshToken : один обмен refresh токена на новую пару
func (a *AuthenticationAPI) RefreshToken(ctx context.Context, refreshToken string) (*model.Tokens, error) {
	return a.tokens(ctx, http.MethodPost, "/user/refresh-token", model.RefreshTokenRequest{
		RefreshToken: refreshToken,
	})
}

func (a *AuthenticationAPI) VerifyEmail(ctx context.Context, code string) (*model.Tokens, error) {
	return a.tokens(ctx, http.MethodPost, "/user/email/verify", model.EmailVerificationRequest{Code: code})
}

func (a *AuthenticationAPI) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := call[json.RawMessage](ctx, a.client, http.MethodPost, "/user/password/reset/request", nil,
		model.PasswordResetRequest{Email: email})
	return err
}

func (a *AuthenticationAPI) ResetPassword(ctx context.Context, token, password string) error {
	_, err := call[json.RawMessage](ctx, a.client, http.MethodPatch, "/user/password/reset", nil,
		model.PasswordResetConfirm{Token: token, Password: password})
	return err
}

func (a *AuthenticationAPI) ValidationRules(ctx context.Context) ([]model.ValidationRule, error) {
	return call[[]model.ValidationRule](ctx, a.client, http.MethodGet, "/validation-rule/all", nil, nil)
}

func (a *AuthenticationAPI) tokens(ctx context.Context, method, path string, body any) (*model.Tokens, error) {
	tokens, err := call[*model.Tokens](ctx, a.client, method, path, nil, body)
	if err != nil {
		return nil, err
	}
	if tokens == nil || tokens.AccessToken == "" {
		return nil, &model.APIError{StatusCode: http.StatusOK, Message: "в ответе нет токенов"}
	}
	return tokens, nil
}
