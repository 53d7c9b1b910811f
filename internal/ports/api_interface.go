package ports

import (
	"context"
	"finance-tracker-client/internal/model"
)

type AuthenticationAPI interface {
	Register(ctx context.Context, request model.RegisterRequest) error
	Authenticate(ctx context.Context, username, password string) (*model.Tokens, error)
	VerifyEmail(ctx context.Context, code string) (*model.Tokens, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	ValidationRules(ctx context.Context) ([]model.ValidationRule, error)
}

type StatisticsAPI interface {
	Generate(ctx context.Context, request model.StatisticsRequest) (*model.StatisticsNode, error)
}
