package service_test

import (
	"context"
	"encoding/json"
	"finance-tracker-client/config"
	"finance-tracker-client/internal/model"
	"finance-tracker-client/internal/repository"
	"finance-tracker-client/internal/security"
	"finance-tracker-client/internal/service"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// issueAccessToken : настоящий HS512 токен, чтобы TokenStore мог разобрать claims
func issueAccessToken(t *testing.T, username string) string {
	t.Helper()

	jwtService, err := security.NewJWTService(&config.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenTTL:  "15m",
		RefreshTokenTTL: "1h",
	})
	require.NoError(t, err)

	token, err := jwtService.GenerateAccessToken(security.Claims{
		Username: username,
		Email:    username + "@example.com",
	})
	require.NoError(t, err)
	return token
}

func newMemoryStore(t *testing.T, tokens *model.Tokens) *service.TokenStore {
	t.Helper()

	store := service.NewTokenStore(repository.NewMemoryTokenRepository(), discardLogger())
	if tokens != nil {
		_, err := store.Save(context.Background(), *tokens)
		require.NoError(t, err)
	}
	return store
}

func writeEnvelope(w http.ResponseWriter, statusCode int, successful bool, translationKey string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(model.Envelope[any]{
		Successful:     successful,
		TranslationKey: translationKey,
		Data:           data,
	})
}

type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) RefreshToken(ctx context.Context, refreshToken string) (*model.Tokens, error) {
	args := m.Called(ctx, refreshToken)
	tokens, _ := args.Get(0).(*model.Tokens)
	return tokens, args.Error(1)
}

type MockAuthenticationAPI struct {
	mock.Mock
}

func (m *MockAuthenticationAPI) Register(ctx context.Context, request model.RegisterRequest) error {
	return m.Called(ctx, request).Error(0)
}

func (m *MockAuthenticationAPI) Authenticate(ctx context.Context, username, password string) (*model.Tokens, error) {
	args := m.Called(ctx, username, password)
	tokens, _ := args.Get(0).(*model.Tokens)
	return tokens, args.Error(1)
}

func (m *MockAuthenticationAPI) VerifyEmail(ctx context.Context, code string) (*model.Tokens, error) {
	args := m.Called(ctx, code)
	tokens, _ := args.Get(0).(*model.Tokens)
	return tokens, args.Error(1)
}

func (m *MockAuthenticationAPI) RequestPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockAuthenticationAPI) ResetPassword(ctx context.Context, token, password string) error {
	return m.Called(ctx, token, password).Error(0)
}

func (m *MockAuthenticationAPI) ValidationRules(ctx context.Context) ([]model.ValidationRule, error) {
	args := m.Called(ctx)
	rules, _ := args.Get(0).([]model.ValidationRule)
	return rules, args.Error(1)
}

type MockStatisticsAPI struct {
	mock.Mock
}

func (m *MockStatisticsAPI) Generate(ctx context.Context, request model.StatisticsRequest) (*model.StatisticsNode, error) {
	args := m.Called(ctx, request)
	node, _ := args.Get(0).(*model.StatisticsNode)
	return node, args.Error(1)
}

type MockReportStorage struct {
	mock.Mock
}

func (m *MockReportStorage) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	return m.Called(ctx, key, body, contentType).Error(0)
}

func (m *MockReportStorage) GeneratePresignedGetURL(ctx context.Context, key string, expire time.Duration) (string, error) {
	args := m.Called(ctx, key, expire)
	return args.String(0), args.Error(1)
}

func (m *MockReportStorage) DeleteObject(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}
