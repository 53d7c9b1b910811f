package api_test

import (
	"context"
	"finance-tracker-client/config"
	"finance-tracker-client/internal/api"
	"finance-tracker-client/internal/devserver"
	"finance-tracker-client/internal/model"
	"finance-tracker-client/internal/repository"
	"finance-tracker-client/internal/service"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness : клиент целиком (хранилище, координатор, шлюз) против dev-сервера
type harness struct {
	dev        *devserver.Server
	store      *service.TokenStore
	sessions   *service.SessionService
	entries    *api.EntryAPI
	tags       *api.TagAPI
	categories *api.CategoryAPI
	statistics *api.StatisticsAPI
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dev, err := devserver.New(&config.JWTConfig{
		SecretKey:       "integration-secret",
		AccessTokenTTL:  "15m",
		RefreshTokenTTL: "1h",
	}, logger)
	require.NoError(t, err)

	server := httptest.NewServer(dev.Handler())
	t.Cleanup(server.Close)
	baseURL := server.URL + devserver.BasePath

	base := &http.Client{Timeout: 5 * time.Second}
	plain, err := api.NewClient(baseURL, base, "integration")
	require.NoError(t, err)

	store := service.NewTokenStore(repository.NewMemoryTokenRepository(), logger)
	coordinator := service.NewRefreshCoordinator(store, api.NewAuthenticationAPI(plain), 2*time.Second, logger)

	gatewayHTTP, err := service.NewGatewayClient(base, baseURL, store, coordinator, service.WithLogger(logger))
	require.NoError(t, err)
	authed, err := api.NewClient(baseURL, gatewayHTTP, "integration")
	require.NoError(t, err)

	return &harness{
		dev:        dev,
		store:      store,
		sessions:   service.NewSessionService(api.NewAuthenticationAPI(authed), store),
		entries:    api.NewEntryAPI(authed),
		tags:       api.NewTagAPI(authed),
		categories: api.NewCategoryAPI(authed),
		statistics: api.NewStatisticsAPI(authed),
	}
}

func (h *harness) signUp(t *testing.T, username string) *model.AuthenticatedUser {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, h.sessions.Register(ctx, model.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct-horse",
	}))

	user, err := h.sessions.Login(ctx, username, "correct-horse")
	require.NoError(t, err)
	return user
}

func (h *harness) tokens(t *testing.T) *model.Tokens {
	t.Helper()
	tokens, err := h.store.Get(context.Background())
	require.NoError(t, err)
	return tokens
}

func TestGateway_LedgerFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	user := h.signUp(t, "alice")
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.IsEmailVerified)

	food, err := h.categories.Create(ctx, model.Category{Name: "Food", Type: model.EntryTypeCost})
	require.NoError(t, err)
	weekly, err := h.tags.Create(ctx, "weekly")
	require.NoError(t, err)

	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	_, err = h.entries.Create(ctx, model.Entry{
		Type: model.EntryTypeCost, Amount: decimal.RequireFromString("42.10"), Currency: "eur",
		Date: day, CategoryID: &food.ID, TagIDs: []string{weekly.ID},
	})
	require.NoError(t, err)
	_, err = h.entries.Create(ctx, model.Entry{
		Type: model.EntryTypeIncome, Amount: decimal.NewFromInt(1000), Currency: "EUR", Date: day.AddDate(0, 0, 1),
	})
	require.NoError(t, err)

	entries, err := h.entries.List(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "EUR", entries[0].Currency)

	root, err := h.statistics.Generate(ctx, model.StatisticsRequest{
		From: day, To: day.AddDate(0, 1, 0), GroupBy: []string{model.GroupByType, model.GroupByCategory},
	})
	require.NoError(t, err)
	assert.Equal(t, "957.9", root.Balance().String())
	require.Len(t, root.Children, 2)
	assert.Equal(t, "COST", root.Children[0].Label)
	assert.Equal(t, "Food", root.Children[0].Children[0].Label)

	_, err = h.tags.Create(ctx, "Weekly")
	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)

	assert.Zero(t, h.dev.RefreshCalls())
}

func TestGateway_RefreshesRevokedAccessToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.signUp(t, "alice")
	before := h.tokens(t)

	h.dev.RevokeAccessTokens("alice")

	_, err := h.tags.List(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 1, h.dev.RefreshCalls())
	after := h.tokens(t)
	assert.NotEqual(t, before.AccessToken, after.AccessToken)
	assert.NotEqual(t, before.RefreshToken, after.RefreshToken)
}

func TestGateway_ConcurrentRequestsShareOneRefresh(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.signUp(t, "alice")

	h.dev.RevokeAccessTokens("alice")
	h.dev.SetRefreshDelay(300 * time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.entries.List(ctx, time.Time{}, time.Time{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, h.dev.RefreshCalls())
}

func TestGateway_RejectedRefreshLogsOut(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.signUp(t, "alice")

	h.dev.RevokeAccessTokens("alice")
	h.dev.RevokeRefreshTokens("alice")

	_, err := h.categories.List(ctx)
	assert.True(t, model.IsUnauthorized(err))

	_, err = h.sessions.WhoAmI(ctx)
	assert.ErrorIs(t, err, service.ErrNotAuthenticated)
}

func TestGateway_ConcurrentRejectedRefreshLogsOutOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.signUp(t, "alice")

	var events atomic.Int32
	h.store.Subscribe(func(user *model.AuthenticatedUser) {
		if user == nil {
			events.Add(1)
		}
	})

	h.dev.RevokeAccessTokens("alice")
	h.dev.RevokeRefreshTokens("alice")
	h.dev.SetRefreshDelay(300 * time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.entries.List(ctx, time.Time{}, time.Time{})
			assert.True(t, model.IsUnauthorized(err))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, h.dev.RefreshCalls())
	assert.EqualValues(t, 1, events.Load())
	assert.Nil(t, h.tokens(t))
}

func TestGateway_TransientRefreshFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.signUp(t, "alice")
	before := h.tokens(t)

	h.dev.RevokeAccessTokens("alice")
	h.dev.FailRefresh(http.StatusServiceUnavailable)

	_, err := h.categories.List(ctx)
	assert.True(t, model.IsUnauthorized(err))
	assert.Equal(t, before, h.tokens(t))

	h.dev.FailRefresh(0)
	_, err = h.categories.List(ctx)
	assert.NoError(t, err)
	assert.EqualValues(t, 2, h.dev.RefreshCalls())
}

func TestGateway_VerifyEmail(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.signUp(t, "alice")

	_, err := h.sessions.VerifyEmail(ctx, "000000x")
	require.Error(t, err)

	user, err := h.sessions.VerifyEmail(ctx, h.dev.VerificationCode("alice"))
	require.NoError(t, err)
	assert.True(t, user.IsEmailVerified)

	current, err := h.sessions.WhoAmI(ctx)
	require.NoError(t, err)
	assert.True(t, current.IsEmailVerified)
}

func TestGateway_PasswordReset(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.signUp(t, "alice")

	require.NoError(t, h.sessions.RequestPasswordReset(ctx, "alice@example.com"))
	require.NoError(t, h.sessions.RequestPasswordReset(ctx, "nobody@example.com"))

	token := h.dev.PasswordResetToken("alice@example.com")
	require.NotEmpty(t, token)
	require.NoError(t, h.sessions.ResetPassword(ctx, token, "battery-staple"))

	// старая сессия отозвана сбросом пароля
	_, err := h.tags.List(ctx)
	assert.True(t, model.IsUnauthorized(err))

	_, err = h.sessions.Login(ctx, "alice", "correct-horse")
	assert.True(t, model.IsUnauthorized(err))

	_, err = h.sessions.Login(ctx, "alice", "battery-staple")
	assert.NoError(t, err)
}
