package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"finance-tracker-client/internal/api"
	"finance-tracker-client/internal/model"
	"finance-tracker-client/internal/service"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backend : API, который пускает только токены из accepted
type backend struct {
	mu          sync.Mutex
	accepted    map[string]bool
	authSeen    []string
	bodies      []string
	refreshSeen []string
	anonSeen    []string

	protectedHits atomic.Int32
	refreshCalls  atomic.Int32

	refresh func(w http.ResponseWriter, refreshToken string)
}

func newBackend(accepted ...string) *backend {
	b := &backend{accepted: make(map[string]bool)}
	for _, token := range accepted {
		b.accepted[token] = true
	}
	return b
}

func (b *backend) accept(token string) {
	b.mu.Lock()
	b.accepted[token] = true
	b.mu.Unlock()
}

// rotatesTo : refresh с ожидаемым токеном выдаёт issued
func (b *backend) rotatesTo(expected string, issued model.Tokens, delay time.Duration) {
	b.refresh = func(w http.ResponseWriter, refreshToken string) {
		time.Sleep(delay)
		if refreshToken != expected {
			writeEnvelope(w, http.StatusBadRequest, false, "user.refresh-token.invalid", nil)
			return
		}
		b.accept(issued.AccessToken)
		writeEnvelope(w, http.StatusOK, true, "", issued)
	}
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/user/refresh-token":
		b.refreshCalls.Add(1)
		var req model.RefreshTokenRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		b.mu.Lock()
		b.refreshSeen = append(b.refreshSeen, req.RefreshToken)
		b.mu.Unlock()
		b.refresh(w, req.RefreshToken)

	case "/api/user/authenticate":
		b.mu.Lock()
		b.anonSeen = append(b.anonSeen, r.Header.Get("Authorization"))
		b.mu.Unlock()
		writeEnvelope(w, http.StatusOK, true, "", nil)

	default:
		b.protectedHits.Add(1)
		body, _ := io.ReadAll(r.Body)
		header := r.Header.Get("Authorization")

		b.mu.Lock()
		b.authSeen = append(b.authSeen, header)
		b.bodies = append(b.bodies, string(body))
		ok := b.accepted[strings.TrimPrefix(header, "Bearer ")]
		b.mu.Unlock()

		if !ok {
			writeEnvelope(w, http.StatusUnauthorized, false, "auth.unauthorized", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, true, "", map[string]string{"requestId": r.Header.Get("X-Request-ID")})
	}
}

type gateway struct {
	client *http.Client
	store  *service.TokenStore
	url    string
}

func newGateway(t *testing.T, b *backend, tokens *model.Tokens, opts ...service.GatewayOption) *gateway {
	t.Helper()

	server := httptest.NewServer(b)
	t.Cleanup(server.Close)

	store := newMemoryStore(t, tokens)
	base := &http.Client{Timeout: 5 * time.Second}

	apiClient, err := api.NewClient(server.URL+"/api", base, "test")
	require.NoError(t, err)
	coordinator := service.NewRefreshCoordinator(store, api.NewAuthenticationAPI(apiClient), 2*time.Second, discardLogger())

	opts = append(opts, service.WithLogger(discardLogger()))
	client, err := service.NewGatewayClient(base, server.URL+"/api", store, coordinator, opts...)
	require.NoError(t, err)

	return &gateway{client: client, store: store, url: server.URL + "/api"}
}

func (g *gateway) do(t *testing.T, method, path string, body io.Reader) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, g.url+path, body)
	require.NoError(t, err)
	resp, err := g.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestAuthTransport_AttachesStoredToken(t *testing.T) {
	a1 := issueAccessToken(t, "alice")
	b := newBackend(a1)
	g := newGateway(t, b, &model.Tokens{AccessToken: a1, RefreshToken: "R1"})

	req, err := http.NewRequest(http.MethodGet, g.url+"/entry/all", nil)
	require.NoError(t, err)
	resp, err := g.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Bearer " + a1}, b.authSeen)
	assert.Empty(t, req.Header.Get("Authorization"), "запрос вызывающего не меняется")

	var envelope model.Envelope[map[string]string]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.NotEmpty(t, envelope.Data["requestId"])
}

func TestAuthTransport_AnonymousPathCarriesNoHeader(t *testing.T) {
	a1 := issueAccessToken(t, "alice")
	b := newBackend(a1)
	g := newGateway(t, b, &model.Tokens{AccessToken: a1, RefreshToken: "R1"})

	req, err := http.NewRequest(http.MethodPost, g.url+"/user/authenticate", strings.NewReader("{}"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer leaked")

	resp, err := g.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{""}, b.anonSeen)
	assert.Zero(t, b.protectedHits.Load())
}

func TestAuthTransport_NoSessionSendsWithoutHeader(t *testing.T) {
	b := newBackend()
	b.rotatesTo("R1", model.Tokens{}, 0)
	g := newGateway(t, b, nil)

	resp := g.do(t, http.MethodGet, "/tag/all", nil)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, []string{""}, b.authSeen)
	assert.Zero(t, b.refreshCalls.Load(), "без refresh токена сервер не вызывается")
}

func TestAuthTransport_RotationScenario(t *testing.T) {
	a1, a2 := issueAccessToken(t, "alice"), issueAccessToken(t, "alice")
	b := newBackend()
	b.rotatesTo("R1", model.Tokens{AccessToken: a2, RefreshToken: "R2"}, 0)
	g := newGateway(t, b, &model.Tokens{AccessToken: a1, RefreshToken: "R1"})

	resp := g.do(t, http.MethodGet, "/entry/all", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"R1"}, b.refreshSeen)
	assert.Equal(t, []string{"Bearer " + a1, "Bearer " + a2}, b.authSeen)

	tokens, err := g.store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &model.Tokens{AccessToken: a2, RefreshToken: "R2"}, tokens)
}

func TestAuthTransport_ConcurrentUnauthorizedRefreshOnce(t *testing.T) {
	a1, a2 := issueAccessToken(t, "alice"), issueAccessToken(t, "alice")
	b := newBackend()
	b.rotatesTo("R1", model.Tokens{AccessToken: a2, RefreshToken: "R2"}, 300*time.Millisecond)
	g := newGateway(t, b, &model.Tokens{AccessToken: a1, RefreshToken: "R1"})

	const requests = 10
	statuses := make([]int, requests)
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := g.client.Get(g.url + "/entry/all")
			if !assert.NoError(t, err) {
				return
			}
			statuses[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), b.refreshCalls.Load())
	for _, status := range statuses {
		assert.Equal(t, http.StatusOK, status)
	}

	retries := 0
	for _, header := range b.authSeen {
		if header == "Bearer "+a2 {
			retries++
		}
	}
	assert.Equal(t, requests, retries)
	assert.Len(t, b.authSeen, 2*requests)

	tokens, err := g.store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &model.Tokens{AccessToken: a2, RefreshToken: "R2"}, tokens)
}

func TestAuthTransport_RefreshRejectedClearsSession(t *testing.T) {
	a1 := issueAccessToken(t, "alice")
	b := newBackend()
	b.refresh = func(w http.ResponseWriter, _ string) {
		writeEnvelope(w, http.StatusBadRequest, false, "user.refresh-token.invalid", nil)
	}
	g := newGateway(t, b, &model.Tokens{AccessToken: a1, RefreshToken: "R1"})

	var cleared atomic.Int32
	g.store.Subscribe(func(user *model.AuthenticatedUser) {
		if user == nil {
			cleared.Add(1)
		}
	})

	resp := g.do(t, http.MethodGet, "/entry/all", nil)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var envelope model.Envelope[any]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "auth.unauthorized", envelope.TranslationKey, "вызывающий получает исходный 401")

	assert.Equal(t, int32(1), b.protectedHits.Load(), "запрос не повторяется")
	assert.Equal(t, int32(1), cleared.Load())

	tokens, err := g.store.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, tokens)
}

func TestAuthTransport_ConcurrentRefreshRejected(t *testing.T) {
	a1 := issueAccessToken(t, "alice")
	b := newBackend()
	b.refresh = func(w http.ResponseWriter, _ string) {
		time.Sleep(300 * time.Millisecond)
		writeEnvelope(w, http.StatusBadRequest, false, "user.refresh-token.invalid", nil)
	}
	g := newGateway(t, b, &model.Tokens{AccessToken: a1, RefreshToken: "R1"})

	var cleared atomic.Int32
	g.store.Subscribe(func(user *model.AuthenticatedUser) {
		if user == nil {
			cleared.Add(1)
		}
	})

	const requests = 10
	keys := make([]string, requests)
	statuses := make([]int, requests)
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := g.client.Get(g.url + "/entry/all")
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			var envelope model.Envelope[any]
			if assert.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope)) {
				keys[i] = envelope.TranslationKey
			}
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	for i := 0; i < requests; i++ {
		assert.Equal(t, http.StatusUnauthorized, statuses[i])
		assert.Equal(t, "auth.unauthorized", keys[i])
	}
	assert.Equal(t, int32(1), b.refreshCalls.Load())
	assert.Equal(t, int32(requests), b.protectedHits.Load(), "запросы не повторяются")
	assert.Equal(t, int32(1), cleared.Load())

	tokens, err := g.store.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, tokens)
}

func TestAuthTransport_RefreshRejectedKeepsNewerLogin(t *testing.T) {
	a1, a3 := issueAccessToken(t, "alice"), issueAccessToken(t, "alice")
	b := newBackend()
	g := newGateway(t, b, &model.Tokens{AccessToken: a1, RefreshToken: "R1"})

	relogin := model.Tokens{AccessToken: a3, RefreshToken: "R3"}
	b.refresh = func(w http.ResponseWriter, _ string) {
		// пользователь вошёл заново, пока refresh старого R1 был в полёте
		_, err := g.store.Save(context.Background(), relogin)
		assert.NoError(t, err)
		writeEnvelope(w, http.StatusBadRequest, false, "user.refresh-token.invalid", nil)
	}

	var cleared atomic.Int32
	g.store.Subscribe(func(user *model.AuthenticatedUser) {
		if user == nil {
			cleared.Add(1)
		}
	})

	resp := g.do(t, http.MethodGet, "/entry/all", nil)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, cleared.Load())

	tokens, err := g.store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &relogin, tokens)
}

func TestAuthTransport_RefreshFailureKeepsSession(t *testing.T) {
	tests := []struct {
		name    string
		refresh func(w http.ResponseWriter, refreshToken string)
	}{
		{
			name: "server error",
			refresh: func(w http.ResponseWriter, _ string) {
				writeEnvelope(w, http.StatusServiceUnavailable, false, "server.unavailable", nil)
			},
		},
		{
			name: "connection dropped",
			refresh: func(w http.ResponseWriter, _ string) {
				conn, _, err := w.(http.Hijacker).Hijack()
				if err == nil {
					_ = conn.Close()
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := model.Tokens{AccessToken: issueAccessToken(t, "alice"), RefreshToken: "R1"}
			b := newBackend()
			b.refresh = tt.refresh
			g := newGateway(t, b, &stored)

			resp := g.do(t, http.MethodGet, "/entry/all", nil)

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, int32(1), b.protectedHits.Load())

			tokens, err := g.store.Get(context.Background())
			require.NoError(t, err)
			assert.Equal(t, &stored, tokens)
		})
	}
}

func TestAuthTransport_RetryIsNotRefreshedAgain(t *testing.T) {
	a1, a2 := issueAccessToken(t, "alice"), issueAccessToken(t, "alice")
	b := newBackend()
	b.refresh = func(w http.ResponseWriter, _ string) {
		// новая пара выдана, но API её всё равно не пускает
		writeEnvelope(w, http.StatusOK, true, "", model.Tokens{AccessToken: a2, RefreshToken: "R2"})
	}
	g := newGateway(t, b, &model.Tokens{AccessToken: a1, RefreshToken: "R1"})

	resp := g.do(t, http.MethodGet, "/entry/all", nil)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), b.refreshCalls.Load())
	assert.Equal(t, int32(2), b.protectedHits.Load())
}

func TestAuthTransport_ReplaysBodyOnRetry(t *testing.T) {
	tests := []struct {
		name string
		body func() io.Reader
	}{
		{"replayable reader", func() io.Reader { return strings.NewReader(`{"name":"food"}`) }},
		{"one-shot reader", func() io.Reader { return io.MultiReader(bytes.NewBufferString(`{"name":"food"}`)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a1, a2 := issueAccessToken(t, "alice"), issueAccessToken(t, "alice")
			b := newBackend()
			b.rotatesTo("R1", model.Tokens{AccessToken: a2, RefreshToken: "R2"}, 0)
			g := newGateway(t, b, &model.Tokens{AccessToken: a1, RefreshToken: "R1"})

			resp := g.do(t, http.MethodPost, "/tag", tt.body())

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, []string{`{"name":"food"}`, `{"name":"food"}`}, b.bodies)
		})
	}
}

func TestAuthTransport_IgnoreUnauthorizedPaths(t *testing.T) {
	a1 := issueAccessToken(t, "alice")
	b := newBackend()
	b.rotatesTo("R1", model.Tokens{AccessToken: issueAccessToken(t, "alice"), RefreshToken: "R2"}, 0)
	g := newGateway(t, b, &model.Tokens{AccessToken: a1, RefreshToken: "R1"},
		service.WithIgnoreUnauthorizedPaths("/user/email/verify"))

	resp := g.do(t, http.MethodPost, "/user/email/verify", strings.NewReader(`{"code":"1"}`))

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, b.refreshCalls.Load())
	assert.Equal(t, []string{"Bearer " + a1}, b.authSeen)
}

func TestPathSet(t *testing.T) {
	set := service.NewPathSet("/user/register", "validation-rule/all/")

	assert.True(t, set.Contains("/user/register"))
	assert.True(t, set.Contains("/user/register/"))
	assert.True(t, set.Contains("/validation-rule/all"))
	assert.False(t, set.Contains("/user/registered"))
	assert.False(t, set.Contains("/entry/all"))
}
