package service

import (
	"bytes"
	"errors"
	"finance-tracker-client/internal/metrics"
	"finance-tracker-client/internal/model"
	"finance-tracker-client/internal/ports"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	authorizationHeader = "Authorization"
	requestIDHeader     = "X-Request-ID"
	bearerPrefix        = "Bearer "
)

// DefaultAnonymousPaths : эндпоинты, которые вызываются без Authorization
var DefaultAnonymousPaths = []string{
	"/user/register",
	"/user/authenticate",
	"/user/refresh-token",
	"/user/password/reset/request",
	"/user/password/reset",
	"/validation-rule/all",
}

// PathSet : набор путей относительно base URL
type PathSet map[string]struct{}

func NewPathSet(paths ...string) PathSet {
	set := make(PathSet, len(paths))
	for _, path := range paths {
		set[normalizePath(path)] = struct{}{}
	}
	return set
}

func (s PathSet) Contains(path string) bool {
	_, ok := s[normalizePath(path)]
	return ok
}

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

type GatewayOption func(*AuthTransport)

// WithBasePath : префикс base URL, который отрезается перед сравнением с наборами путей
func WithBasePath(basePath string) GatewayOption {
	return func(t *AuthTransport) {
		t.basePath = strings.TrimRight(basePath, "/")
	}
}

func WithAnonymousPaths(paths ...string) GatewayOption {
	return func(t *AuthTransport) {
		t.anonymous = NewPathSet(paths...)
	}
}

// WithIgnoreUnauthorizedPaths : 401 на этих путях отдаётся вызывающему без обновления токенов
func WithIgnoreUnauthorizedPaths(paths ...string) GatewayOption {
	return func(t *AuthTransport) {
		t.ignoreUnauthorized = NewPathSet(paths...)
	}
}

func WithLogger(logger *slog.Logger) GatewayOption {
	return func(t *AuthTransport) {
		t.logger = logger
	}
}

// AuthTransport : http.RoundTripper, который подставляет access токен,
// а на 401 один раз обновляет токены и повторяет запрос
type AuthTransport struct {
	base               http.RoundTripper
	store              ports.TokenStore
	coordinator        ports.RefreshCoordinator
	basePath           string
	anonymous          PathSet
	ignoreUnauthorized PathSet
	logger             *slog.Logger
}

func NewAuthTransport(
	base http.RoundTripper,
	store ports.TokenStore,
	coordinator ports.RefreshCoordinator,
	opts ...GatewayOption,
) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	t := &AuthTransport{
		base:               base,
		store:              store,
		coordinator:        coordinator,
		anonymous:          NewPathSet(DefaultAnonymousPaths...),
		ignoreUnauthorized: NewPathSet(DefaultAnonymousPaths...),
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewGatewayClient : копия base клиента, все запросы которой идут через AuthTransport
func NewGatewayClient(
	base *http.Client,
	baseURL string,
	store ports.TokenStore,
	coordinator ports.RefreshCoordinator,
	opts ...GatewayOption,
) (*http.Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[Gateway] некорректный base URL %q: %w", baseURL, err)
	}

	client := *base
	opts = append([]GatewayOption{WithBasePath(parsed.Path)}, opts...)
	client.Transport = NewAuthTransport(base.Transport, store, coordinator, opts...)
	return &client, nil
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	path := t.relativePath(req.URL.Path)

	requestID := req.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	if t.anonymous.Contains(path) {
		return t.base.RoundTrip(t.outgoing(req, req.Body, "", requestID))
	}

	body, replay, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	tokens, err := t.store.Get(ctx)
	if err != nil {
		closeBody(body)
		return nil, err
	}
	accessToken := ""
	if tokens != nil {
		accessToken = tokens.AccessToken
	}

	resp, err := t.base.RoundTrip(t.outgoing(req, body, accessToken, requestID))
	if err != nil || resp.StatusCode != http.StatusUnauthorized || t.ignoreUnauthorized.Contains(path) {
		return resp, err
	}

	rotation, err := t.coordinator.RequestRefresh(ctx)
	if err != nil {
		var rejected *model.RefreshRejectedError
		if errors.As(err, &rejected) {
			if clearErr := t.store.ClearIfConsumed(ctx, rejected.Consumed); clearErr != nil {
				t.logger.Error("[Gateway] не удалось очистить сессию", slog.Any("error", clearErr))
			}
		}
		t.logger.Warn("[Gateway] обновление токенов не удалось, возвращаем исходный 401",
			slog.String("path", path), slog.String("request_id", requestID), slog.Any("error", err))
		return resp, nil
	}

	// повтор уходит с выданным токеном, даже если запись в хранилище не удалась
	if _, err := t.store.Rotate(ctx, rotation); err != nil && !errors.Is(err, model.ErrStaleRotation) {
		t.logger.Error("[Gateway] не удалось сохранить новую пару токенов", slog.Any("error", err))
	}

	drainBody(resp.Body)

	retryBody, err := replay()
	if err != nil {
		return nil, fmt.Errorf("[Gateway] не удалось повторить тело запроса: %w", err)
	}

	retry, err := t.base.RoundTrip(t.outgoing(req, retryBody, rotation.Issued.AccessToken, requestID))
	metrics.RetryTotal.WithLabelValues(retryStatus(retry, err)).Inc()
	return retry, err
}

// outgoing : копия запроса с нужным заголовком, запрос вызывающего не меняется
func (t *AuthTransport) outgoing(req *http.Request, body io.ReadCloser, accessToken, requestID string) *http.Request {
	out := req.Clone(req.Context())
	out.Body = body
	out.Header.Del(authorizationHeader)
	if accessToken != "" {
		out.Header.Set(authorizationHeader, bearerPrefix+accessToken)
	}
	out.Header.Set(requestIDHeader, requestID)
	return out
}

func (t *AuthTransport) relativePath(path string) string {
	if t.basePath == "" {
		return path
	}
	if path == t.basePath {
		return "/"
	}
	if strings.HasPrefix(path, t.basePath+"/") {
		return strings.TrimPrefix(path, t.basePath)
	}
	return path
}

// replayableBody : тело для первой попытки и функция, дающая его заново для повтора
func replayableBody(req *http.Request) (io.ReadCloser, func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req.Body, func() (io.ReadCloser, error) { return req.Body, nil }, nil
	}
	if req.GetBody != nil {
		return req.Body, req.GetBody, nil
	}

	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("[Gateway] не удалось прочитать тело запроса: %w", err)
	}

	replay := func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	body, _ := replay()
	return body, replay, nil
}

func drainBody(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}

func closeBody(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}

func retryStatus(resp *http.Response, err error) string {
	if err != nil {
		return "error"
	}
	return strconv.Itoa(resp.StatusCode)
}
