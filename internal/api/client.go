package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"finance-tracker-client/internal/model"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"
)

const maxResponseSize = 10 << 20

// Client : тонкая обёртка над REST API, все ответы приходят в model.Envelope.
// Авторизацию делает транспорт переданного http.Client.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
}

func NewClient(baseURL string, httpClient *http.Client, userAgent string) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[APIClient] некорректный base URL %q: %w", baseURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("[APIClient] base URL %q должен быть абсолютным", baseURL)
	}

	return &Client{
		baseURL:    parsed,
		httpClient: httpClient,
		userAgent:  userAgent,
	}, nil
}

// endpoint : path уже экранирован вызывающим (url.PathEscape для идентификаторов)
func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.RawPath = strings.TrimRight(c.baseURL.EscapedPath(), "/") + path
	if unescaped, err := url.PathUnescape(u.RawPath); err == nil {
		u.Path = unescaped
	}
	u.RawQuery = query.Encode()
	return u.String()
}

// call : выполняет запрос и возвращает data из конверта
func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (T, error) {
	var zero T

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return zero, fmt.Errorf("[APIClient] ошибка сериализации запроса %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return zero, fmt.Errorf("[APIClient] ошибка создания запроса %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, fmt.Errorf("[APIClient] %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	return decodeEnvelope[T](resp)
}

func decodeEnvelope[T any](resp *http.Response) (T, error) {
	var envelope model.Envelope[T]

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return envelope.Data, fmt.Errorf("[APIClient] ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return envelope.Data, errorFromBody(resp.StatusCode, raw)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return envelope.Data, nil
	}

	if err := json.Unmarshal(raw, &envelope); err != nil {
		return envelope.Data, fmt.Errorf("[APIClient] ошибка разбора ответа: %w", err)
	}
	if !envelope.Successful {
		return envelope.Data, &model.APIError{
			StatusCode:     resp.StatusCode,
			TranslationKey: envelope.TranslationKey,
		}
	}

	return envelope.Data, nil
}

func errorFromBody(status int, raw []byte) error {
	apiErr := &model.APIError{StatusCode: status}

	var envelope model.Envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.TranslationKey != "" {
		apiErr.TranslationKey = envelope.TranslationKey
		return apiErr
	}

	apiErr.Message = truncateRunes(strings.TrimSpace(string(raw)), maxErrorMessageRunes)
	return apiErr
}

const maxErrorMessageRunes = 200

// truncateRunes : обрезка по границе символа, а не байта
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// IsNotFound : ресурс не найден на сервере
func IsNotFound(err error) bool {
	var apiErr *model.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
