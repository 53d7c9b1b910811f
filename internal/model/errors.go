package model

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRefreshRejected : сервер отклонил refresh токен (истёк или отозван), пользователя нужно разлогинить
	ErrRefreshRejected = errors.New("refresh токен отклонён сервером")

	// ErrRefreshFailed : временная ошибка обновления (сеть, 5xx, таймаут), сессию не трогаем
	ErrRefreshFailed = errors.New("не удалось обновить токены")

	// ErrStaleRotation : пара токенов уже заменена более новой, запись пропущена
	ErrStaleRotation = errors.New("пара токенов уже заменена")
)

// RefreshRejectedError : отказ в refresh с тем refresh токеном, который был отправлен.
// errors.Is(err, ErrRefreshRejected) для неё истинно.
type RefreshRejectedError struct {
	Consumed string
	Err      error
}

func (e *RefreshRejectedError) Error() string {
	if e.Err == nil {
		return ErrRefreshRejected.Error()
	}
	return fmt.Sprintf("%v: %v", ErrRefreshRejected, e.Err)
}

func (e *RefreshRejectedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRefreshRejected}
	}
	return []error{ErrRefreshRejected, e.Err}
}

// DecodeError : access токен не удалось разобрать при сохранении
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("не удалось декодировать access токен: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// APIError : неуспешный ответ REST API (successful=false или статус не 2xx)
type APIError struct {
	StatusCode     int
	TranslationKey string
	Message        string
}

func (e *APIError) Error() string {
	switch {
	case e.TranslationKey != "":
		return fmt.Sprintf("ошибка API %d: %s", e.StatusCode, e.TranslationKey)
	case e.Message != "":
		return fmt.Sprintf("ошибка API %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("ошибка API %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
}

// IsUnauthorized : запрос отклонён по авторизации, нужен повторный вход
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsUnauthorized : проверяет всю цепочку ошибок на APIError с 401
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsUnauthorized()
}
