package service

import (
	"context"
	"errors"
	"finance-tracker-client/internal/model"
	"finance-tracker-client/internal/ports"
	"finance-tracker-client/internal/util"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	ErrNotAuthenticated = errors.New("пользователь не авторизован")
	ErrEmptyCredentials = errors.New("имя пользователя и пароль обязательны")
)

// ValidationError : поле формы не прошло правило сервера
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("поле %s: %s", e.Field, e.Reason)
}

// SessionService : вход, регистрация и выход поверх TokenStore
type SessionService struct {
	authAPI ports.AuthenticationAPI
	store   ports.TokenStore
}

func NewSessionService(authAPI ports.AuthenticationAPI, store ports.TokenStore) *SessionService {
	return &SessionService{
		authAPI: authAPI,
		store:   store,
	}
}

// Login : аутентификация и сохранение полученной пары
func (s *SessionService) Login(ctx context.Context, username, password string) (*model.AuthenticatedUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrEmptyCredentials
	}

	tokens, err := s.authAPI.Authenticate(ctx, username, password)
	if err != nil {
		return nil, util.LogError("[SessionService] ошибка аутентификации", err)
	}

	return s.store.Save(ctx, *tokens)
}

// Register : проверяет форму по правилам сервера и регистрирует пользователя
func (s *SessionService) Register(ctx context.Context, request model.RegisterRequest) error {
	rules, err := s.authAPI.ValidationRules(ctx)
	if err != nil {
		return util.LogError("[SessionService] не удалось получить правила валидации", err)
	}

	if err := ValidateRegistration(rules, request); err != nil {
		return err
	}

	if err := s.authAPI.Register(ctx, request); err != nil {
		return util.LogError("[SessionService] ошибка регистрации", err)
	}
	return nil
}

// VerifyEmail : сервер выдаёт новую пару с isEmailVerified=true
func (s *SessionService) VerifyEmail(ctx context.Context, code string) (*model.AuthenticatedUser, error) {
	if _, err := s.WhoAmI(ctx); err != nil {
		return nil, err
	}

	tokens, err := s.authAPI.VerifyEmail(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, util.LogError("[SessionService] ошибка подтверждения e-mail", err)
	}

	return s.store.Save(ctx, *tokens)
}

func (s *SessionService) RequestPasswordReset(ctx context.Context, email string) error {
	return s.authAPI.RequestPasswordReset(ctx, strings.TrimSpace(email))
}

func (s *SessionService) ResetPassword(ctx context.Context, token, password string) error {
	if password == "" {
		return &ValidationError{Field: "password", Reason: "обязательное поле"}
	}
	return s.authAPI.ResetPassword(ctx, token, password)
}

func (s *SessionService) Logout(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// WhoAmI : личность из сохранённой сессии, без обращения к серверу
func (s *SessionService) WhoAmI(ctx context.Context) (*model.AuthenticatedUser, error) {
	user, err := s.store.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	return user, nil
}

// ValidateRegistration : проверка формы регистрации по правилам из /validation-rule/all
func ValidateRegistration(rules []model.ValidationRule, request model.RegisterRequest) error {
	fields := map[string]string{
		"username":  request.Username,
		"email":     request.Email,
		"password":  request.Password,
		"firstName": deref(request.FirstName),
		"lastName":  deref(request.LastName),
	}

	for _, rule := range rules {
		value, known := fields[rule.Field]
		if !known {
			continue
		}

		if value == "" {
			if rule.Required {
				return &ValidationError{Field: rule.Field, Reason: "обязательное поле"}
			}
			continue
		}

		length := utf8.RuneCountInString(value)
		if rule.MinLength > 0 && length < rule.MinLength {
			return &ValidationError{Field: rule.Field, Reason: fmt.Sprintf("минимум %d символов", rule.MinLength)}
		}
		if rule.MaxLength > 0 && length > rule.MaxLength {
			return &ValidationError{Field: rule.Field, Reason: fmt.Sprintf("максимум %d символов", rule.MaxLength)}
		}

		if rule.Pattern != "" {
			pattern, err := regexp.Compile(rule.Pattern)
			if err != nil {
				// некомпилируемый шаблон пропускаем
				continue
			}
			if !pattern.MatchString(value) {
				return &ValidationError{Field: rule.Field, Reason: "неверный формат"}
			}
		}
	}

	return nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
