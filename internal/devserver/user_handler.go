package devserver

import (
	"crypto/rand"
	"finance-tracker-client/internal/model"
	"finance-tracker-client/internal/security"
	"finance-tracker-client/internal/service"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

var passwordRule = model.ValidationRule{Field: "password", MinLength: 8, MaxLength: 72, Required: true}

var validationRules = []model.ValidationRule{
	{Field: "username", Pattern: `^[a-zA-Z0-9_.-]+$`, MinLength: 3, MaxLength: 32, Required: true},
	{Field: "email", Pattern: `^[^@\s]+@[^@\s]+\.[^@\s]+$`, MaxLength: 254, Required: true},
	passwordRule,
	{Field: "firstName", MaxLength: 64},
	{Field: "lastName", MaxLength: 64},
}

// Register godoc
// @Summary Регистрация пользователя
// @Tags User
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Данные пользователя"
// @Success 201 {object} model.Envelope[any]
// @Failure 400 {object} model.Envelope[any]
// @Failure 409 {object} model.Envelope[any]
// @Router /api/user/register [post]
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	if err := service.ValidateRegistration(validationRules, req); err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "user.register.invalid")
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		sendErrorResponse(w, http.StatusInternalServerError, "server.internal")
		return
	}

	code, err := verificationCode()
	if err != nil {
		sendErrorResponse(w, http.StatusInternalServerError, "server.internal")
		return
	}

	s.state.mu.Lock()
	_, usernameTaken := s.state.accounts[req.Username]
	_, emailTaken := s.state.emails[strings.ToLower(req.Email)]
	if !usernameTaken && !emailTaken {
		s.state.accounts[req.Username] = &account{
			username:         req.Username,
			email:            strings.ToLower(req.Email),
			passwordHash:     hash,
			firstName:        req.FirstName,
			lastName:         req.LastName,
			verificationCode: code,
		}
		s.state.emails[strings.ToLower(req.Email)] = req.Username
	}
	s.state.mu.Unlock()

	switch {
	case usernameTaken:
		sendErrorResponse(w, http.StatusConflict, "user.register.username-taken")
		return
	case emailTaken:
		sendErrorResponse(w, http.StatusConflict, "user.register.email-taken")
		return
	}

	s.logger.Info("[DevServer] письмо с кодом подтверждения",
		slog.String("username", req.Username), slog.String("code", code))

	writeData(w, http.StatusCreated, map[string]string{"username": req.Username})
}

// Authenticate godoc
// @Summary Вход по логину и паролю
// @Tags User
// @Accept json
// @Produce json
// @Param request body model.AuthenticateRequest true "Логин и пароль"
// @Success 200 {object} model.Tokens
// @Failure 401 {object} model.Envelope[any]
// @Router /api/user/authenticate [post]
func (s *Server) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req model.AuthenticateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	s.state.mu.Lock()
	acc, ok := s.state.accounts[req.Username]
	var hash string
	if ok {
		hash = acc.passwordHash
	}
	s.state.mu.Unlock()

	if !ok || !security.CheckPassword(req.Password, hash) {
		sendErrorResponse(w, http.StatusUnauthorized, "user.authenticate.invalid-credentials")
		return
	}

	s.respondWithPair(w, req.Username)
}

// RefreshToken godoc
// @Summary Обмен refresh токена на новую пару
// @Description Refresh токен одноразовый: после обмена старый перестаёт действовать
// @Tags User
// @Accept json
// @Produce json
// @Param request body model.RefreshTokenRequest true "Refresh токен"
// @Success 200 {object} model.Tokens
// @Failure 400 {object} model.Envelope[any]
// @Router /api/user/refresh-token [post]
func (s *Server) RefreshToken(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	if delay := time.Duration(s.refreshDelay.Load()); delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if status := int(s.refreshFailure.Load()); status != 0 {
		sendErrorResponse(w, status, "dev.refresh.forced-failure")
		return
	}

	var req model.RefreshTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	s.state.mu.Lock()
	session, ok := s.state.sessions[req.RefreshToken]
	delete(s.state.sessions, req.RefreshToken)
	s.state.mu.Unlock()

	if !ok || time.Now().After(session.expiresAt) {
		sendErrorResponse(w, http.StatusBadRequest, "user.refresh-token.invalid")
		return
	}

	s.respondWithPair(w, session.username)
}

// RequestPasswordReset godoc
// @Summary Письмо со ссылкой на сброс пароля
// @Description Ответ одинаковый для известных и неизвестных адресов
// @Tags User
// @Accept json
// @Produce json
// @Param request body model.PasswordResetRequest true "E-mail"
// @Success 200 {object} model.Envelope[any]
// @Router /api/user/password/reset/request [post]
func (s *Server) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req model.PasswordResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	token := uuid.NewString()

	s.state.mu.Lock()
	username, ok := s.state.emails[strings.ToLower(req.Email)]
	if ok {
		s.state.resetTokens[token] = username
	}
	s.state.mu.Unlock()

	// ответ одинаковый для существующих и несуществующих адресов
	if ok {
		s.logger.Info("[DevServer] письмо со сбросом пароля", slog.String("username", username))
	}
	writeData(w, http.StatusOK, nil)
}

// ResetPassword : новый пароль по токену из письма, все сессии пользователя отзываются
// @Summary Новый пароль по токену из письма
// @Tags User
// @Accept json
// @Produce json
// @Param request body model.PasswordResetConfirm true "Токен из письма и новый пароль"
// @Success 200 {object} model.Envelope[any]
// @Failure 400 {object} model.Envelope[any]
// @Router /api/user/password/reset [patch]
func (s *Server) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req model.PasswordResetConfirm
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	if err := service.ValidateRegistration([]model.ValidationRule{passwordRule}, model.RegisterRequest{Password: req.Password}); err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "user.password-reset.weak-password")
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		sendErrorResponse(w, http.StatusInternalServerError, "server.internal")
		return
	}

	s.state.mu.Lock()
	username, ok := s.state.resetTokens[req.Token]
	if ok {
		delete(s.state.resetTokens, req.Token)
		s.state.accounts[username].passwordHash = hash
		s.state.revokeAll(username)
	}
	s.state.mu.Unlock()

	if !ok {
		sendErrorResponse(w, http.StatusBadRequest, "user.password-reset.invalid-token")
		return
	}
	writeData(w, http.StatusOK, nil)
}

// VerifyEmail : после подтверждения выдаётся новая пара с isEmailVerified=true
// @Summary Подтверждение e-mail
// @Tags User
// @Accept json
// @Produce json
// @Param request body model.EmailVerificationRequest true "Код из письма"
// @Success 200 {object} model.Tokens
// @Failure 400 {object} model.Envelope[any]
// @Security ApiKeyAuth
// @Router /api/user/email/verify [post]
func (s *Server) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		sendErrorResponse(w, http.StatusUnauthorized, "auth.unauthorized")
		return
	}

	var req model.EmailVerificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	s.state.mu.Lock()
	acc, ok := s.state.accounts[claims.Username]
	verified := ok && req.Code != "" && acc.verificationCode == req.Code
	if verified {
		acc.verified = true
	}
	s.state.mu.Unlock()

	if !verified {
		sendErrorResponse(w, http.StatusBadRequest, "user.email-verify.invalid-code")
		return
	}

	s.respondWithPair(w, claims.Username)
}

// ValidationRules godoc
// @Summary Правила валидации формы регистрации
// @Tags User
// @Produce json
// @Success 200 {array} model.ValidationRule
// @Router /api/validation-rule/all [get]
func (s *Server) ValidationRules(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, validationRules)
}

func (s *Server) respondWithPair(w http.ResponseWriter, username string) {
	tokens, err := s.issuePair(username)
	if err != nil {
		s.logger.Error("[DevServer] ошибка выдачи токенов", slog.Any("error", err))
		sendErrorResponse(w, http.StatusInternalServerError, "server.internal")
		return
	}
	writeData(w, http.StatusOK, tokens)
}

func (s *Server) issuePair(username string) (*model.Tokens, error) {
	s.state.mu.Lock()
	acc, ok := s.state.accounts[username]
	var claims security.Claims
	if ok {
		claims = security.Claims{
			Username:        acc.username,
			Email:           acc.email,
			IsEmailVerified: acc.verified,
			FirstName:       acc.firstName,
			LastName:        acc.lastName,
		}
	}
	s.state.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("пользователь %s не найден", username)
	}

	accessToken, err := s.jwt.GenerateAccessToken(claims)
	if err != nil {
		return nil, err
	}
	refreshToken, err := security.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	s.state.mu.Lock()
	s.state.activeAccess[accessToken] = username
	s.state.sessions[refreshToken] = refreshSession{
		username:  username,
		expiresAt: time.Now().Add(s.jwt.RefreshTTL()),
	}
	s.state.mu.Unlock()

	return &model.Tokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func verificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
