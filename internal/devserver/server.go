package devserver

import (
	"finance-tracker-client/config"
	_ "finance-tracker-client/internal/devserver/docs"
	"finance-tracker-client/internal/metrics"
	"finance-tracker-client/internal/security"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// BasePath : префикс всех маршрутов API
const BasePath = "/api"

// Server : REST backend учёта финансов для локальной разработки и интеграционных тестов.
// Выдаёт HS512 access токены и одноразовые refresh токены.
type Server struct {
	jwt    *security.JWTService
	logger *slog.Logger
	state  *state

	refreshCalls   atomic.Int64
	refreshDelay   atomic.Int64
	refreshFailure atomic.Int64
}

func New(cfg *config.JWTConfig, logger *slog.Logger) (*Server, error) {
	jwtService, err := security.NewJWTService(cfg)
	if err != nil {
		return nil, err
	}

	return &Server{
		jwt:    jwtService,
		logger: logger,
		state:  newState(),
	}, nil
}

// Routes : монтирует API в router под BasePath, документацию под /swagger/
func (s *Server) Routes(router chi.Router) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(s.requestLogger)

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Route(BasePath, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Post("/user/register", s.Register)
			r.Post("/user/authenticate", s.Authenticate)
			r.Post("/user/refresh-token", s.RefreshToken)
			r.Post("/user/password/reset/request", s.RequestPasswordReset)
			r.Patch("/user/password/reset", s.ResetPassword)
			r.Get("/validation-rule/all", s.ValidationRules)
		})

		r.Group(func(r chi.Router) {
			r.Use(security.JWTMiddleware(s.jwt, s.isActive, unauthorizedHandler()))

			r.Post("/user/email/verify", s.VerifyEmail)

			r.Get("/entry/all", s.ListEntries)
			r.Post("/entry", s.CreateEntry)
			r.Put("/entry/{id}", s.UpdateEntry)
			r.Delete("/entry/{id}", s.DeleteEntry)

			r.Get("/tag/all", s.ListTags)
			r.Post("/tag", s.CreateTag)
			r.Delete("/tag/{id}", s.DeleteTag)

			r.Get("/category/all", s.ListCategories)
			r.Post("/category", s.CreateCategory)

			r.Post("/statistics", s.Statistics)
		})
	})
}

// Handler : отдельный router с API, для httptest
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	s.Routes(router)
	return router
}

func (s *Server) isActive(accessToken string) bool {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	_, ok := s.state.activeAccess[accessToken]
	return ok
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}

		labels := []string{r.Method, route, strconv.Itoa(status)}
		metrics.RequestCount.WithLabelValues(labels...).Inc()
		metrics.RequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())

		s.logger.Debug("[DevServer] запрос",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// RevokeAccessTokens : все выданные пользователю access токены начинают получать 401
func (s *Server) RevokeAccessTokens(username string) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	for token, owner := range s.state.activeAccess {
		if owner == username {
			delete(s.state.activeAccess, token)
		}
	}
}

// RevokeRefreshTokens : refresh токены пользователя больше не обмениваются
func (s *Server) RevokeRefreshTokens(username string) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	for token, session := range s.state.sessions {
		if session.username == username {
			delete(s.state.sessions, token)
		}
	}
}

// RefreshCalls : сколько раз вызывался /user/refresh-token
func (s *Server) RefreshCalls() int64 {
	return s.refreshCalls.Load()
}

// SetRefreshDelay : задержка перед ответом /user/refresh-token
func (s *Server) SetRefreshDelay(delay time.Duration) {
	s.refreshDelay.Store(int64(delay))
}

// FailRefresh : /user/refresh-token отвечает заданным статусом, 0 - обычная работа
func (s *Server) FailRefresh(statusCode int) {
	s.refreshFailure.Store(int64(statusCode))
}

// VerificationCode : код подтверждения e-mail, который "ушёл" в письме
func (s *Server) VerificationCode(username string) string {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if acc, ok := s.state.accounts[username]; ok {
		return acc.verificationCode
	}
	return ""
}

// PasswordResetToken : токен сброса пароля для адреса
func (s *Server) PasswordResetToken(email string) string {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	username := s.state.emails[email]
	for token, owner := range s.state.resetTokens {
		if owner == username {
			return token
		}
	}
	return ""
}
