package security

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const UserContextKey contextKey = "user"

// TokenChecker : проверка, что подписанный токен ещё не отозван
type TokenChecker func(accessToken string) bool

// JWTMiddleware пропускает запрос дальше только с действующим Bearer токеном.
// Claims кладутся в контекст по UserContextKey.
func JWTMiddleware(jwtService *JWTService, isActive TokenChecker, unauthorized http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authorizationHeader := request.Header.Get("Authorization")
			if !strings.HasPrefix(authorizationHeader, "Bearer ") {
				unauthorized.ServeHTTP(writer, request)
				return
			}

			token := strings.TrimPrefix(authorizationHeader, "Bearer ")

			claims, err := jwtService.ValidateJWT(token)
			if err != nil {
				slog.Debug("[JWTMiddleware] невалидный токен", slog.Any("error", err))
				unauthorized.ServeHTTP(writer, request)
				return
			}

			if isActive != nil && !isActive(token) {
				slog.Debug("[JWTMiddleware] токен отозван", slog.String("username", claims.Username))
				unauthorized.ServeHTTP(writer, request)
				return
			}

			req := request.WithContext(context.WithValue(request.Context(), UserContextKey, claims))
			next.ServeHTTP(writer, req)
		})
	}
}

func GetClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(UserContextKey).(*Claims)
	if !ok || claims == nil {
		return nil, fmt.Errorf("пользователь не авторизован")
	}
	return claims, nil
}
