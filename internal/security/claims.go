package security

import (
	"errors"
	"finance-tracker-client/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

// Claims : содержимое access токена, из которого строится AuthenticatedUser
type Claims struct {
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	IsEmailVerified bool    `json:"isEmailVerified"`
	FirstName       *string `json:"firstName,omitempty"`
	LastName        *string `json:"lastName,omitempty"`
	jwt.RegisteredClaims
}

var errNoIdentity = errors.New("в токене нет username и sub")

// DecodeClaims разбирает access токен БЕЗ проверки подписи.
// Результат годится только для отображения, авторизацию проверяет сервер.
// Истёкший токен декодируется нормально: его как раз и нужно обновить.
func DecodeClaims(accessToken string) (*Claims, error) {
	claims := &Claims{}

	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, &model.DecodeError{Err: err}
	}

	if claims.Username == "" {
		if claims.Subject == "" {
			return nil, &model.DecodeError{Err: errNoIdentity}
		}
		claims.Username = claims.Subject
	}

	return claims, nil
}

// User : собирает AuthenticatedUser из claims и пары токенов
func (c *Claims) User(tokens model.Tokens) *model.AuthenticatedUser {
	return &model.AuthenticatedUser{
		Username:        c.Username,
		Email:           c.Email,
		IsEmailVerified: c.IsEmailVerified,
		FirstName:       c.FirstName,
		LastName:        c.LastName,
		AccessToken:     tokens.AccessToken,
		RefreshToken:    tokens.RefreshToken,
	}
}
