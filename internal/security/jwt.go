package security

import (
	"crypto/rand"
	"encoding/base64"
	"finance-tracker-client/config"
	"finance-tracker-client/internal/util"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "finance-devserver"

// JWTService выпускает и проверяет токены dev-сервера.
// Клиенту он не нужен: клиент только декодирует claims через DecodeClaims.
type JWTService struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewJWTService(cfg *config.JWTConfig) (*JWTService, error) {
	accessTTL, err := time.ParseDuration(cfg.AccessTokenTTL)
	if err != nil {
		return nil, util.LogError("[JWTService] ошибка парсинга access_token_ttl", err)
	}

	refreshTTL, err := time.ParseDuration(cfg.RefreshTokenTTL)
	if err != nil {
		return nil, util.LogError("[JWTService] ошибка парсинга refresh_token_ttl", err)
	}

	return &JWTService{
		secretKey:  []byte(cfg.SecretKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

func (service *JWTService) RefreshTTL() time.Duration {
	return service.refreshTTL
}

// GenerateAccessToken : подписывает access токен с claims пользователя
func (service *JWTService) GenerateAccessToken(claims Claims) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   claims.Username,
		ExpiresAt: jwt.NewNumericDate(now.Add(service.accessTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    issuer,
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	accessToken, err := jwtToken.SignedString(service.secretKey)
	if err != nil {
		return "", util.LogError("[JWTService] ошибка подписи токена", err)
	}

	return accessToken, nil
}

// ValidateJWT : проверяет подпись и срок действия access токена
func (service *JWTService) ValidateJWT(jwtTokenStr string) (*Claims, error) {
	var claims = &Claims{}

	jwtToken, err := jwt.ParseWithClaims(jwtTokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Header["alg"] != jwt.SigningMethodHS512.Alg() {
			return nil, fmt.Errorf("неверный способ подписи токена: %v", token.Header["alg"])
		}
		return service.secretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("невалидный токен: %w", err)
	}
	if !jwtToken.Valid {
		return nil, fmt.Errorf("невалидный токен")
	}

	return claims, nil
}

// GenerateRefreshToken : непрозрачный refresh токен, 32 случайных байта
func GenerateRefreshToken() (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", util.LogError("[JWTService] ошибка генерации", err)
	}

	return base64.RawURLEncoding.EncodeToString(tokenBytes), nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", util.LogError("[JWTService] ошибка хэширования", err)
	}
	return string(hash), nil
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
